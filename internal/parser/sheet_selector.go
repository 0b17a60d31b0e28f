package parser

import "errors"

// ErrNoDataSheet 取り込み対象のシートがない
var ErrNoDataSheet = errors.New("データシートが見つかりません")

var (
	// DefaultSheetPriority 優先して使うシート名
	DefaultSheetPriority = []string{"お花リスト", "リスト", "Sheet1"}
	// DefaultExcludedSheets データシートとして扱わないシート名
	DefaultExcludedSheets = []string{"移籍組情報"}
)

// SheetSelector データシートの選択
type SheetSelector struct {
	Priority []string
	Excluded []string
}

// NewSheetSelector 既定の優先順位で作成する
func NewSheetSelector() *SheetSelector {
	return &SheetSelector{
		Priority: DefaultSheetPriority,
		Excluded: DefaultExcludedSheets,
	}
}

// Select 優先リストの順に探し、なければ除外対象以外の最初のシートを返す
func (s *SheetSelector) Select(names []string) (string, error) {
	for _, p := range s.Priority {
		if Contains(names, p) {
			return p, nil
		}
	}
	for _, name := range names {
		if !Contains(s.Excluded, name) {
			return name, nil
		}
	}
	return "", ErrNoDataSheet
}

// SelectDataSheet 既定の優先順位でデータシートを選ぶ
func SelectDataSheet(names []string) (string, error) {
	return NewSheetSelector().Select(names)
}
