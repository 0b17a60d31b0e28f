package model

// CandidateRecord スプレッドシート1行から作成した未登録の注文候補
type CandidateRecord struct {
	// 照合キー
	RecipientName string `json:"recipientName"`
	No            string `json:"no"`
	ChangeFlag    string `json:"changeFlag"`

	Recipient

	DeliveryDate string `json:"deliveryDate"` // YYYY/MM/DD または空
	OrderRemarks string `json:"orderRemarks"`

	// 元データ（表示用）
	Age         string `json:"age"`
	Birthday    string `json:"birthday"`
	FullAddress string `json:"fullAddress"`

	// 固定値
	Orderer
	Product
	OrderDate string `json:"orderDate"` // YYYY-MM-DD
}

// DiffType 差分タイプ
type DiffType string

const (
	DiffAdd       DiffType = "追加"
	DiffUpdate    DiffType = "変更"
	DiffDelete    DiffType = "削除"
	DiffUnchanged DiffType = "変更なし"
)

// DiffTypes 表示順に並べた差分タイプ
var DiffTypes = []DiffType{DiffAdd, DiffUpdate, DiffDelete, DiffUnchanged}

// Rank 並び順（追加 → 変更 → 削除 → 変更なし）
func (t DiffType) Rank() int {
	switch t {
	case DiffAdd:
		return 0
	case DiffUpdate:
		return 1
	case DiffDelete:
		return 2
	default:
		return 3
	}
}

// FieldChange 項目単位の変更
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// DiffEntry 照合キー1件分の判定結果
type DiffEntry struct {
	Type      DiffType         `json:"type"`
	Name      string           `json:"name"`
	Candidate *CandidateRecord `json:"candidate"`
	Existing  *Order           `json:"existing"`
	OrderKey  *string          `json:"orderKey"`
	Changes   []FieldChange    `json:"changes,omitempty"`
	Included  bool             `json:"included"`
}

// Actionable 取り込み対象として選択されているか
func (e DiffEntry) Actionable() bool {
	return e.Included && e.Type != DiffUnchanged
}

// DiffCounts 差分タイプ別の件数
type DiffCounts struct {
	Add       int `json:"add"`
	Update    int `json:"update"`
	Delete    int `json:"delete"`
	Unchanged int `json:"unchanged"`
}

// Of 指定タイプの件数
func (c DiffCounts) Of(t DiffType) int {
	switch t {
	case DiffAdd:
		return c.Add
	case DiffUpdate:
		return c.Update
	case DiffDelete:
		return c.Delete
	default:
		return c.Unchanged
	}
}

// Total 全件数
func (c DiffCounts) Total() int {
	return c.Add + c.Update + c.Delete + c.Unchanged
}

// CountDiff 差分タイプ別に集計する
func CountDiff(entries []DiffEntry) DiffCounts {
	var c DiffCounts
	for _, e := range entries {
		switch e.Type {
		case DiffAdd:
			c.Add++
		case DiffUpdate:
			c.Update++
		case DiffDelete:
			c.Delete++
		default:
			c.Unchanged++
		}
	}
	return c
}

// BatchUpdate 一括更新の1件
type BatchUpdate struct {
	OrderKey  string       `json:"orderKey"`
	OrderData OrderPayload `json:"orderData"`
}

// BatchRequest 一括インポート要求
type BatchRequest struct {
	Additions []OrderPayload `json:"additions"`
	Updates   []BatchUpdate  `json:"updates"`
	Deletions []string       `json:"deletions"`
}

// Empty 要求が空かどうか
func (b BatchRequest) Empty() bool {
	return len(b.Additions) == 0 && len(b.Updates) == 0 && len(b.Deletions) == 0
}

// BatchResult 一括インポート結果（注文ストアの返却値）
type BatchResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}
