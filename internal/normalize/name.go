package normalize

import "strings"

// PersonName 姓名
type PersonName struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
}

// NameSplitter 宛名を姓と名に分ける
type NameSplitter interface {
	SplitName(name string) PersonName
}

// HeuristicNameSplitter 空白区切り、なければ文字数で姓名を推定する
// 言語的に正しい分割ではない。
type HeuristicNameSplitter struct{}

// SplitName 宛名を姓名に分離する
func (HeuristicNameSplitter) SplitName(name string) PersonName {
	if name == "" {
		return PersonName{}
	}

	// スペース区切り
	if parts := strings.Fields(name); len(parts) >= 2 {
		return PersonName{LastName: parts[0], FirstName: strings.Join(parts[1:], "")}
	}

	runes := []rune(strings.TrimSpace(name))
	switch {
	case len(runes) > 3:
		return PersonName{LastName: string(runes[:2]), FirstName: string(runes[2:])}
	case len(runes) >= 2:
		return PersonName{LastName: string(runes[:1]), FirstName: string(runes[1:])}
	default:
		return PersonName{LastName: string(runes)}
	}
}
