package normalize

import (
	"strings"

	"golang.org/x/text/width"
)

// Fold 全角英数字・記号を半角に、半角カナを全角に揃える
func Fold(s string) string {
	return width.Fold.String(s)
}

// FoldDigits 全角数字とハイフン類だけを半角にする。文字・カナはそのまま残す
func FoldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return r - '０' + '0'
		case r == '－', r == '‐', r == '−', r == '‑':
			return '-'
		}
		return r
	}, s)
}
