package normalize

import (
	"regexp"
	"strings"
)

var (
	nonDigitRe  = regexp.MustCompile(`[^0-9]`)
	mobileRe    = regexp.MustCompile(`^0[5789]0`)
	areaCode2Re = regexp.MustCompile(`^0[3-6]`)
	phone344Re  = regexp.MustCompile(`^(\d{3})(\d{4})(\d{4})$`)
	phone244Re  = regexp.MustCompile(`^(\d{2})(\d{4})(\d{4})$`)
	phone424Re  = regexp.MustCompile(`^(\d{4})(\d{2})(\d{4})$`)
)

// FormatPhone 電話番号にハイフンを付与する
// 数値として読み込まれて先頭の0が消えた10桁の番号は0を補う。
// どの形式にも当てはまらなければ元の文字列をそのまま返す。
func FormatPhone(phone string) string {
	if phone == "" {
		return ""
	}

	digits := nonDigitRe.ReplaceAllString(Fold(phone), "")

	if len(digits) == 10 && !strings.HasPrefix(digits, "0") {
		digits = "0" + digits
	}

	// 携帯電話 (090, 080, 070, 050)
	if mobileRe.MatchString(digits) {
		if phone344Re.MatchString(digits) {
			return phone344Re.ReplaceAllString(digits, "$1-$2-$3")
		}
		return phone
	}

	// 固定電話 (03, 06 等の2桁市外局番)
	if areaCode2Re.MatchString(digits) {
		if phone244Re.MatchString(digits) {
			return phone244Re.ReplaceAllString(digits, "$1-$2-$3")
		}
		return phone
	}

	// その他（4桁市外局番）
	if len(digits) == 10 {
		return phone424Re.ReplaceAllString(digits, "$1-$2-$3")
	}

	return phone
}

// Digits 数字以外を取り除く
func Digits(s string) string {
	return nonDigitRe.ReplaceAllString(Fold(s), "")
}
