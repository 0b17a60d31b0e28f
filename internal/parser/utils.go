package parser

import (
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`[\s\x{3000}]+`)

// NormalizeColumnName 列名を正規化する（前後空白・改行・タブ・空白を除去）
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	return spaceRe.ReplaceAllString(name, "")
}

// ContainsAny いずれかのキーワードを含むか
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Contains 文字列スライスに含まれるか
func Contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
