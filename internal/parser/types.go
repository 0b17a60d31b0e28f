package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var numericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Cell セルの値（文字列または数値）
type Cell struct {
	Text     string
	Number   float64
	IsNumber bool
}

// TextCell 文字列セル
func TextCell(s string) Cell {
	return Cell{Text: s}
}

// NumberCell 数値セル
func NumberCell(f float64) Cell {
	return Cell{Number: f, IsNumber: true}
}

// String セルの値を文字列で返す（数値は指数表記にしない）
func (c Cell) String() string {
	if c.IsNumber {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// ParseCell 読み取った文字列を数値として解釈できれば数値セルにする
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TextCell(raw)
	}
	// 先頭0の番号（電話番号・郵便番号）は文字列のまま
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return TextCell(raw)
	}
	if !numericRe.MatchString(s) {
		return TextCell(raw)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberCell(f)
	}
	return TextCell(raw)
}

// RawRow 列名 → セル値。スプレッドシート1行分
type RawRow map[string]Cell

// Field 内部キー
type Field string

const (
	FieldNo            Field = "no"
	FieldBirthday      Field = "birthday"
	FieldRecipientName Field = "recipientName"
	FieldAge           Field = "age"
	FieldFullAddress   Field = "fullAddress"
	FieldPhone         Field = "phone"
	FieldMessage       Field = "message"
	FieldChangeFlag    Field = "changeFlag"
)
