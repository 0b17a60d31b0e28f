package parser

import (
	"sort"
	"strings"
)

// ColumnAlias Excel の列名と内部キーの対応
type ColumnAlias struct {
	Header string
	Field  Field
}

// DefaultColumnAliases Excel の列名 → 内部キー
// 同じ内部キーに複数の列がある場合は後ろの別名が優先される（値が空でも上書き）。
var DefaultColumnAliases = []ColumnAlias{
	{"No", FieldNo},
	{"No.", FieldNo},
	{"誕生日", FieldBirthday},
	{"宛名", FieldRecipientName},
	{"年齢", FieldAge},
	{"住所", FieldFullAddress},
	{"連絡先", FieldPhone},
	{"メッセージ", FieldMessage},
	{"変更", FieldChangeFlag},
	{"変更フラグ", FieldChangeFlag},
}

// DefaultNameKeywords 宛名列が見つからない場合に探す列名のキーワード
var DefaultNameKeywords = []string{"宛名", "名前"}

// ColumnMapper 列名の対応付け
type ColumnMapper struct {
	aliases      []ColumnAlias
	nameKeywords []string
}

// NewColumnMapper 既定の対応表で作成する
func NewColumnMapper() *ColumnMapper {
	return &ColumnMapper{
		aliases:      DefaultColumnAliases,
		nameKeywords: DefaultNameKeywords,
	}
}

// Map 1行分のセルを内部キーに振り分ける。列順が分からないので列名順に走査する
func (m *ColumnMapper) Map(row RawRow) map[Field]string {
	return m.MapColumns(nil, row)
}

// MapColumns シートの列順 headers に従って1行分のセルを振り分ける
// 値は前後の空白を除いた文字列。headers にない列は列名順で後ろに回す。
func (m *ColumnMapper) MapColumns(headers []string, row RawRow) map[Field]string {
	order := columnOrder(headers, row)

	// 正規化した列名 → 元の列名（先に現れた列を採用）
	byName := make(map[string]string, len(order))
	for _, h := range order {
		name := NormalizeColumnName(h)
		if _, ok := byName[name]; !ok {
			byName[name] = h
		}
	}

	mapped := make(map[Field]string)
	for _, a := range m.aliases {
		h, ok := byName[a.Header]
		if !ok {
			continue
		}
		mapped[a.Field] = strings.TrimSpace(row[h].String())
	}

	// 列名が完全一致しない場合のフォールバック（1回だけ、左の列から）
	if mapped[FieldRecipientName] == "" {
		for _, h := range order {
			if ContainsAny(NormalizeColumnName(h), m.nameKeywords) {
				mapped[FieldRecipientName] = strings.TrimSpace(row[h].String())
				break
			}
		}
	}

	return mapped
}

// columnOrder 行に存在する列を headers の順に並べる
func columnOrder(headers []string, row RawRow) []string {
	order := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, h := range headers {
		if _, ok := row[h]; ok && !seen[h] {
			order = append(order, h)
			seen[h] = true
		}
	}

	rest := make([]string, 0, len(row)-len(order))
	for h := range row {
		if !seen[h] {
			rest = append(rest, h)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
