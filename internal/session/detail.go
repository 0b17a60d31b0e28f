package session

import (
	"fmt"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

const detailMaxRunes = 40

// Detail 差分1件の表示用の説明
func Detail(e model.DiffEntry) []string {
	switch e.Type {
	case model.DiffAdd:
		var birthday, address, phone string
		if e.Candidate != nil {
			birthday, address, phone = e.Candidate.Birthday, e.Candidate.FullAddress, e.Candidate.RecipientPhone
		}
		return []string{
			"誕生日: " + orDash(birthday),
			"住所: " + orDash(address),
			"連絡先: " + orDash(phone),
		}
	case model.DiffUpdate:
		lines := make([]string, 0, len(e.Changes))
		for _, c := range e.Changes {
			if c.OldValue != "" {
				lines = append(lines, fmt.Sprintf("%s: %s → %s", c.Field, Truncate(c.OldValue, detailMaxRunes), Truncate(c.NewValue, detailMaxRunes)))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", c.Field, Truncate(c.NewValue, detailMaxRunes)))
		}
		return lines
	case model.DiffDelete:
		return []string{"この宛先を注文リストから削除します"}
	}
	return nil
}

// Truncate max 文字を超える部分を … に置き換える
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
