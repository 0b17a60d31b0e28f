// Package reconcile 取り込み候補と既存注文を照合し、追加・変更・削除・変更なしに分類する。
// 入出力を持たない純粋な処理で、同じ入力には常に同じ結果を返す。
package reconcile

import (
	"sort"
	"strings"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/normalize"
)

// DefaultDeleteSentinel 変更フラグがこの値の行は削除扱い
const DefaultDeleteSentinel = "削除"

// ChangeFlagField 変更フラグを変更理由として記録するときの項目名
const ChangeFlagField = "変更フラグ"

type comparedField struct {
	label     string
	candidate func(*model.CandidateRecord) string
	existing  func(*model.Order) string
}

// comparedFields 差分を検出する項目（表示順）
var comparedFields = []comparedField{
	{"連絡先", func(c *model.CandidateRecord) string { return c.RecipientPhone }, func(o *model.Order) string { return o.RecipientPhone }},
	{"郵便番号", func(c *model.CandidateRecord) string { return c.RecipientZipCode }, func(o *model.Order) string { return o.RecipientZipCode }},
	{"都道府県", func(c *model.CandidateRecord) string { return c.RecipientPrefecture }, func(o *model.Order) string { return o.RecipientPrefecture }},
	{"市区町村", func(c *model.CandidateRecord) string { return c.RecipientCity }, func(o *model.Order) string { return o.RecipientCity }},
	{"住所", func(c *model.CandidateRecord) string { return c.RecipientAddress }, func(o *model.Order) string { return o.RecipientAddress }},
	{"建物名", func(c *model.CandidateRecord) string { return c.RecipientBuilding }, func(o *model.Order) string { return o.RecipientBuilding }},
	{"配送日", func(c *model.CandidateRecord) string { return c.DeliveryDate }, func(o *model.Order) string { return o.DeliveryDate }},
	{"メッセージ", func(c *model.CandidateRecord) string { return c.OrderRemarks }, func(o *model.Order) string { return o.OrderRemarks }},
}

// Reconciler 照合器
type Reconciler struct {
	DeleteSentinel string
}

// New 既定の削除フラグで作成する
func New() *Reconciler {
	return &Reconciler{DeleteSentinel: DefaultDeleteSentinel}
}

// Reconcile 既定の設定で照合する
func Reconcile(candidates []model.CandidateRecord, existing []model.Order) []model.DiffEntry {
	return New().Reconcile(candidates, existing)
}

// MatchKey 照合キー（姓と名を区切りなしで連結）
func MatchKey(lastName, firstName string) string {
	return lastName + firstName
}

// Index 既存注文を照合キーで引けるようにする
// 同じキーの注文が複数あれば後のものが残る。
func Index(existing []model.Order) map[string]*model.Order {
	idx := make(map[string]*model.Order, len(existing))
	for i := range existing {
		o := &existing[i]
		key := MatchKey(o.RecipientLastName, o.RecipientFirstName)
		if key == "" {
			continue
		}
		idx[key] = o
	}
	return idx
}

// Reconcile 候補ごとに1件の差分を作り、追加 → 変更 → 削除 → 変更なしの順に並べる
func (r *Reconciler) Reconcile(candidates []model.CandidateRecord, existing []model.Order) []model.DiffEntry {
	idx := Index(existing)
	entries := make([]model.DiffEntry, 0, len(candidates))

	for i := range candidates {
		c := candidates[i]
		name := MatchKey(c.RecipientLastName, c.RecipientFirstName)

		entry := model.DiffEntry{Name: name, Candidate: &c}

		match := idx[name]
		if match != nil {
			existing := *match
			key := existing.OrderKey
			entry.Existing = &existing
			entry.OrderKey = &key
		}

		switch {
		case c.ChangeFlag == r.DeleteSentinel:
			entry.Type = model.DiffDelete
			entry.Included = true
		case match == nil:
			entry.Type = model.DiffAdd
			entry.Included = true
		default:
			entry.Changes = r.detectChanges(&c, match)
			if len(entry.Changes) > 0 || c.ChangeFlag != "" {
				entry.Type = model.DiffUpdate
				entry.Included = true
			} else {
				entry.Type = model.DiffUnchanged
				entry.Included = false
			}
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Type.Rank() < entries[b].Type.Rank()
	})
	return entries
}

// detectChanges 空でない候補値が既存値と異なる項目を列挙する
// 全角・半角の違いだけの値は同じとみなす。
func (r *Reconciler) detectChanges(c *model.CandidateRecord, o *model.Order) []model.FieldChange {
	var changes []model.FieldChange
	for _, f := range comparedFields {
		newVal := strings.TrimSpace(f.candidate(c))
		oldVal := strings.TrimSpace(f.existing(o))
		if newVal != "" && normalize.Fold(newVal) != normalize.Fold(oldVal) {
			changes = append(changes, model.FieldChange{Field: f.label, OldValue: oldVal, NewValue: newVal})
		}
	}

	if c.ChangeFlag != "" && c.ChangeFlag != r.DeleteSentinel && !hasField(changes, ChangeFlagField) {
		changes = append(changes, model.FieldChange{Field: ChangeFlagField, NewValue: c.ChangeFlag})
	}
	return changes
}

func hasField(changes []model.FieldChange, field string) bool {
	for _, c := range changes {
		if c.Field == field {
			return true
		}
	}
	return false
}
