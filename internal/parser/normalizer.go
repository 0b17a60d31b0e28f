package parser

import (
	"errors"
	"time"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/normalize"
)

// ErrEmptyResult 有効な行が1件もない
var ErrEmptyResult = errors.New("有効なデータが見つかりません")

// Defaults 候補レコードに設定する固定値
type Defaults struct {
	Orderer model.Orderer
	Product model.Product
}

// DefaultDefaults 既定の注文者・商品
func DefaultDefaults() Defaults {
	return Defaults{
		Orderer: model.DefaultOrderer(),
		Product: model.DefaultProduct(),
	}
}

// RowNormalizer 1行を候補レコードに変換する
type RowNormalizer struct {
	Mapper   *ColumnMapper
	Address  normalize.AddressParser
	Names    normalize.NameSplitter
	Defaults Defaults
	Now      func() time.Time
}

// NewRowNormalizer 日本語向けの既定の分解器で作成する
func NewRowNormalizer(defaults Defaults) *RowNormalizer {
	return &RowNormalizer{
		Mapper:   NewColumnMapper(),
		Address:  normalize.JapaneseAddressParser{},
		Names:    normalize.HeuristicNameSplitter{},
		Defaults: defaults,
		Now:      time.Now,
	}
}

// Normalize 1行を正規化する。宛名が取れなければ false
func (n *RowNormalizer) Normalize(row RawRow) (model.CandidateRecord, bool) {
	return n.normalize(nil, row)
}

func (n *RowNormalizer) normalize(headers []string, row RawRow) (model.CandidateRecord, bool) {
	mapped := n.Mapper.MapColumns(headers, row)

	name := mapped[FieldRecipientName]
	if name == "" {
		return model.CandidateRecord{}, false
	}

	now := n.Now()
	addr := n.Address.ParseAddress(mapped[FieldFullAddress])
	person := n.Names.SplitName(name)

	rec := model.CandidateRecord{
		RecipientName: name,
		No:            mapped[FieldNo],
		ChangeFlag:    mapped[FieldChangeFlag],
		Recipient: model.Recipient{
			RecipientLastName:   person.LastName,
			RecipientFirstName:  person.FirstName,
			RecipientZipCode:    addr.ZipCode,
			RecipientPrefecture: addr.Prefecture,
			RecipientCity:       addr.City,
			RecipientAddress:    addr.Address,
			RecipientBuilding:   addr.Building,
			RecipientPhone:      normalize.FormatPhone(mapped[FieldPhone]),
		},
		DeliveryDate: normalize.NextDeliveryDate(mapped[FieldBirthday], now),
		OrderRemarks: mapped[FieldMessage],
		Age:          mapped[FieldAge],
		Birthday:     mapped[FieldBirthday],
		FullAddress:  mapped[FieldFullAddress],
		Orderer:      n.Defaults.Orderer,
		Product:      n.Defaults.Product,
		OrderDate:    now.Format("2006-01-02"),
	}
	return rec, true
}

// ParseRows 全行を正規化し、宛名のない行を除外する
func (n *RowNormalizer) ParseRows(rows []RawRow) ([]model.CandidateRecord, error) {
	return n.ParseTable(nil, rows)
}

// ParseTable シートの列順 headers を使って全行を正規化する
func (n *RowNormalizer) ParseTable(headers []string, rows []RawRow) ([]model.CandidateRecord, error) {
	records := make([]model.CandidateRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := n.normalize(headers, row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyResult
	}
	return records, nil
}

// ParseRows 既定設定で全行を正規化する
func ParseRows(rows []RawRow) ([]model.CandidateRecord, error) {
	return NewRowNormalizer(DefaultDefaults()).ParseRows(rows)
}
