// Package exporter は差分プレビューと注文一覧を xlsx に書き出す。
package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/session"
)

// シート名
const (
	SheetReview  = "差分"
	SheetSummary = "集計"
	SheetOrders  = "注文一覧"
)

var reviewHeaders = []string{"No", "取込", "種別", "宛名", "注文キー", "内容"}

var orderHeaders = []string{
	"注文キー", "注文番号", "ステータス", "注文日", "配送日",
	"お届け先姓", "お届け先名", "郵便番号", "都道府県", "市区町村", "住所", "建物名", "電話番号",
	"商品コード", "商品名", "単価", "数量", "支払方法", "備考",
}

type styles struct {
	header int
	wrap   int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#808080", Style: 1},
		},
	})
	if err != nil {
		return styles{}, fmt.Errorf("ヘッダー書式の作成に失敗しました: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return styles{}, fmt.Errorf("折り返し書式の作成に失敗しました: %w", err)
	}
	return styles{header: header, wrap: wrap}, nil
}

// ExportReview 差分一覧を xlsx にする
// 1枚目に差分、2枚目に種別ごとの件数を書く。
func ExportReview(fileName string, entries []model.DiffEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillReview(f, fileName, entries); err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

func fillReview(f *excelize.File, fileName string, entries []model.DiffEntry) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", SheetReview); err != nil {
		return err
	}

	if err := writeHeader(f, SheetReview, reviewHeaders, st.header); err != nil {
		return err
	}
	for i, e := range entries {
		key := ""
		if e.OrderKey != nil {
			key = *e.OrderKey
		}
		included := ""
		if e.Actionable() {
			included = "✓"
		}
		row := []any{i + 1, included, string(e.Type), e.Name, key, strings.Join(session.Detail(e), "\n")}
		if err := setRow(f, SheetReview, i+2, row); err != nil {
			return err
		}
	}
	last := len(entries) + 1
	if len(entries) > 0 {
		if err := f.SetCellStyle(SheetReview, "F2", fmt.Sprintf("F%d", last), st.wrap); err != nil {
			return err
		}
	}
	for col, width := range map[string]float64{"A": 6, "B": 6, "C": 10, "D": 20, "E": 24, "F": 60} {
		if err := f.SetColWidth(SheetReview, col, col, width); err != nil {
			return err
		}
	}
	if err := freezeHeader(f, SheetReview); err != nil {
		return err
	}
	if err := f.AutoFilter(SheetReview, fmt.Sprintf("A1:F%d", last), nil); err != nil {
		return err
	}

	return fillSummary(f, fileName, entries, st)
}

func fillSummary(f *excelize.File, fileName string, entries []model.DiffEntry, st styles) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	counts := model.CountDiff(entries)
	selected := 0
	for _, e := range entries {
		if e.Actionable() {
			selected++
		}
	}

	rows := [][]any{
		{"ファイル", fileName},
		{string(model.DiffAdd), counts.Add},
		{string(model.DiffUpdate), counts.Update},
		{string(model.DiffDelete), counts.Delete},
		{string(model.DiffUnchanged), counts.Unchanged},
		{"合計", counts.Total()},
		{"取込対象", selected},
	}
	for i, row := range rows {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), st.header); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "B", 16)
}

// ExportOrders 注文一覧を xlsx にする
func ExportOrders(orders []model.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillOrders(f, orders); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func fillOrders(f *excelize.File, orders []model.Order) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", SheetOrders); err != nil {
		return err
	}
	if err := writeHeader(f, SheetOrders, orderHeaders, st.header); err != nil {
		return err
	}

	for i, o := range orders {
		row := []any{
			o.OrderKey, o.OrderNumber, string(o.Status), o.OrderDate, o.DeliveryDate,
			o.RecipientLastName, o.RecipientFirstName, o.RecipientZipCode, o.RecipientPrefecture,
			o.RecipientCity, o.RecipientAddress, o.RecipientBuilding, o.RecipientPhone,
			o.ProductCode, o.ProductName, o.UnitPrice, o.Quantity, o.PaymentMethod, o.OrderRemarks,
		}
		if err := setRow(f, SheetOrders, i+2, row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(orderHeaders))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetOrders, "A", lastCol, 14); err != nil {
		return err
	}
	return freezeHeader(f, SheetOrders)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", lastCol+"1", style)
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func freezeHeader(f *excelize.File, sheet string) error {
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
