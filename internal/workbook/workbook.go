package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/TOKYOFLOWER/BeDelivery/internal/parser"
)

// ErrUnsupportedFileType 対応していない拡張子
var ErrUnsupportedFileType = errors.New("xlsx / xls / csv ファイルを選択してください")

// csvSheetName CSV は1シートとして扱う
const csvSheetName = "Sheet1"

// Sheet シート1枚分。Rows は1行目を列名とした行データ、Headers はその列名（左から）
type Sheet struct {
	Name    string
	Headers []string
	Rows    []parser.RawRow
}

// Workbook 読み込んだブック
type Workbook struct {
	Sheets []Sheet
}

// SheetNames シート名一覧（ブック内の順序）
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// Sheet 指定シート
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i], nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found", name)
}

// Rows 指定シートの行データ
func (w *Workbook) Rows(name string) ([]parser.RawRow, error) {
	s, err := w.Sheet(name)
	if err != nil {
		return nil, err
	}
	return s.Rows, nil
}

// IsSupported 拡張子で判定する
func IsSupported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}

// Decode ファイル名の拡張子に応じてブックを読み込む
func Decode(fileName string, data []byte) (*Workbook, error) {
	var (
		grids map[string][][]string
		order []string
		err   error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		order, grids, err = readXLSX(data)
	case ".xls":
		order, grids, err = readXLS(data)
	case ".csv":
		var grid [][]string
		grid, err = readCSV(data)
		order = []string{csvSheetName}
		grids = map[string][][]string{csvSheetName: grid}
	default:
		return nil, ErrUnsupportedFileType
	}
	if err != nil {
		return nil, err
	}

	wb := &Workbook{Sheets: make([]Sheet, 0, len(order))}
	for _, name := range order {
		headers, rows := toRows(grids[name])
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Headers: headers, Rows: rows})
	}
	return wb, nil
}

func readXLSX(data []byte) ([]string, map[string][][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	grids := make(map[string][][]string, len(names))
	for _, name := range names {
		// 日付セルはシリアル値のまま受け取る
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		grids[name] = rows
	}
	return names, grids, nil
}

func readXLS(data []byte) ([]string, map[string][][]string, error) {
	// xlsReader はファイルパスからしか読めない
	tmp, err := os.CreateTemp("", "bedelivery-*.xls")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xls: %w", err)
	}

	var names []string
	grids := make(map[string][][]string)
	for i := 0; i < book.GetNumberSheets(); i++ {
		sheet, err := book.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}

		var grid [][]string
		for r := 0; r <= int(sheet.GetNumberRows()); r++ {
			row, err := sheet.GetRow(r)
			if err != nil || row == nil {
				grid = append(grid, nil)
				continue
			}
			var cells []string
			for _, col := range row.GetCols() {
				if col == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, col.GetString())
			}
			grid = append(grid, cells)
		}

		name := sheet.GetName()
		names = append(names, name)
		grids[name] = grid
	}
	return names, grids, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// Excel が書き出す CSV は Shift_JIS のことが多い
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

// toRows 1行目を列名として行データに変換する
// 空行は読み飛ばし、足りないセルは空文字で埋める。列名が重複した場合は _1, _2 を付ける。
func toRows(grid [][]string) ([]string, []parser.RawRow) {
	if len(grid) == 0 {
		return nil, nil
	}

	headers := make([]string, len(grid[0]))
	order := make([]string, 0, len(grid[0]))
	seen := make(map[string]int)
	for i, h := range grid[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 0
		}
		headers[i] = h
		order = append(order, h)
	}

	rows := make([]parser.RawRow, 0, len(grid)-1)
	for _, line := range grid[1:] {
		if isBlank(line) {
			continue
		}
		row := make(parser.RawRow, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(line) {
				value = line[i]
			}
			row[h] = parser.ParseCell(value)
		}
		rows = append(rows, row)
	}
	return order, rows
}

func isBlank(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
