package export

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 8
	maxColWidth = 48
)

// sheetStyles: стили, общие для обоих листов выписки.
type sheetStyles struct {
	header int
	money  int
	muted  int
}

func newSheetStyles(f *excelize.File) (*sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Border: []excelize.Border{{Type: "bottom", Color: "#9BC2E6", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	// 3 = "#,##0": суммы в вонах без дробной части
	money, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}
	muted, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "#808080", Italic: true}})
	if err != nil {
		return nil, fmt.Errorf("muted style: %w", err)
	}
	return &sheetStyles{header: header, money: money, muted: muted}, nil
}

// formatTable оформляет лист как таблицу: шапка в строке 1, фильтр,
// закреплённая шапка и ширина колонок по содержимому.
func formatTable(f *excelize.File, sheet string, st *sheetStyles) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	for i, w := range columnWidths(rows, cols) {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, w); err != nil {
			return err
		}
	}
	return nil
}

// columnWidths: ширина по самому длинному значению колонки, в пределах [minColWidth, maxColWidth].
func columnWidths(rows [][]string, cols int) []float64 {
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = minColWidth
	}
	for r, row := range rows {
		for c, v := range row {
			// хангыль шире латиницы
			w := float64(utf8.RuneCountInString(v)) * 1.2
			if r == 0 {
				w += 2 // кнопка фильтра
			}
			widths[c] = min(max(widths[c], w), maxColWidth)
		}
	}
	return widths
}

func styleCell(f *excelize.File, sheet string, col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}

// BuildStatementFilename: человекочитаемое имя файла выписки.
func BuildStatementFilename(studentName, className string, year, month int) string {
	name := fmt.Sprintf("Tuition %04d-%02d %s %s", year, month, orDash(className), orDash(studentName))
	return strings.Join(strings.Fields(strings.Map(fileRune, name)), " ") + ".xlsx"
}

func fileRune(r rune) rune {
	if unicode.IsControl(r) || strings.ContainsRune(`\/:*?"<>|`, r) {
		return '_'
	}
	return r
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
