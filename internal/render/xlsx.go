package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/woodsintl/woodsreport/internal/model"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", " ", `\`, " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

// XLSX writes sets as an Excel workbook with one sheet per recordset. The
// first row of each sheet holds the column labels.
func XLSX(w io.Writer, title string, sets []model.Recordset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if len(sets) == 0 {
		sets = []model.Recordset{{}}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	first := f.GetSheetName(0)
	for i, rs := range sets {
		name := SheetName(title, i, len(sets))
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, rs, header); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, rs model.Recordset, headerStyle int) error {
	cols := Columns(rs)
	if len(cols) == 0 {
		return f.SetCellValue(sheet, "A1", "No rows")
	}

	labels := make([]interface{}, len(cols))
	for i, c := range cols {
		labels[i] = Label(c)
	}
	if err := f.SetSheetRow(sheet, "A1", &labels); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for r, row := range rs.Rows {
		cells := make([]interface{}, len(cols))
		for i, c := range cols {
			cells[i] = cellValue(row[c])
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return err
		}
	}
	return nil
}

// cellValue keeps numbers, booleans and times typed so the sheet can sum and
// sort them; anything else is written as display text.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x
	default:
		return Value(v)
	}
}

// SheetName returns the sheet name for recordset i of n in a workbook
// titled title. Characters Excel rejects are replaced and the name is cut to
// fit, keeping the " (n)" suffix of later sheets.
func SheetName(title string, i, n int) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(title))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Result"
	}
	suffix := ""
	if n > 1 && i > 0 {
		suffix = fmt.Sprintf(" (%d)", i+1)
	}
	if r := []rune(base); len(r)+len(suffix) > maxSheetName {
		base = strings.TrimSpace(string(r[:maxSheetName-len(suffix)]))
	}
	return base + suffix
}
