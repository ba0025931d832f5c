// Package render writes recordsets for the terminal: pterm tables, JSON,
// CSV and Excel export.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/woodsintl/woodsreport/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// Binary reports whether f cannot be written to a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// ParseFormat accepts table, json, csv or xlsx, case-insensitively. Empty
// means table and "excel" is an alias for xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case "excel":
		return FormatXLSX, nil
	case FormatTable, FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, csv or xlsx)", s)
	}
}

// Columns returns the column names of rs in the order the database
// produced them. An empty recordset has no columns to show.
func Columns(rs model.Recordset) []string {
	if rs.Len() == 0 {
		return nil
	}
	return rs.ColumnNames()
}

// Value formats one cell. Nulls are empty, integral numbers have no
// decimal point and midnight timestamps print as dates.
func Value(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return Value(float64(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// CSV writes rs with a header row of column names.
func CSV(w io.Writer, rs model.Recordset) error {
	cols := Columns(rs)
	cw := csv.NewWriter(w)
	if len(cols) > 0 {
		if err := cw.Write(cols); err != nil {
			return err
		}
	}
	record := make([]string, len(cols))
	for _, row := range rs.Rows {
		for i, c := range cols {
			record[i] = Value(row[c])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes v indented.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes rs as a pterm table with display labels in the header.
func Table(w io.Writer, rs model.Recordset) error {
	if rs.Len() == 0 {
		_, err := fmt.Fprintln(w, "No rows")
		return err
	}
	cols := Columns(rs)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = Label(c)
	}
	data := pterm.TableData{header}
	for _, row := range rs.Rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = Value(row[c])
		}
		data = append(data, line)
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// Recordset writes rs in format f. title names the sheet of an Excel export.
func Recordset(w io.Writer, title string, rs model.Recordset, f Format) error {
	switch f {
	case FormatJSON:
		return JSON(w, rs)
	case FormatXLSX:
		return XLSX(w, title, []model.Recordset{rs})
	case FormatCSV:
		return CSV(w, rs)
	default:
		return Table(w, rs)
	}
}
