package render

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/woodsintl/woodsreport/internal/model"
)

var monthOrder = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// monthIndex maps "Jan", "January" or "JANUARY 2024" to 1..12, and anything
// else to 99 so that it sorts last.
func monthIndex(v interface{}) int {
	s := strings.ToLower(strings.TrimSpace(Value(v)))
	if len(s) < 3 {
		return 99
	}
	if n, ok := monthOrder[s[:3]]; ok {
		return n
	}
	return 99
}

// MonthColumn returns the first column whose name contains "month".
func MonthColumn(cols []string) (string, bool) {
	for _, c := range cols {
		if strings.Contains(strings.ToLower(c), "month") {
			return c, true
		}
	}
	return "", false
}

// SortRows returns a copy of rs ordered by column. Month columns sort in
// calendar order, date columns chronologically, numeric columns by value
// and everything else as text. Nulls sort first.
func SortRows(rs model.Recordset, column string, desc bool) model.Recordset {
	out := model.NewRecordset(rs.Columns, make([]model.Row, rs.Len())...)
	copy(out.Rows, rs.Rows)
	if column == "" {
		return out
	}

	lower := strings.ToLower(column)
	isMonth := strings.Contains(lower, "month")
	isDate := strings.Contains(lower, "date")
	isNumeric := false
	for _, row := range rs.Rows {
		v := row[column]
		if v == nil {
			continue
		}
		if _, ok := number(v); !ok {
			isNumeric = false
			break
		}
		isNumeric = true
	}

	less := func(a, b interface{}) int {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		case b == nil:
			return 1
		}
		if isMonth {
			return monthIndex(a) - monthIndex(b)
		}
		if isDate {
			if ta, ok := parseTime(a); ok {
				if tb, ok := parseTime(b); ok {
					return ta.Compare(tb)
				}
			}
		}
		if isNumeric {
			na, _ := number(a)
			nb, _ := number(b)
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
		return strings.Compare(Value(a), Value(b))
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		c := less(out.Rows[i][column], out.Rows[j][column])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "02/01/2006"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
