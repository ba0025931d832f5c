package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Row is one record of a recordset keyed by column name.
type Row map[string]interface{}

// Recordset is one result set: its rows in the order the database produced
// them and the column order of the result. Columns may be nil, in which case
// the column order is the sorted set of row keys.
type Recordset struct {
	Columns []string
	Rows    []Row
}

// NewRecordset returns a recordset with the given column order.
func NewRecordset(columns []string, rows ...Row) Recordset {
	return Recordset{Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (rs Recordset) Len() int { return len(rs.Rows) }

// Append adds a row at the end.
func (rs *Recordset) Append(row Row) { rs.Rows = append(rs.Rows, row) }

// ColumnNames returns the result's column order. Keys found in rows but not
// in Columns follow in sorted order.
func (rs Recordset) ColumnNames() []string {
	seen := make(map[string]bool, len(rs.Columns))
	cols := make([]string, 0, len(rs.Columns))
	for _, c := range rs.Columns {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	var extra []string
	for _, row := range rs.Rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// MarshalJSON writes the recordset as an array of objects whose keys follow
// the column order.
func (rs Recordset) MarshalJSON() ([]byte, error) {
	cols := rs.ColumnNames()
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rs.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		first := true
		for _, c := range cols {
			v, ok := row[c]
			if !ok {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an array of objects and records the key order in which
// columns first appear.
func (rs *Recordset) UnmarshalJSON(data []byte) error {
	*rs = Recordset{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		row := Row{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("recordset: unexpected object key %v", tok)
			}
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("recordset column %q: %w", key, err)
			}
			row[key] = v
			if !seen[key] {
				seen[key] = true
				rs.Columns = append(rs.Columns, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		rs.Rows = append(rs.Rows, row)
	}
	return expectDelim(dec, ']')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("recordset: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("recordset: expected %q, got %v", want, tok)
	}
	return nil
}
