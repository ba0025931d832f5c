package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/report"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestXLSXOneSheetPerRecordset(t *testing.T) {
	sets := []model.Recordset{
		model.NewRecordset([]string{"MONTHS", "NO_OF_CONTAINER"},
			model.Row{"MONTHS": "Jan", "NO_OF_CONTAINER": int64(4)},
			model.Row{"MONTHS": "Feb", "NO_OF_CONTAINER": nil},
		),
		model.NewRecordset([]string{"Total"}, model.Row{"Total": 1.5}),
	}

	var buf bytes.Buffer
	if err := XLSX(&buf, "Container Month Wise", sets); err != nil {
		t.Fatalf("XLSX: %v", err)
	}
	f := openWorkbook(t, buf.Bytes())

	wantSheets := []string{"Container Month Wise", "Container Month Wise (2)"}
	if diff := cmp.Diff(wantSheets, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows(wantSheets[0])
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Month", "Containers"},
		{"Jan", "4"},
		{"Feb"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("first sheet mismatch (-want +got):\n%s", diff)
	}

	rows, err = f.GetRows(wantSheets[1])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]string{{"Total"}, {"1.5"}}, rows); diff != "" {
		t.Errorf("second sheet mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := XLSX(&buf, "", nil); err != nil {
		t.Fatal(err)
	}
	f := openWorkbook(t, buf.Bytes())
	if diff := cmp.Diff([]string{"Result"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets mismatch (-want +got):\n%s", diff)
	}
	v, err := f.GetCellValue("Result", "A1")
	if err != nil {
		t.Fatal(err)
	}
	if v != "No rows" {
		t.Errorf("A1 = %q", v)
	}
}

func TestSheetName(t *testing.T) {
	long := strings.Repeat("x", 40)
	tests := []struct {
		title string
		i, n  int
		want  string
	}{
		{"Grading Summary", 0, 1, "Grading Summary"},
		{"Grading Summary", 1, 2, "Grading Summary (2)"},
		{"Logs: in/out [2024]?", 0, 1, "Logs  in out (2024)"},
		{"  ", 0, 1, "Result"},
		{long, 0, 1, long[:31]},
		{long, 2, 3, long[:27] + " (3)"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.title, tt.i, tt.n); got != tt.want {
			t.Errorf("SheetName(%q, %d, %d) = %q, want %q", tt.title, tt.i, tt.n, got, tt.want)
		}
	}
}

func TestReportXLSXSortsMonths(t *testing.T) {
	res := &report.Result{
		Key:   "container_month_wise",
		Title: "Container Month Wise",
		ProxyResult: &model.ProxyResult{Recordsets: []model.Recordset{model.NewRecordset(
			[]string{"MONTHS", "NO_OF_CONTAINER"},
			model.Row{"MONTHS": "Mar", "NO_OF_CONTAINER": float64(2)},
			model.Row{"MONTHS": "Jan", "NO_OF_CONTAINER": float64(1)},
		)}},
	}

	var buf bytes.Buffer
	if err := Report(&buf, res, Options{Format: FormatXLSX}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	f := openWorkbook(t, buf.Bytes())
	rows, err := f.GetRows("Container Month Wise")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][0] != "Jan" || rows[2][0] != "Mar" {
		t.Errorf("rows = %v", rows)
	}
}
