package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/woodsintl/woodsreport/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildParams(t *testing.T) {
	full := UIState{Year: 2024, Client: "ACME", From: date(2024, 4, 1), To: date(2024, 4, 30)}

	tests := []struct {
		key  string
		ui   UIState
		want model.Params
	}{
		{"container_loading_report", full, model.Params{}},
		{"container_month_wise", full, model.Params{"year": int64(2024)}},
		{"container_client_wise", full, model.Params{"year": int64(2024), "client": "ACME"}},
		{"container_client_wise", UIState{Year: 2023}, model.Params{"year": int64(2023), "client": ""}},
		{"date_wise_grading", full, model.Params{"from_date": "2024-04-01", "to_date": "2024-04-30"}},
		{"grading_summary", full, model.Params{"from_date": "2024-04-01", "to_date": "2024-04-30"}},
		{"daily_grading_report", UIState{From: date(2024, 1, 5)}, model.Params{"from_date": "2024-01-05", "to_date": ""}},
		{"log_closing_stock", UIState{}, model.Params{"from_date": "", "to_date": ""}},
		{"current_log_stock", full, model.Params{}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := BuildParams(tt.key, tt.ui)
			if err != nil {
				t.Fatalf("BuildParams: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildParams mismatch (-want +got):\n%s", diff)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("built params do not validate: %v", err)
			}
		})
	}
}

func TestBuildParamsUnknownKey(t *testing.T) {
	if _, err := BuildParams("sales_summary", UIState{}); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("got %v, want ErrUnknownReport", err)
	}
}

func TestBuildForUnlistedCombination(t *testing.T) {
	got := buildFor(InputClient|InputDateRange, UIState{Client: "ACME", From: date(2024, 2, 29)})
	want := model.Params{"client": "ACME", "from_date": "2024-02-29", "to_date": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buildFor mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogTitleFallback(t *testing.T) {
	c := Default()
	if got := c.Title("grading_summary"); got != "Grading Summary" {
		t.Errorf("Title = %q", got)
	}
	if got := c.Title("nope"); got != DefaultTitle {
		t.Errorf("Title(unknown) = %q, want %q", got, DefaultTitle)
	}
}

func TestCatalogProcedures(t *testing.T) {
	c := Default()
	want := map[string]string{
		"container_loading_report": "proc_get_summary_container",
		"container_month_wise":     "proc_getcontainersumyear",
		"container_client_wise":    "proc_getcontainerclientwise",
		"date_wise_grading":        "proc_gradesearchreport_date22",
		"grading_summary":          "proc_gradesearchreport_grade22",
		"daily_grading_report":     "proc_gradesearch_partsheet_Norm",
	}
	for key, proc := range want {
		got, err := c.Procedure(key)
		if err != nil || got != proc {
			t.Errorf("Procedure(%q) = %q, %v; want %q", key, got, err, proc)
		}
	}

	if _, err := c.Procedure("current_log_stock"); !errors.Is(err, ErrNoProcedure) {
		t.Errorf("log report without override: got %v, want ErrNoProcedure", err)
	}
}

func TestWithProcedures(t *testing.T) {
	base := Default()
	c, err := base.WithProcedures(map[string]string{
		"current_log_stock":   "proc_current_log_stock",
		"log_cutting_summary": "  ",
	})
	if err != nil {
		t.Fatalf("WithProcedures: %v", err)
	}
	if p, _ := c.Procedure("current_log_stock"); p != "proc_current_log_stock" {
		t.Errorf("override not applied: %q", p)
	}
	if _, err := c.Procedure("log_cutting_summary"); !errors.Is(err, ErrNoProcedure) {
		t.Error("blank override should be ignored")
	}
	if _, err := base.Procedure("current_log_stock"); !errors.Is(err, ErrNoProcedure) {
		t.Error("WithProcedures must not mutate the receiver")
	}

	if _, err := base.WithProcedures(map[string]string{"nope": "proc_x"}); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("unknown override key: got %v", err)
	}
}

func TestCatalogList(t *testing.T) {
	c := Default()
	if n := len(c.List("")); n != 11 {
		t.Errorf("List(all) = %d reports, want 11", n)
	}
	logs := c.List(CategoryLogs)
	if len(logs) != 5 || logs[0].Key != "current_log_stock" {
		t.Errorf("List(logs) = %+v", logs)
	}
	reports := c.List(CategoryReports)
	if len(reports) != 6 || reports[0].Key != "container_loading_report" {
		t.Errorf("List(reports) = %+v", reports)
	}
}

func TestReportParams(t *testing.T) {
	r, _ := Default().Get("container_client_wise")
	want := []Param{{Name: "year", SQLType: "int"}, {Name: "client", SQLType: "nvarchar"}}
	if diff := cmp.Diff(want, r.Params()); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}
	if got := r.Inputs.String(); got != "year, client" {
		t.Errorf("Inputs.String() = %q", got)
	}
}

func TestYearChoices(t *testing.T) {
	got := YearChoices(date(2025, 6, 1))
	want := []int{2025, 2024, 2023, 2022, 2021, 2020}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("YearChoices mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-04-01", "01/04/2024"} {
		got, err := ParseDate(s)
		if err != nil || !got.Equal(date(2024, 4, 1)) {
			t.Errorf("ParseDate(%q) = %v, %v", s, got, err)
		}
	}
	if got, err := ParseDate(""); err != nil || !got.IsZero() {
		t.Errorf("ParseDate(\"\") = %v, %v", got, err)
	}
	if _, err := ParseDate("April 1"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

type fakeExecutor struct {
	procedure string
	params    model.Params
	res       *model.ProxyResult
	err       error
}

func (f *fakeExecutor) Execute(_ context.Context, procedure string, params model.Params) (*model.ProxyResult, error) {
	f.procedure = procedure
	f.params = params
	return f.res, f.err
}

func TestRun(t *testing.T) {
	exec := &fakeExecutor{res: &model.ProxyResult{
		Recordsets:   []model.Recordset{model.NewRecordset([]string{"Grade", "CBM"}, model.Row{"Grade": "A", "CBM": 1.5})},
		RowsAffected: []int64{1},
	}}
	ui := UIState{Year: 2024, From: date(2024, 4, 1), To: date(2024, 4, 30)}

	res, err := Default().Run(context.Background(), exec, "grading_summary", ui)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exec.procedure != "proc_gradesearchreport_grade22" {
		t.Errorf("procedure = %q", exec.procedure)
	}
	if diff := cmp.Diff(model.Params{"from_date": "2024-04-01", "to_date": "2024-04-30"}, exec.params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]interface{}
	json.Unmarshal(b, &decoded)
	meta := decoded["metadata"].(map[string]interface{})
	if meta["fromDate"] != "01/04/2024" || meta["toDate"] != "30/04/2024" {
		t.Errorf("metadata dates = %v", meta)
	}
	if _, ok := decoded["recordsets"]; !ok {
		t.Errorf("recordsets not flattened into result: %s", b)
	}
	if decoded["title"] != "Grading Summary" {
		t.Errorf("title = %v", decoded["title"])
	}
}

func TestRunMetadataNullDates(t *testing.T) {
	res, err := Default().Run(context.Background(), &fakeExecutor{}, "container_month_wise", UIState{Year: 2022})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Metadata.FromDate != nil || res.Metadata.ToDate != nil {
		t.Errorf("unset dates should be null: %+v", res.Metadata)
	}
	if res.ProxyResult == nil || res.Recordsets == nil {
		t.Error("nil executor result should become an empty result")
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Default().Run(context.Background(), &fakeExecutor{err: boom}, "container_loading_report", UIState{}); !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
	exec := &fakeExecutor{}
	if _, err := Default().Run(context.Background(), exec, "log_invoice_summary", UIState{}); !errors.Is(err, ErrNoProcedure) {
		t.Errorf("got %v, want ErrNoProcedure", err)
	}
	if exec.procedure != "" {
		t.Error("executor called for a report without a procedure")
	}
}
