package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/woodsintl/woodsreport/internal/connector"
	"github.com/woodsintl/woodsreport/internal/connector/connectortest"
	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/openapi"
	"github.com/woodsintl/woodsreport/internal/report"
	"github.com/woodsintl/woodsreport/internal/service"
)

const testPool = "WOODS_INTERNATIONAL"

func testProxyConfig() service.ProxyConfig {
	return service.ProxyConfig{Pool: testPool, StoreName: "Woods International", Database: "ud_woodsoft"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRouter mounts the proxy handler the way the server does.
func testRouter(registry *connector.Registry) http.Handler {
	h := NewProxyHandler(service.NewProxy(registry, testProxyConfig(), discardLogger()))
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/store", h.Store)
		r.Post("/exec", h.Exec)
		r.Post("/query", h.Query)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/clients", h.Clients)
	})
	return r
}

func connectedRouter(f *connectortest.Fake) http.Handler {
	return testRouter(connectortest.Registry(testPool, f))
}

func absentRouter() http.Handler {
	r := connector.NewRegistry(nil)
	r.MarkAbsent(testPool, connector.ErrConnectivity)
	return testRouter(r)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestExecReturnsEveryRecordset(t *testing.T) {
	f := &connectortest.Fake{Result: &model.ProxyResult{
		Recordsets: []model.Recordset{
			model.NewRecordset([]string{"ContainerNo", "Qty", "Client"},
				model.Row{"ContainerNo": "C1", "Qty": float64(10), "Client": "ACME"},
				model.Row{"ContainerNo": "C2", "Qty": float64(4), "Client": "Globex"}),
			model.NewRecordset([]string{"Total"}, model.Row{"Total": float64(14)}),
		},
		RowsAffected: []int64{2, 1},
	}}
	h := connectedRouter(f)

	w := do(t, h, "POST", "/api/exec", `{"procedure":"proc_get_summary_container","params":{}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	wantBody := `{"recordsets":[[{"ContainerNo":"C1","Qty":10,"Client":"ACME"},{"ContainerNo":"C2","Qty":4,"Client":"Globex"}],[{"Total":14}]],"rowsAffected":[2,1]}`
	if body := strings.TrimSpace(w.Body.String()); body != wantBody {
		t.Errorf("body = %s\nwant   %s", body, wantBody)
	}

	var got model.ProxyResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(*f.Result, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	cmds := f.Commands()
	if len(cmds) != 1 || cmds[0].Kind != connector.KindExec || cmds[0].Target != "proc_get_summary_container" {
		t.Errorf("commands = %+v", cmds)
	}
}

func TestExecBindsParams(t *testing.T) {
	f := &connectortest.Fake{}
	h := connectedRouter(f)

	w := do(t, h, "POST", "/api/exec", `{"procedure":"proc_getcontainerclientwise","params":{"year":2024,"@client":""}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	cmds := f.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	want := model.Params{"year": int64(2024), "client": ""}
	if diff := cmp.Diff(want, cmds[0].Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyResultIsNotNull(t *testing.T) {
	h := connectedRouter(&connectortest.Fake{})
	w := do(t, h, "POST", "/api/exec", `{"procedure":"proc_noop"}`)
	if got := strings.TrimSpace(w.Body.String()); got != `{"recordsets":[],"rowsAffected":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestPoolAbsentReturns503(t *testing.T) {
	h := absentRouter()
	tests := []struct {
		method string
		path   string
		body   string
	}{
		{"POST", "/api/exec", `{"procedure":"proc_get_summary_container"}`},
		{"POST", "/api/query", `{"query":"SELECT 1"}`},
		{"GET", "/api/dashboard", ""},
		{"GET", "/api/clients", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want 503", w.Code)
			}
			resp := decodeError(t, w)
			if resp.Error != "Woods International database is not connected" {
				t.Errorf("error = %q", resp.Error)
			}
		})
	}
}

func TestMissingTargetReturns400(t *testing.T) {
	f := &connectortest.Fake{}
	h := connectedRouter(f)

	tests := []struct {
		path string
		body string
		want string
	}{
		{"/api/query", `{"params":{"a":1}}`, "query is required"},
		{"/api/query", `{"query":"   "}`, "query is required"},
		{"/api/query", ``, "query is required"},
		{"/api/exec", `{}`, "procedure is required"},
	}

	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			w := do(t, h, "POST", tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if resp := decodeError(t, w); resp.Error != tt.want {
				t.Errorf("error = %q, want %q", resp.Error, tt.want)
			}
		})
	}

	if n := len(f.Commands()); n != 0 {
		t.Errorf("database was contacted %d times", n)
	}
}

func TestMissingTargetBeatsAbsentPool(t *testing.T) {
	w := do(t, absentRouter(), "POST", "/api/query", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMalformedBody(t *testing.T) {
	f := &connectortest.Fake{}
	w := do(t, connectedRouter(f), "POST", "/api/exec", `{"procedure": "x",`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Error != "invalid request body" || resp.Details == "" {
		t.Errorf("unexpected error body %+v", resp)
	}
}

func TestNestedParamsReturn400(t *testing.T) {
	f := &connectortest.Fake{}
	w := do(t, connectedRouter(f), "POST", "/api/exec", `{"procedure":"proc_x","params":{"filter":{"a":1}}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decodeError(t, w); !strings.Contains(resp.Error, "filter") {
		t.Errorf("error should name the key, got %q", resp.Error)
	}
	if len(f.Commands()) != 0 {
		t.Error("nested params reached the database")
	}
}

func TestBodyTooLarge(t *testing.T) {
	f := &connectortest.Fake{}
	inner := connectedRouter(f)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 32)
		inner.ServeHTTP(w, r)
	})

	body := `{"query":"SELECT '` + strings.Repeat("x", 100) + `'"}`
	w := do(t, h, "POST", "/api/query", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestExecutionErrorReturns500WithDetails(t *testing.T) {
	f := &connectortest.Fake{Err: errors.New("Could not find stored procedure 'proc_missing'.")}
	w := do(t, connectedRouter(f), "POST", "/api/exec", `{"procedure":"proc_missing"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Error != "Failed to execute stored procedure" {
		t.Errorf("error = %q", resp.Error)
	}
	if !strings.Contains(resp.Details, "proc_missing") {
		t.Errorf("details = %q", resp.Details)
	}
}

func TestQueryExecutionError(t *testing.T) {
	f := &connectortest.Fake{Err: errors.New("Incorrect syntax near 'FORM'.")}
	w := do(t, connectedRouter(f), "POST", "/api/query", `{"query":"SELECT * FORM x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if resp := decodeError(t, w); resp.Error != "Failed to execute query" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestStoreStatus(t *testing.T) {
	w := do(t, connectedRouter(&connectortest.Fake{}), "GET", "/api/store", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got model.StoreStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := model.StoreStatus{Store: "Woods International", Database: "ud_woodsoft", Status: model.StatusConnected}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}

	w = do(t, absentRouter(), "GET", "/api/store", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"disconnected"`) {
		t.Errorf("absent pool: %d %s", w.Code, w.Body.String())
	}
}

func TestClients(t *testing.T) {
	f := &connectortest.Fake{Result: &model.ProxyResult{
		Recordsets: []model.Recordset{model.NewRecordset([]string{"client_name"},
			model.Row{"client_name": "ACME"}, model.Row{"client_name": "Globex"})},
		RowsAffected: []int64{2},
	}}
	w := do(t, connectedRouter(f), "GET", "/api/clients", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []model.Client
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []model.Client{{ClientName: "ACME"}, {ClientName: "Globex"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clients mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenAPIHandler(t *testing.T) {
	h := NewOpenAPIHandler(openapi.Info{Store: "Woods International"}, report.Default())
	req := httptest.NewRequest("GET", "/openapi.json", nil)
	req.Host = "reports.example.com"
	w := httptest.NewRecorder()
	h.ServeSpec(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	servers, _ := doc["servers"].([]interface{})
	if len(servers) != 1 || servers[0].(map[string]interface{})["url"] != "http://reports.example.com" {
		t.Errorf("servers = %v", doc["servers"])
	}
}
