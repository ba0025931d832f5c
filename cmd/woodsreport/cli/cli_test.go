package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/session"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

// fakeAPI answers the proxy routes the client commands use.
type fakeAPI struct {
	mu    sync.Mutex
	procs []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/store", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.StoreStatus{
			Store:    "Woods International",
			Database: "ud_woodsoft",
			Status:   model.StatusConnected,
		})
	})
	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.DashboardResponse{
			Success: true,
			Data:    model.NewRecordset(nil, model.Row{"table_count": 42}),
		})
	})
	mux.HandleFunc("/api/clients", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Client{{ClientName: "ACME"}, {ClientName: "Globex"}})
	})
	mux.HandleFunc("/api/exec", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Procedure string       `json:"procedure"`
			Params    model.Params `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.procs = append(f.procs, req.Procedure)
		f.mu.Unlock()

		res := model.NewProxyResult()
		switch req.Procedure {
		case "proc_logindone":
			if req.Params["passw"] == "secret" {
				res.Recordsets = []model.Recordset{model.NewRecordset(nil, model.Row{"Username": "manager", "Role": "admin"})}
			} else {
				res.Recordsets = []model.Recordset{{}}
			}
		case "proc_getcontainersumyear":
			res.Recordsets = []model.Recordset{model.NewRecordset([]string{"MONTHS", "NO_OF_CONTAINER"},
				model.Row{"MONTHS": "Feb", "NO_OF_CONTAINER": 3},
				model.Row{"MONTHS": "Jan", "NO_OF_CONTAINER": 4},
			)}
		}
		json.NewEncoder(w).Encode(res)
	})
	return mux
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.procs...)
}

type testEnv struct {
	api     *fakeAPI
	cfgPath string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "woodsreport.yaml")
	cfg := "client:\n  api_base: " + srv.URL + "\nsession:\n  backend: file\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return &testEnv{api: api, cfgPath: cfgPath, dataDir: filepath.Join(dir, "data")}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	appVersion = "1.2.3"

	cmd := newRootCmd("1.2.3", "abc123", "2024-06-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.cfgPath, "--data-dir", e.dataDir, "--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "dev"},
		{"dev", "dev"},
		{"1.0.0", "v1.0.0"},
		{"v2.1.0", "v2.1.0"},
	}
	for _, tt := range tests {
		appVersion = tt.in
		if got := versionString(); got != tt.want {
			t.Errorf("versionString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "", "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if info["version"] != "1.2.3" || info["commit"] != "abc123" {
		t.Errorf("unexpected info %v", info)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	e := newTestEnv(t)
	t.Setenv("WOODSREPORT_SESSION_INACTIVITY_TIMEOUT", "5m")

	viper.Reset()
	cfgFile, envFile, apiBase = e.cfgPath, "", "http://override:9000"
	t.Cleanup(func() { cfgFile, envFile, apiBase = "", ".env", "" })
	if err := initConfig(); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.InactivityTimeout != "5m" {
		t.Errorf("inactivity timeout = %q, want 5m", cfg.Session.InactivityTimeout)
	}
	if cfg.Client.APIBase != "http://override:9000" {
		t.Errorf("api base = %q", cfg.Client.APIBase)
	}
	if cfg.Session.Backend != "file" {
		t.Errorf("backend = %q, want file from the config file", cfg.Session.Backend)
	}
}

func TestReportList(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "", "report", "list", "--category", "logs")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "current_log_stock") || !strings.Contains(out, "(not configured)") {
		t.Errorf("unexpected list:\n%s", out)
	}
	if strings.Contains(out, "container_month_wise") {
		t.Error("reports menu entries should be filtered out")
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	e := newTestEnv(t)
	for _, args := range [][]string{
		{"whoami"},
		{"clients"},
		{"report", "run", "container_month_wise"},
	} {
		_, err := e.run(t, "", args...)
		if !errors.Is(err, session.ErrNotAuthenticated) {
			t.Errorf("%v: err = %v, want ErrNotAuthenticated", args, err)
		}
	}
	if len(e.api.calls()) != 0 {
		t.Errorf("no procedure should run before login, got %v", e.api.calls())
	}
}

func TestLoginReportLogout(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "secret\n", "login", "-u", "manager", "--password-stdin")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Logged in as manager (admin)") {
		t.Errorf("login output = %q", out)
	}

	out, err = e.run(t, "", "whoami")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "manager\n") || !strings.Contains(out, "role:    admin") {
		t.Errorf("whoami output = %q", out)
	}

	out, err = e.run(t, "", "report", "run", "container_month_wise", "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	if jan, feb := strings.Index(out, "Jan"), strings.Index(out, "Feb"); jan < 0 || feb < jan {
		t.Errorf("expected months in calendar order:\n%s", out)
	}

	out, err = e.run(t, "", "clients", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Globex") {
		t.Errorf("clients output = %q", out)
	}

	if _, err := e.run(t, "", "logout"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.run(t, "", "whoami"); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Errorf("after logout: err = %v", err)
	}

	want := []string{"proc_logindone", "proc_getcontainersumyear"}
	if got := e.api.calls(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("procedures = %v, want %v", got, want)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "wrong\n", "login", "-u", "manager", "--password-stdin")
	if !errors.Is(err, session.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := e.run(t, "", "whoami"); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Errorf("failed login must not leave a session: %v", err)
	}
}

func TestReportRunRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "", "report", "run", "grading_summary", "--from", "31-01-2024"); err == nil || !strings.Contains(err.Error(), "--from") {
		t.Errorf("bad date: err = %v", err)
	}
	if _, err := e.run(t, "", "report", "run", "container_month_wise", "--year", "1999"); err == nil || !strings.Contains(err.Error(), "not selectable") {
		t.Errorf("bad year: err = %v", err)
	}
	if _, err := e.run(t, "", "report", "run", "container_month_wise", "--format", "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestStatusCommand(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "", "status")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ud_woodsoft", "Tables: 42"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestOpenAPICommand(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "openapi.json")
	if _, err := e.run(t, "", "openapi", "--base-url", "https://reports.example.com", "-o", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Errorf("document has no paths: %s", data)
	}
}

func TestMCPRejectsUnknownTransport(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "", "mcp", "--transport", "sse"); err == nil || !strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("err = %v", err)
	}
}

func TestReportRunExcel(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "secret\n", "login", "-u", "manager", "--password-stdin"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.run(t, "", "report", "run", "container_month_wise", "-f", "xlsx"); err == nil || !strings.Contains(err.Error(), "-o") {
		t.Errorf("xlsx to stdout: err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "containers.xlsx")
	if _, err := e.run(t, "", "report", "run", "container_month_wise", "-f", "xlsx", "-o", path); err != nil {
		t.Fatal(err)
	}
	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"Month", "Containers"}, {"Jan", "4"}, {"Feb", "3"}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
	for i := range want {
		if strings.Join(rows[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestReportRunOutputErrors(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "secret\n", "login", "-u", "manager", "--password-stdin"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "missing", "report.csv")
	if _, err := e.run(t, "", "report", "run", "container_month_wise", "-f", "csv", "-o", path); err == nil {
		t.Error("expected an error writing into a missing directory")
	}
}

func TestWriteOutputReportsWriteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	cmd := newRootCmd("1.2.3", "abc123", "2024-06-01")

	failed := errors.New("render failed")
	err := writeOutput(cmd, path, func(w io.Writer) error { return failed })
	if !errors.Is(err, failed) {
		t.Errorf("err = %v, want %v", err, failed)
	}

	if err := writeOutput(cmd, path, func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("file = %q", data)
	}

	closeErr := errors.New("disk full")
	createFile = func(string) (io.WriteCloser, error) { return failingCloser{closeErr}, nil }
	t.Cleanup(func() { createFile = func(p string) (io.WriteCloser, error) { return os.Create(p) } })
	err = writeOutput(cmd, path, func(w io.Writer) error { return nil })
	if !errors.Is(err, closeErr) {
		t.Errorf("err = %v, want the close error", err)
	}
}

type failingCloser struct{ err error }

func (failingCloser) Write(p []byte) (int, error) { return len(p), nil }
func (c failingCloser) Close() error              { return c.err }

func TestConfigInit(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "woodsreport.yaml")

	out, err := e.run(t, "", "config", "init", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "rate_limit: 0") || !strings.Contains(string(data), "api_base: http://localhost:8080") {
		t.Errorf("unexpected defaults:\n%s", data)
	}

	if _, err := e.run(t, "", "config", "init", path); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second init: err = %v, want fs.ErrExist", err)
	}
	if _, err := e.run(t, "", "config", "init", "--force", path); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"backend: file", "rate_limit: 0", "api_base: http://127.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}
