package test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	admin "google.golang.org/api/admin/reports/v1"
	"google.golang.org/api/option"

	"github.com/ccollicutt/auditexport/internal/cli/commands"
	"github.com/ccollicutt/auditexport/pkg/config"
	"github.com/ccollicutt/auditexport/pkg/source"
)

// fakeReportsAPI serves canned Admin SDK activity pages keyed by application
// name. Pages after the first are reached through nextPageToken.
type fakeReportsAPI struct {
	mu       sync.Mutex
	pages    map[string][]string
	failApps map[string]bool
	requests []string
}

func (f *fakeReportsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	app := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.requests = append(f.requests, app+"?"+r.URL.Query().Get("pageToken"))

	if f.failApps[app] {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Access denied"}}`))
		return
	}

	idx := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		_, _ = fmt.Sscanf(tok, "page-%d", &idx)
	}
	pages := f.pages[app]
	body := `{"kind":"admin#reports#activities"}`
	if idx < len(pages) {
		body = pages[idx]
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func activityPage(next string, items ...string) string {
	page := `{"kind":"admin#reports#activities","items":[` + strings.Join(items, ",") + `]`
	if next != "" {
		page += `,"nextPageToken":"` + next + `"`
	}
	return page + "}"
}

func activityItem(ts, email, ip, eventsJSON string) string {
	return fmt.Sprintf(`{"id":{"time":%q},"actor":{"email":%q},"ipAddress":%q,"events":%s}`, ts, email, ip, eventsJSON)
}

// e2eEnv is a working directory with a config file pointing at a fake API.
type e2eEnv struct {
	dir    string
	config string
	logDir string
	api    *fakeReportsAPI
	server *httptest.Server
}

func newE2EEnv(t *testing.T, backend config.StateBackend, categories string) *e2eEnv {
	t.Helper()
	dir := t.TempDir()
	api := &fakeReportsAPI{pages: map[string][]string{}, failApps: map[string]bool{}}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	env := &e2eEnv{
		dir:    dir,
		config: filepath.Join(dir, "auditexport.yaml"),
		logDir: filepath.Join(dir, "workspace_logs"),
		api:    api,
		server: server,
	}
	cfg := fmt.Sprintf(`admin_email: admin@example.com
log_dir: %s
categories: [%s]
page_size: 2
state:
  backend: %s
  tracking_file: %s
  sqlite_path: %s
`, env.logDir, categories, backend, filepath.Join(dir, "log_days_pulled.txt"), filepath.Join(dir, "state.db"))
	if err := os.WriteFile(env.config, []byte(cfg), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return env
}

// run executes one export through the CLI command with the real Reports
// adapter pointed at the fake API.
func (e *e2eEnv) run(t *testing.T, today time.Time, args ...string) (string, error) {
	t.Helper()
	opts := commands.NewExportOptions(&commands.GlobalOptions{ConfigPath: e.config, LogLevel: "error"})
	opts.Now = func() time.Time { return today }
	opts.OpenSource = func(ctx context.Context, cfg *config.Config) (source.LogSource, error) {
		svc, err := admin.NewService(ctx,
			option.WithEndpoint(e.server.URL+"/"),
			option.WithHTTPClient(e.server.Client()),
			option.WithoutAuthentication(),
		)
		if err != nil {
			return nil, err
		}
		return source.NewReportsSource(svc, source.WithPageSize(cfg.PageSize)), nil
	}

	cmd := commands.NewExportCommand(opts)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func readArchive(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	return records
}

const header = "timestamp,actor_email,ip_address,event_name,event_type,parameters"

// TestE2E_ExportDay walks a paginated login export through the real Reports
// adapter into the archive and tracked-day file.
func TestE2E_ExportDay(t *testing.T) {
	env := newE2EEnv(t, config.StateBackendFile, "admin, login, drive")
	env.api.pages["login"] = []string{
		activityPage("page-1",
			activityItem("2024-03-14T18:30:00.000Z", "alice@example.com", "192.0.2.10",
				`[{"name":"login_success","type":"login","parameters":[{"name":"login_type","value":"google_password"}]},
				  {"name":"login_verification","type":"login","parameters":[{"name":"login_challenge_method","multiValue":["password","idv_preregistered_phone"]}]}]`),
			activityItem("2024-03-14T07:00:00.000Z", "bob@example.com", "198.51.100.7",
				`[{"name":"logout","type":"login","parameters":[]}]`),
		),
		activityPage("",
			activityItem("2024-03-14T12:00:00.000Z", "carol@example.com", "",
				`[{"name":"login_failure","type":"login","parameters":[{"name":"is_suspicious","boolValue":true}]}]`),
		),
	}

	out, err := env.run(t, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), "--output", "json")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var report struct {
		Summary struct {
			State       string `json:"state"`
			Day         string `json:"day"`
			RowsWritten int    `json:"rows_written"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Summary.State != "completed" || report.Summary.Day != "2024-03-14" {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.RowsWritten != 4 {
		t.Errorf("rows written = %d, want 4", report.Summary.RowsWritten)
	}

	tracked, err := os.ReadFile(filepath.Join(env.dir, "log_days_pulled.txt"))
	if err != nil {
		t.Fatalf("reading tracked days: %v", err)
	}
	if string(tracked) != "2024-03-14\n" {
		t.Errorf("tracked days = %q", tracked)
	}

	rows := readArchive(t, filepath.Join(env.logDir, "login_logs_2024-03.csv"))
	if len(rows) != 5 {
		t.Fatalf("archive rows = %d, want header + 4", len(rows))
	}
	if strings.Join(rows[0], ",") != header {
		t.Errorf("header = %v", rows[0])
	}
	wantOrder := []string{"2024-03-14T07:00:00.000Z", "2024-03-14T12:00:00.000Z", "2024-03-14T18:30:00.000Z", "2024-03-14T18:30:00.000Z"}
	for i, want := range wantOrder {
		if rows[i+1][0] != want {
			t.Errorf("row %d timestamp = %s, want %s", i+1, rows[i+1][0], want)
		}
	}
	if rows[2][5] != "is_suspicious=true" {
		t.Errorf("bool parameter = %q", rows[2][5])
	}
	if rows[4][5] != "login_challenge_method=password,idv_preregistered_phone" {
		t.Errorf("multi-value parameter = %q", rows[4][5])
	}

	for _, other := range []string{"admin", "drive"} {
		rows := readArchive(t, filepath.Join(env.logDir, other+"_logs_2024-03.csv"))
		if len(rows) != 1 {
			t.Errorf("%s archive rows = %d, want header only", other, len(rows))
		}
	}

	wantRequests := []string{"admin?", "login?", "login?page-1", "drive?"}
	if strings.Join(env.api.requests, " ") != strings.Join(wantRequests, " ") {
		t.Errorf("requests = %v, want %v", env.api.requests, wantRequests)
	}
}

// TestE2E_BackfillAcrossRunsSQLite exports three consecutive days with the
// SQLite state backend and checks the month split and no-repeat selection.
func TestE2E_BackfillAcrossRunsSQLite(t *testing.T) {
	env := newE2EEnv(t, config.StateBackendSQLite, "login")
	env.api.pages["login"] = []string{
		activityPage("", activityItem("2024-03-01T10:00:00.000Z", "alice@example.com", "192.0.2.10",
			`[{"name":"login_success","type":"login","parameters":[]}]`)),
	}
	today := time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := env.run(t, today, "--quiet"); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}

	// 2024-03-02 and 2024-03-01 land in March, 2024-02-29 in February.
	march := readArchive(t, filepath.Join(env.logDir, "login_logs_2024-03.csv"))
	if len(march) != 3 {
		t.Errorf("march rows = %d, want header + 2", len(march))
	}
	feb := readArchive(t, filepath.Join(env.logDir, "login_logs_2024-02.csv"))
	if len(feb) != 2 {
		t.Errorf("february rows = %d, want header + 1", len(feb))
	}

	out, err := env.run(t, today, "--quiet")
	if err != nil {
		t.Fatalf("fourth run failed: %v", err)
	}
	if !strings.Contains(out, "exported 2024-02-28") {
		t.Errorf("fourth run output = %q, want 2024-02-28", out)
	}
}

// TestE2E_CategoryFailureStillRecordsDay checks that an API error on one
// application leaves that category incomplete without blocking the day.
func TestE2E_CategoryFailureStillRecordsDay(t *testing.T) {
	env := newE2EEnv(t, config.StateBackendFile, "drive, login")
	env.api.failApps["drive"] = true
	env.api.pages["login"] = []string{
		activityPage("", activityItem("2024-03-14T10:00:00.000Z", "alice@example.com", "192.0.2.10",
			`[{"name":"login_success","type":"login","parameters":[]}]`)),
	}

	out, err := env.run(t, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "[ERROR] drive") {
		t.Errorf("output missing drive failure:\n%s", out)
	}
	if !strings.Contains(out, "1 of 2 categories incomplete") {
		t.Errorf("output missing summary:\n%s", out)
	}

	tracked, err := os.ReadFile(filepath.Join(env.dir, "log_days_pulled.txt"))
	if err != nil {
		t.Fatalf("reading tracked days: %v", err)
	}
	if string(tracked) != "2024-03-14\n" {
		t.Errorf("tracked days = %q", tracked)
	}
}
