package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emilianohg/studycost/internal/apperr"
	"github.com/emilianohg/studycost/internal/config"
)

type testRun struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    environment
}

func newTestRun(token string) *testRun {
	r := &testRun{}
	r.env = environment{
		Stdin:  strings.NewReader(""),
		Stdout: &r.stdout,
		Stderr: &r.stderr,
		Getenv: func(k string) string {
			if k == config.TokenEnv {
				return token
			}
			return ""
		},
		Now: func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
	}
	return r
}

func (r *testRun) execute(args ...string) int {
	return execute(context.Background(), args, r.env)
}

// writeConfig points a fresh settings file at baseURL and returns its path.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = baseURL
	cfg.ReportsOutput = filepath.Join(dir, "reports")
	path := filepath.Join(dir, "settings", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func newProjectServer(t *testing.T, projectStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/projects/p1/", func(w http.ResponseWriter, r *http.Request) {
		if projectStatus != http.StatusOK {
			w.WriteHeader(projectStatus)
			return
		}
		fmt.Fprint(w, `{"id":"p1","title":"Memory Lab"}`)
	})
	mux.HandleFunc("/api/v1/projects/p1/studies/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestExecuteWritesReport(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())
	srv, _ := newProjectServer(t, http.StatusOK)
	cfgPath := writeConfig(t, srv.URL+"/api/v1")
	out := filepath.Join(t.TempDir(), "costs.csv")

	run := newTestRun("tok")
	if code := run.execute("p1", "-o", out, "--config", cfgPath); code != apperr.ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, run.stderr.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(run.stdout.String(), "Wrote 0 studies to "+out) {
		t.Fatalf("stdout = %q", run.stdout.String())
	}
}

func TestExecuteMissingTokenExitsWithConfigCode(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	srv, requests := newProjectServer(t, http.StatusOK)
	cfgPath := writeConfig(t, srv.URL+"/api/v1")

	run := newTestRun("")
	if code := run.execute("p1", "--config", cfgPath); code != apperr.ExitConfig {
		t.Fatalf("exit code = %d, want %d", code, apperr.ExitConfig)
	}
	if n := requests.Load(); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
	if !strings.Contains(run.stderr.String(), "Error:") {
		t.Fatalf("stderr = %q", run.stderr.String())
	}

	logged, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "errors.log"))
	if err != nil {
		t.Fatalf("errors.log beside the settings file: %v", err)
	}
	if !strings.Contains(string(logged), "[config]") {
		t.Fatalf("errors.log = %q", logged)
	}
	if _, err := os.Stat(filepath.Join(home, "errors.log")); !os.IsNotExist(err) {
		t.Fatalf("errors.log must not be written to the default directory: %v", err)
	}
}

func TestExecuteUnknownProjectExitsWithFailure(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())
	srv, _ := newProjectServer(t, http.StatusNotFound)
	cfgPath := writeConfig(t, srv.URL+"/api/v1")

	run := newTestRun("tok")
	if code := run.execute("p1", "--config", cfgPath); code != apperr.ExitFailed {
		t.Fatalf("exit code = %d, want %d", code, apperr.ExitFailed)
	}
}

func TestExecuteRejectsExtraArguments(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())

	run := newTestRun("tok")
	if code := run.execute("p1", "p2"); code != apperr.ExitConfig {
		t.Fatalf("exit code = %d, want %d", code, apperr.ExitConfig)
	}
}

func TestExecuteConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)

	run := newTestRun("")
	if code := run.execute("config", "path"); code != apperr.ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if got := strings.TrimSpace(run.stdout.String()); got != filepath.Join(home, "config.toml") {
		t.Fatalf("config path = %q", got)
	}

	run = newTestRun("")
	if code := run.execute("config", "path", "--config", "/tmp/other.toml"); code != apperr.ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if got := strings.TrimSpace(run.stdout.String()); got != "/tmp/other.toml" {
		t.Fatalf("config path with flag = %q", got)
	}
}

func TestExecuteConfigShowRejectsBadSettings(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.HomeEnv, dir)
	cfgPath := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(cfgPath, []byte("page_size = 0\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	run := newTestRun("")
	if code := run.execute("config", "show", "--config", cfgPath); code != apperr.ExitConfig {
		t.Fatalf("exit code = %d, want %d", code, apperr.ExitConfig)
	}
}
