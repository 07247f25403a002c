package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ignite/property-etl/internal/loader"
	"github.com/ignite/property-etl/internal/pkg/logger"
	"github.com/ignite/property-etl/internal/pipeline"
	"github.com/ignite/property-etl/internal/store"
	"github.com/ignite/property-etl/internal/transform"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// stubStore is the minimal store needed to stand up a runner.
type stubStore struct{}

func (stubStore) Ping(ctx context.Context) error { return nil }

func (stubStore) Begin(ctx context.Context) (store.Tx, error) { return stubTx{}, nil }

func (stubStore) LookupLabels(ctx context.Context, table, idColumn, labelColumn string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type stubTx struct{}

func (stubTx) InsertRow(ctx context.Context, table string, columns map[string]interface{}) (int64, error) {
	return 1, nil
}
func (stubTx) GetOrCreateHOA(ctx context.Context, name, managementCompany string) (int64, error) {
	return 1, nil
}
func (stubTx) Savepoint(ctx context.Context, name string) error  { return nil }
func (stubTx) RollbackTo(ctx context.Context, name string) error { return nil }
func (stubTx) Release(ctx context.Context, name string) error    { return nil }
func (stubTx) Commit() error                                     { return nil }
func (stubTx) Rollback() error                                   { return nil }

type memorySource struct {
	records []map[string]interface{}
}

func (memorySource) Name() string { return "test.json" }

func (s memorySource) Records(ctx context.Context) ([]map[string]interface{}, error) {
	return s.records, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *pipeline.Runner) {
	t.Helper()
	l, err := loader.New(context.Background(), stubStore{})
	if err != nil {
		t.Fatalf("loader.New: %v", err)
	}
	runner := pipeline.NewRunner(transform.NewTransformer(transform.DefaultMapping()), l, nil)
	srv := httptest.NewServer(NewRouter(runner))
	t.Cleanup(srv.Close)
	return srv, runner
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("payload = %v", payload)
	}
}

func TestLatestBeforeAnyRun(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/api/runs/latest")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRunsAfterARun(t *testing.T) {
	srv, runner := newTestServer(t)

	src := memorySource{records: []map[string]interface{}{
		{"address": "1 Elm St", "city": "Austin"},
	}}
	if _, err := runner.Run(context.Background(), src); err != nil {
		t.Fatalf("run: %v", err)
	}

	resp, body := get(t, srv.URL+"/api/runs/latest")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var report pipeline.RunReport
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Source != "test.json" || report.Succeeded != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	resp, body = get(t, srv.URL+"/api/runs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var history []pipeline.RunReport
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/api/unknown")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
