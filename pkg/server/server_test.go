package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/depgraph"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/graphio"
	"github.com/depsentry/depsentry/pkg/scan"
)

// fakeStore is an in-memory scan.Store for handler tests.
type fakeStore struct {
	reports map[string]*scan.Report
	pingErr error
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string]*scan.Report)}
}

func (f *fakeStore) Save(ctx context.Context, r *scan.Report) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.reports[r.ID] = r
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*scan.Report, error) {
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	return nil, errors.New(errors.ErrCodeScanNotFound, "scan %s not found", id)
}

func (f *fakeStore) List(ctx context.Context, repository string, limit int) ([]*scan.Report, error) {
	var out []*scan.Report
	for _, r := range f.reports {
		if repository == "" || r.Repository == repository {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func newTestServer(store scan.Store) *Server {
	scanner := scan.NewScanner(depgraph.Config{}, nil)
	logger := log.New(io.Discard)
	return New(scanner, store, nil, nil, config.Defaults(), logger)
}

func testGraph() graphio.Graph {
	return graphio.Graph{
		Nodes: []graphio.Node{
			{Name: "app", Version: "1.0.0"},
			{Name: "lib", Version: "2.0.0"},
		},
		Edges: []graphio.Edge{{From: "app@1.0.0", To: "lib@2.0.0"}},
		Roots: []string{"app@1.0.0"},
	}
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleRoot(t *testing.T) {
	w := doRequest(t, newTestServer(newFakeStore()), http.MethodGet, "/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["service"] != "depsentry" {
		t.Errorf("service = %q, want depsentry", body["service"])
	}
}

func TestHandleHealthHealthy(t *testing.T) {
	w := doRequest(t, newTestServer(newFakeStore()), http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
	if body["redis"] != "not configured" {
		t.Errorf("redis = %q, want not configured", body["redis"])
	}
}

func TestHandleHealthMongoDown(t *testing.T) {
	store := newFakeStore()
	store.pingErr = errors.New(errors.ErrCodeStorage, "mongo unreachable")

	w := doRequest(t, newTestServer(store), http.MethodGet, "/health", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	w := doRequest(t, newTestServer(newFakeStore()), http.MethodGet, "/status", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if running, ok := body["worker_running"].(bool); !ok || running {
		t.Errorf("worker_running = %v, want false", body["worker_running"])
	}
	cfg, ok := body["configuration"].(map[string]any)
	if !ok {
		t.Fatal("missing configuration section")
	}
	if cfg["max_depth"] != float64(config.Defaults().Traversal.MaxDepth) {
		t.Errorf("max_depth = %v, want %d", cfg["max_depth"], config.Defaults().Traversal.MaxDepth)
	}
}

func TestHandleCreateScanSync(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	w := doRequest(t, s, http.MethodPost, "/api/scans", ScanRequest{
		Repository: "acme/webapp",
		Graph:      testGraph(),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var report scan.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Repository != "acme/webapp" {
		t.Errorf("repository = %q, want acme/webapp", report.Repository)
	}
	if len(report.Packages) != 2 {
		t.Errorf("got %d packages, want 2", len(report.Packages))
	}
	if _, ok := store.reports[report.ID]; !ok {
		t.Error("report not persisted")
	}
}

func TestHandleCreateScanMissingRepository(t *testing.T) {
	w := doRequest(t, newTestServer(newFakeStore()), http.MethodPost, "/api/scans", ScanRequest{
		Graph: testGraph(),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleCreateScanInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/scans", bytes.NewBufferString("{broken"))
	w := httptest.NewRecorder()
	newTestServer(newFakeStore()).Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleCreateScanAsyncWithoutQueue(t *testing.T) {
	w := doRequest(t, newTestServer(newFakeStore()), http.MethodPost, "/api/scans", ScanRequest{
		Repository: "acme/webapp",
		Async:      true,
		Graph:      testGraph(),
	})
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
}

func TestHandleCreateScanStructuralError(t *testing.T) {
	g := testGraph()
	g.Edges = append(g.Edges, graphio.Edge{From: "app@1.0.0", To: "ghost@0.0.1"})

	w := doRequest(t, newTestServer(newFakeStore()), http.MethodPost, "/api/scans", ScanRequest{
		Repository: "acme/webapp",
		Graph:      g,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != string(errors.ErrCodeInvalidGraph) {
		t.Errorf("code = %q, want %q", body["code"], errors.ErrCodeInvalidGraph)
	}
}

func TestHandleGetScan(t *testing.T) {
	store := newFakeStore()
	store.reports["abc"] = &scan.Report{ID: "abc", Repository: "acme/webapp"}
	s := newTestServer(store)

	w := doRequest(t, s, http.MethodGet, "/api/scans/abc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, "/api/scans/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleListScans(t *testing.T) {
	store := newFakeStore()
	store.reports["a"] = &scan.Report{ID: "a", Repository: "acme/one"}
	store.reports["b"] = &scan.Report{ID: "b", Repository: "acme/two"}
	s := newTestServer(store)

	w := doRequest(t, s, http.MethodGet, "/api/scans?repository=acme/one", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var reports []*scan.Report
	if err := json.Unmarshal(w.Body.Bytes(), &reports); err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].ID != "a" {
		t.Errorf("reports = %v, want just scan a", reports)
	}
}

func TestHandleListScansLimitValidation(t *testing.T) {
	s := newTestServer(newFakeStore())
	for _, q := range []string{"limit=0", "limit=101", "limit=abc"} {
		w := doRequest(t, s, http.MethodGet, "/api/scans?"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestHandleListScansEmptyIsArray(t *testing.T) {
	w := doRequest(t, newTestServer(newFakeStore()), http.MethodGet, "/api/scans", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}
