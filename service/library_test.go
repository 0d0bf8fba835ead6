package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/model"
)

func TestMockCatalogDefault(t *testing.T) {
	c, err := NewMockCatalog("", 0)
	if err != nil {
		t.Fatalf("NewMockCatalog failed: %v", err)
	}

	contracts, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(contracts) != 3 {
		t.Fatalf("Expected 3 sample contracts, got %d", len(contracts))
	}

	wantScores := map[string]float64{"1": 78, "2": 42, "3": 25}
	for _, entry := range contracts {
		if entry.RiskScore == nil || *entry.RiskScore != wantScores[entry.ID] {
			t.Errorf("Contract %s: unexpected score %v", entry.ID, entry.RiskScore)
		}
		if !entry.Selectable() {
			t.Errorf("Contract %s should be selectable", entry.ID)
		}
	}

	a, err := c.Load(context.Background(), "1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(a.Clauses) != 4 {
		t.Errorf("Expected 4 clauses, got %d", len(a.Clauses))
	}
	counts := model.CountClauses(a.Clauses)
	if counts.High != 2 || counts.Medium != 1 || counts.Low != 1 {
		t.Errorf("Unexpected counts %+v", counts)
	}
	if a.Clauses[2].Suggestion != "" {
		t.Errorf("Expected payment terms clause without suggestion, got %q", a.Clauses[2].Suggestion)
	}
}

func TestMockCatalogLoadNotFound(t *testing.T) {
	c, _ := NewMockCatalog("", 0)
	if _, err := c.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMockCatalogListIsACopy(t *testing.T) {
	c, _ := NewMockCatalog("", 0)
	first, _ := c.List(context.Background())
	first[0].Filename = "changed"

	second, _ := c.List(context.Background())
	if second[0].Filename == "changed" {
		t.Error("Expected List to return a copy")
	}
}

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
}

func TestMockCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, `
contracts:
  - id: a
    filename: Lease.pdf
    upload_date: "2024-03-01"
    risk_score: 55.5
    clauses:
      - id: a-1
        type: Rent
        risk_level: CRITICAL
  - id: b
    filename: Draft.docx
    status: analyzing
`)

	c, err := NewMockCatalog(path, 0)
	if err != nil {
		t.Fatalf("NewMockCatalog failed: %v", err)
	}
	contracts, _ := c.List(context.Background())
	if len(contracts) != 2 {
		t.Fatalf("Expected 2 contracts, got %d", len(contracts))
	}
	if contracts[0].Status != model.StatusCompleted {
		t.Errorf("Expected missing status to default to completed, got %s", contracts[0].Status)
	}
	if contracts[1].Selectable() {
		t.Error("Expected analyzing entry not to be selectable")
	}
	if contracts[0].Clauses[0].RiskLevel != model.RiskLow {
		t.Errorf("Expected unknown level normalized to low, got %s", contracts[0].Clauses[0].RiskLevel)
	}
}

func TestMockCatalogInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"bad yaml":     "contracts: [",
		"missing id":   "contracts:\n  - filename: x\n",
		"duplicate id": "contracts:\n  - id: a\n  - id: a\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "catalog.yaml")
			writeCatalog(t, path, content)
			if _, err := NewMockCatalog(path, 0); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, err := NewMockCatalog(filepath.Join(dir, "missing.yaml"), 0); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestMockCatalogReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "contracts:\n  - id: a\n    filename: A\n")

	c, err := NewMockCatalog(path, 0)
	if err != nil {
		t.Fatalf("NewMockCatalog failed: %v", err)
	}

	writeCatalog(t, path, "contracts: [")
	if err := c.Reload(); err == nil {
		t.Error("Expected reload error")
	}

	contracts, _ := c.List(context.Background())
	if len(contracts) != 1 || contracts[0].ID != "a" {
		t.Errorf("Expected previous contents, got %+v", contracts)
	}
}

func TestMockCatalogDelay(t *testing.T) {
	c, _ := NewMockCatalog("", 30*time.Millisecond)

	start := time.Now()
	c.List(context.Background())
	if time.Since(start) < 30*time.Millisecond {
		t.Error("Expected List to wait for the loading delay")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCatalogWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "contracts:\n  - id: a\n")

	c, err := NewMockCatalog(path, 0)
	if err != nil {
		t.Fatalf("NewMockCatalog failed: %v", err)
	}

	w, err := NewCatalogWatcher(c, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewCatalogWatcher failed: %v", err)
	}
	reloaded := make(chan error, 4)
	w.OnReload(func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to start
	time.Sleep(50 * time.Millisecond)
	writeCatalog(t, path, "contracts:\n  - id: a\n  - id: b\n")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	contracts, _ := c.List(context.Background())
	if len(contracts) != 2 {
		t.Errorf("Expected 2 contracts after reload, got %d", len(contracts))
	}
}

func TestCatalogWatcherRequiresFile(t *testing.T) {
	c, _ := NewMockCatalog("", 0)
	if _, err := NewCatalogWatcher(c, 0); err == nil {
		t.Error("Expected error for built-in catalog")
	}
}

func TestAPILibrary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contracts":
			w.Write([]byte(`[{"id":"x","filename":"a.pdf","status":"completed","upload_date":"2024-01-01T00:00:00","risk_score":61.5}]`))
		case "/result/x":
			w.Write([]byte(`{"contract_id":"x","risk_score":61.5,"summary":"s","clauses":[],"status":"completed"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Contract not found"}`))
		}
	}))
	defer server.Close()

	lib := NewAPILibrary(NewAnalysisClient(&config.AnalysisConfig{BaseURL: server.URL, TimeoutSeconds: 5}))

	contracts, err := lib.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(contracts) != 1 || *contracts[0].RiskScore != 61.5 {
		t.Errorf("Unexpected contracts %+v", contracts)
	}

	a, err := lib.Load(context.Background(), "x")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.RiskScore != 61.5 {
		t.Errorf("Expected score 61.5, got %v", a.RiskScore)
	}

	if _, err := lib.Load(context.Background(), "y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNewLibrary(t *testing.T) {
	client := NewAnalysisClient(&config.AnalysisConfig{BaseURL: "http://localhost:8000"})

	cfg := &config.Config{Library: config.LibraryConfig{Source: config.LibrarySourceAPI}}
	if lib, err := NewLibrary(cfg, client); err != nil {
		t.Errorf("Unexpected error: %v", err)
	} else if _, ok := lib.(*APILibrary); !ok {
		t.Errorf("Expected *APILibrary, got %T", lib)
	}

	cfg.Library.Source = config.LibrarySourceMock
	if lib, err := NewLibrary(cfg, client); err != nil {
		t.Errorf("Unexpected error: %v", err)
	} else if _, ok := lib.(*MockCatalog); !ok {
		t.Errorf("Expected *MockCatalog, got %T", lib)
	}

	cfg.Library.Source = "ftp"
	if _, err := NewLibrary(cfg, client); err == nil {
		t.Error("Expected error for unknown source")
	}
}
