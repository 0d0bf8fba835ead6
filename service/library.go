package service

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Library lists previously analyzed contracts and loads their analyses
type Library interface {
	List(ctx context.Context) ([]model.ContractSummary, error)
	Load(ctx context.Context, id string) (*model.Analysis, error)
}

// NewLibrary picks the library source named in cfg
func NewLibrary(cfg *config.Config, client *AnalysisClient) (Library, error) {
	switch cfg.Library.Source {
	case config.LibrarySourceAPI:
		return NewAPILibrary(client), nil
	case config.LibrarySourceMock:
		return NewMockCatalog(cfg.Library.CatalogPath, cfg.LibraryLoadingDelay())
	default:
		return nil, fmt.Errorf("unknown library source %q", cfg.Library.Source)
	}
}

// APILibrary reads the library from the analysis service
type APILibrary struct {
	client *AnalysisClient
}

func NewAPILibrary(client *AnalysisClient) *APILibrary {
	return &APILibrary{client: client}
}

func (l *APILibrary) List(ctx context.Context) ([]model.ContractSummary, error) {
	return l.client.ListContracts(ctx)
}

func (l *APILibrary) Load(ctx context.Context, id string) (*model.Analysis, error) {
	return l.client.GetResult(ctx, id)
}

type catalogFile struct {
	Contracts []model.ContractSummary `yaml:"contracts"`
}

// MockCatalog serves a fixed set of contracts from YAML. With an empty path
// the built-in sample catalog is used.
type MockCatalog struct {
	path  string
	delay time.Duration

	mu        sync.RWMutex
	contracts []model.ContractSummary
}

func NewMockCatalog(path string, delay time.Duration) (*MockCatalog, error) {
	c := &MockCatalog{path: path, delay: delay}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path is the catalog file, empty for the built-in catalog
func (c *MockCatalog) Path() string {
	return c.path
}

// Reload re-reads the catalog. On error the previous contents stay.
func (c *MockCatalog) Reload() error {
	data := defaultCatalog
	if c.path != "" {
		var err error
		data, err = os.ReadFile(c.path)
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
	}

	contracts, err := parseCatalog(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.contracts = contracts
	c.mu.Unlock()

	slog.Info("contract catalog loaded", "path", c.path, "contracts", len(contracts))
	return nil
}

func parseCatalog(data []byte) ([]model.ContractSummary, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Contracts))
	for i := range f.Contracts {
		entry := &f.Contracts[i]
		if entry.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("duplicate catalog id %q", entry.ID)
		}
		seen[entry.ID] = true
		if entry.Status == "" {
			entry.Status = model.StatusCompleted
		}
		for j := range entry.Clauses {
			entry.Clauses[j].RiskLevel = model.ParseRiskLevel(string(entry.Clauses[j].RiskLevel))
		}
	}
	if f.Contracts == nil {
		f.Contracts = []model.ContractSummary{}
	}
	return f.Contracts, nil
}

func (c *MockCatalog) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(c.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *MockCatalog) List(ctx context.Context) ([]model.ContractSummary, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ContractSummary, len(c.contracts))
	copy(out, c.contracts)
	return out, nil
}

func (c *MockCatalog) Load(ctx context.Context, id string) (*model.Analysis, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.contracts {
		if c.contracts[i].ID == id {
			return c.contracts[i].Analysis(), nil
		}
	}
	return nil, fmt.Errorf("contract %s: %w", id, ErrNotFound)
}
