package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contractlens/contractlens/config"
)

// Export is the outcome of a report request. Exactly one of Report and URL
// is set for downloadable exports; a simulated export sets neither.
type Export struct {
	Report *Report
	URL    string
}

// Exporter produces the analysis report for a contract
type Exporter interface {
	Export(ctx context.Context, contractID string) (*Export, error)
	// Downloadable is false when the export only acknowledges the request
	Downloadable() bool
}

// NewExporter picks the exporter for the configured report mode. cache may be nil.
func NewExporter(cfg *config.Config, client ReportDownloader, cache ReportStore) (Exporter, error) {
	switch cfg.Report.Mode {
	case config.ReportModeSimulated:
		return NewSimulatedExporter(cfg.SimulatedExportDelay()), nil
	case config.ReportModeAPI:
		return NewAPIExporter(client, cache), nil
	default:
		return nil, fmt.Errorf("unknown report mode %q", cfg.Report.Mode)
	}
}

// SimulatedExporter waits a fixed delay and produces nothing
type SimulatedExporter struct {
	delay time.Duration
}

func NewSimulatedExporter(delay time.Duration) *SimulatedExporter {
	return &SimulatedExporter{delay: delay}
}

func (e *SimulatedExporter) Export(ctx context.Context, contractID string) (*Export, error) {
	select {
	case <-time.After(e.delay):
		return &Export{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *SimulatedExporter) Downloadable() bool {
	return false
}

// ReportDownloader fetches report bytes from the analysis service
type ReportDownloader interface {
	DownloadReport(ctx context.Context, contractID string) (*Report, error)
}

// ReportStore caches reports between downloads
type ReportStore interface {
	Exists(ctx context.Context, contractID string) (bool, error)
	Put(ctx context.Context, contractID string, report *Report) error
	PresignedURL(ctx context.Context, contractID string) (string, error)
}

// APIExporter downloads the report from the analysis service. With a cache,
// reports already stored are handed out as presigned links.
type APIExporter struct {
	client ReportDownloader
	cache  ReportStore
}

func NewAPIExporter(client ReportDownloader, cache ReportStore) *APIExporter {
	return &APIExporter{client: client, cache: cache}
}

func (e *APIExporter) Downloadable() bool {
	return true
}

func (e *APIExporter) Export(ctx context.Context, contractID string) (*Export, error) {
	if e.cache != nil {
		if url, ok := e.cached(ctx, contractID); ok {
			return &Export{URL: url}, nil
		}
	}

	report, err := e.client.DownloadReport(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to download report: %w", err)
	}

	if e.cache != nil {
		// A failed cache write still serves the download
		if err := e.cache.Put(ctx, contractID, report); err != nil {
			slog.Warn("failed to cache report", "contract_id", contractID, "error", err)
		}
	}
	return &Export{Report: report}, nil
}

func (e *APIExporter) cached(ctx context.Context, contractID string) (string, bool) {
	exists, err := e.cache.Exists(ctx, contractID)
	if err != nil {
		slog.Warn("report cache lookup failed", "contract_id", contractID, "error", err)
		return "", false
	}
	if !exists {
		return "", false
	}
	url, err := e.cache.PresignedURL(ctx, contractID)
	if err != nil {
		slog.Warn("failed to presign cached report", "contract_id", contractID, "error", err)
		return "", false
	}
	return url, true
}
