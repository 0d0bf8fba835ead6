package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/contractlens/contractlens/config"
)

func TestNewReportCache(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "invalid-endpoint:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
		UseSSL:    false,
	}

	cache, err := NewReportCache(cfg)
	// Creating the client does not connect; the first operation does
	if err != nil {
		t.Logf("NewReportCache returned error: %v", err)
	} else if cache == nil {
		t.Error("Expected non-nil cache")
	}
}

func TestReportObjectName(t *testing.T) {
	tests := map[string]string{
		"abc":                                  "reports/abc.pdf",
		"0b5e7c1a-7f51-4b8e-9d55-5c0a1b2c3d4e": "reports/0b5e7c1a-7f51-4b8e-9d55-5c0a1b2c3d4e.pdf",
	}
	for id, want := range tests {
		if got := ReportObjectName(id); got != want {
			t.Errorf("ReportObjectName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestReportCachePresignedURL(t *testing.T) {
	// With a fixed region presigning is local and needs no server
	cache, err := NewReportCache(&config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "testsecret",
		Bucket:     "contract-reports",
		Region:     "us-east-1",
		ExpireDays: 7,
	})
	if err != nil {
		t.Fatalf("NewReportCache failed: %v", err)
	}

	raw, err := cache.PresignedURL(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("PresignedURL failed: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Invalid URL %q: %v", raw, err)
	}
	if u.Host != "localhost:9000" {
		t.Errorf("Expected host localhost:9000, got %s", u.Host)
	}
	if !strings.HasSuffix(u.Path, "/contract-reports/reports/c-1.pdf") {
		t.Errorf("Unexpected path %s", u.Path)
	}
	if u.Query().Get("X-Amz-Expires") != "604800" {
		t.Errorf("Expected 7 day expiry, got %s", u.Query().Get("X-Amz-Expires"))
	}
}

func TestReportCacheWithCancelledContext(t *testing.T) {
	cache, err := NewReportCache(&config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Skip("Could not create report cache")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.Put(ctx, "c-1", &Report{Data: []byte("%PDF")}); err == nil {
		t.Error("Expected upload with cancelled context to fail")
	}
	if _, err := cache.Exists(ctx, "c-1"); err == nil {
		t.Error("Expected stat with cancelled context to fail")
	}
}

var _ ReportStore = (*ReportCache)(nil)
