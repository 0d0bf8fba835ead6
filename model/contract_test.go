package model

import (
	"testing"
)

func TestContractStatusConstants(t *testing.T) {
	statuses := []string{StatusUploaded, StatusAnalyzing, StatusCompleted, StatusError}
	expected := []string{"uploaded", "analyzing", "completed", "error"}

	for i, status := range statuses {
		if status != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
	}
}

func TestContractSummarySelectable(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{StatusCompleted, true},
		{StatusUploaded, false},
		{StatusAnalyzing, false},
		{StatusError, false},
		{"", false},
	}

	for _, tt := range tests {
		c := &ContractSummary{ID: "c1", Status: tt.status}
		if got := c.Selectable(); got != tt.expected {
			t.Errorf("Selectable() with status %q = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestContractSummaryAnalysis(t *testing.T) {
	score := 78.0
	c := &ContractSummary{
		ID:        "1",
		Filename:  "Service Agreement",
		Status:    StatusCompleted,
		RiskScore: &score,
		Summary:   "summary",
		Clauses: []Clause{
			{ID: "1-1", Type: "Termination Clause", RiskLevel: RiskHigh},
		},
	}

	a := c.Analysis()
	if a.ContractID != "1" {
		t.Errorf("Expected contract id '1', got '%s'", a.ContractID)
	}
	if a.RiskScore != 78 {
		t.Errorf("Expected risk score 78, got %v", a.RiskScore)
	}
	if len(a.Clauses) != 1 || a.Clauses[0].ID != "1-1" {
		t.Errorf("Unexpected clauses: %+v", a.Clauses)
	}

	a.Clauses[0].Type = "mutated"
	if c.Clauses[0].Type != "Termination Clause" {
		t.Error("Expected Analysis() to copy clauses")
	}
}

func TestContractSummaryAnalysisNoScore(t *testing.T) {
	c := &ContractSummary{ID: "2", Status: StatusCompleted}
	if a := c.Analysis(); a.RiskScore != 0 {
		t.Errorf("Expected zero score, got %v", a.RiskScore)
	}
}

func TestAnalysisNormalize(t *testing.T) {
	a := &Analysis{Clauses: []Clause{
		{ID: "a", RiskLevel: "HIGH"},
		{ID: "b", RiskLevel: " medium "},
		{ID: "c", RiskLevel: ""},
		{ID: "d", RiskLevel: "critical"},
	}}
	a.Normalize()

	expected := []RiskLevel{RiskHigh, RiskMedium, RiskLow, RiskLow}
	for i, want := range expected {
		if a.Clauses[i].RiskLevel != want {
			t.Errorf("Clause %s: expected %s, got %s", a.Clauses[i].ID, want, a.Clauses[i].RiskLevel)
		}
	}
}

func TestParseUploadDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		year  int
	}{
		{"2024-01-15", true, 2024},
		{"2024-01-15T10:30:00", true, 2024},
		{"2024-01-15T10:30:00.123456", true, 2024},
		{"2024-01-15T10:30:00+00:00", true, 2024},
		{"2024-01-15 10:30:00", true, 2024},
		{"yesterday", false, 0},
		{"", false, 0},
	}

	for _, tt := range tests {
		got, ok := ParseUploadDate(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseUploadDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got.Year() != tt.year {
			t.Errorf("ParseUploadDate(%q) year = %d, want %d", tt.input, got.Year(), tt.year)
		}
	}
}
