package model

import (
	"time"
)

// ContractSummary is one entry of the contract library
type ContractSummary struct {
	ID         string   `json:"id" yaml:"id"`
	Filename   string   `json:"filename" yaml:"filename"`
	Status     string   `json:"status" yaml:"status"` // uploaded, analyzing, completed, error
	UploadDate string   `json:"upload_date" yaml:"upload_date"`
	RiskScore  *float64 `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`

	// Only populated by the mock catalog, which carries full records
	DocumentType string   `json:"document_type,omitempty" yaml:"type,omitempty"`
	Summary      string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Clauses      []Clause `json:"clauses,omitempty" yaml:"clauses,omitempty"`
}

// Analysis is the fully resolved result the dashboard renders
type Analysis struct {
	ContractID string   `json:"contract_id"`
	RiskScore  float64  `json:"risk_score"`
	Summary    string   `json:"summary"`
	Clauses    []Clause `json:"clauses"`
	Status     string   `json:"status"`
}

type Clause struct {
	ID          string    `json:"id" yaml:"id"`
	Type        string    `json:"type" yaml:"type"`
	Content     string    `json:"content" yaml:"content"`
	RiskLevel   RiskLevel `json:"risk_level" yaml:"risk_level"`
	Explanation string    `json:"explanation" yaml:"explanation"`
	Suggestion  string    `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Contract statuses reported by the analysis service
const (
	StatusUploaded  = "uploaded"
	StatusAnalyzing = "analyzing"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Selectable reports whether the library entry can be opened on the dashboard
func (c *ContractSummary) Selectable() bool {
	return c.Status == StatusCompleted
}

// Analysis builds the dashboard record for a catalog entry that carries its clauses
func (c *ContractSummary) Analysis() *Analysis {
	var score float64
	if c.RiskScore != nil {
		score = *c.RiskScore
	}
	clauses := make([]Clause, len(c.Clauses))
	copy(clauses, c.Clauses)
	return &Analysis{
		ContractID: c.ID,
		RiskScore:  score,
		Summary:    c.Summary,
		Clauses:    clauses,
		Status:     c.Status,
	}
}

// Normalize maps every clause risk level onto one of the three buckets
func (a *Analysis) Normalize() {
	for i := range a.Clauses {
		a.Clauses[i].RiskLevel = ParseRiskLevel(string(a.Clauses[i].RiskLevel))
	}
}

var uploadDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseUploadDate accepts the timestamp shapes the analysis service and the
// catalog emit. ok is false when none matches.
func ParseUploadDate(s string) (t time.Time, ok bool) {
	for _, layout := range uploadDateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Toast is a transient user notification
type Toast struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"` // default, destructive
}

const (
	ToastDefault     = "default"
	ToastDestructive = "destructive"
)
