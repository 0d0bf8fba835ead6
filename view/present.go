package view

import (
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/contractlens/contractlens/model"
)

// GaugeRadius is the radius of the score ring in the 200x200 viewBox
const GaugeRadius = 90.0

// Gauge is the circular risk score indicator
type Gauge struct {
	Score       float64
	Level       model.RiskLevel
	Label       string
	Description string
	// SVG stroke parameters for the progress arc
	Circumference float64
	DashOffset    float64
}

var levelText = map[model.RiskLevel]struct{ label, description string }{
	model.RiskHigh:   {"High Risk", "This contract contains several high-risk clauses that require attention."},
	model.RiskMedium: {"Medium Risk", "This contract has moderate risk factors that should be reviewed."},
	model.RiskLow:    {"Low Risk", "This contract appears to have minimal risk factors."},
}

func NewGauge(score float64) Gauge {
	level := model.Bucket(score)
	circumference := 2 * math.Pi * GaugeRadius
	clamped := math.Max(0, math.Min(100, score))
	text := levelText[level]
	return Gauge{
		Score:         score,
		Level:         level,
		Label:         text.label,
		Description:   text.description,
		Circumference: circumference,
		DashOffset:    circumference - (clamped/100)*circumference,
	}
}

// BadgeVariant is the badge style for a risk level
func BadgeVariant(level model.RiskLevel) string {
	switch level {
	case model.RiskHigh:
		return "destructive"
	case model.RiskMedium:
		return "secondary"
	default:
		return "outline"
	}
}

// FormatScore prints the score as received: integral scores without a
// fraction, others with as many digits as they carry.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// FormatDate renders an upload timestamp for display, falling back to the raw value
func FormatDate(raw string) string {
	t, ok := model.ParseUploadDate(raw)
	if !ok {
		return raw
	}
	return t.Format("Jan 2, 2006")
}

// ClauseView is one clause card
type ClauseView struct {
	model.Clause
	Badge      string
	LevelLabel string
}

// Dashboard is everything the dashboard screen renders for one analysis
type Dashboard struct {
	ContractID   string
	FileName     string
	DocumentType string
	UploadDate   string
	Gauge        Gauge
	Counts       model.ClauseCounts
	Total        int
	Summary      template.HTML
	Clauses      []ClauseView
}

// NewDashboard derives the dashboard from an analysis and the header of the
// document it belongs to. The analysis is not modified.
func NewDashboard(a *model.Analysis, doc model.ContractSummary) *Dashboard {
	counts := model.CountClauses(a.Clauses)
	clauses := make([]ClauseView, 0, len(a.Clauses))
	for _, c := range a.Clauses {
		level := model.ParseRiskLevel(string(c.RiskLevel))
		clauses = append(clauses, ClauseView{
			Clause:     c,
			Badge:      BadgeVariant(level),
			LevelLabel: strings.ToUpper(string(level)) + " RISK",
		})
	}
	documentType := doc.DocumentType
	if documentType == "" {
		documentType = documentTypeFromName(doc.Filename)
	}
	return &Dashboard{
		ContractID:   a.ContractID,
		FileName:     doc.Filename,
		DocumentType: documentType,
		UploadDate:   FormatDate(doc.UploadDate),
		Gauge:        NewGauge(a.RiskScore),
		Counts:       counts,
		Total:        len(a.Clauses),
		Summary:      RenderSummary(a.Summary),
		Clauses:      clauses,
	}
}

// LibraryEntry is one card on the library screen
type LibraryEntry struct {
	ID           string
	Name         string
	DocumentType string
	UploadDate   string
	Status       string
	HasScore     bool
	Score        float64
	ScoreText    string
	Level        model.RiskLevel
	LevelLabel   string
	Badge        string
	ClauseCount  int
	Selectable   bool
}

func NewLibraryEntry(c model.ContractSummary) LibraryEntry {
	entry := LibraryEntry{
		ID:           c.ID,
		Name:         c.Filename,
		DocumentType: c.DocumentType,
		UploadDate:   FormatDate(c.UploadDate),
		Status:       c.Status,
		ClauseCount:  len(c.Clauses),
		Selectable:   c.Selectable(),
	}
	if entry.DocumentType == "" {
		entry.DocumentType = documentTypeFromName(c.Filename)
	}
	if c.RiskScore != nil {
		entry.HasScore = true
		entry.Score = *c.RiskScore
		entry.ScoreText = FormatScore(*c.RiskScore)
		entry.Level = model.Bucket(*c.RiskScore)
		entry.LevelLabel = strings.ToUpper(string(entry.Level))
		entry.Badge = BadgeVariant(entry.Level)
	}
	return entry
}

func NewLibraryEntries(contracts []model.ContractSummary) []LibraryEntry {
	entries := make([]LibraryEntry, 0, len(contracts))
	for _, c := range contracts {
		entries = append(entries, NewLibraryEntry(c))
	}
	return entries
}

func documentTypeFromName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "PDF"
	case strings.HasSuffix(lower, ".docx"):
		return "DOCX"
	default:
		return "Document"
	}
}
