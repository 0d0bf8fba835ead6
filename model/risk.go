package model

import "strings"

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Score thresholds for bucketing an aggregate risk score
const (
	HighRiskThreshold   = 70
	MediumRiskThreshold = 40
)

// ParseRiskLevel folds case and whitespace. Unknown values count as low,
// which is what the analysis service assumes for unlabeled clauses.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Bucket derives the displayed risk level from a 0-100 score
func Bucket(score float64) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

type ClauseCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func (c ClauseCounts) Total() int {
	return c.High + c.Medium + c.Low
}

// CountClauses partitions clauses by risk level in a single pass
func CountClauses(clauses []Clause) ClauseCounts {
	var counts ClauseCounts
	for _, clause := range clauses {
		switch ParseRiskLevel(string(clause.RiskLevel)) {
		case RiskHigh:
			counts.High++
		case RiskMedium:
			counts.Medium++
		default:
			counts.Low++
		}
	}
	return counts
}
