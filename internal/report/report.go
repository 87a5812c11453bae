package report

import "sort"

type Severity string
type Verdict string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"

	VerdictPass  Verdict = "PASS"
	VerdictWarn  Verdict = "WARN"
	VerdictFail  Verdict = "FAIL"
	VerdictError Verdict = "ERROR"
)

// Weight orders severities; unknown values sort last.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type Finding struct {
	Severity   Severity `json:"severity"`
	ThreatName string   `json:"threat_name"`
	Summary    string   `json:"summary"`
	RuleID     string   `json:"rule_id"`
	Location   string   `json:"location"`
	Fix        string   `json:"fix,omitempty"`
}

// SortFindings orders findings HIGH, MEDIUM, LOW, then by rule ID.
// Location and summary break the remaining ties so output is fully deterministic.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.Summary < b.Summary
	})
}

// VerdictOf derives the verdict from the worst severity present.
// LOW findings are advisory and never block a pass.
func VerdictOf(findings []Finding) Verdict {
	verdict := VerdictPass
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			return VerdictFail
		case SeverityMedium:
			verdict = VerdictWarn
		}
	}
	return verdict
}

// SeverityCounts tallies findings per severity.
type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func CountSeverities(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
	}
	return c
}
