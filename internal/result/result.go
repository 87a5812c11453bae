// Package result holds per-target scan outcomes and the batch aggregate
// derived from them.
package result

import (
	"time"

	"github.com/MOYARU/a2ascan/internal/engine"
	"github.com/MOYARU/a2ascan/internal/manifest"
	"github.com/MOYARU/a2ascan/internal/report"
)

type ScanResult struct {
	Source     string                  `json:"source"`
	URL        string                  `json:"url,omitempty"`
	Manifest   *manifest.AgentManifest `json:"-"`
	AgentName  string                  `json:"agent_name,omitempty"`
	Findings   []report.Finding        `json:"findings"`
	Verdict    report.Verdict          `json:"verdict"`
	FetchError *engine.FetchError      `json:"fetch_error,omitempty"`
	Counts     report.SeverityCounts   `json:"counts"`
	Requests   int64                   `json:"requests"`
	Duration   time.Duration           `json:"duration_ns"`
}

// New assembles a result. Verdict is ERROR when the manifest could not be
// fetched and otherwise follows from the findings alone.
func New(raw engine.RawManifest, m *manifest.AgentManifest, findings []report.Finding, elapsed time.Duration) ScanResult {
	if findings == nil {
		findings = []report.Finding{}
	}
	r := ScanResult{
		Source:     raw.Source,
		URL:        raw.URL,
		Manifest:   m,
		Findings:   findings,
		FetchError: raw.Err,
		Counts:     report.CountSeverities(findings),
		Requests:   raw.Stats.Requests,
		Duration:   elapsed,
	}
	if m != nil {
		r.AgentName = report.SanitizeText(m.Name)
	}
	if raw.Err != nil {
		r.Verdict = report.VerdictError
	} else {
		r.Verdict = report.VerdictOf(findings)
	}
	return r
}

// BatchSummary is recomputed from results on demand.
type BatchSummary struct {
	TotalScanned int `json:"total_scanned"`
	Passed       int `json:"passed"`
	Warnings     int `json:"warnings"`
	Failed       int `json:"failed"`
	Errors       int `json:"errors"`
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
}

func Summarize(results []ScanResult) BatchSummary {
	s := BatchSummary{TotalScanned: len(results)}
	for _, r := range results {
		switch r.Verdict {
		case report.VerdictPass:
			s.Passed++
		case report.VerdictWarn:
			s.Warnings++
		case report.VerdictFail:
			s.Failed++
		case report.VerdictError:
			s.Errors++
		}
		c := report.CountSeverities(r.Findings)
		s.High += c.High
		s.Medium += c.Medium
		s.Low += c.Low
	}
	return s
}

// Worst is the most severe verdict in the batch; fetch errors rank below FAIL.
func (s BatchSummary) Worst() report.Verdict {
	switch {
	case s.Failed > 0:
		return report.VerdictFail
	case s.Errors > 0:
		return report.VerdictError
	case s.Warnings > 0:
		return report.VerdictWarn
	default:
		return report.VerdictPass
	}
}
