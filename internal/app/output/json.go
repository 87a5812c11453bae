package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
	"github.com/MOYARU/a2ascan/internal/result"
	"github.com/MOYARU/a2ascan/internal/version"
)

// TargetReport is the serialized form of one ScanResult.
type TargetReport struct {
	Source     string                `json:"source"`
	URL        string                `json:"url,omitempty"`
	AgentName  string                `json:"agent_name,omitempty"`
	Verdict    report.Verdict        `json:"verdict"`
	Counts     report.SeverityCounts `json:"counts"`
	Findings   []report.Finding      `json:"findings"`
	FetchError string                `json:"fetch_error,omitempty"`
	ErrorKind  string                `json:"error_kind,omitempty"`
	Requests   int64                 `json:"requests"`
	DurationMS int64                 `json:"duration_ms"`
}

type Report struct {
	ScanID    string              `json:"scan_id"`
	Scanner   string              `json:"scanner"`
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Summary   result.BatchSummary `json:"summary"`
	Targets   []TargetReport      `json:"targets"`
}

// NewReport builds the report document; every URL and fetch error is sanitized.
func NewReport(results []result.ScanResult, start, end time.Time) Report {
	rep := Report{
		ScanID:    uuid.NewString(),
		Scanner:   version.ScannerUserAgent(),
		StartTime: start,
		EndTime:   end,
		Summary:   result.Summarize(results),
		Targets:   make([]TargetReport, 0, len(results)),
	}
	for _, r := range results {
		t := TargetReport{
			Source:     report.SanitizeURL(r.Source),
			URL:        report.SanitizeURL(r.URL),
			AgentName:  r.AgentName,
			Verdict:    r.Verdict,
			Counts:     r.Counts,
			Findings:   r.Findings,
			Requests:   r.Requests,
			DurationMS: r.Duration.Milliseconds(),
		}
		if t.Findings == nil {
			t.Findings = []report.Finding{}
		}
		if r.FetchError != nil {
			t.FetchError = report.SanitizeText(r.FetchError.Error())
			t.ErrorKind = string(r.FetchError.Kind)
		}
		rep.Targets = append(rep.Targets, t)
	}
	return rep
}

func WriteJSON(w io.Writer, rep Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rep)
}

// ReportFilename derives a default report name from the scan start time.
func ReportFilename(start time.Time, ext string) string {
	return fmt.Sprintf("a2ascan_report_%s.%s", start.Format("20060102_150405"), ext)
}

// ResolveReportPath places a timestamped report inside path when path is an
// existing directory and returns path unchanged otherwise.
func ResolveReportPath(path string, start time.Time, ext string) string {
	if path == "" || path == "-" {
		return path
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, ReportFilename(start, ext))
	}
	return path
}

// SaveJSONReport writes rep to path; "-" means stdout.
func SaveJSONReport(path string, rep Report) error {
	if path == "-" {
		return WriteJSON(os.Stdout, rep)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteJSON(file, rep); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s\n", msges.GetUIMessage("JSONReportSaved", path))
	return nil
}
