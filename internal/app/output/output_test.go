package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/MOYARU/a2ascan/internal/engine"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
	"github.com/MOYARU/a2ascan/internal/result"
)

func sampleResults() []result.ScanResult {
	pass := result.New(engine.RawManifest{Source: "https://good.example.com"}, nil, nil, time.Millisecond)
	fail := result.New(engine.RawManifest{Source: "http://bad.example.com"}, nil, []report.Finding{
		msges.NewFinding("COMMAND_EXECUTION", report.SeverityHigh, "skills[2]", "execute_command", "matched \"execute command\""),
		msges.NewFinding("NO_AUTHENTICATION", report.SeverityMedium, "authentication.type", "none"),
		msges.NewFinding("SUSPICIOUS_CONTACT_DOMAIN", report.SeverityLow, "contact.email", "a@b.tk", "abused TLD .tk"),
	}, time.Millisecond)
	broken := result.New(engine.RawManifest{
		Source: "https://down.example.com",
		Err:    &engine.FetchError{Kind: engine.FetchHTTPError, URL: "https://down.example.com/agent-card.json", StatusCode: 404},
	}, nil, nil, time.Millisecond)
	return []result.ScanResult{pass, fail, broken}
}

func TestSaveJSONReportSummaryCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	start := time.Now().Add(-2 * time.Second)
	rep := NewReport(sampleResults(), start, time.Now())
	if err := SaveJSONReport(path, rep); err != nil {
		t.Fatalf("SaveJSONReport() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	var doc struct {
		ScanID  string `json:"scan_id"`
		Summary struct {
			TotalScanned int `json:"total_scanned"`
			Passed       int `json:"passed"`
			Warnings     int `json:"warnings"`
			Failed       int `json:"failed"`
			Errors       int `json:"errors"`
			High         int `json:"high"`
			Medium       int `json:"medium"`
			Low          int `json:"low"`
		} `json:"summary"`
		Targets []struct {
			Verdict    string `json:"verdict"`
			ErrorKind  string `json:"error_kind"`
			FetchError string `json:"fetch_error"`
			Findings   []struct {
				Severity   string `json:"severity"`
				ThreatName string `json:"threat_name"`
				Summary    string `json:"summary"`
			} `json:"findings"`
		} `json:"targets"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	s := doc.Summary
	if s.TotalScanned != 3 || s.Passed != 1 || s.Warnings != 0 || s.Failed != 1 || s.Errors != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.High != 1 || s.Medium != 1 || s.Low != 1 {
		t.Fatalf("unexpected severity counts: %+v", s)
	}
	if doc.ScanID == "" {
		t.Fatal("expected scan id")
	}
	if len(doc.Targets) != 3 || doc.Targets[2].ErrorKind != "HTTPError" || doc.Targets[2].FetchError == "" {
		t.Fatalf("unexpected targets: %+v", doc.Targets)
	}
	if f := doc.Targets[1].Findings[0]; f.Severity != "HIGH" || f.ThreatName == "" || f.Summary == "" {
		t.Fatalf("finding missing reporter fields: %+v", f)
	}
	if doc.Targets[0].Findings == nil {
		t.Fatal("expected empty findings array rather than null")
	}
}

func TestWriteHTMLEscapesManifestText(t *testing.T) {
	results := sampleResults()
	results[1].Findings[0].Summary = `<script>alert(1)</script>`
	var buf bytes.Buffer
	if err := WriteHTML(&buf, NewReport(results, time.Now(), time.Now())); err != nil {
		t.Fatalf("WriteHTML() error: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>alert(1)") {
		t.Fatal("manifest text must be escaped")
	}
	if !strings.Contains(out, "verdict-fail") || !strings.Contains(out, "COMMAND_EXECUTION") {
		t.Fatal("expected failing target in report")
	}
}

func TestPrintResultsAndSummary(t *testing.T) {
	color.NoColor = true
	results := sampleResults()
	var buf bytes.Buffer
	PrintResults(&buf, results)
	PrintBatchSummary(&buf, result.Summarize(results))
	out := buf.String()
	for _, want := range []string{"Verdict: PASS", "Verdict: FAIL", "Verdict: ERROR", "[HIGH] Dangerous Capability: Command Execution", "Failed:        1", "Fetch failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveReportPath(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"stdout", "-", "-"},
		{"file", filepath.Join(dir, "out.json"), filepath.Join(dir, "out.json")},
		{"directory", dir, filepath.Join(dir, "a2ascan_report_20260301_140509.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveReportPath(tt.in, start, "json"); got != tt.want {
				t.Fatalf("ResolveReportPath(%q)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}
