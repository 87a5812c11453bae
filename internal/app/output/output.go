package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/MOYARU/a2ascan/internal/app/ui"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
	"github.com/MOYARU/a2ascan/internal/result"
)

var progressMu sync.Mutex

// PrintScanProgress updates the current scan progress on the same stderr line.
func PrintScanProgress(current, total int, status, target string) {
	progressMu.Lock()
	defer progressMu.Unlock()

	if total <= 0 {
		fmt.Fprintf(os.Stderr, "\r [------------------------------] 0%% | %s [0/0]\033[K", status)
		return
	}

	percentage := float64(current) / float64(total) * 100
	// Truncate target URL to prevent line wrapping
	if len(target) > 50 {
		target = target[:47] + "..."
	}
	width := 30
	filled := int(float64(width) * (float64(current) / float64(total)))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	fmt.Fprintf(os.Stderr, "\r [%s] %.0f%% | %s [%d/%d]: %s\033[K", bar, percentage, status, current, total, report.SanitizeURL(target))
	if current >= total {
		fmt.Fprintln(os.Stderr)
	}
}

// PrintResults writes one block per target: verdict line, then its findings.
func PrintResults(w io.Writer, results []result.ScanResult) {
	for _, r := range results {
		fmt.Fprintln(w)
		_, _ = ui.White.Fprintln(w, msges.GetUIMessage("Target", report.SanitizeURL(r.Source)))
		if r.AgentName != "" {
			_, _ = ui.Gray.Fprintf(w, " Agent: %s\n", r.AgentName)
		}
		_, _ = ui.VerdictColor(r.Verdict).Fprintf(w, " Verdict: %s\n", r.Verdict)

		if r.FetchError != nil {
			_, _ = ui.Red.Fprintf(w, " %s\n", msges.GetUIMessage("FetchFailed", report.SanitizeText(r.FetchError.Error())))
			continue
		}
		PrintFindings(w, r.Findings)
	}
}

// PrintFindings prints findings in their already-sorted order.
func PrintFindings(w io.Writer, findings []report.Finding) {
	if len(findings) == 0 {
		_, _ = ui.Green.Fprintf(w, " %s\n", msges.GetUIMessage("ConsoleNoIssues"))
		return
	}
	for _, f := range findings {
		_, _ = ui.SeverityColor(f.Severity).Fprintf(w, " [%s] %s (%s)\n", f.Severity, f.ThreatName, f.RuleID)
		_, _ = ui.Gray.Fprintf(w, "   - %s\n", f.Summary)
		if f.Location != "" {
			_, _ = ui.Gray.Fprintf(w, "   - %s: %s\n", msges.GetUIMessage("ConsoleLocationLabel"), f.Location)
		}
		if f.Fix != "" {
			_, _ = ui.Gray.Fprintf(w, "   - %s: %s\n", msges.GetUIMessage("ConsoleFixLabel"), f.Fix)
		}
	}
}

// PrintBatchSummary prints batch totals and the per-severity breakdown.
func PrintBatchSummary(w io.Writer, s result.BatchSummary) {
	fmt.Fprintln(w)
	_, _ = ui.White.Fprintln(w, msges.GetUIMessage("ConsoleScanSummaryTitle"))
	fmt.Fprintf(w, " Total scanned: %d\n", s.TotalScanned)
	_, _ = ui.Green.Fprintf(w, " Passed:        %d\n", s.Passed)
	_, _ = ui.Yellow.Fprintf(w, " Warnings:      %d\n", s.Warnings)
	_, _ = ui.Red.Fprintf(w, " Failed:        %d\n", s.Failed)
	if s.Errors > 0 {
		_, _ = ui.Gray.Fprintf(w, " Errors:        %d\n", s.Errors)
	}

	fmt.Fprintln(w)
	_, _ = ui.White.Fprintln(w, msges.GetUIMessage("ConsoleBreakdownTitle"))
	total := s.High + s.Medium + s.Low
	for _, row := range []struct {
		sev   report.Severity
		count int
	}{
		{report.SeverityHigh, s.High},
		{report.SeverityMedium, s.Medium},
		{report.SeverityLow, s.Low},
	} {
		_, _ = ui.SeverityColor(row.sev).Fprintf(w, " %-7s %3d %s\n", row.sev, row.count, bar(row.count, total, 20))
	}
}

func bar(n, total, width int) string {
	if total <= 0 || n <= 0 {
		return ""
	}
	filled := n * width / total
	if filled == 0 {
		filled = 1
	}
	return strings.Repeat("#", filled)
}
