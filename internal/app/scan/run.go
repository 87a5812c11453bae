package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MOYARU/a2ascan/internal/app/output"
	"github.com/MOYARU/a2ascan/internal/app/ui"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/scanner"
	"github.com/MOYARU/a2ascan/internal/config"
	"github.com/MOYARU/a2ascan/internal/engine"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/result"
)

// Options is everything the CLI resolves before a batch starts.
type Options struct {
	Targets      []string
	Policy       config.ScanPolicy
	JSONPath     string
	HTMLPath     string
	ShowProgress bool
	Out          io.Writer
	Logger       *slog.Logger
}

// NewScanner wires the shared HTTP stack and rule engine from a policy.
// Transport order, outermost first: budget, delay, shared pool.
func NewScanner(policy config.ScanPolicy, targetCount int, logger *slog.Logger) (*Scanner, *engine.RequestBudgetTransport) {
	client := engine.NewHTTPClient(policy.MaxRedirects, nil)
	if policy.DelayMS > 0 {
		client.Transport = &engine.DelayedTransport{
			Transport: client.Transport,
			Delay:     time.Duration(policy.DelayMS) * time.Millisecond,
		}
	}
	budget := policy.RequestBudget
	if budget == 0 {
		// primary + fallback, each allowed its full redirect chain
		budget = int64(targetCount*2*(policy.MaxRedirects+1)) + 10
	}
	budgetTransport := &engine.RequestBudgetTransport{Base: client.Transport, Max: budget}
	client.Transport = budgetTransport

	fetcher := engine.NewFetcher(engine.FetcherOptions{
		Client:       client,
		MaxRedirects: policy.MaxRedirects,
		SameSite:     policy.SameSiteRedirects,
		Logger:       logger,
	})
	rules := scanner.New(ctxpkg.Lists{
		AllowedSinkDomains: policy.AllowedSinkDomains,
		SuspiciousTLDs:     policy.ExtraSuspiciousTLDs,
		ContactDenylist:    policy.ExtraContactDenylist,
		InjectionPhrases:   policy.ExtraInjectionPhrases,
		ImpersonationTerms: policy.ExtraImpersonation,
	}, logger)

	return &Scanner{
		Fetcher:     fetcher,
		Engine:      rules,
		Concurrency: policy.MaxConcurrency,
		Timeout:     policy.PerTargetTimeout,
		Logger:      logger,
	}, budgetTransport
}

// RunScan executes a batch for the CLI, prints the console report and writes any
// requested report files. Results are returned even when the batch was interrupted.
func RunScan(ctx context.Context, opts Options) ([]result.ScanResult, result.BatchSummary, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Targets) == 0 {
		return nil, result.BatchSummary{}, ErrNoTargets
	}

	s, budget := NewScanner(opts.Policy, len(opts.Targets), logger)
	if opts.ShowProgress {
		s.Progress = func(done, total int, source string) {
			output.PrintScanProgress(done, total, "Scanning", source)
		}
		output.PrintScanProgress(0, len(opts.Targets), "Ready", "")
	}

	fmt.Fprintln(out, msges.GetUIMessage("TargetCount", len(opts.Targets), s.Concurrency, s.Timeout))

	start := time.Now()
	results, scanErr := s.Scan(ctx, opts.Targets)
	end := time.Now()
	logger.Debug("batch finished", "targets", len(opts.Targets), "requests", budget.Used(), "elapsed", end.Sub(start))

	summary := result.Summarize(results)
	output.PrintResults(out, results)
	output.PrintBatchSummary(out, summary)

	if scanErr != nil {
		var be *BatchError
		if errors.As(scanErr, &be) {
			_, _ = ui.Yellow.Fprintln(out, msges.GetUIMessage("ScanCancelled"))
			_, _ = ui.Yellow.Fprintln(out, msges.GetUIMessage("ScanIncomplete", be.Completed, be.Skipped))
		}
	} else {
		_, _ = ui.Green.Fprintln(out, msges.GetUIMessage("AllScansCompleted"))
	}

	rep := output.NewReport(results, start, end)
	if opts.JSONPath != "" {
		if err := output.SaveJSONReport(output.ResolveReportPath(opts.JSONPath, start, "json"), rep); err != nil {
			ui.Errorf(out, "%s", msges.GetUIMessage("JSONReportFailed", err))
		}
	}
	if opts.HTMLPath != "" {
		if err := output.SaveHTMLReport(output.ResolveReportPath(opts.HTMLPath, start, "html"), rep); err != nil {
			ui.Errorf(out, "%s", msges.GetUIMessage("HTMLReportFailed", err))
		}
	}
	return results, summary, scanErr
}

// LoadTargets reads one source per line; blank lines and # comments are skipped.
func LoadTargets(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open targets file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var targets []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return targets, nil
}
