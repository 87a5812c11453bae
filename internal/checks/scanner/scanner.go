package scanner

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/registry"
	"github.com/MOYARU/a2ascan/internal/manifest"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

// Engine runs a fixed rule set against one manifest at a time. It holds no
// per-manifest state and is safe for concurrent use.
type Engine struct {
	Checks []checks.Check
	Lists  ctxpkg.Lists
	Logger *slog.Logger
}

type CheckStat struct {
	Findings int
	Duration time.Duration
	Err      error
}

func New(lists ctxpkg.Lists, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Checks: registry.PipelineChecks(),
		Lists:  lists,
		Logger: logger,
	}
}

func checkWorkerCount(totalChecks int) int {
	if totalChecks <= 1 {
		return 1
	}
	// Rules are CPU-only; cap fan-out so a large batch does not oversubscribe.
	limit := runtime.GOMAXPROCS(0)
	if limit > 8 {
		limit = 8
	}
	if limit < 2 {
		limit = 2
	}
	if totalChecks < limit {
		return totalChecks
	}
	return limit
}

// Evaluate runs every rule and returns their concatenated findings, sorted.
// Rules are CPU-only and always run to completion, so it takes no context.
func (e *Engine) Evaluate(source string, m *manifest.AgentManifest) []report.Finding {
	findings, _ := e.EvaluateWithStats(source, m)
	return findings
}

// EvaluateWithStats also reports per-rule timing. A rule that fails or panics is
// replaced by one LOW RULE_INTERNAL_ERROR finding; the other rules still count.
func (e *Engine) EvaluateWithStats(source string, m *manifest.AgentManifest) ([]report.Finding, map[string]CheckStat) {
	stats := make(map[string]CheckStat, len(e.Checks))
	if m == nil {
		return nil, stats
	}

	scanCtx := ctxpkg.New(source, m, e.Lists)
	perCheck := make([][]report.Finding, len(e.Checks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, checkWorkerCount(len(e.Checks)))

	for i, check := range e.Checks {
		wg.Add(1)
		go func(idx int, c checks.Check) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			results, err := runCheck(c, scanCtx)
			elapsed := time.Since(start)
			if err != nil {
				e.Logger.Warn("rule failed", "rule", c.ID, "source", source, "error", err)
				results = []report.Finding{
					msges.NewFinding("RULE_INTERNAL_ERROR", report.SeverityLow, "rules."+c.ID, c.ID, err),
				}
			}
			perCheck[idx] = results

			mu.Lock()
			stats[c.ID] = CheckStat{Findings: len(results), Duration: elapsed, Err: err}
			mu.Unlock()
		}(i, check)
	}
	wg.Wait()

	var findings []report.Finding
	for _, fs := range perCheck {
		findings = append(findings, fs...)
	}
	report.SortFindings(findings)
	return findings, stats
}

func runCheck(c checks.Check, scanCtx *ctxpkg.Context) (results []report.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if c.Run == nil {
		return nil, fmt.Errorf("rule has no implementation")
	}
	return c.Run(scanCtx)
}
