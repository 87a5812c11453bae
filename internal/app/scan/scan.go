package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MOYARU/a2ascan/internal/checks/scanner"
	"github.com/MOYARU/a2ascan/internal/engine"
	"github.com/MOYARU/a2ascan/internal/manifest"
	"github.com/MOYARU/a2ascan/internal/report"
	"github.com/MOYARU/a2ascan/internal/result"
)

var ErrNoTargets = errors.New("no targets to scan")

// BatchError reports a batch stopped by cancellation. Results for targets that
// finished before the stop are still returned alongside it.
type BatchError struct {
	Completed int
	Skipped   int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch interrupted after %d target(s), %d skipped: %v", e.Completed, e.Skipped, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Scanner drives fetch, validation and rule evaluation for a batch of sources.
type Scanner struct {
	Fetcher     engine.Fetcher
	Engine      *scanner.Engine
	Concurrency int
	Timeout     time.Duration
	Logger      *slog.Logger
	// Progress, when set, is called after each target completes.
	Progress func(done, total int, source string)
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ScanOne runs the full pipeline for a single source. It never fails: fetch
// problems are recorded on the result and decoding problems become findings.
func (s *Scanner) ScanOne(ctx context.Context, source string) result.ScanResult {
	start := time.Now()
	log := s.logger().With("source", source)
	log.Debug("scanning target")

	raw := s.Fetcher.Fetch(ctx, source, s.Timeout)
	if raw.Err != nil {
		log.Debug("fetch failed", "kind", raw.Err.Kind, "error", raw.Err)
		return result.New(raw, nil, nil, time.Since(start))
	}

	// Past this point the pipeline is CPU-only and finishes even if the
	// batch is cancelled, so a fetched manifest never gets a partial verdict.
	m, findings := manifest.Parse(raw)
	if m != nil {
		findings = append(findings, s.Engine.Evaluate(source, m)...)
	}
	for i := range findings {
		findings[i] = report.SanitizeFinding(findings[i])
	}
	report.SortFindings(findings)

	r := result.New(raw, m, findings, time.Since(start))
	log.Debug("target scanned", "verdict", r.Verdict, "findings", len(findings), "requests", raw.Stats.Requests)
	return r
}

// Scan processes sources with a bounded worker pool. Results keep input order
// regardless of completion order. On cancellation, targets never handed to a
// worker get a Cancelled fetch error and a *BatchError is returned.
func (s *Scanner) Scan(ctx context.Context, sources []string) ([]result.ScanResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoTargets
	}

	workerCount := s.Concurrency
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(sources) {
		workerCount = len(sources)
	}

	results := make([]result.ScanResult, len(sources))
	scheduled := make([]bool, len(sources))
	var completed int32

	type job struct {
		idx    int
		source string
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				results[jb.idx] = s.ScanOne(ctx, jb.source)
				done := atomic.AddInt32(&completed, 1)
				if s.Progress != nil {
					s.Progress(int(done), len(sources), jb.source)
				}
			}
		}()
	}

feed:
	for i, src := range sources {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{idx: i, source: src}:
			scheduled[i] = true
		}
	}
	close(jobs)
	wg.Wait()

	skipped := 0
	for i, ok := range scheduled {
		if ok {
			continue
		}
		skipped++
		results[i] = result.New(engine.RawManifest{
			Source: sources[i],
			Err:    &engine.FetchError{Kind: engine.FetchCancelled, URL: sources[i], Err: ctx.Err()},
		}, nil, nil, 0)
	}

	if ctx.Err() != nil {
		s.logger().Warn("scan interrupted", "completed", int(completed), "skipped", skipped)
		return results, &BatchError{Completed: int(completed), Skipped: skipped, Err: ctx.Err()}
	}
	return results, nil
}
