package engine

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Transports here wrap the shared pool from NewHTTPClient. A batch-level chain
// (budget, delay) is built once; each target adds its own metrics and, when
// requested, a domain boundary on top.

var ErrRequestBudgetExceeded = errors.New("request budget exceeded")

func baseOf(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// RequestBudgetTransport caps the number of requests a whole batch may send.
// Redirect hops and fallback fetches count against the same budget.
type RequestBudgetTransport struct {
	Base http.RoundTripper
	Max  int64
	used int64
}

func (t *RequestBudgetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if n := atomic.AddInt64(&t.used, 1); t.Max > 0 && n > t.Max {
		return nil, fmt.Errorf("%w: limit %d", ErrRequestBudgetExceeded, t.Max)
	}
	return baseOf(t.Base).RoundTrip(req)
}

// Used reports how many requests were attempted, including refused ones.
func (t *RequestBudgetTransport) Used() int64 {
	return atomic.LoadInt64(&t.used)
}

// DelayedTransport waits before every request so a batch stays polite to
// shared hosts. The wait ends early when the request context is done.
type DelayedTransport struct {
	Transport http.RoundTripper
	Delay     time.Duration
}

func (t *DelayedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Delay > 0 {
		timer := time.NewTimer(t.Delay)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return baseOf(t.Transport).RoundTrip(req)
}

// FetchStats is what one target's discovery cost on the wire.
type FetchStats struct {
	Requests int64         `json:"requests"`
	Duration time.Duration `json:"duration"`
}

// MetricsTransport counts requests and round-trip time for a single target.
type MetricsTransport struct {
	Base     http.RoundTripper
	requests int64
	elapsed  int64
}

func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := baseOf(t.Base).RoundTrip(req)
	atomic.AddInt64(&t.requests, 1)
	atomic.AddInt64(&t.elapsed, int64(time.Since(start)))
	return resp, err
}

func (t *MetricsTransport) Snapshot() FetchStats {
	return FetchStats{
		Requests: atomic.LoadInt64(&t.requests),
		Duration: time.Duration(atomic.LoadInt64(&t.elapsed)),
	}
}

// DomainBoundaryTransport refuses any hop, redirects included, whose host is
// outside AllowedRootDomain. An empty AllowedRootDomain allows everything.
type DomainBoundaryTransport struct {
	Base              http.RoundTripper
	AllowedRootDomain string
}

func (t *DomainBoundaryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := strings.ToLower(req.URL.Hostname())
	if host == "" {
		return nil, fmt.Errorf("refusing request without a host")
	}
	if allowed := strings.ToLower(strings.TrimSpace(t.AllowedRootDomain)); allowed != "" {
		if RootDomain(host) != allowed && host != allowed && !strings.HasSuffix(host, "."+allowed) {
			return nil, fmt.Errorf("redirect left %s for %s", allowed, host)
		}
	}
	return baseOf(t.Base).RoundTrip(req)
}

// RootDomain returns the eTLD+1 of host, or host itself for IPs and
// single-label names.
func RootDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}
