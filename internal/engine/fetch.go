package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	appver "github.com/MOYARU/a2ascan/internal/version"
)

const (
	WellKnownPath = ".well-known/agent-card.json"
	FallbackPath  = "agent-card.json"
)

type FetchErrorKind string

const (
	FetchTransportError FetchErrorKind = "TransportError"
	FetchTimeout        FetchErrorKind = "Timeout"
	FetchHTTPError      FetchErrorKind = "HTTPError"
	FetchCancelled      FetchErrorKind = "Cancelled"
	FetchTooLarge       FetchErrorKind = "ManifestTooLarge"
)

// FetchError is a scan-infrastructure failure for one target. It is recorded on
// the target's result and never treated as a security finding.
type FetchError struct {
	Kind       FetchErrorKind `json:"kind"`
	URL        string         `json:"url,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	Err        error          `json:"-"`
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPError:
		return fmt.Sprintf("HTTPError(%d) fetching %s", e.StatusCode, e.URL)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s fetching %s: %v", e.Kind, e.URL, e.Err)
		}
		return fmt.Sprintf("%s fetching %s", e.Kind, e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// RawManifest is the undecoded discovery document for one source.
type RawManifest struct {
	Source      string
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
	Header      http.Header
	Stats       FetchStats
	Err         *FetchError
}

// Fetcher retrieves the manifest for a base URL. Implementations report every
// failure through RawManifest.Err instead of returning an error.
type Fetcher interface {
	Fetch(ctx context.Context, source string, timeout time.Duration) RawManifest
}

// HTTPFetcher implements the discovery protocol: GET {source}/.well-known/agent-card.json,
// then a single fallback GET {source}/agent-card.json when the first answers non-2xx.
type HTTPFetcher struct {
	client       *http.Client
	maxRedirects int
	sameSite     bool
	logger       *slog.Logger
}

type FetcherOptions struct {
	Client       *http.Client
	MaxRedirects int
	// SameSite confines every hop, redirects included, to the source's registrable domain.
	SameSite bool
	Logger   *slog.Logger
}

func NewFetcher(opts FetcherOptions) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = NewHTTPClient(opts.MaxRedirects, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client:       client,
		maxRedirects: opts.MaxRedirects,
		sameSite:     opts.SameSite,
		logger:       logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, source string, timeout time.Duration) RawManifest {
	raw := RawManifest{Source: source}

	base, err := NormalizeSource(source)
	if err != nil {
		raw.Err = &FetchError{Kind: FetchTransportError, URL: source, Err: err}
		return raw
	}

	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	mt := &MetricsTransport{Base: f.client.Transport}
	client := *f.client
	client.Timeout = 0 // the fetch context owns the deadline
	client.CheckRedirect = redirectPolicy(f.maxRedirects)
	client.Transport = mt
	if f.sameSite {
		client.Transport = &DomainBoundaryTransport{Base: mt, AllowedRootDomain: RootDomain(base.Hostname())}
	}

	primary := base.JoinPath(WellKnownPath).String()
	raw = f.get(fetchCtx, ctx, &client, primary, raw)
	if raw.Err != nil && raw.Err.Kind == FetchHTTPError {
		fallback := base.JoinPath(FallbackPath).String()
		f.logger.Debug("well-known manifest unavailable, trying fallback",
			"source", source, "status", raw.Err.StatusCode, "fallback", fallback)
		raw = f.get(fetchCtx, ctx, &client, fallback, RawManifest{Source: source})
	}
	raw.Stats = mt.Snapshot()
	return raw
}

func (f *HTTPFetcher) get(fetchCtx, parent context.Context, client *http.Client, target string, raw RawManifest) RawManifest {
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		raw.Err = &FetchError{Kind: FetchTransportError, URL: target, Err: err}
		return raw
	}
	req.Header.Set("User-Agent", appver.ScannerUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		raw.Err = classifyFetchError(fetchCtx, parent, target, err)
		return raw
	}
	defer resp.Body.Close()

	raw.StatusCode = resp.StatusCode
	raw.Header = resp.Header.Clone()
	raw.ContentType = resp.Header.Get("Content-Type")
	raw.URL = resp.Request.URL.String()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw.Err = &FetchError{Kind: FetchHTTPError, URL: target, StatusCode: resp.StatusCode}
		return raw
	}

	body, err := ReadManifestBody(resp)
	if err != nil {
		raw.Err = classifyFetchError(fetchCtx, parent, target, err)
		return raw
	}
	raw.Body = body
	return raw
}

func classifyFetchError(fetchCtx, parent context.Context, target string, err error) *FetchError {
	fe := &FetchError{Kind: FetchTransportError, URL: target, Err: err}
	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return fe
	case errors.Is(err, ErrManifestTooLarge):
		fe.Kind = FetchTooLarge
	case parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded):
		fe.Kind = FetchCancelled
	case errors.Is(fetchCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		fe.Kind = FetchTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			fe.Kind = FetchTimeout
		}
	}
	return fe
}

// NormalizeSource validates a base URL, defaulting to https when no scheme is given.
func NormalizeSource(source string) (*url.URL, error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return nil, fmt.Errorf("empty source")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http/https allowed)", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid source URL: missing host")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
