package exfil

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/signal"
	"github.com/MOYARU/a2ascan/internal/engine"
	"github.com/MOYARU/a2ascan/internal/manifest"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

var sinkKey = regexp.MustCompile(`(?:webhook|callback|sink|exfil|forward|notify|notification|postback|beacon|collector|upload|report|destination)`)

// bareHost matches a scheme-less "host[:port][/path]" value.
var bareHost = regexp.MustCompile(`(?i)^([a-z0-9-]+(?:\.[a-z0-9-]+)+)(:\d{1,5})?(/.*)?$`)

type sink struct {
	location string
	value    string
}

func DataExfiltrationCheck() checks.Check {
	return checks.Check{
		ID:          "DATA_EXFILTRATION",
		Category:    checks.CategoryExfiltration,
		Title:       "Data Exfiltration Target",
		Description: "Skill declares an external sink outside the allow-list or on a suspicious TLD.",
		Severity:    report.SeverityHigh,
		Run:         CheckDataExfiltration,
	}
}

func CheckDataExfiltration(ctx *ctxpkg.Context) ([]report.Finding, error) {
	m := ctx.Manifest
	if m == nil {
		return nil, nil
	}
	allowed := allowList(ctx)

	var findings []report.Finding
	for _, s := range m.Skills {
		for _, sk := range skillSinks(s, ctx.Lists.SuspiciousTLDs) {
			reason, ok := classifySink(sk.value, allowed, ctx.Lists.SuspiciousTLDs)
			if !ok {
				continue
			}
			findings = append(findings, msges.NewFinding("DATA_EXFILTRATION", report.SeverityHigh, sk.location, s.Label(), sk.value, reason))
		}
	}
	return findings, nil
}

// allowList is the agent's own registrable domain plus operator-approved sinks.
func allowList(ctx *ctxpkg.Context) []string {
	var out []string
	for _, raw := range []string{ctx.Manifest.URL, ctx.Source} {
		if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.Hostname() != "" {
			out = append(out, engine.RootDomain(u.Hostname()))
		}
	}
	return append(out, ctx.Lists.AllowedSinkDomains...)
}

// skillSinks collects URL-valued sink declarations from undeclared skill keys
// and from sink-named parameters carrying a default or const.
func skillSinks(s manifest.Skill, extraTLDs []string) []sink {
	var out []sink
	keys := make([]string, 0, len(s.ExtraFields))
	for k := range s.ExtraFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !sinkKey.MatchString(strings.ToLower(k)) {
			continue
		}
		for _, v := range urlValues(s.ExtraFields[k], extraTLDs) {
			out = append(out, sink{location: s.Location() + "." + k, value: v})
		}
	}

	for _, name := range s.ParamNames() {
		if !sinkKey.MatchString(strings.ToLower(name)) {
			continue
		}
		p := s.Parameters[name]
		for _, key := range []string{"default", "const"} {
			for _, v := range urlValues(p.Extra[key], extraTLDs) {
				out = append(out, sink{location: fmt.Sprintf("%s.parameters.%s", s.Location(), name), value: v})
			}
		}
	}
	return out
}

func urlValues(v any, extraTLDs []string) []string {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if _, ok := sinkURL(s, extraTLDs); ok {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range x {
			out = append(out, urlValues(item, extraTLDs)...)
		}
		return out
	case map[string]any:
		for _, key := range []string{"url", "uri", "endpoint", "href"} {
			if s, ok := x[key].(string); ok {
				return urlValues(s, extraTLDs)
			}
		}
	}
	return nil
}

// sinkURL parses a sink value, accepting absolute URLs, scheme-relative
// "//host/path" and bare "host/path" forms. A bare value only counts when its
// TLD is a real or suspicious one and it carries a path, a port or a subdomain,
// so file names such as "summary.pdf" stay out.
func sinkURL(raw string, extraTLDs []string) (*url.URL, bool) {
	switch {
	case strings.Contains(raw, "://"), strings.HasPrefix(raw, "//"):
	default:
		m := bareHost.FindStringSubmatch(raw)
		if m == nil {
			return nil, false
		}
		host := strings.ToLower(m[1])
		if m[2] == "" && m[3] == "" && strings.Count(host, ".") < 2 {
			return nil, false
		}
		tld := signal.TLD(host)
		_, icann := publicsuffix.PublicSuffix(host)
		if !icann && signal.ClassifyTLD(tld, extraTLDs) == "" {
			return nil, false
		}
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

func classifySink(raw string, allowed, extraTLDs []string) (string, bool) {
	u, ok := sinkURL(raw, extraTLDs)
	if !ok {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	var reasons []string
	if r := signal.ClassifyTLD(signal.TLD(host), extraTLDs); r != "" {
		reasons = append(reasons, r)
	}
	inAllowList := false
	for _, d := range allowed {
		if signal.HostWithin(host, d) {
			inAllowList = true
			break
		}
	}
	if !inAllowList {
		reasons = append(reasons, "host "+host+" is outside the allow-list")
	}
	if len(reasons) == 0 {
		return "", false
	}
	if u.Scheme == "http" {
		reasons = append(reasons, "sent over plaintext HTTP")
	}
	return strings.Join(reasons, "; "), true
}
