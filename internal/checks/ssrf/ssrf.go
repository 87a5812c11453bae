package ssrf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/signal"
	"github.com/MOYARU/a2ascan/internal/manifest"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

var urlParamName = regexp.MustCompile(`\b(?:url|uri|urls|link|endpoint|address|host|hostname|target|href|src|location|callback|webhook)\b`)

// internalPhrases describe internal ranges without spelling out an address.
var internalPhrases = []string{
	"cloud metadata",
	"metadata endpoint",
	"metadata service",
	"instance metadata",
	"link-local",
	"loopback",
	"localhost",
	"internal network",
	"internal services",
	"private network",
	"intranet",
}

func SSRFProneFetchCheck() checks.Check {
	return checks.Check{
		ID:          "SSRF_PRONE_FETCH",
		Category:    checks.CategorySSRF,
		Title:       "SSRF-Prone Fetch",
		Description: "Skill accepts a URL and references internal or metadata address ranges.",
		Severity:    report.SeverityHigh,
		Run:         CheckSSRF,
	}
}

func CheckSSRF(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	var findings []report.Finding
	for _, s := range ctx.Manifest.Skills {
		param, ok := urlParameter(s)
		if !ok {
			continue
		}
		evidence, ok := internalEvidence(s)
		if !ok {
			continue
		}
		loc := fmt.Sprintf("%s.parameters.%s", s.Location(), param)
		findings = append(findings, msges.NewFinding("SSRF_PRONE_FETCH", report.SeverityHigh, loc, s.Label(), param, evidence))
	}
	return findings, nil
}

// urlParameter returns the first parameter that takes a URL or network address,
// judged by name, declared format, or description.
func urlParameter(s manifest.Skill) (string, bool) {
	for _, name := range s.ParamNames() {
		p := s.Parameters[name]
		if urlParamName.MatchString(signal.Normalize(name)) {
			return name, true
		}
		if f, _ := p.Extra["format"].(string); f == "uri" || f == "url" || f == "uri-reference" {
			return name, true
		}
		d := signal.Normalize(p.Description)
		if strings.HasPrefix(d, "url") || strings.HasPrefix(d, "a url") || strings.HasPrefix(d, "the url") {
			return name, true
		}
	}
	return "", false
}

func internalEvidence(s manifest.Skill) (string, bool) {
	var parts []string
	parts = append(parts, s.Name, s.Description)
	for _, name := range s.ParamNames() {
		p := s.Parameters[name]
		parts = append(parts, p.Description)
		for _, key := range []string{"default", "example", "examples", "enum"} {
			if v, ok := p.Extra[key]; ok {
				parts = append(parts, fmt.Sprint(v))
			}
		}
	}
	text := strings.Join(parts, "\n")

	refs := signal.InternalReferences(text)
	if phrase, ok := signal.ContainsAny(signal.Normalize(text), internalPhrases...); ok {
		refs = append(refs, phrase)
	}
	if len(refs) == 0 {
		return "", false
	}
	if len(refs) > 3 {
		refs = refs[:3]
	}
	return strings.Join(refs, ", "), true
}
