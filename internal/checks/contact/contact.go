package contact

import (
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/signal"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

// denyTokens are substrings that rarely appear in a legitimate operator domain.
var denyTokens = []string{
	"suspicious", "malicious", "phish", "scam", "fraud", "hacker",
	"tempmail", "temp-mail", "mailinator", "guerrillamail", "10minutemail",
	"yopmail", "sharklasers", "throwaway", "disposable",
}

func SuspiciousContactCheck() checks.Check {
	return checks.Check{
		ID:          "SUSPICIOUS_CONTACT_DOMAIN",
		Category:    checks.CategoryContact,
		Title:       "Suspicious Contact Domain",
		Description: "Contact email domain matches a denylist pattern.",
		Severity:    report.SeverityLow,
		Run:         CheckContactDomain,
	}
}

func CheckContactDomain(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	email := ctx.Manifest.Email()
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return nil, nil
	}
	domain := strings.ToLower(strings.TrimSuffix(email[at+1:], "."))

	reason := ""
	if token, ok := signal.ContainsAny(domain, append(append([]string{}, denyTokens...), lower(ctx.Lists.ContactDenylist)...)...); ok {
		reason = "domain contains \"" + token + "\""
	} else if r := signal.ClassifyTLD(signal.TLD(domain), ctx.Lists.SuspiciousTLDs); r != "" {
		reason = r
	}
	if reason == "" {
		return nil, nil
	}
	return []report.Finding{
		msges.NewFinding("SUSPICIOUS_CONTACT_DOMAIN", report.SeverityLow, "contact.email", email, reason),
	}, nil
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
