package network

import (
	"net/url"
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

// secureVariant maps plaintext schemes to their encrypted counterpart.
var secureVariant = map[string]string{
	"http": "https",
	"ws":   "wss",
	"ftp":  "ftps",
}

func InsecureTransportCheck() checks.Check {
	return checks.Check{
		ID:          "INSECURE_TRANSPORT",
		Category:    checks.CategoryNetwork,
		Title:       "Insecure Transport",
		Description: "Declared service URL uses a plaintext scheme.",
		Severity:    report.SeverityMedium,
		Run:         CheckTransportSecurity,
	}
}

// CheckTransportSecurity flags a declared url whose scheme has an encrypted variant.
// Loopback URLs are flagged too: a published card is read by remote callers.
func CheckTransportSecurity(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(ctx.Manifest.URL)
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, nil
	}
	scheme := strings.ToLower(u.Scheme)
	secure, ok := secureVariant[scheme]
	if !ok {
		return nil, nil
	}
	return []report.Finding{
		msges.NewFinding("INSECURE_TRANSPORT", report.SeverityMedium, "url", raw, strings.ToUpper(scheme), strings.ToUpper(secure)),
	}, nil
}
