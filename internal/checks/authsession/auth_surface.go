package authsession

import (
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

func NoAuthenticationCheck() checks.Check {
	return checks.Check{
		ID:          "NO_AUTHENTICATION",
		Category:    checks.CategoryAuthSession,
		Title:       "No Authentication",
		Description: "Agent card declares no authentication or type \"none\".",
		Severity:    report.SeverityMedium,
		Run:         CheckAuthentication,
	}
}

func CheckAuthentication(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	if reason := missingAuthReason(ctx.Manifest.Authentication != nil, ctx.Manifest.AuthType(), authSchemes(ctx)); reason != "" {
		return []report.Finding{
			msges.NewFinding("NO_AUTHENTICATION", report.SeverityMedium, "authentication.type", reason),
		}, nil
	}
	return nil, nil
}

// RequiresNoAuth reports whether callers can reach skills without credentials.
func RequiresNoAuth(ctx *ctxpkg.Context) bool {
	if ctx.Manifest == nil {
		return false
	}
	return missingAuthReason(ctx.Manifest.Authentication != nil, ctx.Manifest.AuthType(), authSchemes(ctx)) != ""
}

func authSchemes(ctx *ctxpkg.Context) []string {
	if ctx.Manifest.Authentication == nil {
		return nil
	}
	return ctx.Manifest.Authentication.Schemes
}

// missingAuthReason treats a declared scheme list as authentication even when
// type is empty; an explicit "none" always wins.
func missingAuthReason(present bool, authType string, schemes []string) string {
	switch {
	case !present:
		return "The agent card declares no authentication; any caller can invoke its skills."
	case strings.EqualFold(authType, "none"):
		return "Authentication type is \"none\"; any caller can invoke its skills."
	case authType == "" && len(schemes) == 0:
		return "The authentication block declares no type or schemes; any caller can invoke its skills."
	default:
		return ""
	}
}
