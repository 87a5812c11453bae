package chain

import (
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	"github.com/MOYARU/a2ascan/internal/checks/authsession"
	"github.com/MOYARU/a2ascan/internal/checks/capability"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

func UnauthenticatedDangerousCapabilityCheck() checks.Check {
	return checks.Check{
		ID:          "UNAUTHENTICATED_DANGEROUS_CAPABILITY",
		Category:    checks.CategoryChain,
		Title:       "Chained Risk: Unauthenticated Dangerous Capability",
		Description: "No authentication combined with command execution or unscoped file access.",
		Severity:    report.SeverityHigh,
		Run:         CheckUnauthenticatedDangerous,
	}
}

// CheckUnauthenticatedDangerous recomputes its signals from the manifest rather
// than reading other rules' output, so it stays independent of rule order.
func CheckUnauthenticatedDangerous(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil || !authsession.RequiresNoAuth(ctx) {
		return nil, nil
	}

	var exposed []string
	for _, s := range ctx.Manifest.Skills {
		var kinds []string
		if _, ok := capability.CommandEvidence(s); ok {
			kinds = append(kinds, "command execution")
		}
		if _, ok := capability.FileAccessEvidence(s); ok {
			kinds = append(kinds, "file access")
		}
		if len(kinds) > 0 {
			exposed = append(exposed, s.Label()+" ("+strings.Join(kinds, ", ")+")")
		}
	}
	if len(exposed) == 0 {
		return nil, nil
	}
	return []report.Finding{
		msges.NewFinding("UNAUTHENTICATED_DANGEROUS_CAPABILITY", report.SeverityHigh, "authentication", strings.Join(exposed, "; ")),
	}, nil
}
