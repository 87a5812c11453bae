package identity

import (
	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

func SkillMissingIDCheck() checks.Check {
	return checks.Check{
		ID:          "SKILL_MISSING_ID",
		Category:    checks.CategoryIdentity,
		Title:       "Skill Missing Identifier",
		Description: "Rule-pack copy of the validator's per-skill id check.",
		Severity:    report.SeverityMedium,
		Structural:  true,
		Run:         CheckSkillIDs,
	}
}

// CheckSkillIDs emits one finding per skill without an id, never collapsed.
func CheckSkillIDs(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	var findings []report.Finding
	for _, s := range ctx.Manifest.Skills {
		if s.ID == "" {
			findings = append(findings, msges.NewFinding("SKILL_MISSING_ID", report.SeverityMedium, s.Location(), s.Label(), s.Index))
		}
	}
	return findings, nil
}
