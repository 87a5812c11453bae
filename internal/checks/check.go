package checks

import (
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/report"
)

type Category string

const (
	CategoryInjection    Category = "CAT_PROMPT_INJECTION"
	CategoryNetwork      Category = "CAT_NETWORK"
	CategoryAuthSession  Category = "CAT_AUTH_SESSION"
	CategoryCapability   Category = "CAT_DANGEROUS_CAPABILITY"
	CategorySSRF         Category = "CAT_SSRF"
	CategoryExfiltration Category = "CAT_EXFILTRATION"
	CategoryIdentity     Category = "CAT_IDENTITY"
	CategoryContact      Category = "CAT_CONTACT"
	CategoryChain        Category = "CAT_CHAIN"
)

// Check is one stateless detector. Run must not mutate the manifest it is given;
// the same manifest is shared by every check running for a target.
type Check struct {
	ID          string
	Category    Category
	Title       string
	Description string
	Severity    report.Severity
	// Structural checks duplicate validator output and are skipped by the
	// scan pipeline; they stay registered so rule packs can be tested alone.
	Structural bool
	Run        func(*ctxpkg.Context) ([]report.Finding, error)
}
