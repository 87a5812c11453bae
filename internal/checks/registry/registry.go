package registry

import (
	"github.com/MOYARU/a2ascan/internal/checks"
	"github.com/MOYARU/a2ascan/internal/checks/authsession"
	"github.com/MOYARU/a2ascan/internal/checks/capability"
	"github.com/MOYARU/a2ascan/internal/checks/chain"
	"github.com/MOYARU/a2ascan/internal/checks/contact"
	"github.com/MOYARU/a2ascan/internal/checks/exfil"
	"github.com/MOYARU/a2ascan/internal/checks/identity"
	"github.com/MOYARU/a2ascan/internal/checks/injection"
	"github.com/MOYARU/a2ascan/internal/checks/network"
	"github.com/MOYARU/a2ascan/internal/checks/ssrf"
)

// DefaultChecks returns every built-in rule in a fixed order.
func DefaultChecks() []checks.Check {
	return []checks.Check{
		injection.PromptInjectionCheck(),
		network.InsecureTransportCheck(),
		authsession.NoAuthenticationCheck(),
		capability.CommandExecutionCheck(),
		capability.UnrestrictedFileAccessCheck(),
		ssrf.SSRFProneFetchCheck(),
		exfil.DataExfiltrationCheck(),
		identity.SkillMissingIDCheck(),
		identity.AgentImpersonationCheck(),
		contact.SuspiciousContactCheck(),
		chain.UnauthenticatedDangerousCapabilityCheck(),
	}
}

// PipelineChecks drops structural rules whose findings the validator already emits.
func PipelineChecks() []checks.Check {
	all := DefaultChecks()
	out := make([]checks.Check, 0, len(all))
	for _, c := range all {
		if !c.Structural {
			out = append(out, c)
		}
	}
	return out
}

// Lookup finds a check by ID.
func Lookup(id string) (checks.Check, bool) {
	for _, c := range DefaultChecks() {
		if c.ID == id {
			return c, true
		}
	}
	return checks.Check{}, false
}
