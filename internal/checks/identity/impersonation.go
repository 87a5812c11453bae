package identity

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/signal"
	"github.com/MOYARU/a2ascan/internal/engine"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

type brand struct {
	pattern *regexp.Regexp
	owners  []string
}

// brands are vendor and model names an agent should only carry when it is
// served from the vendor's own domain.
var brands = []brand{
	{regexp.MustCompile(`\b(?:openai|(?:chat)?gpt(?:-?\d[\w.]*)?|dall-?e|sora)\b`), []string{"openai.com", "chatgpt.com"}},
	{regexp.MustCompile(`\b(?:anthropic|claude)\b`), []string{"anthropic.com", "claude.ai"}},
	{regexp.MustCompile(`\b(?:google|gemini|deepmind|bard)\b`), []string{"google.com", "deepmind.com", "googleapis.com"}},
	{regexp.MustCompile(`\b(?:microsoft|copilot|azure)\b`), []string{"microsoft.com", "azure.com", "github.com"}},
	{regexp.MustCompile(`\b(?:meta|llama)\b`), []string{"meta.com", "facebook.com"}},
	{regexp.MustCompile(`\b(?:mistral|mixtral)\b`), []string{"mistral.ai"}},
	{regexp.MustCompile(`\b(?:amazon|aws|bedrock)\b`), []string{"amazon.com", "amazonaws.com", "aws.amazon.com"}},
}

// claimPatterns assert an endorsement nobody can grant themselves in a card.
var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:official|officially)\b`),
	regexp.MustCompile(`\b(?:verified|certified|authorized|authorised|endorsed|authentic|genuine)\b`),
}

// integration wording before a brand describes a dependency, not an identity.
var integration = regexp.MustCompile(`\b(?:for|with|via|using|powered by|built on|backed by|on)\s+$`)

func AgentImpersonationCheck() checks.Check {
	return checks.Check{
		ID:          "AGENT_IMPERSONATION",
		Category:    checks.CategoryIdentity,
		Title:       "Agent Impersonation",
		Description: "Agent name claims a vendor, model or endorsement it cannot prove.",
		Severity:    report.SeverityHigh,
		Run:         CheckAgentImpersonation,
	}
}

// CheckAgentImpersonation flags trust claims and borrowed brand names in the
// agent name. A brand is allowed when the card is served from that brand's domain.
func CheckAgentImpersonation(ctx *ctxpkg.Context) ([]report.Finding, error) {
	m := ctx.Manifest
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return nil, nil
	}
	name := signal.Normalize(m.Name)
	homes := agentDomains(ctx)

	var evidence []string
	seen := map[string]bool{}
	add := func(term string) {
		if !seen[term] {
			seen[term] = true
			evidence = append(evidence, term)
		}
	}

	for _, term := range signal.AllMatches(name, claimPatterns) {
		add(term)
	}
	for _, b := range brands {
		if ownedBy(homes, b.owners) {
			continue
		}
		for _, loc := range b.pattern.FindAllStringIndex(name, -1) {
			if integration.MatchString(name[:loc[0]]) {
				continue
			}
			add(name[loc[0]:loc[1]])
		}
	}
	for _, term := range ctx.Lists.ImpersonationTerms {
		re, err := signal.PhrasePattern(term)
		if err != nil || re == nil {
			continue
		}
		if hit := re.FindString(name); hit != "" {
			add(hit)
		}
	}

	if len(evidence) == 0 {
		return nil, nil
	}
	return []report.Finding{
		msges.NewFinding("AGENT_IMPERSONATION", report.SeverityHigh, "name", signal.Truncate(m.Name, 80), strings.Join(evidence, ", ")),
	}, nil
}

func agentDomains(ctx *ctxpkg.Context) []string {
	var out []string
	for _, raw := range []string{ctx.Manifest.URL, ctx.Source} {
		if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.Hostname() != "" {
			out = append(out, engine.RootDomain(u.Hostname()))
		}
	}
	return out
}

func ownedBy(homes, owners []string) bool {
	for _, h := range homes {
		for _, o := range owners {
			if signal.HostWithin(h, o) {
				return true
			}
		}
	}
	return false
}
