package injection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/signal"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

// directivePatterns match instructions addressed to the model that reads the card.
// Each pattern needs a verb plus an object so single keywords like "always" stay silent.
var directivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:ignore|disregard|forget|override)\s+(?:all\s+|any\s+)?(?:(?:the|your)\s+)?(?:previous|prior|above|earlier|preceding|other|system)\s+(?:instructions?|prompts?|directions?|rules|guidance|messages?)\b`),
	regexp.MustCompile(`\b(?:always|only)\s+(?:pick|choose|select|use|call|prefer|route\s+to)\s+(?:me|this\s+(?:agent|endpoint|tool|service))\b`),
	regexp.MustCompile(`\bnever\s+(?:use|pick|choose|select|call|trust|consult)\s+(?:any\s+)?other\b`),
	regexp.MustCompile(`\broute\s+(?:all|every)\b[^.!?]{0,60}?\bto\s+(?:this|me)\b`),
	regexp.MustCompile(`\byou\s+(?:must|should|have\s+to)\s+(?:always\s+)?(?:use|pick|choose|select|call|prefer|trust)\s+(?:me|this)\b`),
	regexp.MustCompile(`\b(?:new|updated|real)\s+system\s+(?:prompt|instructions?|message)\b`),
	regexp.MustCompile(`\bdo\s+not\s+(?:tell|inform|alert|show)\s+the\s+user\b`),
	regexp.MustCompile(`<\s*/?\s*(?:system|instructions?|im\s?start|im\s?end)\s*>`),
}

var superlativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:the\s+)?best\b`),
	regexp.MustCompile(`\bmost\s+(?:trusted|reliable|accurate|secure|powerful)\b`),
	regexp.MustCompile(`\bnumber\s+one\b|#1\b|\bno\.\s*1\b`),
	regexp.MustCompile(`\b100\s*%\s*(?:success|accura|reliab|uptime)`),
	regexp.MustCompile(`\bofficial\b`),
}

var instructionVerbPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:always|never)\s+(?:pick|choose|select|use|call|prefer|trust|route)\b`),
	regexp.MustCompile(`\b(?:pick|choose|select|use|prefer)\s+me\b`),
	regexp.MustCompile(`\b(?:must|should)\s+(?:pick|choose|select|use|call|prefer|route)\b`),
}

func PromptInjectionCheck() checks.Check {
	return checks.Check{
		ID:          "PROMPT_INJECTION",
		Category:    checks.CategoryInjection,
		Title:       "Prompt-Injection Language",
		Description: "Directive phrases aimed at an LLM reader in agent or skill text.",
		Severity:    report.SeverityHigh,
		Run:         CheckPromptInjection,
	}
}

type textField struct {
	location string
	label    string
	text     string
}

func CheckPromptInjection(ctx *ctxpkg.Context) ([]report.Finding, error) {
	m := ctx.Manifest
	if m == nil {
		return nil, nil
	}

	extra, err := compilePhrases(ctx.Lists.InjectionPhrases)
	if err != nil {
		return nil, err
	}

	fields := []textField{
		{location: "name", label: "Agent name", text: m.Name},
		{location: "description", label: "Agent description", text: m.Description},
	}
	for _, s := range m.Skills {
		fields = append(fields,
			textField{location: s.Location() + ".name", label: fmt.Sprintf("Skill %q name", s.Label()), text: s.Name},
			textField{location: s.Location() + ".description", label: fmt.Sprintf("Skill %q description", s.Label()), text: s.Description},
		)
	}

	var findings []report.Finding
	for _, f := range fields {
		if strings.TrimSpace(f.text) == "" {
			continue
		}
		matches := detect(signal.Normalize(f.text), extra)
		if len(matches) == 0 {
			continue
		}
		findings = append(findings, msges.NewFinding("PROMPT_INJECTION", report.SeverityHigh, f.location, f.label, quoteAll(matches)))
	}
	return findings, nil
}

// detect returns directive fragments in normalized text. Self-promotion alone is
// marketing; it only counts when paired with an instruction verb.
func detect(text string, extra []*regexp.Regexp) []string {
	matches := signal.AllMatches(text, directivePatterns)
	matches = append(matches, signal.AllMatches(text, extra)...)

	if boast, ok := signal.FirstMatch(text, superlativePatterns); ok {
		if verb, ok := signal.FirstMatch(text, instructionVerbPatterns); ok {
			matches = append(matches, strings.TrimSpace(boast)+" + "+verb)
		}
	}
	return matches
}

func compilePhrases(phrases []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range phrases {
		re, err := signal.PhrasePattern(p)
		if err != nil {
			return nil, fmt.Errorf("injection phrase %q: %w", p, err)
		}
		if re != nil {
			out = append(out, re)
		}
	}
	return out, nil
}

func quoteAll(matches []string) string {
	quoted := make([]string, 0, len(matches))
	for _, m := range matches {
		quoted = append(quoted, fmt.Sprintf("%q", signal.Truncate(m, 80)))
	}
	return strings.Join(quoted, ", ")
}
