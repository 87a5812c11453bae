package capability

import (
	"regexp"
	"strings"

	"github.com/MOYARU/a2ascan/internal/checks"
	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/checks/signal"
	"github.com/MOYARU/a2ascan/internal/manifest"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

var commandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:execute|exec|run|invoke|spawn)s?\s+(?:(?:arbitrary|any|raw|system|shell|os|remote)\s+)*(?:commands?|cmds?|processes|process|scripts?|binaries|programs?)\b`),
	regexp.MustCompile(`\bshell\s+(?:commands?|access|exec|execution|scripts?)\b`),
	regexp.MustCompile(`\b(?:bash|zsh|powershell|cmd\.exe)\b|/bin/(?:ba)?sh\b`),
	regexp.MustCompile(`\b(?:os\.system|subprocess|popen|child\s+process)\b`),
	regexp.MustCompile(`\b(?:remote|arbitrary)\s+code\s+execution\b`),
	regexp.MustCompile(`\b(?:execute|exec|eval|run)\s+command\b`),
}

var fileAccessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfile\s?system\b`),
	regexp.MustCompile(`\bfile\s+(?:access|path|paths|read|write|contents?|operations?)\b`),
	regexp.MustCompile(`\b(?:read|write|delete|open|download)\s+(?:any\s+|arbitrary\s+)?(?:local\s+)?files?\b`),
	regexp.MustCompile(`\bdirectory\s+(?:listing|traversal)\b`),
}

// unscopedPatterns name access that no scoping language can redeem.
var unscopedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:no|without)\s+(?:path\s+)?(?:validation|restrictions?|sanitization|checks?)\b`),
	regexp.MustCompile(`\babsolute\s+(?:file\s+)?paths?\b`),
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`/etc/(?:passwd|shadow|hosts)\b`),
	regexp.MustCompile(`\b[a-z]:\\`),
	regexp.MustCompile(`\b(?:arbitrary|any)\s+(?:file|path)s?\b`),
}

// refusal verbs turn a following unsafe path form into a guarantee.
var refusal = regexp.MustCompile(`\b(?:rejects?|rejected|rejecting|deny|denies|denied|disallows?|disallowed|blocks?|blocked|prevents?|forbids?|forbidden|refuses?|prohibits?|strips?)\b`)

// negationWindow bounds how far back a refusal verb may sit in the same clause.
const negationWindow = 48

var scopingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\ballow[\s-]?list(?:ed)?\b`),
	regexp.MustCompile(`\bwhite[\s-]?list(?:ed)?\b`),
	regexp.MustCompile(`\bsandbox(?:ed)?\b`),
	regexp.MustCompile(`\b(?:restricted|scoped|limited|confined)\s+to\b`),
	regexp.MustCompile(`\brelative\s+to\b`),
	regexp.MustCompile(`\bchroot\b`),
	regexp.MustCompile(`\bwithin\s+(?:the\s+)?(?:base|workspace|upload|project|data)\s+(?:dir|directory|folder)\b`),
}

var fileParamNames = map[string]bool{
	"path": true, "file": true, "file path": true, "filepath": true, "filename": true,
	"file name": true, "dir": true, "directory": true, "folder": true,
}

func CommandExecutionCheck() checks.Check {
	return checks.Check{
		ID:          "COMMAND_EXECUTION",
		Category:    checks.CategoryCapability,
		Title:       "Dangerous Capability: Command Execution",
		Description: "Skill text implies arbitrary shell or process execution.",
		Severity:    report.SeverityHigh,
		Run:         CheckCommandExecution,
	}
}

func UnrestrictedFileAccessCheck() checks.Check {
	return checks.Check{
		ID:          "UNRESTRICTED_FILE_ACCESS",
		Category:    checks.CategoryCapability,
		Title:       "Dangerous Capability: Unrestricted File Access",
		Description: "Skill exposes filesystem access without path scoping.",
		Severity:    report.SeverityHigh,
		Run:         CheckUnrestrictedFileAccess,
	}
}

func CheckCommandExecution(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	var findings []report.Finding
	for _, s := range ctx.Manifest.Skills {
		if evidence, ok := CommandEvidence(s); ok {
			findings = append(findings, msges.NewFinding("COMMAND_EXECUTION", report.SeverityHigh, s.Location(), s.Label(), evidence))
		}
	}
	return findings, nil
}

func CheckUnrestrictedFileAccess(ctx *ctxpkg.Context) ([]report.Finding, error) {
	if ctx.Manifest == nil {
		return nil, nil
	}
	var findings []report.Finding
	for _, s := range ctx.Manifest.Skills {
		if evidence, ok := FileAccessEvidence(s); ok {
			findings = append(findings, msges.NewFinding("UNRESTRICTED_FILE_ACCESS", report.SeverityHigh, s.Location(), s.Label(), evidence))
		}
	}
	return findings, nil
}

// CommandEvidence returns the matched fragment when a skill implies command execution.
func CommandEvidence(s manifest.Skill) (string, bool) {
	m, ok := signal.FirstMatch(signal.Normalize(s.Text()), commandPatterns)
	if !ok {
		return "", false
	}
	return "matched \"" + signal.Truncate(m, 60) + "\"", true
}

// FileAccessEvidence flags filesystem skills that either name an unsafe path
// form or carry no scoping language at all.
func FileAccessEvidence(s manifest.Skill) (string, bool) {
	text := signal.Normalize(s.Text())

	access, ok := signal.FirstMatch(text, fileAccessPatterns)
	if !ok {
		for _, name := range s.ParamNames() {
			if n := signal.Normalize(name); fileParamNames[n] {
				access, ok = "parameter "+n, true
				break
			}
		}
	}
	if !ok {
		return "", false
	}

	if unsafe, found := firstUnrefused(text, unscopedPatterns); found {
		return "\"" + signal.Truncate(unsafe, 60) + "\"", true
	}
	if _, scoped := signal.FirstMatch(text, scopingPatterns); scoped {
		return "", false
	}
	return "\"" + signal.Truncate(access, 60) + "\" with no path scoping", true
}

// firstUnrefused is FirstMatch that skips mentions the same clause refuses,
// as in "rejects absolute paths and ../".
func firstUnrefused(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if !refused(text[:loc[0]]) {
				return text[loc[0]:loc[1]], true
			}
		}
	}
	return "", false
}

func refused(before string) bool {
	if len(before) > negationWindow {
		before = before[len(before)-negationWindow:]
	}
	if i := strings.LastIndexAny(before, ";!?\n"); i >= 0 {
		before = before[i+1:]
	}
	if i := strings.LastIndex(before, ". "); i >= 0 {
		before = before[i+2:]
	}
	return refusal.MatchString(before)
}
