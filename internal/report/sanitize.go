package report

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// Finding text quotes manifest content verbatim, so credentials that an agent
// card leaks (bearer tokens, keyed webhook URLs) are scrubbed before output.
var (
	reEmbeddedURL = regexp.MustCompile(`(?i)\b(?:https?|wss?)://[^\s'"<>]+`)
	reBearer      = regexp.MustCompile(`(?i)\b(bearer\s+)([a-z0-9\-\._~\+\/]+=*)`)
	reSecretKV    = regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|token|secret|password|authorization)\s*[:=]\s*([^\s,;'"]+)`)
	reLongToken   = regexp.MustCompile(`\b[a-zA-Z0-9_\-]{32,}\b`)
	reIdentWord   = regexp.MustCompile(`^(?:[a-z]{1,12}|[a-z]{0,8}\d{1,3})$`)

	sensitiveQueryKeys = []string{"token", "key", "secret", "auth", "session", "pass", "sig", "code"}

	customMu  sync.RWMutex
	customRes []*regexp.Regexp
)

// ConfigureRedaction installs extra redaction regexes from the scan policy.
// Patterns that fail to compile are skipped.
func ConfigureRedaction(patterns []string) {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	customMu.Lock()
	customRes = compiled
	customMu.Unlock()
}

func SanitizeFinding(f Finding) Finding {
	f.Summary = SanitizeText(f.Summary)
	f.Fix = SanitizeText(f.Fix)
	f.Location = EscapeControl(f.Location)
	return f
}

// EscapeControl renders C0/C1 control characters and bidi overrides as
// visible escapes so manifest text cannot drive the terminal.
func EscapeControl(s string) string {
	clean := true
	for _, r := range s {
		if isControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x100 && isControl(r):
			fmt.Fprintf(&b, `\x%02x`, r)
		case isControl(r):
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || (r >= 0x7f && r < 0xa0) ||
		(r >= 0x202a && r <= 0x202e) || (r >= 0x2066 && r <= 0x2069)
}

// SanitizeText escapes control characters, then scrubs embedded URLs and
// bare secrets.
func SanitizeText(s string) string {
	out := reEmbeddedURL.ReplaceAllStringFunc(EscapeControl(s), func(raw string) string {
		if clean, ok := scrubURL(raw); ok {
			return clean
		}
		return raw
	})
	out = reBearer.ReplaceAllString(out, "${1}<redacted>")
	out = reSecretKV.ReplaceAllString(out, "${1}=<redacted>")
	out = reLongToken.ReplaceAllStringFunc(out, func(tok string) string {
		if isIdentifier(tok) {
			return tok
		}
		return tok[:4] + "...<redacted>..." + tok[len(tok)-4:]
	})

	customMu.RLock()
	defer customMu.RUnlock()
	for _, re := range customRes {
		out = re.ReplaceAllString(out, "<redacted>")
	}
	return out
}

// SanitizeURL hides userinfo and sensitive query values in a target or sink URL.
func SanitizeURL(raw string) string {
	if clean, ok := scrubURL(raw); ok {
		return EscapeControl(clean)
	}
	return SanitizeText(raw)
}

// scrubURL leaves URLs without credentials byte-for-byte unchanged.
func scrubURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	changed := false
	if u.User != nil {
		u.User = url.User("<redacted>")
		changed = true
	}
	q := u.Query()
	for k := range q {
		if isSensitiveKey(k) {
			q.Set(k, "<redacted>")
			changed = true
		}
	}
	if !changed {
		return raw, true
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

func isSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveQueryKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// isIdentifier recognises long snake_case or kebab-case names such as skill
// ids. Every word must read like a word, so mixed-case and random runs still
// count as secrets.
func isIdentifier(tok string) bool {
	words := strings.FieldsFunc(tok, func(r rune) bool { return r == '_' || r == '-' })
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !reIdentWord.MatchString(w) {
			return false
		}
	}
	return true
}
