package signal

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reSpace = regexp.MustCompile(`\s+`)
	reZW    = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}]`)
)

// Normalize folds manifest text before pattern matching: NFKC so full-width and
// ligature look-alikes collapse to ASCII, zero-width characters removed, lowercase,
// identifier underscores read as spaces, whitespace collapsed.
func Normalize(s string) string {
	l := norm.NFKC.String(s)
	l = reZW.ReplaceAllString(l, "")
	l = strings.ToLower(l)
	l = strings.ReplaceAll(l, "_", " ")
	l = reSpace.ReplaceAllString(strings.TrimSpace(l), " ")
	return l
}

// FirstMatch returns the first pattern matching text, with the matched fragment.
func FirstMatch(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// AllMatches collects distinct matched fragments in pattern order.
func AllMatches(text string, patterns []*regexp.Regexp) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, re := range patterns {
		for _, m := range re.FindAllString(text, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// ContainsAny reports the first phrase present in text.
func ContainsAny(text string, phrases ...string) (string, bool) {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// PhrasePattern compiles a literal phrase into a word-bounded, case-insensitive
// pattern that tolerates any run of whitespace between words.
func PhrasePattern(phrase string) (*regexp.Regexp, error) {
	words := strings.Fields(Normalize(phrase))
	if len(words) == 0 {
		return nil, nil
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

// Truncate shortens evidence for summaries.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
