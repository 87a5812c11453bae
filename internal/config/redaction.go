package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateRedactionPatterns rejects policy files carrying regexes that do not compile,
// so a typo does not silently disable redaction.
func ValidateRedactionPatterns(patterns []string) error {
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("redaction_patterns[%d]: %w", i, err)
		}
	}
	return nil
}
