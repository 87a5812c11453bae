package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPolicyFile = ".a2ascan.yaml"
	EnvPrefix         = "A2ASCAN"
)

type ScanPolicy struct {
	MaxConcurrency        int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	PerTargetTimeout      time.Duration `yaml:"per_target_timeout" envconfig:"PER_TARGET_TIMEOUT"`
	MaxRedirects          int           `yaml:"max_redirects" envconfig:"MAX_REDIRECTS"`
	RequestBudget         int64         `yaml:"request_budget" envconfig:"REQUEST_BUDGET"`
	DelayMS               int           `yaml:"delay_ms" envconfig:"DELAY_MS"`
	SameSiteRedirects     bool          `yaml:"same_site_redirects" envconfig:"SAME_SITE_REDIRECTS"`
	AllowedSinkDomains    []string      `yaml:"allowed_sink_domains" envconfig:"ALLOWED_SINK_DOMAINS"`
	ExtraSuspiciousTLDs   []string      `yaml:"extra_suspicious_tlds" envconfig:"EXTRA_SUSPICIOUS_TLDS"`
	ExtraContactDenylist  []string      `yaml:"extra_contact_denylist" envconfig:"EXTRA_CONTACT_DENYLIST"`
	ExtraInjectionPhrases []string      `yaml:"extra_injection_phrases" envconfig:"EXTRA_INJECTION_PHRASES"`
	ExtraImpersonation    []string      `yaml:"extra_impersonation_terms" envconfig:"EXTRA_IMPERSONATION_TERMS"`
	RedactionPatterns     []string      `yaml:"redaction_patterns" envconfig:"REDACTION_PATTERNS"`
}

var scanPolicyCache struct {
	mu      sync.RWMutex
	path    string
	exists  bool
	modTime int64
	policy  ScanPolicy
}

func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{
		MaxConcurrency:   5,
		PerTargetTimeout: 10 * time.Second,
		MaxRedirects:     3,
		RequestBudget:    0, // 0 means auto-calculate from the batch size
	}
}

// LoadScanPolicy reads the optional YAML policy at path and applies A2ASCAN_*
// environment overrides on top. A missing file yields the defaults.
func LoadScanPolicy(path string) (ScanPolicy, error) {
	p, err := loadPolicyFile(path)
	if err != nil {
		return p, err
	}
	if err := envconfig.Process(EnvPrefix, &p); err != nil {
		return p, fmt.Errorf("apply %s_* environment: %w", EnvPrefix, err)
	}
	if err := ValidateRedactionPatterns(p.RedactionPatterns); err != nil {
		return p, err
	}
	return p.normalized(), nil
}

func loadPolicyFile(path string) (ScanPolicy, error) {
	p := DefaultScanPolicy()
	if path == "" {
		path = DefaultPolicyFile
	}
	absPath, err := filepath.Abs(path)
	if err == nil {
		path = absPath
	}

	st, statErr := os.Stat(path)
	if statErr != nil {
		if !errors.Is(statErr, os.ErrNotExist) {
			return p, fmt.Errorf("stat policy %s: %w", path, statErr)
		}
		scanPolicyCache.mu.Lock()
		scanPolicyCache.path = path
		scanPolicyCache.exists = false
		scanPolicyCache.modTime = 0
		scanPolicyCache.policy = p
		scanPolicyCache.mu.Unlock()
		return p, nil
	}

	modTime := st.ModTime().UnixNano()
	scanPolicyCache.mu.RLock()
	if scanPolicyCache.path == path && scanPolicyCache.exists && scanPolicyCache.modTime == modTime {
		cached := scanPolicyCache.policy.clone()
		scanPolicyCache.mu.RUnlock()
		return cached, nil
	}
	scanPolicyCache.mu.RUnlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return DefaultScanPolicy(), fmt.Errorf("parse policy %s: %w", path, err)
	}

	scanPolicyCache.mu.Lock()
	scanPolicyCache.path = path
	scanPolicyCache.exists = true
	scanPolicyCache.modTime = modTime
	scanPolicyCache.policy = p.clone()
	scanPolicyCache.mu.Unlock()

	return p, nil
}

func (p ScanPolicy) normalized() ScanPolicy {
	d := DefaultScanPolicy()
	if p.MaxConcurrency < 1 {
		p.MaxConcurrency = d.MaxConcurrency
	}
	if p.PerTargetTimeout <= 0 {
		p.PerTargetTimeout = d.PerTargetTimeout
	}
	if p.MaxRedirects < 0 {
		p.MaxRedirects = d.MaxRedirects
	}
	if p.RequestBudget < 0 {
		p.RequestBudget = 0
	}
	if p.DelayMS < 0 {
		p.DelayMS = 0
	}
	return p
}

// clone keeps cached slices from being shared with callers.
func (p ScanPolicy) clone() ScanPolicy {
	p.AllowedSinkDomains = append([]string(nil), p.AllowedSinkDomains...)
	p.ExtraSuspiciousTLDs = append([]string(nil), p.ExtraSuspiciousTLDs...)
	p.ExtraContactDenylist = append([]string(nil), p.ExtraContactDenylist...)
	p.ExtraInjectionPhrases = append([]string(nil), p.ExtraInjectionPhrases...)
	p.RedactionPatterns = append([]string(nil), p.RedactionPatterns...)
	return p
}
