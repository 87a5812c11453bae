package context

import (
	"github.com/MOYARU/a2ascan/internal/manifest"
)

// Lists carries operator-supplied additions to the built-in rule vocabularies.
type Lists struct {
	AllowedSinkDomains []string
	SuspiciousTLDs     []string
	ContactDenylist    []string
	InjectionPhrases   []string
	ImpersonationTerms []string
}

type Context struct {
	Source   string
	Manifest *manifest.AgentManifest
	Lists    Lists
}

func New(source string, m *manifest.AgentManifest, lists Lists) *Context {
	return &Context{Source: source, Manifest: m, Lists: lists}
}
