// Package manifest holds the typed agent card and the structural validator
// that produces it from raw discovery bytes.
package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// AgentManifest is the parsed agent card. It is built once by Parse and only
// read afterwards; rules share a single instance across goroutines.
type AgentManifest struct {
	ID             string
	Name           string
	Description    string
	URL            string
	Version        string
	Skills         []Skill
	Authentication *Authentication
	Contact        map[string]any
	// ExtraFields keeps unknown top-level keys for forward compatibility.
	ExtraFields map[string]any
}

type Skill struct {
	Index       int
	ID          string
	Name        string
	Description string
	Parameters  map[string]Parameter
	// ExtraFields keeps undeclared skill keys such as webhook_url.
	ExtraFields map[string]any
}

type Parameter struct {
	Name        string
	Type        string
	Description string
	Extra       map[string]any
}

type Authentication struct {
	Type    string
	Schemes []string
}

// Location is the field path used in findings, e.g. skills[2].
func (s Skill) Location() string {
	return fmt.Sprintf("skills[%d]", s.Index)
}

// Label names the skill for humans, falling back to its index.
func (s Skill) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.ID != "":
		return s.ID
	default:
		return fmt.Sprintf("#%d", s.Index)
	}
}

// ParamNames returns parameter names in a stable order.
func (s Skill) ParamNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text joins the skill's free-text fields for pattern rules.
func (s Skill) Text() string {
	parts := []string{s.Name, s.Description}
	for _, name := range s.ParamNames() {
		p := s.Parameters[name]
		parts = append(parts, p.Name, p.Description)
	}
	return strings.Join(parts, "\n")
}

// Email returns contact.email when it is a string.
func (m *AgentManifest) Email() string {
	if m == nil || m.Contact == nil {
		return ""
	}
	email, _ := m.Contact["email"].(string)
	return strings.TrimSpace(email)
}

// AuthType is the declared authentication type, empty when absent.
func (m *AgentManifest) AuthType() string {
	if m == nil || m.Authentication == nil {
		return ""
	}
	return strings.TrimSpace(m.Authentication.Type)
}
