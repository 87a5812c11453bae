package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/MOYARU/a2ascan/internal/engine"
	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

var knownTopLevel = map[string]bool{
	"id": true, "name": true, "description": true, "url": true, "version": true,
	"skills": true, "authentication": true, "contact": true,
}

var knownSkillFields = map[string]bool{
	"id": true, "name": true, "description": true, "parameters": true,
}

// Parse decodes a fetched manifest and runs the structural checks.
// A fetch error yields (nil, nil): the caller records it separately.
// Undecodable bytes yield a nil manifest and exactly one HIGH finding.
func Parse(raw engine.RawManifest) (*AgentManifest, []report.Finding) {
	if raw.Err != nil {
		return nil, nil
	}

	m, findings, err := Decode(raw.Body)
	if err != nil {
		return nil, []report.Finding{
			msges.NewFinding("MALFORMED_MANIFEST", report.SeverityHigh, "$", err.Error()),
		}
	}

	if raw.Header != nil {
		findings = append(findings, responseAdvisories(raw)...)
	}
	return m, findings
}

// Decode builds an AgentManifest from JSON bytes. The error is non-nil only when
// the document is not a JSON object; field-level problems become findings.
func Decode(body []byte) (*AgentManifest, []report.Finding, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, nil, err
	}
	if obj == nil {
		return nil, nil, fmt.Errorf("document is null")
	}

	d := &decoder{}
	m := &AgentManifest{}

	m.ID = d.str(obj, "id", "id")
	m.Name = d.str(obj, "name", "name")
	m.Description = d.str(obj, "description", "description")
	m.URL = d.str(obj, "url", "url")
	m.Version = d.str(obj, "version", "version")
	m.Contact = d.object(obj, "contact", "contact")
	m.Authentication = d.authentication(obj)
	m.Skills = d.skills(obj)

	for key, val := range obj {
		if knownTopLevel[key] {
			continue
		}
		if m.ExtraFields == nil {
			m.ExtraFields = make(map[string]any)
		}
		m.ExtraFields[key] = decodeAny(val)
	}

	if m.ID == "" {
		d.add(msges.NewFinding("MANIFEST_ID_MISSING", report.SeverityLow, "id"))
	}
	if m.Name == "" {
		d.add(msges.NewFinding("MANIFEST_NAME_MISSING", report.SeverityMedium, "name"))
	}
	if len(m.Skills) == 0 {
		d.add(msges.NewFinding("MANIFEST_SKILLS_MISSING", report.SeverityLow, "skills"))
	}
	for _, s := range m.Skills {
		if s.ID == "" {
			d.add(msges.NewFinding("MANIFEST_SKILL_ID_MISSING", report.SeverityMedium, s.Location(), s.Label(), s.Index))
		}
	}
	if m.Authentication == nil {
		d.add(msges.NewFinding("MANIFEST_AUTH_MISSING", report.SeverityMedium, "authentication"))
	}

	return m, d.findings, nil
}

type decoder struct {
	findings []report.Finding
}

func (d *decoder) add(f report.Finding) {
	d.findings = append(d.findings, f)
}

func (d *decoder) malformed(loc string, val json.RawMessage, want string) {
	d.add(msges.NewFinding("MALFORMED_FIELD", report.SeverityMedium, loc, loc, jsonKind(val), want))
}

// str reads an optional string; null counts as absent, other types are malformed.
func (d *decoder) str(obj map[string]json.RawMessage, key, loc string) string {
	val, ok := obj[key]
	if !ok || jsonKind(val) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		d.malformed(loc, val, "string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (d *decoder) object(obj map[string]json.RawMessage, key, loc string) map[string]any {
	val, ok := obj[key]
	if !ok || jsonKind(val) == "null" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(val, &out); err != nil {
		d.malformed(loc, val, "object")
		return nil
	}
	return out
}

func (d *decoder) authentication(obj map[string]json.RawMessage) *Authentication {
	val, ok := obj["authentication"]
	if !ok || jsonKind(val) == "null" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(val, &fields); err != nil {
		d.malformed("authentication", val, "object")
		return nil
	}
	auth := &Authentication{Type: d.str(fields, "type", "authentication.type")}
	if raw, ok := fields["schemes"]; ok && jsonKind(raw) != "null" {
		var schemes []string
		if err := json.Unmarshal(raw, &schemes); err != nil {
			d.malformed("authentication.schemes", raw, "array of strings")
		} else {
			for _, s := range schemes {
				if s = strings.TrimSpace(s); s != "" {
					auth.Schemes = append(auth.Schemes, s)
				}
			}
		}
	}
	return auth
}

func (d *decoder) skills(obj map[string]json.RawMessage) []Skill {
	val, ok := obj["skills"]
	if !ok || jsonKind(val) == "null" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(val, &entries); err != nil {
		d.malformed("skills", val, "array")
		return nil
	}

	skills := make([]Skill, 0, len(entries))
	for i, entry := range entries {
		loc := fmt.Sprintf("skills[%d]", i)
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			d.add(msges.NewFinding("MALFORMED_SKILL", report.SeverityMedium, loc, i, jsonKind(entry)))
			continue
		}
		s := Skill{
			Index:       i,
			ID:          d.str(fields, "id", loc+".id"),
			Name:        d.str(fields, "name", loc+".name"),
			Description: d.str(fields, "description", loc+".description"),
			Parameters:  d.parameters(fields, loc+".parameters"),
		}
		for key, raw := range fields {
			if knownSkillFields[key] {
				continue
			}
			if s.ExtraFields == nil {
				s.ExtraFields = make(map[string]any)
			}
			s.ExtraFields[key] = decodeAny(raw)
		}
		skills = append(skills, s)
	}
	return skills
}

// parameters accepts both a flat name->schema mapping and a JSON-schema object
// whose properties carry the parameters.
func (d *decoder) parameters(fields map[string]json.RawMessage, loc string) map[string]Parameter {
	val, ok := fields["parameters"]
	if !ok || jsonKind(val) == "null" {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(val, &raw); err != nil {
		d.malformed(loc, val, "object")
		return nil
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		if t, _ := raw["type"].(string); t == "object" {
			raw = props
		}
	}

	params := make(map[string]Parameter, len(raw))
	for name, schema := range raw {
		p := Parameter{Name: name}
		switch v := schema.(type) {
		case map[string]any:
			p.Type, _ = v["type"].(string)
			p.Description, _ = v["description"].(string)
			for k, x := range v {
				if k == "type" || k == "description" {
					continue
				}
				if p.Extra == nil {
					p.Extra = make(map[string]any)
				}
				p.Extra[k] = x
			}
		case string:
			p.Type = v
		default:
			p.Extra = map[string]any{"value": v}
		}
		params[name] = p
	}
	return params
}

func responseAdvisories(raw engine.RawManifest) []report.Finding {
	var findings []report.Finding

	ct := strings.TrimSpace(raw.ContentType)
	mediaType, _, err := mime.ParseMediaType(ct)
	if ct == "" || err != nil || !isJSONMediaType(mediaType) {
		shown := ct
		if shown == "" {
			shown = "(none)"
		}
		findings = append(findings, msges.NewFinding("UNEXPECTED_CONTENT_TYPE", report.SeverityLow, "$response.content-type", shown))
	}

	var missing []string
	if !strings.EqualFold(strings.TrimSpace(raw.Header.Get("X-Content-Type-Options")), "nosniff") {
		missing = append(missing, "X-Content-Type-Options")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		findings = append(findings, msges.NewFinding("MISSING_SECURITY_HEADERS", report.SeverityLow, "$response.headers", strings.Join(missing, ", ")))
	}
	return findings
}

func isJSONMediaType(mt string) bool {
	mt = strings.ToLower(mt)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func decodeAny(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func jsonKind(raw json.RawMessage) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return "empty"
	}
	switch t[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
