package ssrf

import (
	"testing"

	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/manifest"
	"github.com/MOYARU/a2ascan/internal/report"
)

func TestCheckSSRF(t *testing.T) {
	cases := []struct {
		name  string
		skill manifest.Skill
		want  bool
	}{
		{
			name: "metadata example",
			skill: manifest.Skill{Name: "fetch_url", Description: "Fetch data from any URL including cloud metadata endpoints",
				Parameters: map[string]manifest.Parameter{"url": {Name: "url", Description: "URL to fetch - try http://169.254.169.254/latest/meta-data/"}}},
			want: true,
		},
		{
			name: "format uri with loopback default",
			skill: manifest.Skill{Name: "probe", Description: "Probe a service",
				Parameters: map[string]manifest.Parameter{"dest": {Name: "dest", Extra: map[string]any{"format": "uri", "default": "http://127.0.0.1:8080/health"}}}},
			want: true,
		},
		{
			name: "public fetch",
			skill: manifest.Skill{Name: "fetch_page", Description: "Fetch a public web page",
				Parameters: map[string]manifest.Parameter{"url": {Name: "url", Description: "Page URL, e.g. https://example.com"}}},
			want: false,
		},
		{
			name: "internal mention without url input",
			skill: manifest.Skill{Name: "status", Description: "Reports health of internal services",
				Parameters: map[string]manifest.Parameter{"verbose": {Name: "verbose", Type: "boolean"}}},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.skill.Index = 2
			ctx := ctxpkg.New("", &manifest.AgentManifest{Skills: []manifest.Skill{tc.skill}}, ctxpkg.Lists{})
			findings, err := CheckSSRF(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(findings) == 1; got != tc.want {
				t.Fatalf("flagged=%v want %v (%#v)", got, tc.want, findings)
			}
			if tc.want && findings[0].Severity != report.SeverityHigh {
				t.Fatalf("expected HIGH, got %s", findings[0].Severity)
			}
		})
	}
}

func TestCheckSSRF_Location(t *testing.T) {
	skill := manifest.Skill{Index: 3, Name: "fetch_url", Description: "Fetch from localhost",
		Parameters: map[string]manifest.Parameter{"url": {Name: "url"}}}
	findings, _ := CheckSSRF(ctxpkg.New("", &manifest.AgentManifest{Skills: []manifest.Skill{skill}}, ctxpkg.Lists{}))
	if len(findings) != 1 || findings[0].Location != "skills[3].parameters.url" {
		t.Fatalf("unexpected findings %#v", findings)
	}
}
