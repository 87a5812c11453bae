package contact

import (
	"testing"

	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/manifest"
	"github.com/MOYARU/a2ascan/internal/report"
)

func TestCheckContactDomain(t *testing.T) {
	cases := []struct {
		email string
		deny  []string
		want  bool
	}{
		{"admin@suspicious-domain.ru", nil, true},
		{"ops@mailinator.com", nil, true},
		{"root@agent.onion", nil, true},
		{"support@example.com", nil, false},
		{"support@example.com", []string{"Example.com"}, true},
		{"not-an-email", nil, false},
		{"", nil, false},
	}
	for _, tc := range cases {
		m := &manifest.AgentManifest{Contact: map[string]any{"email": tc.email}}
		findings, err := CheckContactDomain(ctxpkg.New("", m, ctxpkg.Lists{ContactDenylist: tc.deny}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(findings) == 1; got != tc.want {
			t.Fatalf("%q flagged=%v want %v", tc.email, got, tc.want)
		}
		if tc.want && findings[0].Severity != report.SeverityLow {
			t.Fatalf("contact findings are advisory, got %s", findings[0].Severity)
		}
	}
}
