package capability

import (
	"testing"

	ctxpkg "github.com/MOYARU/a2ascan/internal/checks/context"
	"github.com/MOYARU/a2ascan/internal/manifest"
)

func skillWith(name, desc string, params map[string]string) manifest.Skill {
	s := manifest.Skill{Name: name, Description: desc, Parameters: map[string]manifest.Parameter{}}
	for k, v := range params {
		s.Parameters[k] = manifest.Parameter{Name: k, Type: "string", Description: v}
	}
	return s
}

func TestCommandEvidence(t *testing.T) {
	cases := []struct {
		name  string
		skill manifest.Skill
		want  bool
	}{
		{"arbitrary commands", skillWith("execute_command", "Execute arbitrary system commands", map[string]string{"command": "Shell command to execute"}), true},
		{"bash runner", skillWith("runner", "Runs the snippet through bash", nil), true},
		{"subprocess", skillWith("tool", "Spawns a subprocess per request", nil), true},
		{"weather", skillWith("get_weather", "Get current weather conditions for a city", map[string]string{"city": "City name"}), false},
		{"run report", skillWith("report", "Run the monthly sales report", nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, got := CommandEvidence(tc.skill); got != tc.want {
				t.Fatalf("CommandEvidence=%v want %v", got, tc.want)
			}
		})
	}
}

func TestFileAccessEvidence(t *testing.T) {
	cases := []struct {
		name  string
		skill manifest.Skill
		want  bool
	}{
		{"unvalidated", skillWith("file_access", "Direct filesystem access with no path validation", map[string]string{"file_path": "Absolute file path like /etc/passwd or ../../../secrets"}), true},
		{"param only", skillWith("loader", "Loads content", map[string]string{"path": "Where to load from"}), true},
		{"scoped", skillWith("read_upload", "Read files relative to the upload directory; paths are allow-listed", map[string]string{"path": "Relative path"}), false},
		{"scoped but traversal example", skillWith("read_upload", "Read files, sandboxed", map[string]string{"path": "e.g. ../config"}), true},
		{"refused path forms", skillWith("read_file", "Reads a file restricted to the workspace; rejects absolute paths and ../", map[string]string{"path": "Workspace-relative path"}), false},
		{"refusal in earlier clause", skillWith("read_file", "Blocks symlinks; accepts absolute paths", map[string]string{"path": "Any path"}), true},
		{"refused traversal but open otherwise", skillWith("read_file", "Read any file on disk. Traversal such as ../ is denied", nil), true},
		{"no file access", skillWith("get_weather", "Get weather", map[string]string{"city": "City"}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, got := FileAccessEvidence(tc.skill); got != tc.want {
				t.Fatalf("FileAccessEvidence=%v want %v", got, tc.want)
			}
		})
	}
}

func TestChecksReportSkillLocation(t *testing.T) {
	m := &manifest.AgentManifest{Skills: []manifest.Skill{
		skillWith("get_weather", "Get weather", nil),
		skillWith("execute_command", "Execute arbitrary system commands", nil),
	}}
	for i := range m.Skills {
		m.Skills[i].Index = i
	}
	findings, err := CheckCommandExecution(ctxpkg.New("", m, ctxpkg.Lists{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 || findings[0].Location != "skills[1]" {
		t.Fatalf("unexpected findings %#v", findings)
	}
}
