package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	msges "github.com/MOYARU/a2ascan/internal/messages"
	"github.com/MOYARU/a2ascan/internal/report"
)

type HTMLReportData struct {
	Title    string
	ScanID   string
	ScanTime string
	Duration string
	Report   Report
}

var htmlFuncs = template.FuncMap{
	"lower": func(v any) string { return strings.ToLower(fmt.Sprint(v)) },
	"sevClass": func(s report.Severity) string {
		return "sev-" + strings.ToLower(string(s))
	},
}

var htmlReport = template.Must(template.New("report").Funcs(htmlFuncs).Parse(htmlTemplate))

func WriteHTML(w io.Writer, rep Report) error {
	data := HTMLReportData{
		Title:    msges.GetUIMessage("HTMLReportTitle"),
		ScanID:   rep.ScanID,
		ScanTime: rep.StartTime.Format("2006-01-02 15:04:05"),
		Duration: rep.EndTime.Sub(rep.StartTime).Round(time.Millisecond).String(),
		Report:   rep,
	}
	return htmlReport.Execute(w, data)
}

// SaveHTMLReport renders rep to path.
func SaveHTMLReport(path string, rep Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteHTML(f, rep); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s\n", msges.GetUIMessage("HTMLReportSaved", path))
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #1f2933; background: #f5f7fa; }
h1 { margin-bottom: .25rem; }
.meta { color: #616e7c; margin-bottom: 1.5rem; }
.cards { display: flex; gap: 1rem; margin-bottom: 2rem; flex-wrap: wrap; }
.card { background: #fff; border-radius: 6px; padding: 1rem 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.1); min-width: 8rem; }
.card b { display: block; font-size: 1.6rem; }
.target { background: #fff; border-radius: 6px; padding: 1rem 1.5rem; margin-bottom: 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.verdict { font-weight: bold; padding: .1rem .5rem; border-radius: 4px; color: #fff; }
.verdict-pass { background: #2f8132; } .verdict-warn { background: #cb6e17; }
.verdict-fail { background: #ba2525; } .verdict-error { background: #7b8794; }
table { width: 100%; border-collapse: collapse; margin-top: .75rem; }
th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #e4e7eb; vertical-align: top; }
.sev-high { color: #ba2525; font-weight: bold; } .sev-medium { color: #cb6e17; font-weight: bold; } .sev-low { color: #2680c2; }
code { background: #f0f4f8; padding: 0 .25rem; border-radius: 3px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">Scan {{.ScanID}} &middot; {{.ScanTime}} &middot; {{.Duration}} &middot; {{.Report.Scanner}}</div>
{{with .Report.Summary}}
<div class="cards">
  <div class="card">Scanned<b>{{.TotalScanned}}</b></div>
  <div class="card">Passed<b>{{.Passed}}</b></div>
  <div class="card">Warnings<b>{{.Warnings}}</b></div>
  <div class="card">Failed<b>{{.Failed}}</b></div>
  <div class="card">Errors<b>{{.Errors}}</b></div>
  <div class="card sev-high">HIGH<b>{{.High}}</b></div>
  <div class="card sev-medium">MEDIUM<b>{{.Medium}}</b></div>
  <div class="card sev-low">LOW<b>{{.Low}}</b></div>
</div>
{{end}}
{{range .Report.Targets}}
<div class="target">
  <h2>{{.Source}} <span class="verdict verdict-{{lower .Verdict}}">{{.Verdict}}</span></h2>
  {{if .AgentName}}<div class="meta">{{.AgentName}}</div>{{end}}
  {{if .FetchError}}
  <p>{{.ErrorKind}}: {{.FetchError}}</p>
  {{else if .Findings}}
  <table>
    <tr><th>Severity</th><th>Threat</th><th>Location</th><th>Summary</th><th>Fix</th></tr>
    {{range .Findings}}
    <tr>
      <td class="{{sevClass .Severity}}">{{.Severity}}</td>
      <td>{{.ThreatName}}<br><code>{{.RuleID}}</code></td>
      <td><code>{{.Location}}</code></td>
      <td>{{.Summary}}</td>
      <td>{{.Fix}}</td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p>No issues found.</p>
  {{end}}
</div>
{{end}}
</body>
</html>
`
