package reporter

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Kubernetes Resource Recommendations</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
table { border-collapse: collapse; width: 100%; margin-top: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #4CAF50; color: white; font-weight: bold; }
tr:nth-child(even) { background-color: #f2f2f2; }
tr:hover { background-color: #ddd; }
.increase { color: #2e7d32; font-weight: bold; }
.decrease { color: #1976d2; font-weight: bold; }
.new { color: #2e7d32; font-weight: bold; }
.minor { color: #0288d1; }
.skipped { color: #9e9e9e; margin-top: 20px; }
</style>
</head>
<body>
<h2>Kubernetes Resource Recommendations</h2>
<p>Window {{.WindowStart}} to {{.WindowEnd}} &middot; buffer {{.BufferPercent}}% &middot; generated {{.GeneratedAt}}</p>
{{if .Rows}}
<table>
<thead><tr>
<th>Namespace</th><th>Workload</th><th>Container</th><th>Kind</th>
<th>Curr Req</th><th>Reco Req</th><th>Curr Limit</th><th>Reco Limit</th>
<th>Mean</th><th>P95</th><th>Samples</th><th>Change</th>
</tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Namespace}}</td>
<td>{{.Workload}}</td>
<td>{{.Container}}</td>
<td>{{.Kind}}</td>
<td>{{.CurrentRequest}}</td>
<td class="{{.Class}}">{{.RecommendedRequest}}</td>
<td>{{.CurrentLimit}}</td>
<td class="{{.Class}}">{{.RecommendedLimit}}</td>
<td>{{.Mean}}</td>
<td>{{.P95}}</td>
<td>{{.Samples}}</td>
<td class="{{.Class}}">{{.Direction}}</td>
</tr>
{{end}}</tbody>
</table>
{{else}}
<p>No recommendations - all resources are already optimized.</p>
{{end}}
{{if .Skipped}}
<div class="skipped">
<h3>Skipped: insufficient data</h3>
<ul>
{{range .Skipped}}<li>{{.Key}} ({{.Reason}})</li>
{{end}}</ul>
</div>
{{end}}
</body>
</html>
`

var htmlTmpl = template.Must(template.New("report").Parse(htmlTemplate))

type htmlRow struct {
	Row
	Class string
}

type htmlData struct {
	WindowStart   string
	WindowEnd     string
	BufferPercent int
	GeneratedAt   string
	Rows          []htmlRow
	Skipped       []models.SkippedSeries
}

// HTML renders the bundle as a standalone HTML document with the same rows
// in the same order as the plain-text table.
func (r *Reporter) HTML(bundle *models.ReportBundle) (string, error) {
	rows := r.Rows(bundle)
	data := htmlData{
		WindowStart:   bundle.Window.Start.UTC().Format(time.RFC3339),
		WindowEnd:     bundle.Window.End.UTC().Format(time.RFC3339),
		BufferPercent: bundle.BufferPercent,
		GeneratedAt:   bundle.GeneratedAt.UTC().Format(time.RFC3339),
		Skipped:       bundle.Skipped,
	}
	for _, rw := range rows {
		data.Rows = append(data.Rows, htmlRow{Row: rw, Class: directionClass(rw.Direction)})
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.String(), nil
}

func directionClass(d models.ChangeDirection) string {
	switch d {
	case models.ChangeIncrease:
		return "increase"
	case models.ChangeDecrease:
		return "decrease"
	case models.ChangeNewlySet:
		return "new"
	default:
		return "minor"
	}
}
