package presentation

import (
	"html/template"
	"io"
	texttemplate "text/template"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
aside { width: 220px; padding: 16px; background: #f4f4f4; min-height: 100vh; }
main { flex: 1; padding: 16px 24px; }
header { display: flex; justify-content: space-between; align-items: baseline; }
.metrics { display: flex; gap: 16px; }
.metric { flex: 1; border-left: 6px solid; padding: 8px 12px; background: #fafafa; }
.metric .value { font-size: 2em; }
footer { margin-top: 24px; font-style: italic; color: #555; }
</style>
</head>
<body>
<aside>
<h3>Current Pollutant Levels</h3>
<ul>
{{- range .Levels}}
<li><strong>{{.Label}}</strong>: {{.Value}}</li>
{{- end}}
</ul>
</aside>
<main>
<header>
<h1>{{.Title}}</h1>
<span>{{.LatestDate}}</span>
</header>
<hr>
<h2>Forecasted AQI Levels</h2>
<div class="metrics">
{{- range .Forecasts}}
<div class="metric" style="border-color: {{.Color}}">
<div>{{.Label}}</div>
<div class="value">{{.Value}}</div>
<div>{{.Symbol}} {{.Severity}}</div>
</div>
{{- end}}
</div>
<hr>
<h2>Last {{minus (len .Chart.Points) (len .Forecasts)}} Points (AQI) + Forecast</h2>
<svg width="{{.Chart.Width}}" height="{{.Chart.Height}}" viewBox="0 0 {{.Chart.Width}} {{.Chart.Height}}">
<text x="4" y="44" font-size="11">{{.Chart.YMax}}</text>
<text x="4" y="{{minus .Chart.Height 40}}" font-size="11">{{.Chart.YMin}}</text>
<text x="40" y="{{minus .Chart.Height 12}}" font-size="11">{{.Chart.XStart}}</text>
<text x="{{minus .Chart.Width 40}}" y="{{minus .Chart.Height 12}}" font-size="11" text-anchor="end">{{.Chart.XEnd}}</text>
<polyline fill="none" stroke="#1f77b4" stroke-width="2" points="{{.Chart.Line}}"/>
{{- range .Chart.Markers}}
<circle cx="{{printf "%.1f" .X}}" cy="{{printf "%.1f" .Y}}" r="5" fill="{{.Color}}"><title>{{.Label}}</title></circle>
{{- end}}
</svg>
<footer>
<hr>
{{.Footnote}}
</footer>
</main>
</body>
</html>
`

const errorTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p style="color: #D50000">{{.Message}}</p>
<p><small>{{.Kind}}</small></p>
</body>
</html>
`

const reportTemplate = `{{.Title}}    {{.LatestDate}}

Current Pollutant Levels
{{- range .Levels}}
  {{printf "%-6s" .Label}} {{.Value}}
{{- end}}

Forecasted AQI Levels
{{- range .Forecasts}}
  {{printf "%-26s" .Label}} {{printf "%10s" .Value}}  {{.Symbol}} {{.Severity}}
{{- end}}

{{.Footnote}}
`

var (
	funcs = template.FuncMap{"minus": func(a, b int) int { return a - b }}

	pageTmpl   = template.Must(template.New("page").Funcs(funcs).Parse(pageTemplate))
	errorTmpl  = template.Must(template.New("error").Parse(errorTemplate))
	reportTmpl = texttemplate.Must(texttemplate.New("report").Parse(reportTemplate))
)

// ErrorView is the page shown when a forecast run fails
type ErrorView struct {
	Title   string
	Message string
	Kind    string
}

// RenderHTML writes the dashboard page
func RenderHTML(w io.Writer, v *View) error {
	return pageTmpl.Execute(w, v)
}

// RenderError writes the operator-facing failure page
func RenderError(w io.Writer, v ErrorView) error {
	return errorTmpl.Execute(w, v)
}

// RenderText writes a plain-text report of the view
func RenderText(w io.Writer, v *View) error {
	return reportTmpl.Execute(w, v)
}
