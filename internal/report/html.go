package report

import (
	"io"

	"github.com/flosch/pongo2/v6"
)

const htmlSource = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Incident Report - {{ doc.Title }}</title>
<style>
body { font-family: Helvetica, sans-serif; padding: 40px; }
h1 { color: #333; }
.section { margin-bottom: 20px; }
.label { font-weight: bold; color: #666; font-size: 12px; }
.content { font-size: 16px; margin-top: 5px; white-space: pre-wrap; }
.generated { color: #999; font-size: 10px; }
</style>
</head>
<body>
<h1>Incident Report</h1>
<hr>
<div class="section"><div class="label">TITLE</div><div class="content">{{ doc.Title }}</div></div>
<div class="section"><div class="label">DATE &amp; TIME</div><div class="content">{{ doc.DateTime }}</div></div>
<div class="section"><div class="label">LOCATION</div><div class="content">{{ doc.Location }}</div></div>
<div class="section"><div class="label">AGENCY / OFFICER</div><div class="content">{{ agencyOfficer }}</div></div>
<div class="section"><div class="label">NOTES</div><div class="content">{{ doc.Notes }}</div></div>
<div class="section"><div class="label">EVIDENCE</div><div class="content">{{ evidence }}</div>
{% if doc.Recordings %}<ul>{% for rec in doc.Recordings %}
<li>{{ rec.Name }} ({{ rec.Duration }}, recorded {{ rec.Recorded }})</li>{% endfor %}
</ul>{% endif %}</div>
<p class="generated">Generated {{ doc.GeneratedAt }}</p>
</body>
</html>
`

var htmlTemplate = pongo2.Must(pongo2.FromString(htmlSource))

func renderHTML(w io.Writer, doc Document) error {
	return htmlTemplate.ExecuteWriter(pongo2.Context{
		"doc":           doc,
		"agencyOfficer": doc.AgencyOfficer(),
		"evidence":      doc.EvidenceSummary(),
	}, w)
}
