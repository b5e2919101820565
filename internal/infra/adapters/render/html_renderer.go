package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
)

var _ adapter.DocumentRenderer = (*HTMLRenderer)(nil)

// HTMLRenderer produces a self-contained HTML file for a drafted document.
// HTML keeps the layout readable in any browser or word processor without
// pulling a heavyweight document library.
type HTMLRenderer struct {
	tmpl *template.Template
	now  func() time.Time
}

const documentTmpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Times New Roman", serif; font-size: 14pt; margin: 3cm 2cm; }
h1 { font-size: 16pt; text-align: center; text-transform: uppercase; }
h2 { font-size: 14pt; }
.parties { margin-left: 50%; margin-bottom: 2em; }
.date { text-align: right; margin-top: 3em; }
</style>
</head>
<body>
{{if .Parties}}<div class="parties">
{{range $role, $name := .Parties}}<p><b>{{$role}}:</b> {{$name}}</p>
{{end}}</div>{{end}}
<h1>{{.Title}}</h1>
{{range .Sections}}<h2>{{.Heading}}</h2>
<p>{{.Body}}</p>
{{if .Items}}<ol>
{{range .Items}}<li>{{.}}</li>
{{end}}</ol>{{end}}
{{end}}
<p class="date">{{.Date}}</p>
</body>
</html>
`

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tmpl: template.Must(template.New("document").Parse(documentTmpl)),
		now:  time.Now,
	}
}

func (r *HTMLRenderer) Render(ctx context.Context, doc *model.Document) ([]byte, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}

	data := struct {
		*model.Document
		Date string
	}{Document: doc, Date: r.now().Format("02.01.2006")}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, "", fmt.Errorf("render document: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.html", slug(string(doc.Kind)), r.now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}
