// Package web renders the single-page dashboard served at "/".
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

//go:embed templates/dashboard.html
var templates embed.FS

// DemoAIText is the sample loaded by the dashboard's demo button. It reads as
// machine-written prose and scores above the AI threshold.
const DemoAIText = "Artificial intelligence has revolutionized numerous industries by automating complex processes and enabling data-driven decision making. Machine learning algorithms can analyze vast datasets to identify patterns and make predictions with remarkable accuracy. This technological advancement has transformed business operations."

// PageData feeds the dashboard template.
type PageData struct {
	AppName    string
	TextScorer string
	Stats      models.Stats
}

// Dashboard holds the parsed page template.
type Dashboard struct {
	tmpl *template.Template
}

// NewDashboard parses the embedded template.
func NewDashboard() (*Dashboard, error) {
	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"demoText": func() string { return DemoAIText },
		"percent": func(part, total int64) string {
			if total == 0 {
				return "0%"
			}
			return fmt.Sprintf("%.0f%%", float64(part)/float64(total)*100)
		},
	}).ParseFS(templates, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &Dashboard{tmpl: tmpl}, nil
}

// Render writes the page. Output is buffered so a template error never leaves a half-written response.
func (d *Dashboard) Render(w io.Writer, data PageData) error {
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
