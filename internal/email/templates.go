package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type factorRow struct {
	Name   string
	Points string
}

type hotLeadEmailData struct {
	baseEmailData
	LeadName      string
	Score         int
	PreviousLabel string
	Factors       []factorRow
}

// factorRows orders factors by contribution, largest first, then by name.
func factorRows(factors map[string]float64) []factorRow {
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := factors[names[i]], factors[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})

	rows := make([]factorRow, len(names))
	for i, name := range names {
		rows[i] = factorRow{Name: name, Points: fmt.Sprintf("%.1f", factors[name])}
	}
	return rows
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderHotLeadAlert(alert HotLeadAlert) (string, error) {
	name := alert.LeadName
	if name == "" {
		name = "Unnamed lead"
	}
	return renderEmailTemplate("hot_lead.html", hotLeadEmailData{
		baseEmailData: baseEmailData{
			Title:      "Hot lead",
			Heading:    name + " is now a hot lead",
			Subheading: fmt.Sprintf("Score %d of 100", alert.Score),
			CTALabel:   "Open lead",
			CTAURL:     alert.LeadURL,
		},
		LeadName:      name,
		Score:         alert.Score,
		PreviousLabel: alert.PreviousLabel,
		Factors:       factorRows(alert.Factors),
	})
}
