package generation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/futig/design-agent/internal/entity"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

const referencePreferences = "\n\nUser preferences for this website: "

type promptData struct {
	PageType      string
	Business      string
	Audience      string
	Goals         string
	Brand         string
	References    string
	Analyses      string
	CurrentURL    string
	ReuseContent  bool
	Issues        []string
	AuditIssues   []string
	ExtractedText string
	HasScreenshot bool
	Redesign      bool
	Specification string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func newPromptData(r entity.Responses, analyses []entity.ReferenceAnalysis) promptData {
	d := promptData{
		PageType: strings.TrimSpace(strings.TrimPrefix(r.String(entity.FieldPageType), "Other: ")),
		Business: r.String(entity.FieldBusiness),
		Audience: r.String(entity.FieldAudience),
		Goals:    r.String(entity.FieldGoals),
		Brand:    r.String(entity.FieldBrand),
	}
	if d.PageType == "" {
		d.PageType = "Other"
	}
	d.References = r.String(entity.FieldReferencesAndCompetitors)
	d.Analyses = analysesJSON(analyses)
	return d
}

func newRedesignPromptData(r entity.Responses, analyses []entity.ReferenceAnalysis, audit []string, extracted string, hasScreenshot bool) promptData {
	reuse, _ := r.Bool(entity.FieldRedesignReuseContent)

	var issues []string
	for _, issue := range strings.Split(r.String(entity.FieldRedesignIssues), "|") {
		if issue = strings.TrimSpace(issue); issue != "" {
			issues = append(issues, strings.TrimPrefix(issue, "Other: "))
		}
	}

	return promptData{
		Audience:      r.String(entity.FieldRedesignAudience),
		References:    r.String(entity.FieldRedesignReferencesAndCompetitors),
		Analyses:      analysesJSON(analyses),
		CurrentURL:    r.String(entity.FieldRedesignCurrentURL),
		ReuseContent:  reuse,
		Issues:        issues,
		AuditIssues:   audit,
		ExtractedText: extracted,
		HasScreenshot: hasScreenshot,
		Redesign:      true,
	}
}

func analysesJSON(analyses []entity.ReferenceAnalysis) string {
	if len(analyses) == 0 {
		return ""
	}
	b, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func specSystemPrompt() (string, error) { return render("spec_system.tmpl", nil) }
func htmlSystemPrompt() (string, error) { return render("html_system.tmpl", nil) }
func auditPrompt() (string, error)      { return render("audit.tmpl", nil) }

func referencePrompt(description string) (string, error) {
	base, err := render("reference.tmpl", nil)
	if err != nil {
		return "", err
	}
	return base + referencePreferences + description, nil
}

func specPrompt(d promptData) (string, error) {
	if d.Redesign {
		return render("spec_redesign.tmpl", d)
	}
	return render("spec_new.tmpl", d)
}

func htmlPrompt(d promptData, specification string) (string, error) {
	d.Specification = specification
	return render("html.tmpl", d)
}
