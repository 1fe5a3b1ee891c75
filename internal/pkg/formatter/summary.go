package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/futig/design-agent/internal/entity"
)

const summaryTitle = "Design Brief"

var fieldLabels = map[entity.ResponseField]string{
	entity.FieldBusiness:                         "Business",
	entity.FieldAudience:                         "Target audience",
	entity.FieldGoals:                            "Goals",
	entity.FieldPageType:                         "Page type",
	entity.FieldBrand:                            "Brand guidelines",
	entity.FieldReferencesAndCompetitors:         "References and competitors",
	entity.FieldRedesignCurrentURL:               "Current webpage",
	entity.FieldRedesignReuseContent:             "Reuse existing content",
	entity.FieldRedesignAudience:                 "Target audience",
	entity.FieldRedesignIssues:                   "What is not working",
	entity.FieldRedesignReferencesAndCompetitors: "References and competitors",
}

var flowFields = map[entity.Flow][]entity.ResponseField{
	entity.FlowNewWebsite: {
		entity.FieldBusiness,
		entity.FieldAudience,
		entity.FieldGoals,
		entity.FieldPageType,
		entity.FieldBrand,
		entity.FieldReferencesAndCompetitors,
	},
	entity.FlowRedesign: {
		entity.FieldRedesignCurrentURL,
		entity.FieldRedesignReuseContent,
		entity.FieldRedesignAudience,
		entity.FieldRedesignIssues,
		entity.FieldRedesignReferencesAndCompetitors,
	},
}

// SessionSummary collects the answers, audit and outcome of a session.
func SessionSummary(s *entity.SessionState) Document {
	doc := Document{
		Title:    summaryTitle,
		Subtitle: fmt.Sprintf("%s, session %s", s.Flow.RouteType(), s.ID),
	}

	doc.Sections = append(doc.Sections, Section{
		Heading: "Session",
		Lines: []Line{
			{Label: "Started", Value: s.StartedAt.UTC().Format(time.RFC1123)},
			{Label: "Route", Value: s.Flow.RouteType()},
		},
	})

	answers := Section{Heading: "Answers"}
	for _, field := range flowFields[s.Flow] {
		if !s.Responses.Has(field) {
			continue
		}
		answers.Lines = append(answers.Lines, Line{Label: fieldLabels[field], Value: answerValue(s.Responses, field)})
	}
	if len(answers.Lines) > 0 {
		doc.Sections = append(doc.Sections, answers)
	}

	if issues := s.Generation.AuditIssues; len(issues) > 0 {
		audit := Section{Heading: "UI/UX audit"}
		for i, issue := range issues {
			audit.Lines = append(audit.Lines, Line{Label: strconv.Itoa(i + 1), Value: issue})
		}
		doc.Sections = append(doc.Sections, audit)
	}

	if analyses := s.Responses.ReferenceAnalyses; len(analyses) > 0 {
		refs := Section{Heading: "Reference analysis"}
		for _, a := range analyses {
			refs.Lines = append(refs.Lines, Line{Label: a.WebsiteURL, Value: referenceNotes(a)})
		}
		doc.Sections = append(doc.Sections, refs)
	}

	outcome := Section{Heading: "Outcome"}
	switch {
	case s.Generation.HTML != "":
		outcome.Lines = append(outcome.Lines, Line{Label: "Generated page", Value: "yes"})
	case s.Generation.Failed:
		outcome.Lines = append(outcome.Lines, Line{Label: "Generated page", Value: "generation failed"})
	default:
		outcome.Lines = append(outcome.Lines, Line{Label: "Generated page", Value: "not yet"})
	}
	if s.Rating > 0 {
		outcome.Lines = append(outcome.Lines, Line{Label: "Rating", Value: fmt.Sprintf("%d/5", s.Rating)})
	}
	if s.Feedback != "" {
		outcome.Lines = append(outcome.Lines, Line{Label: "Feedback", Value: s.Feedback})
	}
	if s.Email != "" {
		outcome.Lines = append(outcome.Lines, Line{Label: "Contact", Value: s.Email})
	}
	doc.Sections = append(doc.Sections, outcome)

	return doc
}

func answerValue(r entity.Responses, field entity.ResponseField) string {
	if v, ok := r.Bool(field); ok {
		if v {
			return "Yes"
		}
		return "No"
	}

	if _, ok := r.References[field]; ok {
		entries := r.Entries(field)
		if len(entries) == 0 {
			return "None"
		}
		lines := make([]string, 0, len(entries))
		for i, e := range entries {
			lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, e.URL, e.Description))
		}
		return strings.Join(lines, "\n")
	}

	v := r.String(field)
	if v == "" {
		return "Not provided"
	}
	if field == entity.FieldRedesignIssues {
		return strings.Join(strings.Split(v, "|"), ", ")
	}
	return v
}

func referenceNotes(a entity.ReferenceAnalysis) string {
	var parts []string
	if a.UserLikesAboutThis != "" {
		parts = append(parts, "Likes: "+a.UserLikesAboutThis)
	}
	if a.LayoutNotes != "" {
		parts = append(parts, "Layout: "+a.LayoutNotes)
	}
	if a.TypographyNotes != "" {
		parts = append(parts, "Typography: "+a.TypographyNotes)
	}
	if len(a.ComponentsLiked) > 0 {
		parts = append(parts, "Components: "+strings.Join(a.ComponentsLiked, ", "))
	}
	return strings.Join(parts, "\n")
}
