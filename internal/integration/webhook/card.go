package webhook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
)

const (
	notProvided    = "Not provided"
	otherPrefix    = "Other:"
	multiDelimiter = "|"
)

// BuildCard renders the session record as a Google Chat cardsV2 message.
// Every value is sanitized and capped before it leaves the service.
func BuildCard(r entity.SessionRecord) *entity.ChatCardMessage {
	card := entity.ChatCard{
		Header: entity.ChatCardHeader{
			Title:    "New design session completed",
			Subtitle: clean(r.Flow.RouteType()),
		},
	}

	card.Sections = append(card.Sections,
		section("Session Metadata",
			field("Session ID", r.SessionID),
			field("Route Type", r.Flow.RouteType()),
			field("Session Start", r.StartedAt.UTC().Format(time.RFC3339)),
		),
		section("User Information",
			field("User Email", r.Email),
		),
	)

	resp := r.Responses
	if r.Flow == entity.FlowRedesign {
		card.Sections = append(card.Sections,
			section("Business Context",
				field("Audience", resp.String(entity.FieldRedesignAudience)),
			),
			section("Current Webpage Details",
				field("URL", resp.String(entity.FieldRedesignCurrentURL)),
				field("Reuse Content", yesNo(resp.Bool(entity.FieldRedesignReuseContent))),
				field("Issues", strings.Join(splitMulti(resp.String(entity.FieldRedesignIssues)), ", ")),
			),
			referencesSection(resp.Entries(entity.FieldRedesignReferencesAndCompetitors)),
			auditSection(r.AuditIssues),
		)
	} else {
		pageType, pageTypeOther := splitOther(resp.String(entity.FieldPageType))
		card.Sections = append(card.Sections,
			section("Business Context",
				field("Business", resp.String(entity.FieldBusiness)),
				field("Audience", resp.String(entity.FieldAudience)),
				field("Goals", resp.String(entity.FieldGoals)),
			),
			section("Page Configuration",
				field("Page Type", pageType),
				field("Page Type (Other)", pageTypeOther),
			),
			section("Design Preferences",
				field("Brand Guidelines", resp.String(entity.FieldBrand)),
			),
			referencesSection(resp.Entries(entity.FieldReferencesAndCompetitors)),
		)
	}

	card.Sections = append(card.Sections, feedbackSection(r))

	return &entity.ChatCardMessage{
		CardsV2: []entity.ChatCardWrapper{{
			CardID: "session-" + clean(r.SessionID),
			Card:   card,
		}},
	}
}

func referencesSection(entries []entity.ReferenceEntry) entity.ChatCardSection {
	if len(entries) == 0 {
		return section("Reference Websites", paragraph(notProvided))
	}
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, e.URL, e.Description))
	}
	return section("Reference Websites", paragraph(strings.Join(lines, "\n")))
}

func auditSection(issues []string) entity.ChatCardSection {
	if len(issues) == 0 {
		return section("Audit Results", paragraph("No issues recorded"))
	}
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		lines = append(lines, "• "+issue)
	}
	return section("Audit Results", paragraph(strings.Join(lines, "\n")))
}

func feedbackSection(r entity.SessionRecord) entity.ChatCardSection {
	rating := notProvided
	if r.Rating > 0 {
		rating = strconv.Itoa(r.Rating) + "/5"
	}
	widgets := []entity.ChatCardWidget{
		field("Rating", rating),
		field("Feedback", r.Feedback),
		field("Feedback Provided", strconv.FormatBool(r.Feedback != "")),
	}
	if r.GenerationFail {
		widgets = append(widgets, field("Generation", "Failed, follow up manually"))
	}
	return section("User Feedback", widgets...)
}

func section(header string, widgets ...entity.ChatCardWidget) entity.ChatCardSection {
	return entity.ChatCardSection{Header: header, Widgets: widgets}
}

func field(label, value string) entity.ChatCardWidget {
	value = clean(value)
	if value == "" {
		value = notProvided
	}
	return entity.ChatCardWidget{DecoratedText: &entity.ChatDecoratedText{
		TopLabel: label,
		Text:     value,
		WrapText: true,
	}}
}

func paragraph(text string) entity.ChatCardWidget {
	return entity.ChatCardWidget{TextParagraph: &entity.ChatTextParagraph{Text: clean(text)}}
}

func clean(s string) string {
	return validator.SanitizeForExport(s)
}

func yesNo(v, ok bool) string {
	switch {
	case !ok:
		return notProvided
	case v:
		return "Yes"
	default:
		return "No"
	}
}

// splitOther separates "Other: text" into the choice label and the free text.
func splitOther(v string) (string, string) {
	if rest, ok := strings.CutPrefix(v, otherPrefix); ok {
		return "Other", strings.TrimSpace(rest)
	}
	return v, ""
}

func splitMulti(v string) []string {
	var out []string
	for _, item := range strings.Split(v, multiDelimiter) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
