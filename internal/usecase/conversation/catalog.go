package conversation

import (
	"fmt"

	"github.com/futig/design-agent/internal/entity"
)

type InputKind string

const (
	InputText         InputKind = "text"
	InputURL          InputKind = "url"
	InputSingleChoice InputKind = "single_choice"
	InputMultiChoice  InputKind = "multi_choice"
	InputYesNo        InputKind = "yes_no"
	InputEntries      InputKind = "entries"
)

// OtherTexts are the prompts used while waiting for the free text behind an "Other" choice.
type OtherTexts struct {
	Prompt string
	Again  string
	Empty  string
}

// SkipRule decides from earlier answers whether a question is skipped.
type SkipRule func(entity.Responses) bool

// Question is an immutable catalog entry.
type Question struct {
	Phase       entity.WorkflowPhase
	Field       entity.ResponseField
	Prompt      string
	Kind        InputKind
	Options     []string
	Placeholder string
	// EmptyMessage re-prompts after an empty or missing answer.
	EmptyMessage string
	// NoneOption is a quick option that stores an empty answer.
	NoneOption string
	Other      *OtherTexts
	DoneOption string
	Skip       SkipRule
}

func (q Question) HasOther() bool {
	return q.Other != nil
}

// Catalog is the ordered question list of every flow. It is never mutated after construction.
type Catalog struct {
	flows   map[entity.Flow][]Question
	byPhase map[entity.WorkflowPhase]lookupKey
}

type lookupKey struct {
	flow  entity.Flow
	index int
}

func NewCatalog(flows map[entity.Flow][]Question) *Catalog {
	c := &Catalog{
		flows:   make(map[entity.Flow][]Question, len(flows)),
		byPhase: make(map[entity.WorkflowPhase]lookupKey),
	}
	for flow, questions := range flows {
		c.flows[flow] = append([]Question(nil), questions...)
		for i, q := range questions {
			c.byPhase[q.Phase] = lookupKey{flow: flow, index: i}
		}
	}
	return c
}

// Len returns the number of declared questions of a flow.
func (c *Catalog) Len(flow entity.Flow) int {
	return len(c.flows[flow])
}

// At returns the question at index, or a FlowIntegrityError.
func (c *Catalog) At(flow entity.Flow, index int) (Question, error) {
	questions := c.flows[flow]
	if index < 0 || index >= len(questions) {
		return Question{}, &entity.FlowIntegrityError{
			Flow:   flow,
			Index:  index,
			Reason: fmt.Sprintf("no question at index (flow has %d)", len(questions)),
		}
	}
	return questions[index], nil
}

// Question resolves (flow, phase). A miss is a FlowIntegrityError and must not be ignored.
func (c *Catalog) Question(flow entity.Flow, phase entity.WorkflowPhase) (Question, error) {
	key, ok := c.byPhase[phase]
	if !ok || key.flow != flow {
		return Question{}, &entity.FlowIntegrityError{
			Flow:   flow,
			Index:  -1,
			Reason: fmt.Sprintf("phase %s is not part of flow", phase),
		}
	}
	return c.flows[flow][key.index], nil
}

// DefaultCatalog returns the production questionnaire.
// Every skip rule is nil: the mechanism is kept for conditional questions.
func DefaultCatalog() *Catalog {
	const (
		audienceQuestion    = "Tell us about your main target audiences — like their gender, where they're located, and their age group"
		audiencePlaceholder = "Describe your target audience..."
		referencesQuestion  = "Could you share links to your top 3 reference or competitor websites, briefly explaining which design elements you would like us to review (e.g., layout, navigation, typography)?"
		referencesHint      = "Paste webpage URLs here (e.g., https://example.com)..."
	)

	return NewCatalog(map[entity.Flow][]Question{
		entity.FlowNewWebsite: {
			{
				Phase:        entity.PhaseNewWebsiteBusiness,
				Field:        entity.FieldBusiness,
				Prompt:       "Great! In one or two lines, what does your business or project do?",
				Kind:         InputText,
				Placeholder:  "Tell me about your business...",
				EmptyMessage: msgEmptyBusiness,
			},
			{
				Phase:        entity.PhaseNewWebsiteAudience,
				Field:        entity.FieldAudience,
				Prompt:       audienceQuestion,
				Kind:         InputText,
				Placeholder:  audiencePlaceholder,
				EmptyMessage: msgEmptyAudience,
			},
			{
				Phase:        entity.PhaseNewWebsiteGoals,
				Field:        entity.FieldGoals,
				Prompt:       "What are the top 3 goals for your new webpage?",
				Kind:         InputText,
				Placeholder:  "e.g., Generate leads, Showcase products, Build brand awareness...",
				EmptyMessage: msgEmptyGoals,
			},
			{
				Phase:        entity.PhaseNewWebsitePageType,
				Field:        entity.FieldPageType,
				Prompt:       "Which page do you want to create? (Landing page, Contact page, etc.)",
				Kind:         InputSingleChoice,
				Options:      []string{"Home Page", "Landing Page", "Product Page", "Service Page", "Portfolio Page", OptionOther},
				EmptyMessage: msgEmptyPageType,
				Other: &OtherTexts{
					Prompt: msgOtherPageType,
					Again:  msgOtherPageAgain,
					Empty:  msgOtherPageEmpty,
				},
			},
			{
				Phase:        entity.PhaseNewWebsiteBrand,
				Field:        entity.FieldBrand,
				Prompt:       "Do you have any existing design rules regarding colors, fonts, or styling?",
				Kind:         InputText,
				Options:      []string{OptionNone},
				Placeholder:  "Enter color code (e.g., #FF5733), font name (e.g., Roboto), or styling notes...",
				EmptyMessage: msgEmptyBrand,
				NoneOption:   OptionNone,
			},
			{
				Phase:        entity.PhaseNewWebsiteReferencesAndCompetitors,
				Field:        entity.FieldReferencesAndCompetitors,
				Prompt:       referencesQuestion,
				Kind:         InputEntries,
				Placeholder:  referencesHint,
				EmptyMessage: msgUseReferences,
				NoneOption:   OptionNone,
			},
		},
		entity.FlowRedesign: {
			{
				Phase:        entity.PhaseRedesignCurrentURL,
				Field:        entity.FieldRedesignCurrentURL,
				Prompt:       "What is your current webpage URL (if you have one)?",
				Kind:         InputURL,
				Placeholder:  "Paste your webpage URL here...",
				EmptyMessage: msgBadCurrentURL,
			},
			{
				Phase:   entity.PhaseRedesignReuseContent,
				Field:   entity.FieldRedesignReuseContent,
				Prompt:  "Would you like to reuse the existing content from your webpage?",
				Kind:    InputYesNo,
				Options: []string{OptionYes, OptionNo},
			},
			{
				Phase:        entity.PhaseRedesignAudience,
				Field:        entity.FieldRedesignAudience,
				Prompt:       audienceQuestion,
				Kind:         InputText,
				Placeholder:  audiencePlaceholder,
				EmptyMessage: msgEmptyAudience,
			},
			{
				Phase:  entity.PhaseRedesignIssues,
				Field:  entity.FieldRedesignIssues,
				Prompt: "From your perspective, which of these best describes what is not working with your current webpage? You can select multiple options and then tap \"Done selecting issues\" when you're finished.",
				Kind:   InputMultiChoice,
				Options: []string{
					"It isn't generating enough leads or sales",
					"The design is outdated or doesn't fit our brand",
					"It provides a poor experience on mobile devices",
					"The site feels slow, clunky, or unresponsive",
					"It is too difficult for us to update content",
					OptionOther,
				},
				EmptyMessage: msgEmptyIssues,
				DoneOption:   OptionDoneIssues,
				Other: &OtherTexts{
					Prompt: msgOtherIssues,
					Again:  msgOtherIssueAgain,
					Empty:  msgOtherIssueEmpty,
				},
			},
			{
				Phase:        entity.PhaseRedesignReferencesAndCompetitors,
				Field:        entity.FieldRedesignReferencesAndCompetitors,
				Prompt:       referencesQuestion,
				Kind:         InputEntries,
				Placeholder:  referencesHint,
				EmptyMessage: msgUseReferences,
				NoneOption:   OptionNone,
			},
		},
	})
}
