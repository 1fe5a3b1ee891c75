package entity

import "maps"

// ResponseField is the logical name of one collected answer.
type ResponseField string

const (
	FieldBusiness                         ResponseField = "business"
	FieldAudience                         ResponseField = "audience"
	FieldGoals                            ResponseField = "goals"
	FieldPageType                         ResponseField = "pageType"
	FieldBrand                            ResponseField = "brand"
	FieldReferencesAndCompetitors         ResponseField = "referencesAndCompetitors"
	FieldRedesignCurrentURL               ResponseField = "redesignCurrentUrl"
	FieldRedesignReuseContent             ResponseField = "redesignReuseContent"
	FieldRedesignAudience                 ResponseField = "redesignAudience"
	FieldRedesignIssues                   ResponseField = "redesignIssues"
	FieldRedesignReferencesAndCompetitors ResponseField = "redesignReferencesAndCompetitors"
	FieldRedesignExtractedText            ResponseField = "redesignExtractedText"
)

// Responses is the answer set of the active flow. It never holds binary payloads.
type Responses struct {
	Text       map[ResponseField]string           `json:"text"`
	Flags      map[ResponseField]bool             `json:"flags"`
	References map[ResponseField][]ReferenceEntry `json:"references,omitempty"`

	ReferenceAnalyses []ReferenceAnalysis `json:"reference_analyses,omitempty"`

	// WaitingForOtherInput names the field awaiting free text after an "Other" choice.
	WaitingForOtherInput ResponseField `json:"waiting_for_other_input,omitempty"`
}

func NewResponses() Responses {
	return Responses{
		Text:       make(map[ResponseField]string),
		Flags:      make(map[ResponseField]bool),
		References: make(map[ResponseField][]ReferenceEntry),
	}
}

func (r *Responses) ensure() {
	if r.Text == nil {
		r.Text = make(map[ResponseField]string)
	}
	if r.Flags == nil {
		r.Flags = make(map[ResponseField]bool)
	}
	if r.References == nil {
		r.References = make(map[ResponseField][]ReferenceEntry)
	}
}

// Get returns the string value of a field and whether it was ever set.
func (r Responses) Get(f ResponseField) (string, bool) {
	v, ok := r.Text[f]
	return v, ok
}

func (r Responses) String(f ResponseField) string {
	return r.Text[f]
}

func (r *Responses) SetText(f ResponseField, v string) {
	r.ensure()
	r.Text[f] = v
}

func (r Responses) Bool(f ResponseField) (value bool, ok bool) {
	value, ok = r.Flags[f]
	return value, ok
}

func (r *Responses) SetBool(f ResponseField, v bool) {
	r.ensure()
	r.Flags[f] = v
}

func (r Responses) Entries(f ResponseField) []ReferenceEntry {
	return r.References[f]
}

func (r *Responses) SetEntries(f ResponseField, entries []ReferenceEntry) {
	r.ensure()
	r.References[f] = append([]ReferenceEntry(nil), entries...)
}

// Has reports whether a field holds any answer (string, flag or entries).
func (r Responses) Has(f ResponseField) bool {
	if _, ok := r.Text[f]; ok {
		return true
	}
	if _, ok := r.Flags[f]; ok {
		return true
	}
	_, ok := r.References[f]
	return ok
}

func (r Responses) Clone() Responses {
	c := Responses{
		Text:                 maps.Clone(r.Text),
		Flags:                maps.Clone(r.Flags),
		References:           make(map[ResponseField][]ReferenceEntry, len(r.References)),
		WaitingForOtherInput: r.WaitingForOtherInput,
	}
	if c.Text == nil {
		c.Text = make(map[ResponseField]string)
	}
	if c.Flags == nil {
		c.Flags = make(map[ResponseField]bool)
	}
	for k, v := range r.References {
		c.References[k] = append([]ReferenceEntry(nil), v...)
	}
	if r.ReferenceAnalyses != nil {
		c.ReferenceAnalyses = make([]ReferenceAnalysis, len(r.ReferenceAnalyses))
		for i, a := range r.ReferenceAnalyses {
			c.ReferenceAnalyses[i] = a.Clone()
		}
	}
	return c
}

// ReferenceEntry is one reference or competitor site submitted by the user.
type ReferenceEntry struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type ReferenceColor struct {
	Hex  string `json:"hex"`
	Type string `json:"type"`
}

// ReferenceAnalysis holds the design signals extracted from one reference site.
type ReferenceAnalysis struct {
	WebsiteURL         string           `json:"website_url"`
	UserLikesAboutThis string           `json:"user_likes_about_this"`
	LayoutNotes        string           `json:"layout_notes,omitempty"`
	TypographyNotes    string           `json:"typography_notes,omitempty"`
	InteractionNotes   string           `json:"interaction_notes,omitempty"`
	Colors             []ReferenceColor `json:"colors,omitempty"`
	ComponentsLiked    []string         `json:"components_liked,omitempty"`
	DesignPrinciples   []string         `json:"design_principles,omitempty"`
}

func (a ReferenceAnalysis) Clone() ReferenceAnalysis {
	c := a
	c.Colors = append([]ReferenceColor(nil), a.Colors...)
	c.ComponentsLiked = append([]string(nil), a.ComponentsLiked...)
	c.DesignPrinciples = append([]string(nil), a.DesignPrinciples...)
	return c
}
