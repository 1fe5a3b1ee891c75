package entity

import (
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

func (p Provider) Validate() error {
	switch p {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		return nil
	default:
		return fmt.Errorf("unknown provider: %q", string(p))
	}
}

// ModelRef addresses one model of one provider, written as "provider:model".
type ModelRef struct {
	Provider Provider
	Model    string
}

func ParseModelRef(s string) (ModelRef, error) {
	provider, model, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || model == "" {
		return ModelRef{}, fmt.Errorf("%w: model ref %q must be provider:model", ErrInvalidFormat, s)
	}
	ref := ModelRef{Provider: Provider(strings.ToLower(provider)), Model: model}
	if err := ref.Provider.Validate(); err != nil {
		return ModelRef{}, err
	}
	return ref, nil
}

func (m *ModelRef) UnmarshalText(text []byte) error {
	ref, err := ParseModelRef(string(text))
	if err != nil {
		return err
	}
	*m = ref
	return nil
}

func (m ModelRef) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m ModelRef) String() string {
	if m.Provider == "" && m.Model == "" {
		return ""
	}
	return string(m.Provider) + ":" + m.Model
}

func (m ModelRef) IsZero() bool {
	return m.Model == ""
}

// TextRequest is a single text generation call.
type TextRequest struct {
	Model  ModelRef
	System string
	Prompt string
	// Search enables grounding with web search where the provider supports it.
	Search bool
}

// ImageRequest is a single vision call over one PNG image.
type ImageRequest struct {
	Model  ModelRef
	System string
	Prompt string
	Image  []byte
}

// Screenshot is a transient capture result. It is never stored in Responses.
type Screenshot struct {
	URL   string
	Image []byte
	Text  string
}
