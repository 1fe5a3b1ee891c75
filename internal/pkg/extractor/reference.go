package extractor

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/futig/design-agent/internal/entity"
)

//go:embed schemas/*.json
var schemasFS embed.FS

// ReferenceValidator checks vision model output for reference sites against the embedded schema.
type ReferenceValidator struct {
	schema *jsonschema.Schema
}

func NewReferenceValidator() (*ReferenceValidator, error) {
	data, err := schemasFS.ReadFile("schemas/reference_analysis.schema.json")
	if err != nil {
		return nil, fmt.Errorf("read reference schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal reference schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("reference_analysis.json", doc); err != nil {
		return nil, fmt.Errorf("add reference schema: %w", err)
	}

	schema, err := c.Compile("reference_analysis.json")
	if err != nil {
		return nil, fmt.Errorf("compile reference schema: %w", err)
	}

	return &ReferenceValidator{schema: schema}, nil
}

// Parse extracts, validates and decodes a reference analysis from a model response.
func (v *ReferenceValidator) Parse(response string) (*entity.ReferenceAnalysis, error) {
	raw, err := JSON(response)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse reference json: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("reference json does not match schema: %w", err)
	}

	var analysis entity.ReferenceAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("decode reference json: %w", err)
	}

	return &analysis, nil
}
