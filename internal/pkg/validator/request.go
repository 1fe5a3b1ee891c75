package validator

import (
	"fmt"
	"strings"

	"github.com/futig/design-agent/internal/entity"
)

const maxClientIDLength = 128

// Validator validates transport level requests before they reach the controller.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateClientID(clientID string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return fmt.Errorf("%w: client_id", entity.ErrMissingField)
	}
	if len(clientID) > maxClientIDLength {
		return fmt.Errorf("%w: client_id is too long", entity.ErrInvalidParameter)
	}
	return nil
}

func (v *Validator) ValidateRating(req *entity.SubmitRatingRequest) error {
	if req.Score < 1 || req.Score > 5 {
		return fmt.Errorf("%w: score must be between 1 and 5", entity.ErrInvalidParameter)
	}
	return nil
}

func (v *Validator) ValidateReferences(req *entity.SubmitReferencesRequest) error {
	if req.None && len(req.Entries) > 0 {
		return fmt.Errorf("%w: entries must be empty when none is set", entity.ErrInvalidParameter)
	}
	if !req.None && len(req.Entries) == 0 {
		return fmt.Errorf("%w: entries", entity.ErrMissingField)
	}
	if len(req.Entries) > MaxReferenceEntries {
		return fmt.Errorf("%w: at most %d references", entity.ErrInvalidParameter, MaxReferenceEntries)
	}
	return nil
}

func (v *Validator) ValidateFormat(format entity.ResultFormat) error {
	if !format.IsValid() {
		return fmt.Errorf("%w: format must be markdown, docx or pdf", entity.ErrInvalidParameter)
	}
	return nil
}
