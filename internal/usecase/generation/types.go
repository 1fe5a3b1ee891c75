package generation

import (
	"context"

	"github.com/futig/design-agent/internal/entity"
)

// Request is the immutable input of one generation run.
type Request struct {
	SessionID string
	Flow      entity.Flow
	Responses entity.Responses
}

// Result is what the run produced. On failure Stage is the stage that failed.
type Result struct {
	Success          bool
	IntegrityFailure bool
	Stage            entity.GenerationStage

	Specification     string
	HTML              string
	AuditIssues       []string
	ReferenceAnalyses []entity.ReferenceAnalysis
	ExtractedText     string

	Err error
}

// Sink receives progress and transcript messages while a run is in flight.
type Sink interface {
	Progress(ctx context.Context, p entity.Progress)
	Append(ctx context.Context, m entity.Message)
}
