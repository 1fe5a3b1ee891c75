package generation

import (
	"context"

	"github.com/futig/design-agent/internal/entity"
)

// LLM routes text and vision calls to the provider named by the model reference.
type LLM interface {
	GenerateText(ctx context.Context, req entity.TextRequest) (string, error)
	AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error)
}

type Screenshotter interface {
	Capture(ctx context.Context, url string, extractText bool) (*entity.Screenshot, error)
}

// ArtifactStore archives generated files. Failures never affect the run.
type ArtifactStore interface {
	SaveScreenshot(ctx context.Context, sessionID, name string, png []byte) error
	SaveHTML(ctx context.Context, sessionID, html string) error
}

type ReferenceParser interface {
	Parse(response string) (*entity.ReferenceAnalysis, error)
}
