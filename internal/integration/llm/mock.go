package llm

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
)

const mockSpecification = `{
  "page_type": "Landing Page",
  "goal": "Collect orders",
  "sections": [
    {"id": "hero", "purpose": "State the offer", "content": ["headline", "subheadline", "primary CTA"]},
    {"id": "features", "purpose": "Explain the value", "content": ["three feature cards"]},
    {"id": "footer", "purpose": "Contact details", "content": ["address", "links"]}
  ],
  "visual_direction": {"palette": ["#1F2937", "#F59E0B", "#FFFFFF"], "typography": "Serif headings, sans-serif body"}
}`

const mockHTML = "```html\n" + `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mock page</title>
<style>body{font-family:sans-serif;margin:0}header{padding:4rem 2rem;background:#1F2937;color:#fff}</style>
</head>
<body>
<header><h1>Mock page</h1><p>Generated without calling a model.</p><a href="#">Get started</a></header>
</body>
</html>` + "\n```"

const mockAudit = `HIGH IMPACT:
1. The hero section has no clear call to action
2. Body text contrast is too low on the light background
3. Navigation collapses poorly on small screens`

const mockReference = `{
  "website_url": "https://example.com",
  "user_likes_about_this": "Clean layout",
  "layout_notes": "Generous whitespace with a two column hero",
  "components_liked": ["sticky header", "pricing table"]
}`

// MockConnector answers every request with canned content, recognised by the prompt kind.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) GenerateText(ctx context.Context, req entity.TextRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] text generation", zap.String("model", req.Model.String()))

	if strings.Contains(req.System, "frontend") {
		return mockHTML, nil
	}
	return mockSpecification, nil
}

func (m *MockConnector) AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] vision request", zap.String("model", req.Model.String()))

	switch {
	case req.System != "":
		return mockSpecification, nil
	case strings.Contains(req.Prompt, "auditing"):
		return mockAudit, nil
	default:
		return mockReference, nil
	}
}
