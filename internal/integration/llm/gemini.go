package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/futig/design-agent/internal/entity"
)

const (
	geminiTemperature float32 = 1.0
	geminiTopP        float32 = 0.95
)

// GeminiConnector wraps the official genai client. Text calls are grounded with Google Search.
type GeminiConnector struct {
	client *genai.Client
	logger *zap.Logger
}

func NewGeminiConnector(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiConnector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiConnector{client: client, logger: logger}, nil
}

func (c *GeminiConnector) GenerateText(ctx context.Context, req entity.TextRequest) (string, error) {
	cfg := c.generationConfig(req.System)
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	return c.generate(ctx, req.Model.Model, []*genai.Part{{Text: req.Prompt}}, cfg)
}

func (c *GeminiConnector) AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error) {
	parts := []*genai.Part{
		{Text: req.Prompt},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: req.Image}},
	}
	return c.generate(ctx, req.Model.Model, parts, c.generationConfig(req.System))
}

func (c *GeminiConnector) generationConfig(system string) *genai.GenerateContentConfig {
	temperature, topP := geminiTemperature, geminiTopP
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
		TopP:        &topP,
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return cfg
}

func (c *GeminiConnector) generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (string, error) {
	ctxzap.Info(ctx, "calling gemini", zap.String("model", model))

	resp, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		cfg,
	)
	if err != nil {
		return "", classifyGemini(ctx, err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse(string(entity.ProviderGemini))
	}

	ctxzap.Info(ctx, "gemini response received",
		zap.String("model", model),
		zap.Int("result_length", len(text)),
	)
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
