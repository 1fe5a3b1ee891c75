package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/integration/common"
	pkghttp "github.com/futig/design-agent/pkg/http"
)

const (
	anthropicBaseURL         = "https://api.anthropic.com"
	anthropicMessagesPath    = "/v1/messages"
	anthropicContextWindow   = 400000
	anthropicMaxOutputTokens = 64000
	anthropicMinOutputTokens = 1000
	anthropicReservedTokens  = 3000
)

type anthropicContent struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnthropicConnector calls the Messages API over the shared HTTP connector.
type AnthropicConnector struct {
	config    config.AnthropicConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewAnthropicConnector(cfg config.AnthropicConfig, logger *zap.Logger) *AnthropicConnector {
	if cfg.Url == "" {
		cfg.Url = anthropicBaseURL
	}
	return &AnthropicConnector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger, pkghttp.WithAPIKey("x-api-key", cfg.APIKey)),
		config:    cfg,
		logger:    logger,
	}
}

func (c *AnthropicConnector) GenerateText(ctx context.Context, req entity.TextRequest) (string, error) {
	return c.send(ctx, req.Model.Model, req.System, []anthropicContent{
		{Type: "text", Text: req.Prompt},
	}, len(req.Prompt))
}

func (c *AnthropicConnector) AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error) {
	return c.send(ctx, req.Model.Model, req.System, []anthropicContent{
		{
			Type: "image",
			Source: &anthropicImageSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(req.Image),
			},
		},
		{Type: "text", Text: req.Prompt},
	}, len(req.Prompt))
}

func (c *AnthropicConnector) send(ctx context.Context, model, system string, content []anthropicContent, promptLen int) (string, error) {
	body := anthropicRequest{
		Model:     model,
		MaxTokens: maxOutputTokens(promptLen),
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
	}

	ctxzap.Info(ctx, "calling anthropic",
		zap.String("model", model),
		zap.Int("max_tokens", body.MaxTokens),
	)

	var resp anthropicResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, anthropicMessagesPath, body, &resp,
		pkghttp.WithHeader("anthropic-version", c.config.Version),
	)
	if err != nil {
		return "", classifyAnthropic(ctx, err)
	}

	var text strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", emptyResponse(string(entity.ProviderAnthropic))
	}

	ctxzap.Info(ctx, "anthropic response received",
		zap.String("model", model),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("result_length", text.Len()),
	)
	return text.String(), nil
}

// maxOutputTokens leaves room for the prompt in the context window: len/4 approximates its token count.
func maxOutputTokens(promptLen int) int {
	budget := anthropicContextWindow - promptLen/4 - anthropicReservedTokens
	return min(anthropicMaxOutputTokens, max(anthropicMinOutputTokens, budget))
}

func parseAnthropicError(body string) (errType, message string) {
	var parsed anthropicErrorBody
	if err := json.Unmarshal([]byte(body), &parsed); err != nil || parsed.Error.Type == "" {
		return "", body
	}
	return parsed.Error.Type, parsed.Error.Message
}
