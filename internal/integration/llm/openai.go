package llm

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
)

// chatService is the part of the openai client used here, replaceable in tests.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type OpenAIConnector struct {
	chat   chatService
	logger *zap.Logger
}

func NewOpenAIConnector(apiKey, baseURL string, logger *zap.Logger) *OpenAIConnector {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIConnector{chat: &client.Chat.Completions, logger: logger}
}

func (c *OpenAIConnector) GenerateText(ctx context.Context, req entity.TextRequest) (string, error) {
	return c.complete(ctx, req.Model.Model, req.System, openai.UserMessage(req.Prompt))
}

func (c *OpenAIConnector) AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Image)
	user := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	})
	return c.complete(ctx, req.Model.Model, req.System, user)
}

func (c *OpenAIConnector) complete(ctx context.Context, model, system string, user openai.ChatCompletionMessageParamUnion) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, user)

	ctxzap.Info(ctx, "calling openai", zap.String("model", model))

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	})
	if err != nil {
		return "", classifyOpenAI(ctx, err)
	}

	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", emptyResponse(string(entity.ProviderOpenAI))
	}

	text := resp.Choices[0].Message.Content
	ctxzap.Info(ctx, "openai response received",
		zap.String("model", model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("result_length", len(text)),
	)
	return text, nil
}
