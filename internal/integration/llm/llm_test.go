package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	pkghttp "github.com/futig/design-agent/pkg/http"
)

var opus = entity.ModelRef{Provider: entity.ProviderAnthropic, Model: "claude-opus-4-1"}

func anthropicConfig(url string) config.AnthropicConfig {
	return config.AnthropicConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			KeepAlive:             time.Second,
			IdleConnTimeout:       time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			Url:                   url,
		},
		APIKey:  "test-key",
		Version: "2023-06-01",
	}
}

func TestAnthropic_AnalyzeImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, anthropicMessagesPath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-opus-4-1", req.Model)
		assert.Equal(t, "be precise", req.System)
		assert.Equal(t, anthropicMaxOutputTokens, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "image", req.Messages[0].Content[0].Type)
		assert.Equal(t, "image/png", req.Messages[0].Content[0].Source.MediaType)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"a\":1}"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := NewAnthropicConnector(anthropicConfig(srv.URL), zap.NewNop())
	out, err := c.AnalyzeImage(context.Background(), entity.ImageRequest{Model: opus, System: "be precise", Prompt: "spec", Image: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestAnthropic_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      string
		retryable bool
	}{
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, "overloaded_error", true},
		{"rate limited", 429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, "rate_limit_error", true},
		{"unavailable", 503, `upstream down`, "HTTP_503", true},
		{"bad request", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`, "invalid_request_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewAnthropicConnector(anthropicConfig(srv.URL), zap.NewNop())
			_, err := c.GenerateText(context.Background(), entity.TextRequest{Model: opus, Prompt: "x"})

			var pe *entity.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.retryable, pe.Retryable)
		})
	}
}

func TestAnthropic_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := NewAnthropicConnector(anthropicConfig(srv.URL), zap.NewNop())
	_, err := c.GenerateText(context.Background(), entity.TextRequest{Model: opus, Prompt: "x"})

	var pe *entity.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, codeEmptyResponse, pe.Code)
	assert.False(t, pe.Retryable)
}

func TestMaxOutputTokens(t *testing.T) {
	assert.Equal(t, 64000, maxOutputTokens(0))
	assert.Equal(t, 64000, maxOutputTokens(4*100000))
	assert.Equal(t, 1000, maxOutputTokens(4*400000))
	assert.Equal(t, 397000-333000, maxOutputTokens(4*333000))
	assert.Equal(t, 20000, maxOutputTokens(4*377000))
}

func TestClassifyGemini(t *testing.T) {
	ctx := context.Background()

	var pe *entity.ProviderError
	require.ErrorAs(t, classifyGemini(ctx, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}), &pe)
	assert.True(t, pe.Retryable)
	assert.Equal(t, "RESOURCE_EXHAUSTED", pe.Code)

	require.ErrorAs(t, classifyGemini(ctx, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad"}), &pe)
	assert.False(t, pe.Retryable)

	require.ErrorAs(t, classifyGemini(ctx, errors.New("model is UNAVAILABLE")), &pe)
	assert.True(t, pe.Retryable)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, classifyGemini(canceled, context.Canceled), context.Canceled)
}

type fakeChat struct {
	params openai.ChatCompletionNewParams
	resp   *openai.ChatCompletion
	err    error
}

func (f *fakeChat) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = body
	return f.resp, f.err
}

func TestOpenAI_GenerateText(t *testing.T) {
	chat := &fakeChat{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "<html></html>"}}},
	}}
	c := &OpenAIConnector{chat: chat, logger: zap.NewNop()}

	out, err := c.GenerateText(context.Background(), entity.TextRequest{
		Model:  entity.ModelRef{Provider: entity.ProviderOpenAI, Model: "gpt-5"},
		System: "sys",
		Prompt: "page",
	})
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", out)
	assert.Equal(t, openai.ChatModel("gpt-5"), chat.params.Model)
	assert.Len(t, chat.params.Messages, 2)

	chat.resp = &openai.ChatCompletion{}
	_, err = c.GenerateText(context.Background(), entity.TextRequest{Prompt: "page"})
	var pe *entity.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, codeEmptyResponse, pe.Code)

	chat.err = errors.New("dial tcp: connection refused")
	_, err = c.GenerateText(context.Background(), entity.TextRequest{Prompt: "page"})
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable)
	assert.Equal(t, codeNetwork, pe.Code)
}

type stubProvider struct{ name string }

func (s stubProvider) GenerateText(context.Context, entity.TextRequest) (string, error) {
	return s.name, nil
}

func (s stubProvider) AnalyzeImage(context.Context, entity.ImageRequest) (string, error) {
	return s.name, nil
}

func TestRouter(t *testing.T) {
	r := NewRouter().
		Register(entity.ProviderAnthropic, stubProvider{"anthropic"}).
		Register(entity.ProviderGemini, stubProvider{"gemini"})

	out, err := r.GenerateText(context.Background(), entity.TextRequest{Model: opus})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", out)

	out, err = r.AnalyzeImage(context.Background(), entity.ImageRequest{Model: entity.ModelRef{Provider: entity.ProviderGemini, Model: "gemini-2.5-flash"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini", out)

	_, err = r.GenerateText(context.Background(), entity.TextRequest{Model: entity.ModelRef{Provider: entity.ProviderOpenAI, Model: "gpt-5"}})
	var pe *entity.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Retryable)
}

func TestClassifyAnthropic_Network(t *testing.T) {
	err := classifyAnthropic(context.Background(), &pkghttp.NetworkError{Err: errors.New("connection refused")})
	var pe *entity.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable)
	assert.Equal(t, codeNetwork, pe.Code)
}
