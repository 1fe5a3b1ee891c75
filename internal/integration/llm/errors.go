package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/futig/design-agent/internal/entity"
	pkghttp "github.com/futig/design-agent/pkg/http"
)

const (
	codeInvalidResponse = "INVALID_RESPONSE"
	codeEmptyResponse   = "EMPTY_RESPONSE"
	codeNetwork         = "NETWORK_ERROR"
)

var retryableAnthropicTypes = map[string]bool{
	"overloaded_error": true,
	"rate_limit_error": true,
	"api_error":        true,
}

var retryableGeminiMarkers = []string{"503", "unavailable", "quota", "rate limit", "network", "timeout"}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusServiceUnavailable
}

func emptyResponse(provider string) error {
	return &entity.ProviderError{
		Provider: provider,
		Message:  "empty response",
		Code:     codeEmptyResponse,
	}
}

// classifyAnthropic maps connector failures and Anthropic error bodies onto ProviderError.
func classifyAnthropic(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}

	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return &entity.ProviderError{Provider: string(entity.ProviderAnthropic), Message: err.Error(), Code: codeNetwork, Retryable: true, Err: err}
	}

	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		errType, message := parseAnthropicError(httpErr.Message)
		code := errType
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", httpErr.StatusCode)
		}
		return &entity.ProviderError{
			Provider:  string(entity.ProviderAnthropic),
			Message:   message,
			Code:      code,
			Retryable: retryableStatus(httpErr.StatusCode) || retryableAnthropicTypes[errType],
			Err:       err,
		}
	}

	return &entity.ProviderError{Provider: string(entity.ProviderAnthropic), Message: err.Error(), Err: err}
}

// classifyGemini treats 429, 5xx and transient sounding messages as retryable.
func classifyGemini(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}

	pe := &entity.ProviderError{Provider: string(entity.ProviderGemini), Message: err.Error(), Err: err}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		pe.Code = apiErr.Status
		pe.Retryable = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	case errors.As(err, &apiErrPtr):
		pe.Code = apiErrPtr.Status
		pe.Retryable = apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}

	if !pe.Retryable {
		lower := strings.ToLower(err.Error())
		for _, marker := range retryableGeminiMarkers {
			if strings.Contains(lower, marker) {
				pe.Retryable = true
				break
			}
		}
	}
	return pe
}

func classifyOpenAI(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}

	pe := &entity.ProviderError{Provider: string(entity.ProviderOpenAI), Message: err.Error(), Err: err}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		pe.Code = fmt.Sprintf("HTTP_%d", apiErr.StatusCode)
		pe.Retryable = retryableStatus(apiErr.StatusCode)
		return pe
	}

	// transport failures never produced a status code
	pe.Code = codeNetwork
	pe.Retryable = true
	return pe
}
