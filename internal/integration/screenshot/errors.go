package screenshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/futig/design-agent/internal/entity"
	pkghttp "github.com/futig/design-agent/pkg/http"
)

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}

	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return &entity.ProviderError{Provider: providerName, Message: err.Error(), Code: "NETWORK_ERROR", Retryable: true, Err: err}
	}

	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return &entity.ProviderError{
			Provider:  providerName,
			Message:   httpErr.Message,
			Code:      fmt.Sprintf("HTTP_%d", httpErr.StatusCode),
			Retryable: httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError,
			Err:       err,
		}
	}

	return &entity.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
}
