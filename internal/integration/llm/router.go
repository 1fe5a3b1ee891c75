package llm

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
)

// Provider is one model vendor. Model selection happens per request.
type Provider interface {
	GenerateText(ctx context.Context, req entity.TextRequest) (string, error)
	AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error)
}

// Router dispatches requests to the provider named by the model reference.
type Router struct {
	providers map[entity.Provider]Provider
}

func NewRouter() *Router {
	return &Router{providers: make(map[entity.Provider]Provider)}
}

// Register adds or replaces the provider for name. A nil provider is ignored.
func (r *Router) Register(name entity.Provider, p Provider) *Router {
	if p != nil {
		r.providers[name] = p
	}
	return r
}

func (r *Router) GenerateText(ctx context.Context, req entity.TextRequest) (string, error) {
	p, err := r.provider(req.Model)
	if err != nil {
		return "", err
	}

	ctxzap.Debug(ctx, "text generation request",
		zap.String("model", req.Model.String()),
		zap.Int("prompt_length", len(req.Prompt)),
	)
	return p.GenerateText(ctx, req)
}

func (r *Router) AnalyzeImage(ctx context.Context, req entity.ImageRequest) (string, error) {
	p, err := r.provider(req.Model)
	if err != nil {
		return "", err
	}

	ctxzap.Debug(ctx, "vision request",
		zap.String("model", req.Model.String()),
		zap.Int("image_size", len(req.Image)),
	)
	return p.AnalyzeImage(ctx, req)
}

func (r *Router) provider(model entity.ModelRef) (Provider, error) {
	p, ok := r.providers[model.Provider]
	if !ok {
		return nil, &entity.ProviderError{
			Provider: string(model.Provider),
			Message:  fmt.Sprintf("provider %q is not configured", model.Provider),
			Code:     "NOT_CONFIGURED",
		}
	}
	return p, nil
}
