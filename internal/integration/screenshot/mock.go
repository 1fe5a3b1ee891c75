package screenshot

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
)

// MockConnector returns a small solid PNG for every URL.
type MockConnector struct {
	logger *zap.Logger
	image  []byte
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for x := 0; x < 16; x++ {
		for y := 0; y < 9; y++ {
			img.Set(x, y, color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff})
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)

	return &MockConnector{logger: logger, image: buf.Bytes()}
}

func (m *MockConnector) Capture(ctx context.Context, pageURL string, extractText bool) (*entity.Screenshot, error) {
	ctxzap.Info(ctx, "[MOCK] capturing screenshot", zap.String("url", pageURL))

	shot := &entity.Screenshot{URL: pageURL, Image: m.image}
	if extractText {
		shot.Text = "Welcome to our website. We build things people love."
	}
	return shot, nil
}
