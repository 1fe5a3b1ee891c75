package screenshot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/integration/common"
	pkghttp "github.com/futig/design-agent/pkg/http"
)

const (
	apiFlashBaseURL  = "https://api.apiflash.com"
	apiFlashEndpoint = "/v1/urltoimage"
	providerName     = "apiflash"

	// full page captures of long landing pages run to tens of megabytes
	maxImageSize = 48 << 20
)

// textCaptureResponse is returned when response_type=json is requested.
type textCaptureResponse struct {
	URL           string `json:"url"`
	ExtractedText string `json:"extracted_text"`
}

// Connector captures full page PNG screenshots through APIFlash.
// Successful captures are kept in an LRU cache keyed by URL and text mode.
type Connector struct {
	config    config.ScreenshotConfig
	connector *pkghttp.Connector
	cache     *lru.Cache[string, *entity.Screenshot]
	logger    *zap.Logger
}

func NewConnector(cfg config.ScreenshotConfig, logger *zap.Logger) (*Connector, error) {
	if cfg.Url == "" {
		cfg.Url = apiFlashBaseURL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1
	}

	cache, err := lru.New[string, *entity.Screenshot](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create screenshot cache: %w", err)
	}

	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger, pkghttp.WithMaxResponseSize(maxImageSize)),
		cache:     cache,
		logger:    logger,
	}, nil
}

// Capture returns a screenshot of pageURL. With extractText the visible text is fetched too;
// a failed text fetch still returns the image.
func (c *Connector) Capture(ctx context.Context, pageURL string, extractText bool) (*entity.Screenshot, error) {
	key := cacheKey(pageURL, extractText)
	if shot, ok := c.cache.Get(key); ok {
		ctxzap.Debug(ctx, "screenshot served from cache", zap.String("url", pageURL))
		return shot, nil
	}

	ctxzap.Info(ctx, "capturing screenshot",
		zap.String("url", pageURL),
		zap.Bool("extract_text", extractText),
	)

	var (
		shot *entity.Screenshot
		err  error
	)
	if extractText {
		shot, err = c.captureWithText(ctx, pageURL)
	} else {
		shot, err = c.captureImage(ctx, pageURL)
	}
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, shot)

	ctxzap.Info(ctx, "screenshot captured",
		zap.String("url", pageURL),
		zap.Int("image_size", len(shot.Image)),
		zap.Int("text_length", len(shot.Text)),
	)
	return shot, nil
}

func (c *Connector) captureImage(ctx context.Context, pageURL string) (*entity.Screenshot, error) {
	raw, err := c.connector.DoRaw(ctx, http.MethodGet, apiFlashEndpoint, nil,
		append(c.queryOpts(pageURL), pkghttp.WithAccept("image/png"))...,
	)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(raw.Body) == 0 {
		return nil, &entity.ProviderError{Provider: providerName, Message: "empty image", Code: "EMPTY_RESPONSE"}
	}

	return &entity.Screenshot{URL: pageURL, Image: raw.Body}, nil
}

func (c *Connector) captureWithText(ctx context.Context, pageURL string) (*entity.Screenshot, error) {
	opts := append(c.queryOpts(pageURL),
		pkghttp.WithQuery("extract_text", "true"),
		pkghttp.WithQuery("response_type", "json"),
	)

	var resp textCaptureResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, apiFlashEndpoint, nil, &resp, opts...); err != nil {
		return nil, classify(ctx, err)
	}
	if resp.URL == "" {
		return nil, &entity.ProviderError{Provider: providerName, Message: "missing image url", Code: "INVALID_RESPONSE"}
	}

	image, err := c.connector.DoRaw(ctx, http.MethodGet, "", nil, pkghttp.WithURL(resp.URL), pkghttp.WithAccept("image/png"))
	if err != nil {
		return nil, classify(ctx, err)
	}

	shot := &entity.Screenshot{URL: pageURL, Image: image.Body}

	if resp.ExtractedText != "" {
		text, err := c.connector.DoRaw(ctx, http.MethodGet, "", nil, pkghttp.WithURL(resp.ExtractedText), pkghttp.WithAccept("text/plain"))
		if err != nil {
			ctxzap.Warn(ctx, "failed to fetch extracted text", zap.Error(err))
		} else {
			shot.Text = strings.TrimSpace(string(text.Body))
		}
	}

	return shot, nil
}

func (c *Connector) queryOpts(pageURL string) []pkghttp.RequestOpt {
	return []pkghttp.RequestOpt{
		pkghttp.WithQuery("access_key", c.config.AccessKey),
		pkghttp.WithQuery("url", pageURL),
		pkghttp.WithQuery("format", "png"),
		pkghttp.WithQuery("width", strconv.Itoa(c.config.Width)),
		pkghttp.WithQuery("height", strconv.Itoa(c.config.Height)),
		pkghttp.WithQuery("full_page", "true"),
		pkghttp.WithQuery("fresh", "true"),
		pkghttp.WithQuery("delay", strconv.Itoa(c.config.DelaySecs)),
		pkghttp.WithQuery("scroll_page", "true"),
		pkghttp.WithQuery("no_cookie_banners", "true"),
		pkghttp.WithQuery("no_ads", "true"),
		pkghttp.WithQuery("no_tracking", "true"),
		pkghttp.WithQuery("scale_factor", "1"),
		pkghttp.WithQuery("wait_until", "page_loaded"),
	}
}

func cacheKey(pageURL string, extractText bool) string {
	if extractText {
		return "text|" + pageURL
	}
	return "image|" + pageURL
}
