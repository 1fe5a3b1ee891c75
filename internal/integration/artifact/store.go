package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
)

const htmlObjectName = "page.html"

// Store archives screenshots and generated pages in an S3 compatible bucket under <session_id>/.
type Store struct {
	client   *minio.Client
	bucket   string
	logger   *zap.Logger
	initOnce sync.Once
	initErr  error
}

func NewStore(cfg config.ArtifactConfig, logger *zap.Logger) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("artifact endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("artifact access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("artifact bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &Store{
		client: client,
		bucket: strings.TrimSpace(cfg.Bucket),
		logger: logger,
	}, nil
}

func (s *Store) SaveScreenshot(ctx context.Context, sessionID, name string, png []byte) error {
	return s.put(ctx, sessionID, path.Join("screenshots", name), png, "image/png")
}

func (s *Store) SaveHTML(ctx context.Context, sessionID, html string) error {
	return s.put(ctx, sessionID, htmlObjectName, []byte(html), "text/html; charset=utf-8")
}

func (s *Store) put(ctx context.Context, sessionID, name string, content []byte, contentType string) error {
	key, err := objectKey(sessionID, name)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	ctxzap.Debug(ctx, "artifact archived",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(content)),
	)
	return nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})
	return s.initErr
}

// objectKey keeps every object inside the session prefix.
func objectKey(sessionID, name string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.ContainsAny(sessionID, "/\\") {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	clean := path.Clean("/" + strings.TrimSpace(name))
	if clean == "/" {
		return "", fmt.Errorf("object name is required")
	}
	return sessionID + clean, nil
}
