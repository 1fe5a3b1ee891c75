package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		session string
		name    string
		want    string
		wantErr bool
	}{
		{session: "1700000000000-abcd1234", name: "page.html", want: "1700000000000-abcd1234/page.html"},
		{session: "s1", name: "screenshots/current.png", want: "s1/screenshots/current.png"},
		{session: "s1", name: "../../etc/passwd", want: "s1/etc/passwd"},
		{session: "", name: "page.html", wantErr: true},
		{session: "a/b", name: "page.html", wantErr: true},
		{session: "s1", name: "  ", wantErr: true},
	}

	for _, tt := range tests {
		got, err := objectKey(tt.session, tt.name)
		if tt.wantErr {
			assert.Error(t, err, "%q %q", tt.session, tt.name)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(config.ArtifactConfig{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewStore(config.ArtifactConfig{Endpoint: "localhost:9000", Bucket: "b"}, zap.NewNop())
	assert.Error(t, err)

	s, err := NewStore(config.ArtifactConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "pages"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "pages", s.bucket)
}
