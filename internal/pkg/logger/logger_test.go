package logger

import (
	"context"
	"testing"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsFollowContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := ctxzap.ToContext(context.Background(), zap.New(core))

	ctx = WithAction(WithSession(ctx, "s1"), "SubmitText")
	ctxzap.Info(ctx, "answer stored")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "s1", fields["session_id"])
	assert.Equal(t, "SubmitText", fields["action"])
}

func TestDetach(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	parent, cancel := context.WithTimeout(ctxzap.ToContext(context.Background(), zap.New(core)), time.Millisecond)
	cancel()

	ctx := Detach(WithSession(parent, "s1"), zap.String("task", "generate"))
	assert.NoError(t, ctx.Err())

	ctxzap.Info(ctx, "running")
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "s1", fields["session_id"])
	assert.Equal(t, "generate", fields["task"])
}
