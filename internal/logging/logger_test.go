package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Defaults(t *testing.T) {
	l, err := NewLogger(nil)
	require.NoError(t, err)
	require.True(t, l.Enabled(zapcore.InfoLevel))
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	require.Error(t, err)
}

func TestLogger_WithAndNamed(t *testing.T) {
	l := NewNop()
	child := l.With().Named("sub")
	require.NotNil(t, child)
}

func TestLogger_ContextMethods(t *testing.T) {
	l := NewNop()
	ctx := WithRequestID(context.Background(), "req-123")
	require.NotPanics(t, func() {
		l.Info(ctx, "hello")
		l.Debug(ctx, "hello")
		l.Warn(ctx, "hello")
		l.Error(ctx, "hello")
	})
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
}

func TestWithRequestID_PanicsOnInvalid(t *testing.T) {
	require.Panics(t, func() {
		WithRequestID(context.Background(), "")
	})
}
