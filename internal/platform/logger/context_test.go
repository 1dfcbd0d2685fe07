package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskdeck/taskdeck-api/internal/platform/logger"
)

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	stored := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := logger.WithLogger(context.Background(), stored)

	got := logger.FromContext(ctx)
	assert.Same(t, stored, got)
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	got := logger.FromContext(context.Background())
	assert.Same(t, slog.Default(), got)
}

func TestFromContextOrDefault(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewTextHandler(&buf, nil))

	t.Run("empty context uses fallback", func(t *testing.T) {
		got := logger.FromContextOrDefault(context.Background(), fallback)
		assert.Same(t, fallback, got)
	})

	t.Run("stored logger wins over fallback", func(t *testing.T) {
		stored := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := logger.WithLogger(context.Background(), stored)

		got := logger.FromContextOrDefault(ctx, fallback)
		assert.Same(t, stored, got)
	})

	t.Run("nil fallback uses default", func(t *testing.T) {
		got := logger.FromContextOrDefault(context.Background(), nil)
		assert.Same(t, slog.Default(), got)
	})
}
