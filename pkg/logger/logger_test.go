package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output carries service name", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.Config{Format: logger.FormatJSON, Service: "api"},
			logger.WithOutput(&buf))
		log.Info("hello")

		line := logLine(t, &buf)
		assert.Equal(t, "hello", line["msg"])
		assert.Equal(t, "api", line["service"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.Config{Level: slog.LevelWarn, Service: ""},
			logger.WithOutput(&buf))
		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.NotZero(t, buf.Len())
	})

	t.Run("static attrs appear on every record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.Config{Service: ""},
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("version", "1.2.3")))
		log.Info("hello")

		assert.Equal(t, "1.2.3", logLine(t, &buf)["version"])
	})

	t.Run("context extractors run at log time", func(t *testing.T) {
		t.Parallel()

		type ctxKey struct{}
		extractor := func(ctx context.Context) (slog.Attr, bool) {
			if v, ok := ctx.Value(ctxKey{}).(string); ok {
				return slog.String("tenant_id", v), true
			}
			return slog.Attr{}, false
		}

		var buf bytes.Buffer
		log := logger.New(logger.Config{Service: ""},
			logger.WithOutput(&buf),
			logger.WithContextExtractors(extractor))

		ctx := context.WithValue(context.Background(), ctxKey{}, "acme")
		log.InfoContext(ctx, "scoped")
		assert.Equal(t, "acme", logLine(t, &buf)["tenant_id"])

		buf.Reset()
		log.InfoContext(context.Background(), "unscoped")
		assert.NotContains(t, logLine(t, &buf), "tenant_id")
	})
}

func TestError(t *testing.T) {
	t.Parallel()

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}
