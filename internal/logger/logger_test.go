package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfig(t *testing.T) {
	t.Run("json format honours level", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewFromConfig(&buf, "warn", "json")
		require.NoError(t, err)

		log.Info().Msg("hidden")
		log.Warn().Str("run_id", "r1").Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"run_id":"r1"`)
		assert.Contains(t, buf.String(), `"level":"warn"`)
	})

	t.Run("console format is human readable", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewFromConfig(&buf, "", "console")
		require.NoError(t, err)

		log.Info().Msg("ready")

		assert.Contains(t, buf.String(), "ready")
		assert.NotContains(t, buf.String(), `"message"`)
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		_, err := NewFromConfig(&bytes.Buffer{}, "loud", "json")
		assert.Error(t, err)

		_, err = NewFromConfig(&bytes.Buffer{}, "info", "xml")
		assert.Error(t, err)
	})
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	l := FromContext(ctx)
	l.Info().Msg("from context")

	assert.Contains(t, buf.String(), "from context")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := WithFields(zerolog.New(&buf), map[string]interface{}{"stage": "extraction"})

	log.Info().Msg("done")

	assert.Contains(t, buf.String(), `"stage":"extraction"`)
}
