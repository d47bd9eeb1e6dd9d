package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json handler respects level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)

		log.Info("dropped")
		log.Warn("kept", "record_id", "r-1")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "r-1", line["record_id"])
	})

	t.Run("text handler", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(config.LogConfig{Level: "debug", Format: "text"}, &buf)
		log.Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}
