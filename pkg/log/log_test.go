package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestWithComponentTagsEveryEvent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: nil})

	WithComponent("subscribe-engine").Info("connected")

	line := decodeLine(t, &buf)
	assert.Equal(t, "subscribe-engine", line["component"])
	assert.Equal(t, "connected", line["message"])
}

func TestWithAttachesFieldsToSubsequentCalls(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: nil})

	WithComponent("manager").With(String("channel", "demo"), Int("attempt", 3)).Warn("retrying")

	line := decodeLine(t, &buf)
	assert.Equal(t, "demo", line["channel"])
	assert.Equal(t, float64(3), line["attempt"])
	assert.Equal(t, "warn", line["level"])
}

func TestErrFieldEmitsErrorString(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: nil})

	WithComponent("presence").Error("heartbeat failed", Err(errors.New("boom")))

	line := decodeLine(t, &buf)
	assert.Equal(t, "boom", line["error"])
}

func TestInfoLevelSuppressedBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: nil})

	WithComponent("dispatcher").Info("should be suppressed")
	assert.Empty(t, buf.Bytes())
}
