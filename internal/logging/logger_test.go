package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileAndConsoleSinks(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	log, err := newLogger(Options{Level: "info", Directory: dir, MaxSize: 1, Console: true}, &console)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("survey saved", zap.String("survey_id", "s1"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "moodmetrics.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "survey saved", entry["message"])
	assert.Equal(t, "s1", entry["survey_id"])

	assert.Contains(t, console.String(), "survey saved")
	assert.NotContains(t, console.String(), "hidden")
}

func TestBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNoSinks(t *testing.T) {
	log, err := New(Options{Level: "debug"})
	require.NoError(t, err)
	log.Info("dropped")
}
