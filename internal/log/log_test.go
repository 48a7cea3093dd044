package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Console(&buf, false)
	logger.Debug("hidden")
	logger.Info("Editor ready", "id", "abc")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "Editor ready")
	require.Contains(t, out, "abc")

	buf.Reset()
	Console(&buf, true).Debug("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestSetupWritesJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	file := filepath.Join(t.TempDir(), "logs", "editorbind.log")
	Setup(file, true)
	require.True(t, Initialized())

	slog.Debug("Input emitted", "bytes", 42)
	require.NoError(t, Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	require.Equal(t, "Input emitted", entry["msg"])
	require.Equal(t, "DEBUG", entry["level"])
	require.EqualValues(t, 42, entry["bytes"])
}

func TestRecoverPanicRunsCleanup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	var cleaned bool
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
		panic("boom")
	}()
	require.True(t, cleaned)

	matches, err := filepath.Glob(filepath.Join(dir, "editorbind-panic-test-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
