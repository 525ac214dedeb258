package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, workspace, body string) {
	t.Helper()
	dir := filepath.Join(workspace, ".wordfetch")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
}

func reset() {
	CloseAll()
	logsDir = ""
	config = loggingConfig{}
	logLevel = LevelInfo
}

func TestInitializeWithoutConfigIsSilent(t *testing.T) {
	defer reset()
	ws := t.TempDir()

	require.NoError(t, Initialize(ws, ""))
	assert.False(t, IsCategoryEnabled(CategoryFetch))

	// No logs directory in production mode.
	_, err := os.Stat(filepath.Join(ws, ".wordfetch", "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	defer reset()
	require.Error(t, Initialize("", ""))
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	defer reset()
	ws := t.TempDir()
	writeConfig(t, ws, "logging:\n  debug_mode: true\n  level: debug\n")

	require.NoError(t, Initialize(ws, ""))
	require.True(t, IsCategoryEnabled(CategoryFetch))

	Fetch("step %d done", 1)
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(ws, ".wordfetch", "logs"))
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".log" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(ws, ".wordfetch", "logs", e.Name()))
		require.NoError(t, err)
		if strings.Contains(string(data), "step 1 done") {
			found = true
		}
	}
	assert.True(t, found, "expected a log file containing the message")
}

func TestInitializeHonorsConfigPath(t *testing.T) {
	defer reset()
	ws := t.TempDir()

	// The logging section comes from the explicit config path, not the
	// workspace default location.
	alt := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(alt, []byte("logging:\n  debug_mode: true\n"), 0644))

	require.NoError(t, Initialize(ws, alt))
	assert.True(t, IsCategoryEnabled(CategoryFetch))
}

func TestCategoryFiltering(t *testing.T) {
	defer reset()
	ws := t.TempDir()
	writeConfig(t, ws, "logging:\n  debug_mode: true\n  categories:\n    browser: false\n    fetch: true\n")

	require.NoError(t, Initialize(ws, ""))
	assert.False(t, IsCategoryEnabled(CategoryBrowser))
	assert.True(t, IsCategoryEnabled(CategoryFetch))
	// Unlisted categories default to enabled in debug mode.
	assert.True(t, IsCategoryEnabled(CategoryStore))
}

func TestLevelFiltering(t *testing.T) {
	defer reset()
	ws := t.TempDir()
	writeConfig(t, ws, "logging:\n  debug_mode: true\n  level: error\n")

	require.NoError(t, Initialize(ws, ""))

	l := Get(CategoryExec)
	l.Info("should be filtered")
	l.Error("should appear")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(ws, ".wordfetch", "logs"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	data, err := os.ReadFile(filepath.Join(ws, ".wordfetch", "logs", entries[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be filtered")
	assert.Contains(t, string(data), "should appear")
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	defer reset()
	l := Get(CategoryBoot)
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")

	timer := StartTimer(CategoryBoot, "noop")
	timer.Stop()
}
