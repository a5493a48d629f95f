package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodymind-ai/internal/bootstrap"
	"bodymind-ai/internal/config"
)

func offlineOpener(t *testing.T) engineOpener {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[store]\nsqlite_path = \"" + filepath.ToSlash(filepath.Join(dir, "kb.db")) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_API_KEY", "")

	return func(ctx context.Context) (*bootstrap.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return bootstrap.New(ctx, cfg, nil)
	}
}

func run(t *testing.T, open engineOpener, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, offlineOpener(t), "stats")

	require.NoError(t, err)
	assert.Contains(t, out, `"status": "empty"`)
}

func TestSearchCommand_UsesKeywordFallback(t *testing.T) {
	out, err := run(t, offlineOpener(t), "search", "how much protein")

	require.NoError(t, err)
	assert.Contains(t, out, `"path": "fallback"`)
	assert.Contains(t, out, "protein_intake")
}

func TestSearchCommand_NothingFound(t *testing.T) {
	out, err := run(t, offlineOpener(t), "search", "weather")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestClearCommand_RequiresConfirmation(t *testing.T) {
	open := offlineOpener(t)

	_, err := run(t, open, "clear")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, open, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Knowledge base cleared.")

	out, err = run(t, open, "clear", "--yes", "--sessions")
	assert.ErrorContains(t, err, "memory.backend = redis")
	assert.NotContains(t, out, "Knowledge base cleared.")
}

func TestIngestCommand_RequiresInput(t *testing.T) {
	_, err := run(t, offlineOpener(t), "ingest")

	assert.ErrorContains(t, err, "--text")
}
