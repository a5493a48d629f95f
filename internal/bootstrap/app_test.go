package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodymind-ai/internal/app"
	"bodymind-ai/internal/auth"
	"bodymind-ai/internal/config"
	"bodymind-ai/internal/index"
	"bodymind-ai/internal/knowledge"
)

func offlineConfig(t *testing.T, extra ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[store]\nsqlite_path = \"" + filepath.ToSlash(filepath.Join(dir, "kb.db")) + "\"\n"
	for _, section := range extra {
		content += section
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_API_KEY", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew_OfflineEngineDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, offlineConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.MQConn)
	assert.Nil(t, a.IngestWorker)
	assert.Nil(t, a.Watcher)
	assert.Equal(t, auth.ProviderLocal, a.Auth.Name())

	require.NoError(t, a.Start(ctx))
	assert.Equal(t, index.StatusEmpty, a.Knowledge.Stats(ctx).Status)

	result, err := a.Retrieval.Retrieve(ctx, "how much protein do I need", app.DefaultTopK, app.DefaultScoreThreshold)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, knowledge.PathFallback, result.Path)

	reply, err := a.Chat.Send(ctx, app.SendInput{Message: "how much protein do I need"})
	require.NoError(t, err)
	assert.True(t, reply.Degraded)
}

func TestNew_BadFallbackTopicsFile(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.RAG.FallbackTopicsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNew_UnreachableIndexFallsBackToKeywords(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t,
		"[llm]\nembedding_dimension = 4\n",
		"[index]\nbackend = \"pgvector\"\npostgres_dsn = \"postgres://postgres@127.0.0.1:1/kb?sslmode=disable&connect_timeout=2\"\n",
	)

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Index)
	assert.Nil(t, a.Postgres)
	assert.Equal(t, index.StatusUnavailable, a.Knowledge.Stats(ctx).Status)
	require.NoError(t, a.Start(ctx))

	result, err := a.Retrieval.Retrieve(ctx, "how much protein do I need", app.DefaultTopK, app.DefaultScoreThreshold)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, knowledge.PathFallback, result.Path)

	_, err = a.Knowledge.IngestText(ctx, knowledge.IngestRequest{Text: "protein helps"})
	assert.ErrorIs(t, err, knowledge.ErrIndexUnavailable)
}
