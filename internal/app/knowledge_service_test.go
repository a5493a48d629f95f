package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/index"
	"bodymind-ai/internal/knowledge"
)

func TestIngestText_AddsChunksAndReportsStats(t *testing.T) {
	embedder := &axisEmbedder{}
	svc := NewKnowledgeService(knowledge.NewChunker(knowledge.WithChunkSize(40), knowledge.WithOverlap(5)), newSQLIndex(t, embedder), nil, nil)

	result, err := svc.IngestText(context.Background(), knowledge.IngestRequest{
		Title: " Protein Intake ",
		Text:  "Protein preserves muscle.\n\nHigher protein intake improves satiety during a deficit.",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.DocumentID)
	assert.Equal(t, "Protein Intake", result.Title)
	assert.Greater(t, result.ChunksAdded, 1)
	assert.False(t, result.Deferred)
	assert.Equal(t, result.ChunksAdded, result.Stats.ChunkCount)
	assert.Equal(t, index.StatusReady, result.Stats.Status)
}

func TestIngestText_EmptyContent(t *testing.T) {
	svc := NewKnowledgeService(nil, newSQLIndex(t, &axisEmbedder{}), nil, nil)

	_, err := svc.IngestText(context.Background(), knowledge.IngestRequest{Title: "blank", Text: " \n\t"})

	assert.ErrorIs(t, err, knowledge.ErrEmptyContent)
	assert.ErrorIs(t, err, knowledge.ErrIngestion)
}

func TestIngestText_NoIndex(t *testing.T) {
	svc := NewKnowledgeService(nil, nil, nil, nil)

	_, err := svc.IngestText(context.Background(), knowledge.IngestRequest{Text: "protein"})
	assert.ErrorIs(t, err, knowledge.ErrIndexUnavailable)
	assert.Equal(t, index.StatusUnavailable, svc.Stats(context.Background()).Status)
}

func TestIngestText_DefersWhenEmbeddingUnavailable(t *testing.T) {
	embedder := &axisEmbedder{}
	embedder.fail(errors.Join(ai.ErrEmbeddingUnavailable, errors.New("503")))
	deferrer := &recordingDeferrer{}
	svc := NewKnowledgeService(nil, newSQLIndex(t, embedder), deferrer, nil)

	result, err := svc.IngestText(context.Background(), knowledge.IngestRequest{Text: "protein matters"})

	require.NoError(t, err)
	assert.True(t, result.Deferred)
	assert.Zero(t, result.ChunksAdded)
	require.Len(t, deferrer.requests, 1)
	assert.Equal(t, knowledge.IngestRequest{Text: "protein matters", Title: "Untitled", Source: "manual", Category: "research"}, deferrer.requests[0])
}

func TestIngestText_EmbeddingFailureWithoutDeferrer(t *testing.T) {
	embedder := &axisEmbedder{}
	embedder.fail(errors.Join(ai.ErrEmbeddingUnavailable, errors.New("503")))
	svc := NewKnowledgeService(nil, newSQLIndex(t, embedder), nil, nil)

	_, err := svc.IngestText(context.Background(), knowledge.IngestRequest{Text: "protein matters"})
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnavailable)
	assert.Zero(t, svc.Stats(context.Background()).ChunkCount)
}

func TestIngestText_DeferFailureReturnsOriginalError(t *testing.T) {
	embedder := &axisEmbedder{}
	embedder.fail(errors.Join(ai.ErrEmbeddingUnavailable, errors.New("503")))
	svc := NewKnowledgeService(nil, newSQLIndex(t, embedder), &recordingDeferrer{err: errors.New("broker down")}, nil)

	_, err := svc.IngestText(context.Background(), knowledge.IngestRequest{Text: "protein matters"})
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnavailable)
}

func TestReingest_NeverDefers(t *testing.T) {
	embedder := &axisEmbedder{}
	embedder.fail(errors.Join(ai.ErrEmbeddingUnavailable, errors.New("503")))
	deferrer := &recordingDeferrer{}
	svc := NewKnowledgeService(nil, newSQLIndex(t, embedder), deferrer, nil)

	_, err := svc.Reingest(context.Background(), knowledge.IngestRequest{Text: "protein matters"})
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnavailable)
	assert.Empty(t, deferrer.requests)
}

func TestIngestFile_TextAndUnsupported(t *testing.T) {
	svc := NewKnowledgeService(nil, newSQLIndex(t, &axisEmbedder{}), nil, nil)
	ctx := context.Background()

	result, err := svc.IngestFile(ctx, "uploads/sleep-notes.md", strings.NewReader("# Sleep\nsleep matters"), knowledge.IngestRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sleep-notes", result.Title)
	assert.Equal(t, 1, result.ChunksAdded)

	_, err = svc.IngestFile(ctx, "report.docx", strings.NewReader("x"), knowledge.IngestRequest{})
	assert.ErrorIs(t, err, knowledge.ErrUnsupportedFormat)
}

func TestIngestFile_RejectsInvalidUTF8(t *testing.T) {
	svc := NewKnowledgeService(nil, newSQLIndex(t, &axisEmbedder{}), nil, nil)
	ctx := context.Background()

	_, err := svc.IngestFile(ctx, "export.txt", strings.NewReader("protein \xff\xfe intake"), knowledge.IngestRequest{})
	assert.ErrorIs(t, err, knowledge.ErrIngestion)
	assert.Zero(t, svc.Stats(ctx).ChunkCount)

	text, err := ExtractFileText("notes.txt", strings.NewReader("café protein"))
	require.NoError(t, err)
	assert.Equal(t, "café protein", text)
}

func TestIngestPath(t *testing.T) {
	svc := NewKnowledgeService(nil, newSQLIndex(t, &axisEmbedder{}), nil, nil)
	path := filepath.Join(t.TempDir(), "calories.txt")
	require.NoError(t, os.WriteFile(path, []byte("a calorie deficit drives fat loss"), 0o600))

	result, err := svc.IngestPath(context.Background(), path, knowledge.IngestRequest{})
	require.NoError(t, err)
	assert.Equal(t, "calories", result.Title)

	_, err = svc.IngestPath(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), knowledge.IngestRequest{})
	assert.ErrorIs(t, err, knowledge.ErrIngestion)
}

func TestSupportedFile(t *testing.T) {
	assert.True(t, SupportedFile("a.TXT"))
	assert.True(t, SupportedFile("b.md"))
	assert.True(t, SupportedFile("c.pdf"))
	assert.False(t, SupportedFile("d.docx"))
	assert.False(t, SupportedFile("noext"))
}

func TestSeed_FailureLeavesNoPartialCorpus(t *testing.T) {
	ctx := context.Background()
	embedder := &axisEmbedder{failOn: "plateaus are a normal stage"}
	svc := NewKnowledgeService(nil, newSQLIndex(t, embedder), nil, nil)

	seeded, err := svc.SeedIfEmpty(ctx)
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnavailable)
	assert.Zero(t, seeded)
	assert.Zero(t, svc.Stats(ctx).ChunkCount)

	embedder.failOn = ""
	seeded, err = svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(PresetDocuments()), seeded)
}

func TestSeedIfEmptyAndClear(t *testing.T) {
	ctx := context.Background()
	svc := NewKnowledgeService(nil, newSQLIndex(t, &axisEmbedder{}), nil, nil)

	seeded, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(PresetDocuments()), seeded)
	assert.Equal(t, 5, seeded)
	count := svc.Stats(ctx).ChunkCount
	assert.GreaterOrEqual(t, count, 5)

	seeded, err = svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)
	assert.Equal(t, count, svc.Stats(ctx).ChunkCount)

	require.NoError(t, svc.Clear(ctx))
	require.NoError(t, svc.Clear(ctx))
	stats := svc.Stats(ctx)
	assert.Zero(t, stats.ChunkCount)
	assert.Equal(t, index.StatusEmpty, stats.Status)
}
