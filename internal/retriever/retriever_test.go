package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexusrag/internal/chunker"
	"nexusrag/internal/embedding/hashing"
	"nexusrag/internal/loader"
	"nexusrag/internal/summarizer"
)

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	log := zap.NewNop()
	return New(
		loader.New(log),
		chunker.New(200, 40),
		hashing.NewEmbedder(256),
		summarizer.New(2),
		log,
		Options{
			StoreRoot: filepath.Join(t.TempDir(), "store"),
			TopK:      3,
			CacheTTL:  time.Minute,
		},
	)
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestBuildIndexEmptyDirectory(t *testing.T) {
	r := newTestRetriever(t)
	indexDir := r.SessionIndexDir("session_empty")

	_, err := r.BuildIndex(context.Background(), t.TempDir(), indexDir)
	require.ErrorIs(t, err, ErrNoDocuments)

	_, err = os.Stat(indexDir)
	assert.True(t, os.IsNotExist(err), "a failed build must not leave an index behind")
}

func TestBuildIndexReport(t *testing.T) {
	r := newTestRetriever(t)
	dir := writeCorpus(t, map[string]string{
		"policy.txt": "The grace period for premium payment is thirty days from the due date.",
		"terms.md":   "Coverage begins immediately after the waiting period expires.",
	})

	report, err := r.BuildSessionIndex(context.Background(), "session_a", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.GreaterOrEqual(t, report.Chunks, 2)
	assert.Empty(t, report.Skipped)
	assert.NotEmpty(t, report.Summary)
}

func TestRetrieveRanksRelevantChunkFirst(t *testing.T) {
	r := newTestRetriever(t)
	dir := writeCorpus(t, map[string]string{
		"a.txt": "The grace period for premium payment is thirty days.",
		"b.txt": "Pasta with tomato and garlic is a quick dinner recipe.",
		"c.txt": "Photosynthesis converts sunlight into chemical energy in plants.",
	})

	_, err := r.BuildSessionIndex(context.Background(), "session_rank", dir)
	require.NoError(t, err)

	texts, err := r.RetrieveSession(context.Background(), "What is the grace period for premium payment?", "session_rank", 1)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "grace period")
}

func TestRetrieveUnknownSession(t *testing.T) {
	r := newTestRetriever(t)
	_, err := r.RetrieveSession(context.Background(), "anything", "session_ghost", 3)
	require.ErrorIs(t, err, ErrIndexNotFound)
}

func TestRetrieveKClampedToIndexSize(t *testing.T) {
	r := newTestRetriever(t)
	dir := writeCorpus(t, map[string]string{
		"only.txt": "A single short document.",
	})
	_, err := r.BuildSessionIndex(context.Background(), "session_small", dir)
	require.NoError(t, err)

	texts, err := r.RetrieveSession(context.Background(), "document", "session_small", 10)
	require.NoError(t, err)
	assert.Len(t, texts, 1)
}

func TestRebuildReplacesIndex(t *testing.T) {
	r := newTestRetriever(t)

	first := writeCorpus(t, map[string]string{
		"old.txt": "Alpha bravo charlie delta echo foxtrot.",
	})
	_, err := r.BuildSessionIndex(context.Background(), "session_swap", first)
	require.NoError(t, err)

	second := writeCorpus(t, map[string]string{
		"new.txt": "Golf hotel india juliet kilo lima.",
	})
	_, err = r.BuildSessionIndex(context.Background(), "session_swap", second)
	require.NoError(t, err)

	texts, err := r.RetrieveSession(context.Background(), "alpha bravo charlie", "session_swap", 10)
	require.NoError(t, err)
	for _, text := range texts {
		assert.NotContains(t, text, "Alpha", "chunks from the replaced corpus must not survive a rebuild")
	}
}

func TestRetrieveSurvivesColdCache(t *testing.T) {
	r := newTestRetriever(t)
	dir := writeCorpus(t, map[string]string{
		"doc.txt": "Persistent indexes survive a process restart.",
	})
	_, err := r.BuildSessionIndex(context.Background(), "session_cold", dir)
	require.NoError(t, err)

	// A fresh retriever over the same store root has an empty cache and must
	// load the index from disk.
	fresh := New(
		loader.New(zap.NewNop()),
		chunker.New(200, 40),
		hashing.NewEmbedder(256),
		nil,
		zap.NewNop(),
		Options{StoreRoot: r.storeRoot, TopK: 3, CacheTTL: time.Minute},
	)
	texts, err := fresh.RetrieveSession(context.Background(), "process restart", "session_cold", 1)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "restart")
}
