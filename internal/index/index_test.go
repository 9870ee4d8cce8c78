package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusrag/internal/domain"
)

func testChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{DocumentID: "d", ChunkID: text, Text: text, Index: i}
	}
	return chunks
}

func TestBuildZeroChunksFails(t *testing.T) {
	_, err := Build(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero chunks")
}

func TestBuildLengthMismatchFails(t *testing.T) {
	_, err := Build(testChunks("A", "B"), [][]float64{{1, 0}})
	require.Error(t, err)
}

func TestBuildRaggedDimensionsFails(t *testing.T) {
	_, err := Build(testChunks("A", "B"), [][]float64{{1, 0}, {1, 0, 0}})
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store", "session_x")
	ix, err := Build(
		testChunks("A", "B", "C"),
		[][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	)
	require.NoError(t, err)
	require.NoError(t, ix.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())

	results, err := loaded.Search([]float64{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Chunk.Text)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestSearchKLargerThanStored(t *testing.T) {
	ix, err := Build(
		testChunks("A", "B"),
		[][]float64{{1, 0}, {0, 1}},
	)
	require.NoError(t, err)
	results, err := ix.Search([]float64{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchOrderedNearestFirst(t *testing.T) {
	ix, err := Build(
		testChunks("far", "near", "middle"),
		[][]float64{{0, 1}, {1, 0}, {1, 1}},
	)
	require.NoError(t, err)
	results, err := ix.Search([]float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Chunk.Text)
	assert.Equal(t, "middle", results[1].Chunk.Text)
	assert.Equal(t, "far", results[2].Chunk.Text)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ix, err := Build(
		testChunks("first", "second", "third"),
		[][]float64{{1, 0}, {1, 0}, {1, 0}},
	)
	require.NoError(t, err)
	results, err := ix.Search([]float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.Equal(t, "second", results[1].Chunk.Text)
	assert.Equal(t, "third", results[2].Chunk.Text)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix, err := Build(testChunks("A"), [][]float64{{1, 0, 0}})
	require.NoError(t, err)
	_, err = ix.Search([]float64{1, 0}, 1)
	require.Error(t, err)
}

func TestSaveOverwritesPreviousIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")

	first, err := Build(testChunks("old"), [][]float64{{1, 0}})
	require.NoError(t, err)
	require.NoError(t, first.Save(dir))

	second, err := Build(testChunks("new-a", "new-b"), [][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)
	require.NoError(t, second.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	results, err := loaded.Search([]float64{1, 0}, 5)
	require.NoError(t, err)
	for _, res := range results {
		assert.NotEqual(t, "old", res.Chunk.Text)
	}
}
