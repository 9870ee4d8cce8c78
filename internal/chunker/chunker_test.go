package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusrag/internal/domain"
)

func doc(content string) domain.Document {
	return domain.Document{ID: "doc1", Source: "doc1.txt", Content: content}
}

func TestChunkShortDocumentSingleChunk(t *testing.T) {
	c := New(100, 20)
	chunks, err := c.Chunk(doc("Just one short paragraph."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Just one short paragraph.", chunks[0].Text)
	assert.Equal(t, "doc1:0", chunks[0].ChunkID)
	assert.Equal(t, "doc1.txt", chunks[0].Source)
}

func TestChunkEmptyDocument(t *testing.T) {
	c := New(100, 20)
	chunks, err := c.Chunk(doc(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk(doc("   \n\n  "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRespectsSizeLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is sentence number one of the test corpus. ")
	}
	c := New(200, 40)
	chunks, err := c.Chunk(doc(sb.String()))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 200)
		assert.NotEmpty(t, strings.TrimSpace(ch.Text))
	}
}

func TestChunkOverlapCarriesText(t *testing.T) {
	var words []string
	for i := 0; i < 20; i++ {
		words = append(words, "word"+string(rune('a'+i)))
	}
	c := New(30, 10)
	chunks, err := c.Chunk(doc(strings.Join(words, " ")))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i].Text)[0]
		assert.Contains(t, chunks[i-1].Text, first,
			"chunk %d should start with text carried over from chunk %d", i, i-1)
	}
}

func TestChunkPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 20)
	para2 := strings.Repeat("bravo ", 20)
	c := New(150, 0)
	chunks, err := c.Chunk(doc(strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.NotContains(t, chunks[0].Text, "bravo")
	assert.NotContains(t, chunks[1].Text, "alpha")
}

func TestChunkHardSplitUnbrokenText(t *testing.T) {
	c := New(50, 0)
	chunks, err := c.Chunk(doc(strings.Repeat("x", 180)))
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 50)
	}
}

func TestChunkDeterministic(t *testing.T) {
	content := strings.Repeat("A sentence about determinism. Another one follows here.\n\n", 30)
	c := New(180, 40)
	first, err := c.Chunk(doc(content))
	require.NoError(t, err)
	second, err := c.Chunk(doc(content))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
