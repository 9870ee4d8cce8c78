package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"nexusrag/internal/domain"
)

// RecursiveChunker splits text into chunks of at most chunkSize characters
// with chunkOverlap characters carried between consecutive chunks. It prefers
// paragraph boundaries, then line breaks, then sentence ends, then words,
// falling back to a hard character split for unbroken runs.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func New(chunkSize, chunkOverlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &RecursiveChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", ". ", " "},
	}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	pieces := c.split(document.Content, 0)
	texts := c.merge(pieces)

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(i),
			Source:     document.Source,
			Text:       text,
			Index:      i,
		})
	}
	return chunks, nil
}

// split recursively breaks text into pieces no longer than chunkSize,
// each piece keeping its trailing separator so merging is plain
// concatenation.
func (c *RecursiveChunker) split(text string, depth int) []string {
	if utf8.RuneCountInString(text) <= c.chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if depth >= len(c.separators) {
		return hardSplit(text, c.chunkSize)
	}
	sep := c.separators[depth]
	parts := splitAfter(text, sep)
	if len(parts) == 1 {
		return c.split(text, depth+1)
	}
	var out []string
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= c.chunkSize {
			if part != "" {
				out = append(out, part)
			}
			continue
		}
		out = append(out, c.split(part, depth+1)...)
	}
	return out
}

// merge greedily packs pieces into chunks of at most chunkSize characters,
// re-seeding each new chunk with up to chunkOverlap trailing characters from
// the previous one.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var chunks []string
	var cur []string
	curLen := 0

	flush := func() {
		text := strings.TrimSpace(strings.Join(cur, ""))
		if text != "" {
			chunks = append(chunks, text)
		}
	}

	for _, piece := range pieces {
		pl := utf8.RuneCountInString(piece)
		if curLen+pl > c.chunkSize && curLen > 0 {
			flush()
			// Keep a tail of pieces as overlap for the next chunk.
			kept, keptLen := overlapTail(cur, c.chunkOverlap)
			for keptLen+pl > c.chunkSize && len(kept) > 0 {
				keptLen -= utf8.RuneCountInString(kept[0])
				kept = kept[1:]
			}
			cur = kept
			curLen = keptLen
		}
		cur = append(cur, piece)
		curLen += pl
	}
	if curLen > 0 {
		flush()
	}
	return chunks
}

func overlapTail(pieces []string, limit int) ([]string, int) {
	if limit <= 0 {
		return nil, 0
	}
	total := 0
	i := len(pieces)
	for i > 0 {
		l := utf8.RuneCountInString(pieces[i-1])
		if total+l > limit {
			break
		}
		total += l
		i--
	}
	tail := make([]string, len(pieces)-i)
	copy(tail, pieces[i:])
	return tail, total
}

// splitAfter splits on sep keeping the separator attached to the preceding
// part, so no characters are lost.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter can leave a trailing empty part when text ends with sep.
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
