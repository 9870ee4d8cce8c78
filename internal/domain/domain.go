package domain

// Document is a single source file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Source  string
	Content string
}

// Chunk is a bounded span of a document, the unit of retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
	Index      int
}

// SearchResult is a matching chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}
