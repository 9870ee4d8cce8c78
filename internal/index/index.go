package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"nexusrag/internal/domain"
)

// ErrIndexNotFound is returned by Load when no persisted index exists at the
// given directory.
var ErrIndexNotFound = errors.New("index not found")

const indexFileName = "index.gob"

// Index is a flat vector index over document chunks using brute-force cosine
// similarity. Vectors are L2-normalized at insert so search is a dot product.
// An Index is immutable after Build; concurrent searches are safe.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

type indexFile struct {
	Dimension int
	Vectors   [][]float64
	Chunks    []domain.Chunk
}

// Build constructs an in-memory index from chunks and their embeddings.
// Zero chunks is a precondition violation, not a silent no-op.
func Build(chunks []domain.Chunk, vectors [][]float64) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("cannot build index from zero chunks")
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("zero-dimensional embedding vector")
	}
	normalized := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		normalized[i] = normalize(v)
	}
	return &Index{
		dimension: dim,
		vectors:   normalized,
		chunks:    append([]domain.Chunk(nil), chunks...),
	}, nil
}

// Save serializes the index into dir, creating it if absent. The payload is
// written to a temp file and renamed into place, so a failed save never
// leaves a loadable partial index behind.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ix.mu.RLock()
	payload := indexFile{Dimension: ix.dimension, Vectors: ix.vectors, Chunks: ix.chunks}
	ix.mu.RUnlock()

	tmp, err := os.CreateTemp(dir, indexFileName+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, indexFileName))
}

// Load deserializes a previously built index from dir.
func Load(dir string) (*Index, error) {
	f, err := os.Open(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrIndexNotFound, dir)
		}
		return nil, err
	}
	defer f.Close()

	var payload indexFile
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode index at %s: %w", dir, err)
	}
	if len(payload.Chunks) == 0 || len(payload.Vectors) != len(payload.Chunks) {
		return nil, fmt.Errorf("corrupt index at %s", dir)
	}
	return &Index{
		dimension: payload.Dimension,
		vectors:   payload.Vectors,
		chunks:    payload.Chunks,
	}, nil
}

// Len returns the number of stored chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Search returns the k stored chunks nearest to the query vector,
// nearest-first. Asking for more chunks than stored returns them all.
// Equal scores keep insertion order, which makes result order deterministic.
func (ix *Index) Search(vector []float64, k int) ([]domain.SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, want %d", len(vector), ix.dimension)
	}
	if k <= 0 {
		k = 5
	}
	query := normalize(vector)
	results := make([]domain.SearchResult, len(ix.chunks))
	for i := range ix.vectors {
		results[i] = domain.SearchResult{Chunk: ix.chunks[i], Score: dot(ix.vectors[i], query)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func normalize(v []float64) []float64 {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
