package retriever

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"nexusrag/internal/domain"
	"nexusrag/internal/embedding"
	"nexusrag/internal/index"
	"nexusrag/internal/loader"
	"nexusrag/internal/summarizer"
)

// ErrNoDocuments is returned when an index build finds nothing usable in the
// source directory.
var ErrNoDocuments = errors.New("no documents found to process in the source directory")

// ErrIndexNotFound mirrors the index package sentinel so callers only need
// this package.
var ErrIndexNotFound = index.ErrIndexNotFound

// Report describes the outcome of an index build.
type Report struct {
	Documents int
	Chunks    int
	Skipped   []loader.Failure
	Summary   string
}

// Options tunes the retriever.
type Options struct {
	// StoreRoot is the directory holding one index directory per session.
	StoreRoot string
	// TopK is the default number of chunks returned by session retrieval.
	TopK int
	// CacheTTL bounds how long a loaded index stays in memory.
	CacheTTL time.Duration
}

// Retriever orchestrates loading, chunking, embedding and the vector index.
// It owns the session-directory namespace and a small cache of loaded
// indexes so repeated queries against one session skip deserialization.
type Retriever struct {
	loader     *loader.Loader
	chunker    domain.Chunker
	embedder   embedding.Embedder
	summarizer *summarizer.Summarizer
	log        *zap.Logger

	storeRoot string
	topK      int
	indexes   *cache.Cache
}

func New(ld *loader.Loader, ch domain.Chunker, emb embedding.Embedder, sum *summarizer.Summarizer, log *zap.Logger, opts Options) *Retriever {
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Retriever{
		loader:     ld,
		chunker:    ch,
		embedder:   emb,
		summarizer: sum,
		log:        log,
		storeRoot:  opts.StoreRoot,
		topK:       topK,
		indexes:    cache.New(ttl, 10*time.Minute),
	}
}

// BuildIndex loads documents from sourceDir, chunks and embeds them and
// persists the resulting index at indexDir. All-or-nothing: any failure
// before the final persist leaves no index behind.
func (r *Retriever) BuildIndex(ctx context.Context, sourceDir, indexDir string) (Report, error) {
	docs, skipped, err := r.loader.LoadDir(sourceDir)
	if err != nil {
		return Report{}, err
	}
	if len(docs) == 0 {
		return Report{Skipped: skipped}, ErrNoDocuments
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := r.chunker.Chunk(doc)
		if err != nil {
			return Report{}, fmt.Errorf("chunk %s: %w", doc.Source, err)
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return Report{Skipped: skipped}, ErrNoDocuments
	}

	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		vec, err := r.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return Report{}, fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
		}
		vectors[i] = vec
	}

	ix, err := index.Build(chunks, vectors)
	if err != nil {
		return Report{}, err
	}
	if err := ix.Save(indexDir); err != nil {
		return Report{}, fmt.Errorf("persist index: %w", err)
	}
	// A rebuild fully replaces whatever the cache held for this directory.
	r.indexes.Set(indexDir, ix, cache.DefaultExpiration)

	report := Report{Documents: len(docs), Chunks: len(chunks), Skipped: skipped}
	if r.summarizer != nil {
		report.Summary = r.summarizer.Summarize(docs)
	}
	r.log.Info("index built",
		zap.String("index_dir", indexDir),
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("skipped", len(skipped)))
	return report, nil
}

// Retrieve returns the texts of the k chunks nearest to query in the index
// at indexDir. Fails with ErrIndexNotFound when no index was built there.
func (r *Retriever) Retrieve(ctx context.Context, query, indexDir string, k int) ([]string, error) {
	if k <= 0 {
		k = r.topK
	}
	ix, err := r.loadIndex(indexDir)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := ix.Search(vec, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
	}
	return texts, nil
}

// SessionIndexDir maps a session ID to its index directory under the store
// root. Each session owns its directory exclusively.
func (r *Retriever) SessionIndexDir(sessionID string) string {
	return filepath.Join(r.storeRoot, sessionID)
}

// BuildSessionIndex builds the index for one session from its upload dir.
func (r *Retriever) BuildSessionIndex(ctx context.Context, sessionID, sourceDir string) (Report, error) {
	return r.BuildIndex(ctx, sourceDir, r.SessionIndexDir(sessionID))
}

// RetrieveSession retrieves the top-k chunk texts for a session's query.
func (r *Retriever) RetrieveSession(ctx context.Context, query, sessionID string, k int) ([]string, error) {
	return r.Retrieve(ctx, query, r.SessionIndexDir(sessionID), k)
}

func (r *Retriever) loadIndex(indexDir string) (*index.Index, error) {
	if v, found := r.indexes.Get(indexDir); found {
		return v.(*index.Index), nil
	}
	ix, err := index.Load(indexDir)
	if err != nil {
		return nil, err
	}
	r.indexes.Set(indexDir, ix, cache.DefaultExpiration)
	return ix, nil
}
