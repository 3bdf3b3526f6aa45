// Package retrieval orchestrates chunk embedding, batched indexing and
// similarity search over a vector store.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/metrics"
	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/vectorstore"
)

// Config sets service defaults, applied when a query leaves them zero.
type Config struct {
	// BatchSize is the number of chunks embedded and upserted per batch.
	BatchSize int
	// TopK is the default result cap.
	TopK int
	// SimilarityThreshold is the default minimum match score.
	SimilarityThreshold float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:           32,
		TopK:                10,
		SimilarityThreshold: 0.1,
	}
}

// IndexOptions configures one indexing run.
type IndexOptions struct {
	// BatchSize overrides the service default when positive.
	BatchSize int
	// OnProgress is called after each batch with chunks indexed so far
	// and the total.
	OnProgress func(indexed, total int)
}

// Filters narrows a search.
type Filters struct {
	DocumentID string `json:"document_id,omitempty"`
}

// QueryOptions tunes one search.
type QueryOptions struct {
	TopK                int     `json:"top_k,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	IncludeMetadata     bool    `json:"include_metadata,omitempty"`
	// Rerank re-orders matches with a keyword-overlap boost on top of
	// vector similarity.
	Rerank bool `json:"rerank,omitempty"`
}

// Query is a semantic search request.
type Query struct {
	Query   string       `json:"query"`
	Filters Filters      `json:"filters,omitempty"`
	Options QueryOptions `json:"options,omitempty"`
}

// ChunkMatch is a search hit rehydrated with full chunk content.
type ChunkMatch struct {
	Chunk models.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Result is the outcome of one search.
type Result struct {
	Matches    []ChunkMatch  `json:"matches"`
	TotalFound int           `json:"total_found"`
	Duration   time.Duration `json:"duration"`
}

// Service owns the chunk side-table: vector stores hold only vectors and
// light metadata, the service rehydrates matches with full chunk content
// before returning them. The side-table is reachable only through these
// methods.
type Service struct {
	store     vectorstore.Store
	embedder  embedding.Embedder
	cfg       Config
	logger    *slog.Logger
	collector *metrics.Collector

	mu          sync.RWMutex
	initialized bool
	chunks      map[string]models.Chunk // chunkID -> full chunk
}

// NewService wires a retrieval service. collector may be nil.
func NewService(store vectorstore.Store, embedder embedding.Embedder, cfg Config, logger *slog.Logger, collector *metrics.Collector) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		embedder:  embedder,
		cfg:       cfg,
		logger:    logger,
		collector: collector,
	}
}

// Initialize prepares the service and its store. Required before any
// other method.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := s.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	s.chunks = make(map[string]models.Chunk)
	s.initialized = true
	return nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return vectorstore.ErrNotInitialized
	}
	return nil
}

// IndexChunks embeds and indexes chunks in batches. The context is
// checked between batches; cancellation returns ctx.Err() without
// indexing further batches (batches already written stay indexed).
func (s *Service) IndexChunks(ctx context.Context, chunks []models.Chunk, documentID string, opts IndexOptions) error {
	if err := s.ready(); err != nil {
		return err
	}
	stop := s.collector.Timed(metrics.OpIndex)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	indexed := 0
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		embeddings := make([]vectorstore.Embedding, len(batch))
		for i, c := range batch {
			embeddings[i] = vectorstore.Embedding{
				ChunkID:    c.ID,
				DocumentID: documentID,
				Vector:     vectors[i],
				WordCount:  c.Metadata.WordCount,
				Keywords:   c.Metadata.Keywords,
			}
		}
		if err := s.store.Upsert(ctx, embeddings); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}

		s.mu.Lock()
		for _, c := range batch {
			if c.Metadata.DocumentID == "" {
				c.Metadata.DocumentID = documentID
			}
			s.chunks[c.ID] = c
		}
		s.mu.Unlock()

		indexed += len(batch)
		if opts.OnProgress != nil {
			opts.OnProgress(indexed, len(chunks))
		}
	}

	stop(indexed)
	s.logger.Debug("indexed document", "document_id", documentID, "chunks", indexed)
	return nil
}

// Search embeds the query and returns matches rehydrated with full chunk
// content, ranked by similarity. No matches above the threshold is a
// degraded result: empty matches, nil error.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	stop := s.collector.Timed(metrics.OpSearch)

	topK := q.Options.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	threshold := q.Options.SimilarityThreshold
	if threshold == 0 {
		threshold = s.cfg.SimilarityThreshold
	}

	vector, err := s.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.Search(ctx, vector, vectorstore.SearchOptions{
		TopK:       topK,
		Threshold:  threshold,
		DocumentID: q.Filters.DocumentID,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	result := &Result{Matches: make([]ChunkMatch, 0, len(matches))}
	s.mu.RLock()
	for _, m := range matches {
		chunk, ok := s.chunks[m.ChunkID]
		if !ok {
			s.logger.Warn("match without side-table entry, skipping", "chunk_id", m.ChunkID)
			continue
		}
		if !q.Options.IncludeMetadata {
			chunk.Metadata = models.ChunkMetadata{DocumentID: chunk.Metadata.DocumentID}
			chunk.Context = models.ChunkContext{}
		}
		result.Matches = append(result.Matches, ChunkMatch{Chunk: chunk, Score: m.Score})
	}
	s.mu.RUnlock()

	if q.Options.Rerank {
		rerankByKeywords(result.Matches, q.Query)
	}

	result.TotalFound = len(result.Matches)
	result.Duration = time.Since(start)
	stop(result.TotalFound)
	return result, nil
}

// rerankByKeywords nudges matches sharing literal query terms above pure
// vector neighbors. The boost is small so similarity stays dominant.
func rerankByKeywords(matches []ChunkMatch, query string) {
	terms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 3 {
			terms[t] = true
		}
	}
	boost := func(m ChunkMatch) float64 {
		b := 0.0
		for _, kw := range m.Chunk.Metadata.Keywords {
			if terms[kw] {
				b += 0.02
			}
		}
		if b > 0.1 {
			b = 0.1
		}
		return m.Score + b
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return boost(matches[i]) > boost(matches[j])
	})
}

// RemoveDocument drops the document's vectors and every side-table entry
// whose chunk id carries the document id prefix. Chunk ids are generated
// per document, so the prefix match is exact.
func (s *Service) RemoveDocument(ctx context.Context, documentID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	s.mu.Lock()
	for id := range s.chunks {
		if strings.HasPrefix(id, documentID) {
			delete(s.chunks, id)
		}
	}
	s.mu.Unlock()
	return nil
}

// Clear drops every vector and side-table entry.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.chunks = make(map[string]models.Chunk)
	s.mu.Unlock()
	return nil
}

// Stats combines store stats with the side-table size.
type Stats struct {
	Store        vectorstore.Stats `json:"store"`
	ChunksStored int               `json:"chunks_stored"`
	Embedder     string            `json:"embedder"`
}

// Stats reports store and side-table statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if err := s.ready(); err != nil {
		return Stats{}, err
	}
	storeStats, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	n := len(s.chunks)
	s.mu.RUnlock()
	return Stats{Store: storeStats, ChunksStored: n, Embedder: s.embedder.Model()}, nil
}
