// Package unified answers one query from both knowledge planes: the
// memory ledger and the chunk index. Results stay tagged by source;
// fusion never blends scores across planes.
package unified

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/metrics"
	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/retrieval"
)

// ErrNoLedger is returned when a retriever is built or asked to persist
// without its required ledger.
var ErrNoLedger = errors.New("unified retrieval requires a memory ledger")

// Source tags where a combined result came from.
const (
	SourceMemory = "memory"
	SourceChunk  = "chunk"
)

// Filters narrows a unified query.
type Filters struct {
	// SemanticThreshold is the minimum chunk similarity.
	SemanticThreshold float64 `json:"semantic_threshold,omitempty"`
	// MaxResults caps each source independently.
	MaxResults int `json:"max_results,omitempty"`
}

// Options selects sources and result shaping. The zero value means both
// sources.
type Options struct {
	IncludeMemories bool `json:"include_memories,omitempty"`
	IncludeChunks   bool `json:"include_chunks,omitempty"`
	UnifyResults    bool `json:"unify_results,omitempty"`
	RerankCombined  bool `json:"rerank_combined,omitempty"`
	IncludeMetadata bool `json:"include_metadata,omitempty"`
}

// Query is one unified search request.
type Query struct {
	Query     string  `json:"query"`
	UserID    string  `json:"user_id"`
	SessionID string  `json:"session_id,omitempty"`
	Filters   Filters `json:"filters,omitempty"`
	Options   Options `json:"options,omitempty"`
}

// MemoryMatch is a ledger entry matched against the query, scored in
// memory-relevance space.
type MemoryMatch struct {
	Memory models.MemoryEntry `json:"memory"`
	Score  float64            `json:"score"`
}

// CombinedResult is one fused row. Exactly one of Memory or Chunk is
// set, per Source. Scores from different sources are not comparable.
type CombinedResult struct {
	Source string              `json:"source"`
	Score  float64             `json:"score"`
	Memory *models.MemoryEntry `json:"memory,omitempty"`
	Chunk  *models.Chunk       `json:"chunk,omitempty"`
}

// Result is the outcome of one unified search.
type Result struct {
	Memories   []MemoryMatch          `json:"memories"`
	Chunks     []retrieval.ChunkMatch `json:"chunks"`
	Combined   []CombinedResult       `json:"combined,omitempty"`
	TotalFound int                    `json:"total_found"`
	Duration   time.Duration          `json:"duration"`
}

// Reranker reorders a combined result list. Injected; there is no
// default formula.
type Reranker interface {
	Rerank(query string, combined []CombinedResult) []CombinedResult
}

// Retriever joins the ledger and the chunk index. The ledger is
// required; the retrieval service is optional and its absence degrades
// chunk results to empty.
type Retriever struct {
	ledger    *ledger.Ledger
	retrieval *retrieval.Service
	reranker  Reranker
	extractor InsightExtractor
	logger    *slog.Logger
	collector *metrics.Collector

	mu    sync.RWMutex
	links map[string]map[string]models.MemoryChunkLink // chunkID -> memoryID -> link
	now   func() time.Time
}

// Option customizes a Retriever.
type Option func(*Retriever)

// WithRetrieval wires the chunk-side search service.
func WithRetrieval(s *retrieval.Service) Option {
	return func(r *Retriever) { r.retrieval = s }
}

// WithReranker installs the combined-result reranking strategy.
func WithReranker(rr Reranker) Option {
	return func(r *Retriever) { r.reranker = rr }
}

// WithInsightExtractor replaces the heuristic insight extractor.
func WithInsightExtractor(e InsightExtractor) Option {
	return func(r *Retriever) { r.extractor = e }
}

// WithCollector wires runtime metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Retriever) { r.collector = c }
}

func withClock(now func() time.Time) Option {
	return func(r *Retriever) { r.now = now }
}

// New builds a unified retriever over the given ledger.
func New(l *ledger.Ledger, logger *slog.Logger, opts ...Option) (*Retriever, error) {
	if l == nil {
		return nil, ErrNoLedger
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retriever{
		ledger:    l,
		logger:    logger,
		extractor: HeuristicExtractor{},
		links:     make(map[string]map[string]models.MemoryChunkLink),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// UnifiedSearch queries both planes. Either side coming up empty is a
// degraded result, not an error.
func (r *Retriever) UnifiedSearch(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	stop := r.collector.Timed(metrics.OpUnified)

	includeMemories := q.Options.IncludeMemories
	includeChunks := q.Options.IncludeChunks
	if !includeMemories && !includeChunks {
		includeMemories, includeChunks = true, true
	}

	res := &Result{Memories: []MemoryMatch{}, Chunks: []retrieval.ChunkMatch{}}

	if includeMemories {
		res.Memories = r.searchMemories(q)
	}
	if includeChunks && r.retrieval != nil {
		chunkRes, err := r.retrieval.Search(ctx, retrieval.Query{
			Query: q.Query,
			Options: retrieval.QueryOptions{
				TopK:                q.Filters.MaxResults,
				SimilarityThreshold: q.Filters.SemanticThreshold,
				IncludeMetadata:     q.Options.IncludeMetadata,
			},
		})
		if err != nil {
			return nil, err
		}
		res.Chunks = chunkRes.Matches
	}

	if q.Options.UnifyResults {
		res.Combined = fuse(res.Memories, res.Chunks)
		if q.Options.RerankCombined && r.reranker != nil {
			res.Combined = r.reranker.Rerank(q.Query, res.Combined)
		}
	}

	res.TotalFound = len(res.Memories) + len(res.Chunks)
	res.Duration = time.Since(start)
	stop(res.TotalFound)
	return res, nil
}

// searchMemories matches ledger entries by token overlap with the query
// and scores them in relevance space: the entry's relevance weighted by
// the fraction of query terms it covers.
func (r *Retriever) searchMemories(q Query) []MemoryMatch {
	entries := r.ledger.QueryMemories(models.MemoryQuery{
		UserID:    q.UserID,
		SessionID: q.SessionID,
	})

	terms := queryTerms(q.Query)
	if len(terms) == 0 {
		return []MemoryMatch{}
	}

	matches := make([]MemoryMatch, 0, len(entries))
	for _, entry := range entries {
		overlap := termOverlap(terms, entry.Content)
		if overlap == 0 {
			continue
		}
		matches = append(matches, MemoryMatch{
			Memory: entry,
			Score:  models.Clamp01(entry.Metadata.Relevance * overlap),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Memory.ID < matches[j].Memory.ID
	})
	if q.Filters.MaxResults > 0 && len(matches) > q.Filters.MaxResults {
		matches = matches[:q.Filters.MaxResults]
	}
	return matches
}

func queryTerms(query string) map[string]bool {
	terms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		t = strings.Trim(t, ".,;:!?\"'()")
		if len(t) > 2 {
			terms[t] = true
		}
	}
	return terms
}

func termOverlap(terms map[string]bool, content string) float64 {
	have := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(content)) {
		have[strings.Trim(t, ".,;:!?\"'()")] = true
	}
	shared := 0
	for t := range terms {
		if have[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(terms))
}

// fuse concatenates the two planes, memories first, each already sorted
// by its own score. No cross-plane score arithmetic.
func fuse(memories []MemoryMatch, chunks []retrieval.ChunkMatch) []CombinedResult {
	combined := make([]CombinedResult, 0, len(memories)+len(chunks))
	for i := range memories {
		combined = append(combined, CombinedResult{
			Source: SourceMemory,
			Score:  memories[i].Score,
			Memory: &memories[i].Memory,
		})
	}
	for i := range chunks {
		combined = append(combined, CombinedResult{
			Source: SourceChunk,
			Score:  chunks[i].Score,
			Chunk:  &chunks[i].Chunk,
		})
	}
	return combined
}
