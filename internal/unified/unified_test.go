package unified

import (
	"context"
	"errors"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/retrieval"
	"github.com/mnemo-ai/mnemo/internal/vectorstore"
)

type stubEmbedder struct {
	vectors map[string][]float32
	dim     int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Model() string  { return "stub" }
func (s *stubEmbedder) Dimension() int { return s.dim }

func newTestRetriever(t *testing.T, opts ...Option) (*Retriever, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(ledger.DefaultConfig(), nil)
	r, err := New(l, nil, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r, l
}

func newIndexedRetrieval(t *testing.T, emb *stubEmbedder, chunks []models.Chunk, documentID string) *retrieval.Service {
	t.Helper()
	store := vectorstore.NewMemory(vectorstore.MemoryConfig{Dimension: emb.dim}, nil)
	svc := retrieval.NewService(store, emb, retrieval.DefaultConfig(), nil, nil)
	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := svc.IndexChunks(ctx, chunks, documentID, retrieval.IndexOptions{}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	return svc
}

func TestNew_RequiresLedger(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNoLedger) {
		t.Errorf("New(nil) error = %v, want ErrNoLedger", err)
	}
}

func TestUnifiedSearch_MemoriesOnlyWithoutRetrieval(t *testing.T) {
	r, l := newTestRetriever(t)

	if _, err := l.CreateMemory("u1", "s1", models.MemoryFact, "lang", "the user writes mostly golang services", ledger.CreateOptions{Relevance: 0.8}); err != nil {
		t.Fatalf("CreateMemory() error = %v", err)
	}
	if _, err := l.CreateMemory("u1", "s1", models.MemoryFact, "food", "lunch is at noon", ledger.CreateOptions{}); err != nil {
		t.Fatalf("CreateMemory() error = %v", err)
	}

	res, err := r.UnifiedSearch(context.Background(), Query{Query: "golang services", UserID: "u1"})
	if err != nil {
		t.Fatalf("UnifiedSearch() error = %v", err)
	}
	if len(res.Memories) != 1 {
		t.Fatalf("got %d memory matches, want 1", len(res.Memories))
	}
	m := res.Memories[0]
	if m.Memory.Category != "lang" {
		t.Errorf("matched %q, want the golang fact", m.Memory.Content)
	}
	// Both query terms present: score is the full relevance.
	if m.Score != 0.8 {
		t.Errorf("score = %v, want 0.8", m.Score)
	}
	// No retrieval service wired: chunk side degrades to empty.
	if len(res.Chunks) != 0 {
		t.Errorf("chunks = %v, want empty", res.Chunks)
	}
	if res.TotalFound != 1 {
		t.Errorf("TotalFound = %d, want 1", res.TotalFound)
	}
}

func TestUnifiedSearch_Fusion(t *testing.T) {
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float32{
		"chapter about sailing": {1, 0},
		"sailing notes":         {1, 0},
	}}
	svc := newIndexedRetrieval(t, emb, []models.Chunk{
		{ID: "doc1_chunk_0", Content: "chapter about sailing"},
	}, "doc1")

	r, l := newTestRetriever(t, WithRetrieval(svc))
	if _, err := l.CreateMemory("u1", "s1", models.MemoryPreference, "", "user keeps sailing notes", ledger.CreateOptions{Relevance: 0.9}); err != nil {
		t.Fatalf("CreateMemory() error = %v", err)
	}

	res, err := r.UnifiedSearch(context.Background(), Query{
		Query:   "sailing notes",
		UserID:  "u1",
		Options: Options{UnifyResults: true},
	})
	if err != nil {
		t.Fatalf("UnifiedSearch() error = %v", err)
	}

	if len(res.Memories) != 1 || len(res.Chunks) != 1 {
		t.Fatalf("memories = %d chunks = %d, want 1 and 1", len(res.Memories), len(res.Chunks))
	}
	if len(res.Combined) != 2 {
		t.Fatalf("combined = %d rows, want 2", len(res.Combined))
	}

	// Tagged concatenation: memories first, chunks after, each row
	// keeping its own plane's score untouched.
	first, second := res.Combined[0], res.Combined[1]
	if first.Source != SourceMemory || first.Memory == nil || first.Chunk != nil {
		t.Errorf("combined[0] = %+v, want a memory row", first)
	}
	if first.Score != res.Memories[0].Score {
		t.Errorf("memory row score = %v, want %v unblended", first.Score, res.Memories[0].Score)
	}
	if second.Source != SourceChunk || second.Chunk == nil || second.Memory != nil {
		t.Errorf("combined[1] = %+v, want a chunk row", second)
	}
	if second.Score != res.Chunks[0].Score {
		t.Errorf("chunk row score = %v, want %v unblended", second.Score, res.Chunks[0].Score)
	}
	if res.TotalFound != 2 {
		t.Errorf("TotalFound = %d, want 2", res.TotalFound)
	}
}

type reverseReranker struct{ called bool }

func (r *reverseReranker) Rerank(_ string, combined []CombinedResult) []CombinedResult {
	r.called = true
	out := make([]CombinedResult, len(combined))
	for i := range combined {
		out[i] = combined[len(combined)-1-i]
	}
	return out
}

func TestUnifiedSearch_RerankCombined(t *testing.T) {
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float32{
		"indexed text": {1, 0},
		"shared query": {1, 0},
	}}
	svc := newIndexedRetrieval(t, emb, []models.Chunk{
		{ID: "d_chunk_0", Content: "indexed text"},
	}, "d")

	rr := &reverseReranker{}
	r, l := newTestRetriever(t, WithRetrieval(svc), WithReranker(rr))
	if _, err := l.CreateMemory("u1", "", models.MemoryFact, "", "shared query memory", ledger.CreateOptions{}); err != nil {
		t.Fatalf("CreateMemory() error = %v", err)
	}

	res, err := r.UnifiedSearch(context.Background(), Query{
		Query:   "shared query",
		UserID:  "u1",
		Options: Options{UnifyResults: true, RerankCombined: true},
	})
	if err != nil {
		t.Fatalf("UnifiedSearch() error = %v", err)
	}
	if !rr.called {
		t.Error("reranker not invoked with RerankCombined set")
	}
	if len(res.Combined) != 2 || res.Combined[0].Source != SourceChunk {
		t.Errorf("combined = %+v, want reranker's (reversed) order", res.Combined)
	}
}

func TestUnifiedSearch_SourceSelection(t *testing.T) {
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float32{
		"indexed text": {1, 0},
		"indexed":      {1, 0},
	}}
	svc := newIndexedRetrieval(t, emb, []models.Chunk{
		{ID: "d_chunk_0", Content: "indexed text"},
	}, "d")

	r, l := newTestRetriever(t, WithRetrieval(svc))
	if _, err := l.CreateMemory("u1", "", models.MemoryFact, "", "indexed things I remember", ledger.CreateOptions{}); err != nil {
		t.Fatalf("CreateMemory() error = %v", err)
	}

	res, err := r.UnifiedSearch(context.Background(), Query{
		Query:   "indexed",
		UserID:  "u1",
		Options: Options{IncludeChunks: true},
	})
	if err != nil {
		t.Fatalf("UnifiedSearch() error = %v", err)
	}
	if len(res.Memories) != 0 {
		t.Errorf("memories = %v, want none when only chunks requested", res.Memories)
	}
	if len(res.Chunks) != 1 {
		t.Errorf("chunks = %d, want 1", len(res.Chunks))
	}
}

func TestUnifiedSearch_HighThresholdDegrades(t *testing.T) {
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float32{
		"indexed text": {1, 0},
		"slanted":      {0.7, 0.7},
	}}
	svc := newIndexedRetrieval(t, emb, []models.Chunk{
		{ID: "d_chunk_0", Content: "indexed text"},
	}, "d")

	r, _ := newTestRetriever(t, WithRetrieval(svc))
	res, err := r.UnifiedSearch(context.Background(), Query{
		Query:   "slanted",
		UserID:  "u1",
		Filters: Filters{SemanticThreshold: 0.99},
	})
	if err != nil {
		t.Fatalf("UnifiedSearch() error = %v, want degraded empty result", err)
	}
	if len(res.Chunks) != 0 || len(res.Memories) != 0 {
		t.Errorf("result = %+v, want empty both sides", res)
	}
}
