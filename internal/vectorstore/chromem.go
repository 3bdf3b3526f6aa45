package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "chunks"

// Chromem is a Store backed by chromem-go, a pure-Go embedded vector
// database. It always ranks by cosine similarity; the Metric option is
// ignored. Useful when the corpus outgrows the exhaustive Memory scan.
type Chromem struct {
	logger *slog.Logger

	mu          sync.RWMutex
	initialized bool
	db          *chromem.DB
	col         *chromem.Collection
	docs        map[string][]string // documentID -> chunk ids, for deletion
}

var _ Store = (*Chromem)(nil)

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// NewChromem creates an embedded chromem-backed store.
func NewChromem(logger *slog.Logger) *Chromem {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chromem{logger: logger}
}

func (c *Chromem) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	c.db = chromem.NewDB()
	col, err := c.db.CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("create chromem collection: %w", err)
	}
	c.col = col
	c.docs = make(map[string][]string)
	c.initialized = true
	return nil
}

func (c *Chromem) Upsert(ctx context.Context, embeddings []Embedding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}

	for _, e := range embeddings {
		doc := chromem.Document{
			ID:        e.ChunkID,
			Content:   strings.Join(e.Keywords, " "),
			Embedding: e.Vector,
			Metadata: map[string]string{
				"document_id": e.DocumentID,
				"word_count":  fmt.Sprint(e.WordCount),
			},
		}
		if err := c.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("chromem add document: %w", err)
		}
		if !containsID(c.docs[e.DocumentID], e.ChunkID) {
			c.docs[e.DocumentID] = append(c.docs[e.DocumentID], e.ChunkID)
		}
	}
	return nil
}

func (c *Chromem) Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}

	count := c.col.Count()
	if count == 0 {
		return []Match{}, nil
	}
	n := opts.TopK
	if n <= 0 || n > count {
		n = count
	}

	var where map[string]string
	if opts.DocumentID != "" {
		where = map[string]string{"document_id": opts.DocumentID}
	}

	results, err := c.col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		// chromem rejects nResults above the filtered document count;
		// an over-ask on a small collection is a degraded result.
		if strings.Contains(err.Error(), "nResults") {
			return []Match{}, nil
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if score < opts.Threshold {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    r.ID,
			DocumentID: r.Metadata["document_id"],
			Score:      score,
		})
	}
	return matches, nil
}

func (c *Chromem) DeleteDocument(ctx context.Context, documentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	ids := c.docs[documentID]
	if len(ids) == 0 {
		return nil
	}
	if err := c.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	delete(c.docs, documentID)
	return nil
}

func (c *Chromem) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return ErrNotInitialized
	}
	if err := c.db.DeleteCollection(chromemCollection); err != nil {
		return fmt.Errorf("chromem reset: %w", err)
	}
	col, err := c.db.CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("chromem recreate: %w", err)
	}
	c.col = col
	c.docs = make(map[string][]string)
	return nil
}

func (c *Chromem) Stats(_ context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return Stats{}, ErrNotInitialized
	}
	perDoc := make(map[string]int, len(c.docs))
	for doc, ids := range c.docs {
		perDoc[doc] = len(ids)
	}
	return Stats{
		Vectors:   c.col.Count(),
		Documents: len(c.docs),
		Metric:    MetricCosine,
		PerDoc:    perDoc,
	}, nil
}
