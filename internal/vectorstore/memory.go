package vectorstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// Dimension is the expected vector length. Zero disables the check.
	Dimension int
	// Metric is the similarity function; cosine when empty.
	Metric Metric
}

// Memory is the in-process Store: a map guarded by a RWMutex, searched by
// exhaustive scan. The original design relied on cooperative scheduling
// for its single-writer guarantee; the lock restores it on a preemptive
// runtime.
type Memory struct {
	cfg    MemoryConfig
	logger *slog.Logger

	mu          sync.RWMutex
	initialized bool
	vectors     map[string]Embedding // chunkID -> embedding
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-process vector store.
func NewMemory(cfg MemoryConfig, logger *slog.Logger) *Memory {
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{cfg: cfg, logger: logger}
}

func (m *Memory) Initialize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	m.vectors = make(map[string]Embedding)
	m.initialized = true
	m.logger.Debug("vector store initialized", "metric", m.cfg.Metric, "dimension", m.cfg.Dimension)
	return nil
}

func (m *Memory) Upsert(_ context.Context, embeddings []Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	for _, e := range embeddings {
		if m.cfg.Dimension > 0 && len(e.Vector) != m.cfg.Dimension {
			return &DimensionError{ChunkID: e.ChunkID, Got: len(e.Vector), Want: m.cfg.Dimension}
		}
		m.vectors[e.ChunkID] = e
	}
	return nil
}

func (m *Memory) Search(_ context.Context, vector []float32, opts SearchOptions) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}

	matches := make([]Match, 0)
	for _, e := range m.vectors {
		if opts.DocumentID != "" && e.DocumentID != opts.DocumentID {
			continue
		}
		score := Similarity(vector, e.Vector, m.cfg.Metric)
		if score < opts.Threshold {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Score:      score,
			WordCount:  e.WordCount,
			Keywords:   e.Keywords,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if opts.TopK > 0 && len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

func (m *Memory) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	for id, e := range m.vectors {
		if e.DocumentID == documentID {
			delete(m.vectors, id)
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	m.vectors = make(map[string]Embedding)
	return nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return Stats{}, ErrNotInitialized
	}

	perDoc := make(map[string]int)
	for _, e := range m.vectors {
		perDoc[e.DocumentID]++
	}
	return Stats{
		Vectors:   len(m.vectors),
		Documents: len(perDoc),
		Dimension: m.cfg.Dimension,
		Metric:    m.cfg.Metric,
		PerDoc:    perDoc,
	}, nil
}
