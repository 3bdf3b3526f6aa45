// Package vectorstore indexes chunk embeddings and answers similarity queries.
package vectorstore

import (
	"context"
	"errors"
)

// ErrNotInitialized is returned by every store method invoked before
// Initialize. Precondition failures are loud and never retried.
var ErrNotInitialized = errors.New("vectorstore: not initialized")

// Metric selects the similarity function. All metrics map into [0,1]
// (dot product excepted, which is returned raw).
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
	MetricDot       Metric = "dot"
)

// Embedding is one indexed vector with light metadata. Full chunk content
// lives in the retrieval service's side-table, keeping the store lean.
type Embedding struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Vector     []float32 `json:"vector"`
	WordCount  int       `json:"word_count,omitempty"`
	Keywords   []string  `json:"keywords,omitempty"`
}

// Match is a search hit ranked by similarity score.
type Match struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Score      float64  `json:"score"`
	WordCount  int      `json:"word_count,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// SearchOptions bounds a similarity query.
type SearchOptions struct {
	// TopK caps the number of matches returned.
	TopK int
	// Threshold drops matches scoring below it. No matches above the
	// threshold is a degraded result (empty slice), not an error.
	Threshold float64
	// DocumentID, when set, restricts the search to one document.
	DocumentID string
}

// Stats summarizes store contents.
type Stats struct {
	Vectors   int            `json:"vectors"`
	Documents int            `json:"documents"`
	Dimension int            `json:"dimension"`
	Metric    Metric         `json:"metric"`
	PerDoc    map[string]int `json:"per_doc,omitempty"`
}

// Store is the vector index contract. Implementations: Memory (exhaustive
// in-process scan), Chromem (embedded chromem-go collections) and Surreal
// (durable external collaborator).
//
// Upserts are idempotent per chunk id: a later upsert overwrites an
// earlier one. Every method except Initialize fails with
// ErrNotInitialized until Initialize has run.
type Store interface {
	Initialize(ctx context.Context) error
	Upsert(ctx context.Context, embeddings []Embedding) error
	Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Match, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}
