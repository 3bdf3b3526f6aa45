package vectorstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// Force HTTP/1.1 for WSS connections: the WebSocket upgrade needs
	// HTTP/1.1 semantics, which fail under HTTP/2 ALPN.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// SurrealConfig holds connection settings for the durable store.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string

	// Dimension fixes the HNSW index dimension; required.
	Dimension int
	// EF is the HNSW search effort parameter (40 when 0).
	EF int
}

// Surreal is a Store backed by SurrealDB with an HNSW vector index. The
// engine itself is in-process and ephemeral; this implementation is the
// external durability collaborator, reachable through the same Store
// contract as the in-memory backends. Cosine only (index distance).
type Surreal struct {
	cfg    SurrealConfig
	logger logger.Logger

	conn        *rews.Connection[*gorillaws.Connection]
	db          *surrealdb.DB
	initialized bool
}

var _ Store = (*Surreal)(nil)

// NewSurreal creates an unconnected surreal store. Initialize dials,
// authenticates and defines the schema.
func NewSurreal(cfg SurrealConfig, log *slog.Logger) (*Surreal, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("surreal store: dimension required")
	}
	if cfg.EF <= 0 {
		cfg.EF = 40
	}
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}
	return &Surreal{cfg: cfg, logger: sdkLogger}, nil
}

const surrealSchemaTmpl = `
    DEFINE TABLE IF NOT EXISTS chunk_vector SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS chunk_id ON chunk_vector TYPE string;
    DEFINE FIELD IF NOT EXISTS document_id ON chunk_vector TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk_vector TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS word_count ON chunk_vector TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS keywords ON chunk_vector TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS created ON chunk_vector TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_vector_chunk_id ON chunk_vector FIELDS chunk_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS chunk_vector_document ON chunk_vector FIELDS document_id;
    DEFINE INDEX IF NOT EXISTS chunk_vector_embedding ON chunk_vector FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`

func (s *Surreal) Initialize(ctx context.Context) error {
	if s.initialized {
		return nil
	}

	codec := surrealcbor.New()

	// gorillaws wants the base URL without the /rpc suffix.
	baseURL := strings.TrimSuffix(s.cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      s.logger,
			}), nil
		},
		5*time.Second,
		codec,
		s.logger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	s.logger.Info("connecting to SurrealDB", "url", s.cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("from connection: %w", err)
	}

	if _, err := db.SignIn(ctx, surrealdb.Auth{
		Username: s.cfg.Username,
		Password: s.cfg.Password,
	}); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, s.cfg.Namespace, s.cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("use: %w", err)
	}

	schema := fmt.Sprintf(surrealSchemaTmpl, s.cfg.Dimension)
	if _, err := surrealdb.Query[any](ctx, db, schema, nil); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("init schema: %w", err)
	}

	s.conn = conn
	s.db = db
	s.initialized = true
	s.logger.Info("surreal vector store ready", "dimension", s.cfg.Dimension)
	return nil
}

// Close shuts down the connection. Not part of the Store contract; the
// composition root owns the lifecycle.
func (s *Surreal) Close(ctx context.Context) error {
	if !s.initialized {
		return nil
	}
	s.initialized = false
	return s.conn.Close(ctx)
}

type surrealVector struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Embedding  []float32 `json:"embedding"`
	WordCount  int       `json:"word_count"`
	Keywords   []string  `json:"keywords"`
	Score      float64   `json:"score,omitempty"`
}

func (s *Surreal) Upsert(ctx context.Context, embeddings []Embedding) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	const sql = `
		UPSERT type::thing("chunk_vector", $id) CONTENT {
			chunk_id: $chunk_id,
			document_id: $document_id,
			embedding: $embedding,
			word_count: $word_count,
			keywords: $keywords
		}`

	for _, e := range embeddings {
		if len(e.Vector) != s.cfg.Dimension {
			return &DimensionError{ChunkID: e.ChunkID, Got: len(e.Vector), Want: s.cfg.Dimension}
		}
		vars := map[string]any{
			"id":          e.ChunkID,
			"chunk_id":    e.ChunkID,
			"document_id": e.DocumentID,
			"embedding":   e.Vector,
			"word_count":  e.WordCount,
			"keywords":    e.Keywords,
		}
		if vars["keywords"] == nil || e.Keywords == nil {
			vars["keywords"] = []string{}
		}
		if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", e.ChunkID, err)
		}
	}
	return nil
}

func (s *Surreal) Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Match, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	docClause := ""
	if opts.DocumentID != "" {
		docClause = "AND document_id = $document_id"
	}

	sql := fmt.Sprintf(`
		SELECT chunk_id, document_id, word_count, keywords,
		       vector::similarity::cosine(embedding, $emb) AS score
		FROM chunk_vector
		WHERE embedding <|%d,%d|> $emb %s
		ORDER BY score DESC
	`, topK, s.cfg.EF, docClause)

	vars := map[string]any{"emb": vector}
	if opts.DocumentID != "" {
		vars["document_id"] = opts.DocumentID
	}

	results, err := surrealdb.Query[[]surrealVector](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]Match, 0)
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			if r.Score < opts.Threshold {
				continue
			}
			matches = append(matches, Match{
				ChunkID:    r.ChunkID,
				DocumentID: r.DocumentID,
				Score:      r.Score,
				WordCount:  r.WordCount,
				Keywords:   r.Keywords,
			})
		}
	}
	return matches, nil
}

func (s *Surreal) DeleteDocument(ctx context.Context, documentID string) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	_, err := surrealdb.Query[any](ctx, s.db,
		"DELETE chunk_vector WHERE document_id = $document_id",
		map[string]any{"document_id": documentID})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return nil
}

func (s *Surreal) Clear(ctx context.Context) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE chunk_vector", nil); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

type surrealDocCount struct {
	DocumentID string `json:"document_id"`
	Count      int    `json:"count"`
}

func (s *Surreal) Stats(ctx context.Context) (Stats, error) {
	if !s.initialized {
		return Stats{}, ErrNotInitialized
	}

	results, err := surrealdb.Query[[]surrealDocCount](ctx, s.db,
		"SELECT document_id, count() AS count FROM chunk_vector GROUP BY document_id", nil)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}

	stats := Stats{
		Dimension: s.cfg.Dimension,
		Metric:    MetricCosine,
		PerDoc:    make(map[string]int),
	}
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			stats.PerDoc[r.DocumentID] = r.Count
			stats.Vectors += r.Count
			stats.Documents++
		}
	}
	return stats, nil
}
