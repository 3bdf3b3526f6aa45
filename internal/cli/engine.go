package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mnemo-ai/mnemo/internal/chunking"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/metrics"
	"github.com/mnemo-ai/mnemo/internal/retrieval"
	"github.com/mnemo-ai/mnemo/internal/service"
	"github.com/mnemo-ai/mnemo/internal/unified"
	"github.com/mnemo-ai/mnemo/internal/vectorstore"
)

// Engine bundles the wired components for one CLI invocation.
type Engine struct {
	Logger    *slog.Logger
	Chunker   *chunking.Engine
	Embedder  embedding.Embedder
	Store     vectorstore.Store
	Retrieval *retrieval.Service
	Ledger    *ledger.Ledger
	Unified   *unified.Retriever
	Ingest    *service.IngestService
	Metrics   *metrics.Collector

	closeLog func() error
	surreal  *vectorstore.Surreal
}

// NewEngine wires every component from the effective configuration.
func NewEngine(ctx context.Context, cfg config.Config) (*Engine, error) {
	logger, closeLog := config.SetupLogger(cfg.Log, cfg.LogLevel())

	emb, err := embedding.New(embedding.Config{
		Provider:     embedding.ProviderType(cfg.Embedding.Provider),
		Model:        cfg.Embedding.Model,
		Dimension:    cfg.Embedding.Dimension,
		OllamaHost:   cfg.Embedding.OllamaHost,
		OpenAIAPIKey: cfg.Embedding.OpenAIAPIKey,
		CacheSize:    cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	e := &Engine{
		Logger:   logger,
		Embedder: emb,
		Metrics:  metrics.NewCollector(),
		closeLog: closeLog,
	}

	switch cfg.Store.Backend {
	case "chromem":
		e.Store = vectorstore.NewChromem(logger)
	case "surreal":
		surreal, err := vectorstore.NewSurreal(vectorstore.SurrealConfig{
			URL:       cfg.Store.SurrealURL,
			Namespace: cfg.Store.SurrealNamespace,
			Database:  cfg.Store.SurrealDatabase,
			Username:  cfg.Store.SurrealUser,
			Password:  cfg.Store.SurrealPass,
			Dimension: emb.Dimension(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect surreal store: %w", err)
		}
		e.Store = surreal
		e.surreal = surreal
	default:
		e.Store = vectorstore.NewMemory(vectorstore.MemoryConfig{
			Dimension: emb.Dimension(),
			Metric:    vectorstore.Metric(cfg.Store.Metric),
		}, logger)
	}

	e.Chunker, err = chunking.NewEngine(chunking.Config{
		MaxChunkSize:         cfg.Chunking.MaxChunkSize,
		OverlapSize:          cfg.Chunking.OverlapSize,
		MinChunkSize:         cfg.Chunking.MinChunkSize,
		SemanticBoundaries:   cfg.Chunking.SemanticBoundaries,
		PreserveParagraphs:   cfg.Chunking.PreserveParagraphs,
		PreserveChapters:     cfg.Chunking.PreserveChapters,
		MaxChunksPerDocument: cfg.Chunking.MaxChunksPerDocument,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	e.Retrieval = retrieval.NewService(e.Store, emb, retrieval.DefaultConfig(), logger, e.Metrics)
	if err := e.Retrieval.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize retrieval: %w", err)
	}

	ledgerOpts := []ledger.Option{ledger.WithCollector(e.Metrics)}
	if cfg.Ledger.TokenCounter == "tiktoken" {
		counter, err := ledger.NewTiktokenCounter("")
		if err != nil {
			logger.Warn("tiktoken unavailable, falling back to heuristic counter", "error", err)
		} else {
			ledgerOpts = append(ledgerOpts, ledger.WithTokenCounter(counter))
		}
	}
	e.Ledger = ledger.New(ledger.Config{MaxMemoriesPerUser: cfg.Ledger.MaxMemoriesPerUser}, logger, ledgerOpts...)
	if cfg.Ledger.DecayInterval > 0 {
		e.Ledger.StartSweeper(ctx, cfg.Ledger.DecayInterval)
	}

	e.Unified, err = unified.New(e.Ledger, logger,
		unified.WithRetrieval(e.Retrieval),
		unified.WithCollector(e.Metrics),
	)
	if err != nil {
		return nil, err
	}

	e.Ingest = service.NewIngestService(e.Chunker, e.Retrieval, e.Unified, service.Config{
		MaxConcurrentFiles: cfg.Ingest.MaxConcurrentFiles,
		MaxFileSize:        cfg.Ingest.MaxFileSize,
		MaxFilesPerBatch:   cfg.Ingest.MaxFilesPerBatch,
		ExtractInsights:    cfg.Ingest.ExtractInsights,
	}, logger)

	return e, nil
}

// Close releases the engine's external resources.
func (e *Engine) Close(ctx context.Context) error {
	var firstErr error
	if e.surreal != nil {
		if err := e.surreal.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if e.closeLog != nil {
		if err := e.closeLog(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
