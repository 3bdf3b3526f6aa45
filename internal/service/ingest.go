// Package service provides the ingest pipeline: chunk, index and
// optionally extract insights for batches of files.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/chunking"
	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/retrieval"
	"github.com/mnemo-ai/mnemo/internal/unified"
)

// Per-file resource limit errors. They appear inside a
// FileProcessingResult; the batch itself keeps going.
var (
	ErrFileTooLarge = errors.New("file exceeds the size limit")
	ErrTooManyFiles = errors.New("batch exceeds the file limit")
)

// Config bounds one ingest batch.
type Config struct {
	// MaxConcurrentFiles is the worker pool size.
	MaxConcurrentFiles int
	// MaxFileSize is the per-file content limit in bytes.
	MaxFileSize int
	// MaxFilesPerBatch caps one ProcessFiles call. Files past the cap
	// fail with ErrTooManyFiles. Zero means unbounded.
	MaxFilesPerBatch int
	// ExtractInsights runs insight extraction after indexing.
	ExtractInsights bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFiles: 4,
		MaxFileSize:        10 << 20,
		MaxFilesPerBatch:   100,
	}
}

// FileInput is one file handed to the pipeline, content already read.
type FileInput struct {
	Name    string
	Type    models.DocumentType
	Content string
}

// FileProcessingResult reports one file's outcome. Err is set for
// per-file failures; the rest of the batch is unaffected.
type FileProcessingResult struct {
	FileName   string
	DocumentID string
	ChunkCount int
	Indexed    bool
	Insights   int
	Err        error
}

// IngestService runs files through chunking, indexing and insight
// extraction with a bounded worker pool.
type IngestService struct {
	chunker   *chunking.Engine
	retrieval *retrieval.Service
	unified   *unified.Retriever
	cfg       Config
	logger    *slog.Logger
}

// NewIngestService wires the pipeline. unified may be nil when insight
// extraction is disabled.
func NewIngestService(chunker *chunking.Engine, retrievalSvc *retrieval.Service, unifiedRet *unified.Retriever, cfg Config, logger *slog.Logger) *IngestService {
	if cfg.MaxConcurrentFiles <= 0 {
		cfg.MaxConcurrentFiles = DefaultConfig().MaxConcurrentFiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		chunker:   chunker,
		retrieval: retrievalSvc,
		unified:   unifiedRet,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithInsights returns a copy of the service with insight extraction
// enabled, leaving the original untouched.
func (s *IngestService) WithInsights() *IngestService {
	c := *s
	c.cfg.ExtractInsights = true
	return &c
}

// ProcessOptions configures one batch run.
type ProcessOptions struct {
	// OnFileDone is called after each file finishes, successful or not,
	// with the number of files completed so far and the batch total.
	// Called from worker goroutines.
	OnFileDone func(done, total int, res FileProcessingResult)
}

// ProcessFiles runs the batch through a worker pool of
// MaxConcurrentFiles. Results come back in input order. Cancellation
// stops new work; files not yet processed carry ctx.Err() in their
// result.
func (s *IngestService) ProcessFiles(ctx context.Context, userID, sessionID string, files []FileInput, opts ProcessOptions) []FileProcessingResult {
	results := make([]FileProcessingResult, len(files))
	for i, f := range files {
		results[i].FileName = f.Name
	}

	s.logger.Info("starting ingest batch",
		"files", len(files), "concurrency", s.cfg.MaxConcurrentFiles)

	indexCh := make(chan int, len(files))
	var done atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.MaxConcurrentFiles; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				if err := ctx.Err(); err != nil {
					results[i].Err = err
				} else {
					results[i] = s.processFile(ctx, userID, sessionID, files[i])
				}
				if opts.OnFileDone != nil {
					opts.OnFileDone(int(done.Add(1)), len(files), results[i])
				}
			}
		}()
	}

	for i := range files {
		if s.cfg.MaxFilesPerBatch > 0 && i >= s.cfg.MaxFilesPerBatch {
			results[i].Err = fmt.Errorf("%s: %w", files[i].Name, ErrTooManyFiles)
			continue
		}
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	s.logger.Info("ingest batch complete", "files", len(files), "failed", failed)
	return results
}

func (s *IngestService) processFile(ctx context.Context, userID, sessionID string, file FileInput) FileProcessingResult {
	res := FileProcessingResult{FileName: file.Name}

	if s.cfg.MaxFileSize > 0 && len(file.Content) > s.cfg.MaxFileSize {
		res.Err = fmt.Errorf("%s (%d bytes): %w", file.Name, len(file.Content), ErrFileTooLarge)
		return res
	}

	docID := uuid.NewString()
	res.DocumentID = docID

	chunked, err := s.chunker.ChunkDocument(ctx, file.Content, file.Type, chunking.Options{
		DocumentID: docID,
		FileName:   file.Name,
	})
	if err != nil {
		res.Err = fmt.Errorf("chunk %s: %w", file.Name, err)
		return res
	}
	res.ChunkCount = chunked.TotalChunks

	if s.retrieval != nil {
		if err := s.retrieval.IndexChunks(ctx, chunked.Chunks, docID, retrieval.IndexOptions{}); err != nil {
			res.Err = fmt.Errorf("index %s: %w", file.Name, err)
			return res
		}
		res.Indexed = true
	}

	if s.cfg.ExtractInsights && s.unified != nil {
		insights, err := s.unified.ExtractFileInsights(ctx, userID, sessionID, docID, file.Name, string(file.Type), chunked.Chunks)
		if err != nil {
			res.Err = fmt.Errorf("insights %s: %w", file.Name, err)
			return res
		}
		res.Insights = len(insights.Insights) + len(insights.Anchors) + len(insights.Motifs)
	}

	s.logger.Debug("file ingested",
		"file", file.Name, "document_id", docID,
		"chunks", res.ChunkCount, "insights", res.Insights)
	return res
}
