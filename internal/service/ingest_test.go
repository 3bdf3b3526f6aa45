package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/chunking"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/retrieval"
	"github.com/mnemo-ai/mnemo/internal/unified"
	"github.com/mnemo-ai/mnemo/internal/vectorstore"
)

func newPipeline(t *testing.T, cfg Config) (*IngestService, *retrieval.Service, *ledger.Ledger) {
	t.Helper()

	chunker, err := chunking.NewEngine(chunking.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	emb := embedding.NewFrequency(16)
	store := vectorstore.NewMemory(vectorstore.MemoryConfig{Dimension: 16}, nil)
	retrievalSvc := retrieval.NewService(store, emb, retrieval.DefaultConfig(), nil, nil)
	if err := retrievalSvc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	l := ledger.New(ledger.DefaultConfig(), nil)
	unifiedRet, err := unified.New(l, nil, unified.WithRetrieval(retrievalSvc))
	if err != nil {
		t.Fatalf("unified.New() error = %v", err)
	}

	return NewIngestService(chunker, retrievalSvc, unifiedRet, cfg, nil), retrievalSvc, l
}

func TestProcessFiles(t *testing.T) {
	svc, retrievalSvc, _ := newPipeline(t, DefaultConfig())

	files := []FileInput{
		{Name: "notes.txt", Type: models.DocumentTXT, Content: "a short note about sailing"},
		{Name: "log.txt", Type: models.DocumentTXT, Content: "another short document"},
	}
	var progressed atomic.Int32
	results := svc.ProcessFiles(context.Background(), "u1", "s1", files, ProcessOptions{
		OnFileDone: func(done, total int, _ FileProcessingResult) {
			progressed.Add(1)
			if total != 2 {
				t.Errorf("OnFileDone total = %d, want 2", total)
			}
		},
	})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if progressed.Load() != 2 {
		t.Errorf("OnFileDone called %d times, want 2", progressed.Load())
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v", i, r.Err)
		}
		if r.FileName != files[i].Name {
			t.Errorf("results[%d].FileName = %q, want input order preserved", i, r.FileName)
		}
		if r.DocumentID == "" {
			t.Errorf("results[%d] has no document id", i)
		}
		if r.ChunkCount != 1 || !r.Indexed {
			t.Errorf("results[%d] = %+v, want 1 chunk indexed", i, r)
		}
	}

	stats, err := retrievalSvc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ChunksStored != 2 {
		t.Errorf("ChunksStored = %d, want 2", stats.ChunksStored)
	}
}

func TestProcessFiles_PartialFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFileSize = 64
	svc, _, _ := newPipeline(t, cfg)

	files := []FileInput{
		{Name: "big.txt", Type: models.DocumentTXT, Content: strings.Repeat("x", 100)},
		{Name: "bad.bin", Type: models.DocumentType("bin"), Content: "binary junk"},
		{Name: "ok.txt", Type: models.DocumentTXT, Content: "fine"},
	}
	results := svc.ProcessFiles(context.Background(), "u1", "s1", files, ProcessOptions{})

	if !errors.Is(results[0].Err, ErrFileTooLarge) {
		t.Errorf("oversize file error = %v, want ErrFileTooLarge", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("unknown document type accepted")
	}
	if results[2].Err != nil {
		t.Errorf("healthy file failed alongside bad ones: %v", results[2].Err)
	}
	if !results[2].Indexed {
		t.Error("healthy file not indexed")
	}
}

func TestProcessFiles_BatchLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFilesPerBatch = 1
	svc, _, _ := newPipeline(t, cfg)

	files := []FileInput{
		{Name: "a.txt", Type: models.DocumentTXT, Content: "one"},
		{Name: "b.txt", Type: models.DocumentTXT, Content: "two"},
	}
	results := svc.ProcessFiles(context.Background(), "u1", "s1", files, ProcessOptions{})

	if results[0].Err != nil {
		t.Errorf("first file failed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrTooManyFiles) {
		t.Errorf("over-limit file error = %v, want ErrTooManyFiles", results[1].Err)
	}
}

func TestProcessFiles_Cancellation(t *testing.T) {
	svc, _, _ := newPipeline(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []FileInput{
		{Name: "a.txt", Type: models.DocumentTXT, Content: "one"},
		{Name: "b.txt", Type: models.DocumentTXT, Content: "two"},
	}
	results := svc.ProcessFiles(ctx, "u1", "s1", files, ProcessOptions{})

	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("results[%d].Err = %v, want context.Canceled", i, r.Err)
		}
	}
}

func TestProcessFiles_ExtractInsights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtractInsights = true
	svc, _, l := newPipeline(t, cfg)

	results := svc.ProcessFiles(context.Background(), "u1", "s1", []FileInput{
		{Name: "essay.txt", Type: models.DocumentTXT, Content: "An essay about memory. It covers retrieval."},
	}, ProcessOptions{})
	if results[0].Err != nil {
		t.Fatalf("result error = %v", results[0].Err)
	}
	if results[0].Insights == 0 {
		t.Error("no insights extracted")
	}

	entries := l.QueryMemories(models.MemoryQuery{
		UserID:      "u1",
		FileContext: &models.FileContextFilter{DocumentID: results[0].DocumentID},
	})
	if len(entries) == 0 {
		t.Error("no file memories persisted for the ingested document")
	}
}
