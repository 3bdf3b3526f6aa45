package chunking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/models"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero max size", func(c *Config) { c.MaxChunkSize = 0 }, true},
		{"min above max", func(c *Config) { c.MinChunkSize = c.MaxChunkSize + 1 }, true},
		{"negative overlap", func(c *Config) { c.OverlapSize = -1 }, true},
		{"overlap at min size", func(c *Config) { c.OverlapSize = c.MinChunkSize }, true},
		{"zero chunk cap", func(c *Config) { c.MaxChunksPerDocument = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewEngine(cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkDocument_SingleChunk(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	content := "A short document that easily fits within one chunk."

	result, err := e.ChunkDocument(context.Background(), content, models.DocumentTXT, Options{DocumentID: "doc1"})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if result.TotalChunks != 1 {
		t.Fatalf("got %d chunks, want 1", result.TotalChunks)
	}
	c := result.Chunks[0]
	if c.StartIndex != 0 || c.EndIndex != len(content) {
		t.Errorf("chunk spans [%d,%d), want [0,%d)", c.StartIndex, c.EndIndex, len(content))
	}
	if c.Content != content {
		t.Errorf("chunk content = %q, want full document", c.Content)
	}
	if c.ID != "doc1_chunk_0" {
		t.Errorf("chunk id = %q, want doc1_chunk_0", c.ID)
	}
}

// A 10,000-character boundary-free document with max=4000, overlap=200,
// min=500 must produce exactly 3 chunks, the 2nd starting 3800 characters
// after the 1st.
func TestChunkDocument_OverlapScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunkSize = 4000
	cfg.OverlapSize = 200
	cfg.MinChunkSize = 500
	e := newTestEngine(t, cfg)

	content := strings.Repeat("a", 10000)
	result, err := e.ChunkDocument(context.Background(), content, models.DocumentTXT, Options{DocumentID: "doc"})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if result.TotalChunks != 3 {
		t.Fatalf("got %d chunks, want 3", result.TotalChunks)
	}

	starts := []int{0, 3800, 7600}
	ends := []int{4000, 7800, 10000}
	for i, c := range result.Chunks {
		if c.StartIndex != starts[i] || c.EndIndex != ends[i] {
			t.Errorf("chunk[%d] spans [%d,%d), want [%d,%d)", i, c.StartIndex, c.EndIndex, starts[i], ends[i])
		}
	}
	if got := result.Chunks[1].StartIndex - result.Chunks[0].StartIndex; got != 3800 {
		t.Errorf("second chunk starts %d after first, want 3800", got)
	}
}

func TestChunkDocument_BoundsInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunkSize = 1000
	cfg.OverlapSize = 100
	cfg.MinChunkSize = 300
	e := newTestEngine(t, cfg)

	// Natural-ish text with sentence structure.
	sentence := "The archive keeps every letter she wrote during those years. "
	content := strings.Repeat(sentence, 200)

	result, err := e.ChunkDocument(context.Background(), content, models.DocumentTXT, Options{})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if result.TotalChunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", result.TotalChunks)
	}

	for i, c := range result.Chunks {
		if c.EndIndex < c.StartIndex || c.EndIndex > result.SourceChars {
			t.Errorf("chunk[%d] range [%d,%d) out of bounds", i, c.StartIndex, c.EndIndex)
		}
		size := c.EndIndex - c.StartIndex
		if size > cfg.MaxChunkSize {
			t.Errorf("chunk[%d] size %d exceeds max %d", i, size, cfg.MaxChunkSize)
		}
		if i < result.TotalChunks-1 && size < cfg.MinChunkSize {
			t.Errorf("chunk[%d] size %d below min %d", i, size, cfg.MinChunkSize)
		}
		if i > 0 {
			if c.StartIndex <= result.Chunks[i-1].StartIndex {
				t.Errorf("chunk[%d] start %d not increasing", i, c.StartIndex)
			}
			if c.StartIndex != result.Chunks[i-1].EndIndex-cfg.OverlapSize {
				t.Errorf("chunk[%d] start %d, want prev end %d - overlap %d",
					i, c.StartIndex, result.Chunks[i-1].EndIndex, cfg.OverlapSize)
			}
		}
	}
}

func TestChunkDocument_ParagraphBoundarySnap(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	// Paragraph break at 3500, inside the last 30% of the first 4000-char window.
	content := strings.Repeat("x", 3500) + "\n\n" + strings.Repeat("y", 6000)
	result, err := e.ChunkDocument(context.Background(), content, models.DocumentTXT, Options{})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}

	first := result.Chunks[0]
	if first.EndIndex != 3502 {
		t.Errorf("first chunk end = %d, want 3502 (snapped to paragraph break)", first.EndIndex)
	}
	if first.Metadata.SemanticScore == nil || *first.Metadata.SemanticScore != 1.0 {
		t.Errorf("first chunk semantic score = %v, want 1.0", first.Metadata.SemanticScore)
	}
}

func TestChunkDocument_Truncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunksPerDocument = 2
	e := newTestEngine(t, cfg)

	result, err := e.ChunkDocument(context.Background(), strings.Repeat("a", 20000), models.DocumentTXT, Options{})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if !result.Truncated {
		t.Error("result.Truncated = false, want true")
	}
	if result.TotalChunks != 2 {
		t.Errorf("got %d chunks, want 2", result.TotalChunks)
	}
}

func TestChunkDocument_Cancellation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.ChunkDocument(ctx, strings.Repeat("a", 20000), models.DocumentTXT, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Error("cancelled run must not yield a partial result")
	}
}

func TestChunkDocument_Progress(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	var calls []int
	total := 10000
	_, err := e.ChunkDocument(context.Background(), strings.Repeat("a", total), models.DocumentTXT, Options{
		OnProgress: func(processed, totalChars int) {
			if totalChars != total {
				t.Errorf("progress total = %d, want %d", totalChars, total)
			}
			calls = append(calls, processed)
		},
	})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if len(calls) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			t.Errorf("progress went backwards: %v", calls)
		}
	}
	if calls[len(calls)-1] != total {
		t.Errorf("final progress = %d, want %d", calls[len(calls)-1], total)
	}
}

func TestChunkDocument_SectionLabels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunkSize = 1000
	cfg.OverlapSize = 50
	cfg.MinChunkSize = 100
	e := newTestEngine(t, cfg)

	result, err := e.ChunkDocument(context.Background(), strings.Repeat("a", 10000), models.DocumentTXT, Options{})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}

	if got := result.Chunks[0].Context.Section; got != models.SectionIntroduction {
		t.Errorf("first chunk section = %q, want introduction", got)
	}
	last := result.Chunks[result.TotalChunks-1]
	if last.Context.Section != models.SectionConclusion {
		t.Errorf("last chunk section = %q, want conclusion", last.Context.Section)
	}

	sawMain := false
	for _, c := range result.Chunks {
		if c.Context.Section == models.SectionMainContent {
			sawMain = true
		}
	}
	if !sawMain {
		t.Error("no chunk labeled main_content")
	}
}

func TestChunkDocument_NeighborPreviews(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	result, err := e.ChunkDocument(context.Background(), strings.Repeat("a", 10000), models.DocumentTXT, Options{})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if result.TotalChunks < 2 {
		t.Fatal("need at least two chunks")
	}

	if result.Chunks[0].Context.PreviousPreview != "" {
		t.Error("first chunk should have no previous preview")
	}
	if result.Chunks[0].Context.NextPreview == "" {
		t.Error("first chunk should have a next preview")
	}
	mid := result.Chunks[1]
	if mid.Context.PreviousPreview == "" {
		t.Error("middle chunk should have a previous preview")
	}
	if len(mid.Context.PreviousPreview) > previewLen {
		t.Errorf("preview length %d exceeds %d", len(mid.Context.PreviousPreview), previewLen)
	}
}
