package embedding

import (
	"context"
	"testing"
)

// countingEmbedder wraps Frequency and counts backend calls.
type countingEmbedder struct {
	*Frequency
	embedCalls int
	batchCalls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.Frequency.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	return c.Frequency.EmbedBatch(ctx, texts)
}

func TestCached_Embed(t *testing.T) {
	inner := &countingEmbedder{Frequency: NewFrequency(8)}
	c, err := NewCached(inner, 16)
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Embed(ctx, "repeated query"); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	if inner.embedCalls != 1 {
		t.Errorf("backend called %d times, want 1", inner.embedCalls)
	}

	if _, err := c.Embed(ctx, "different query"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.embedCalls != 2 {
		t.Errorf("backend called %d times, want 2", inner.embedCalls)
	}
}

func TestCached_EmbedBatchPartialHit(t *testing.T) {
	inner := &countingEmbedder{Frequency: NewFrequency(8)}
	c, err := NewCached(inner, 16)
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}
	ctx := context.Background()

	if _, err := c.Embed(ctx, "cached text"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	vecs, err := c.EmbedBatch(ctx, []string{"cached text", "fresh text"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if inner.batchCalls != 1 {
		t.Errorf("batch backend called %d times, want 1", inner.batchCalls)
	}

	// Fully cached batch skips the backend.
	if _, err := c.EmbedBatch(ctx, []string{"cached text", "fresh text"}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("batch backend called %d times after warm cache, want 1", inner.batchCalls)
	}
}
