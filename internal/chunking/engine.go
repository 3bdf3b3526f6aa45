// Package chunking splits documents into bounded, overlapping segments with
// type-aware preprocessing and semantic-boundary snapping.
package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/models"
)

// Config defines chunking parameters. All sizes are character counts.
type Config struct {
	// MaxChunkSize is the hard upper bound on a chunk's length.
	MaxChunkSize int
	// OverlapSize is the character overlap between consecutive chunks.
	// The overlap is intentional: it prevents semantic loss at cut points.
	OverlapSize int
	// MinChunkSize is the lower bound, enforced everywhere except at the
	// document end.
	MinChunkSize int
	// SemanticBoundaries enables snapping chunk ends to paragraph,
	// sentence and word boundaries instead of hard cuts.
	SemanticBoundaries bool
	// PreserveParagraphs prefers paragraph breaks over sentence ends
	// when snapping. Advisory.
	PreserveParagraphs bool
	// PreserveChapters keeps chapter markers ("\n\nChapter ...") intact
	// during preprocessing. Advisory.
	PreserveChapters bool
	// MaxChunksPerDocument caps the number of chunks produced. Hitting
	// the cap truncates the result; it is not an error.
	MaxChunksPerDocument int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:         4000,
		OverlapSize:          200,
		MinChunkSize:         500,
		SemanticBoundaries:   true,
		PreserveParagraphs:   true,
		PreserveChapters:     false,
		MaxChunksPerDocument: 1000,
	}
}

// Options configures a single chunking run.
type Options struct {
	// DocumentID stamps chunk ids and metadata. Generated when empty.
	DocumentID string
	// FileName is carried into chunk metadata when set.
	FileName string
	// OnProgress, when set, is called between chunks with the number of
	// characters processed so far and the document total.
	OnProgress func(processed, total int)
}

// Engine implements the chunking algorithm. Safe for concurrent use; it
// holds no mutable state between calls.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("chunking: max chunk size must be positive, got %d", cfg.MaxChunkSize)
	}
	if cfg.MinChunkSize < 0 || cfg.MinChunkSize > cfg.MaxChunkSize {
		return nil, fmt.Errorf("chunking: min chunk size %d out of range [0, %d]", cfg.MinChunkSize, cfg.MaxChunkSize)
	}
	if cfg.OverlapSize < 0 || cfg.OverlapSize >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("chunking: overlap %d out of range [0, %d)", cfg.OverlapSize, cfg.MaxChunkSize)
	}
	if cfg.MinChunkSize > 0 && cfg.OverlapSize >= cfg.MinChunkSize {
		// Cursor advance is chunkEnd-overlap; an overlap at or above the
		// minimum chunk size could stall the walk.
		return nil, fmt.Errorf("chunking: overlap %d must be smaller than min chunk size %d", cfg.OverlapSize, cfg.MinChunkSize)
	}
	if cfg.MaxChunksPerDocument <= 0 {
		return nil, fmt.Errorf("chunking: max chunks per document must be positive, got %d", cfg.MaxChunksPerDocument)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// ChunkDocument splits content into chunks. The context is checked between
// chunks; cancellation discards all partial work and returns ctx.Err().
// Irregular documents degrade to best-effort boundaries rather than failing.
func (e *Engine) ChunkDocument(ctx context.Context, content string, docType models.DocumentType, opts Options) (*models.ChunkingResult, error) {
	text, err := Preprocess(content, docType, e.cfg.PreserveChapters)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s document: %w", docType, err)
	}

	docID := opts.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}

	result := &models.ChunkingResult{
		DocType:     docType,
		SourceChars: len(text),
	}
	if len(text) == 0 {
		return result, nil
	}

	// Whole document fits in one chunk.
	if len(text) <= e.cfg.MaxChunkSize {
		result.Chunks = []models.Chunk{e.buildChunk(text, docID, opts.FileName, 0, 0, len(text), len(text), nil)}
		result.TotalChunks = 1
		return result, nil
	}

	type span struct {
		start, end int
		score      *float64
	}
	var spans []span

	start := 0
	for start < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(spans) >= e.cfg.MaxChunksPerDocument {
			result.Truncated = true
			e.logger.Warn("chunk cap reached, truncating document",
				"document_id", docID, "cap", e.cfg.MaxChunksPerDocument, "processed", start, "total", len(text))
			break
		}

		end := start + e.cfg.MaxChunkSize
		var score *float64
		if end >= len(text) {
			end = len(text)
		} else if e.cfg.SemanticBoundaries {
			end, score = e.findSemanticBoundary(text, start, end)
			// Snapping never undershoots MinChunkSize with sane configs,
			// but degrade to a hard cut if it does.
			if end-start < e.cfg.MinChunkSize {
				end = start + e.cfg.MaxChunkSize
				score = nil
			}
		}

		spans = append(spans, span{start: start, end: end, score: score})
		if opts.OnProgress != nil {
			opts.OnProgress(end, len(text))
		}
		if end >= len(text) {
			break
		}
		start = end - e.cfg.OverlapSize
	}

	chunks := make([]models.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = e.buildChunk(text[s.start:s.end], docID, opts.FileName, i, s.start, s.end, len(text), s.score)
	}
	attachNeighborPreviews(chunks)

	result.Chunks = chunks
	result.TotalChunks = len(chunks)
	return result, nil
}

// Boundary quality scores recorded as the chunk's semantic score.
var (
	scoreParagraph = 1.0
	scoreSentence  = 0.8
	scoreWord      = 0.6
)

// findSemanticBoundary snaps the window end to the nearest paragraph break
// in the last 30% of the window, else the nearest sentence end in the last
// 30%, else the nearest word boundary in the last 20%, else the hard cut.
func (e *Engine) findSemanticBoundary(text string, start, end int) (int, *float64) {
	window := text[start:end]
	lastThird := int(float64(len(window)) * 0.7)
	lastFifth := int(float64(len(window)) * 0.8)

	if e.cfg.PreserveParagraphs {
		if idx := strings.LastIndex(window, "\n\n"); idx >= lastThird {
			return start + idx + 2, &scoreParagraph
		}
	}
	if idx := strings.LastIndex(window, ". "); idx >= lastThird {
		return start + idx + 1, &scoreSentence
	}
	if idx := strings.LastIndex(window, " "); idx >= lastFifth {
		return start + idx, &scoreWord
	}
	return end, nil
}

func (e *Engine) buildChunk(content, docID, fileName string, index, start, end, total int, score *float64) models.Chunk {
	return models.Chunk{
		ID:         fmt.Sprintf("%s_chunk_%d", docID, index),
		Content:    content,
		StartIndex: start,
		EndIndex:   end,
		Metadata: models.ChunkMetadata{
			WordCount:      len(strings.Fields(content)),
			CharacterCount: len(content),
			Keywords:       ExtractKeywords(content, 10),
			SemanticScore:  score,
			DocumentID:     docID,
			FileName:       fileName,
		},
		Context: models.ChunkContext{
			Section: classifySection(start, total),
		},
	}
}

// classifySection labels a chunk by its start position fraction:
// <25% introduction, >75% conclusion, else main content.
func classifySection(start, total int) models.SectionLabel {
	if total == 0 {
		return models.SectionMainContent
	}
	frac := float64(start) / float64(total)
	switch {
	case frac < 0.25:
		return models.SectionIntroduction
	case frac > 0.75:
		return models.SectionConclusion
	default:
		return models.SectionMainContent
	}
}

const previewLen = 120

// attachNeighborPreviews fills each chunk's previous/next previews from its
// immediate neighbors.
func attachNeighborPreviews(chunks []models.Chunk) {
	for i := range chunks {
		if i > 0 {
			prev := chunks[i-1].Content
			if len(prev) > previewLen {
				prev = prev[len(prev)-previewLen:]
			}
			chunks[i].Context.PreviousPreview = prev
		}
		if i < len(chunks)-1 {
			next := chunks[i+1].Content
			if len(next) > previewLen {
				next = next[:previewLen]
			}
			chunks[i].Context.NextPreview = next
		}
	}
}
