package unified

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/models"
)

// ExtractedInsight is one derived takeaway, tied to its source chunk.
type ExtractedInsight struct {
	Content    string
	ChunkID    string
	Confidence float64
}

// ExtractedAnchor marks a structural reference point in the document.
type ExtractedAnchor struct {
	Content      string
	AnchorPoints []string
}

// ExtractedMotif names a theme recurring across chunks.
type ExtractedMotif struct {
	Content        string
	MotifInstances []string
}

// Extraction is the raw output of an InsightExtractor, before anything
// is persisted.
type Extraction struct {
	Insights []ExtractedInsight
	Anchors  []ExtractedAnchor
	Motifs   []ExtractedMotif
}

// InsightExtractor derives insights from a document's chunks. The
// default is a keyword/section heuristic; an LLM-backed implementation
// can be injected without touching the persistence path.
type InsightExtractor interface {
	Extract(ctx context.Context, chunks []models.Chunk) (Extraction, error)
	Method() string
}

// FileInsights is the persisted outcome of one extraction run.
type FileInsights struct {
	Insights []models.MemoryEntry `json:"insights"`
	Anchors  []models.MemoryEntry `json:"anchors"`
	Motifs   []models.MemoryEntry `json:"motifs"`
}

// ExtractFileInsights derives insights from the chunks, persists them as
// file-typed memories carrying the document's context, and links each
// insight to its source chunk.
func (r *Retriever) ExtractFileInsights(ctx context.Context, userID, sessionID, documentID, fileName, fileType string, chunks []models.Chunk) (*FileInsights, error) {
	if r.ledger == nil {
		return nil, ErrNoLedger
	}
	if documentID == "" {
		return nil, fmt.Errorf("extract insights: document id is required")
	}

	extraction, err := r.extractor.Extract(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("extract insights: %w", err)
	}

	out := &FileInsights{}
	fc := models.FileContext{
		DocumentID:       documentID,
		FileName:         fileName,
		FileType:         fileType,
		ExtractionMethod: r.extractor.Method(),
	}

	for _, ins := range extraction.Insights {
		entryFC := fc
		entryFC.Confidence = ins.Confidence
		entry, err := r.ledger.CreateFileMemory(userID, sessionID, ins.Content, entryFC, ledger.CreateOptions{
			Importance: ins.Confidence,
		})
		if err != nil {
			return out, fmt.Errorf("persist insight: %w", err)
		}
		if ins.ChunkID != "" {
			if _, err := r.LinkMemoryToChunk(entry.ID, ins.ChunkID, models.LinkSemantic, ins.Confidence, nil); err != nil {
				return out, fmt.Errorf("link insight: %w", err)
			}
		}
		out.Insights = append(out.Insights, *entry)
	}

	if len(extraction.Anchors) > 0 {
		anchorFC := fc
		anchorFC.Confidence = 0.6
		anchors := make([]ledger.FileAnchor, len(extraction.Anchors))
		for i, a := range extraction.Anchors {
			anchors[i] = ledger.FileAnchor{Content: a.Content, AnchorPoints: a.AnchorPoints}
		}
		entries, err := r.ledger.CreateFileAnchors(userID, sessionID, anchorFC, anchors, ledger.CreateOptions{})
		if err != nil {
			return out, fmt.Errorf("persist anchors: %w", err)
		}
		for i, entry := range entries {
			for _, chunkID := range extraction.Anchors[i].AnchorPoints {
				if _, err := r.LinkMemoryToChunk(entry.ID, chunkID, models.LinkAnchor, anchorFC.Confidence, nil); err != nil {
					return out, fmt.Errorf("link anchor: %w", err)
				}
			}
		}
		out.Anchors = entries
	}

	if len(extraction.Motifs) > 0 {
		motifFC := fc
		motifFC.Confidence = 0.6
		motifs := make([]ledger.FileMotif, len(extraction.Motifs))
		for i, m := range extraction.Motifs {
			motifs[i] = ledger.FileMotif{Content: m.Content, MotifInstances: m.MotifInstances}
		}
		entries, err := r.ledger.CreateFileMotifs(userID, sessionID, motifFC, motifs, ledger.CreateOptions{})
		if err != nil {
			return out, fmt.Errorf("persist motifs: %w", err)
		}
		for i, entry := range entries {
			for _, chunkID := range extraction.Motifs[i].MotifInstances {
				if _, err := r.LinkMemoryToChunk(entry.ID, chunkID, models.LinkMotif, motifFC.Confidence, nil); err != nil {
					return out, fmt.Errorf("link motif: %w", err)
				}
			}
		}
		out.Motifs = entries
	}

	r.logger.Debug("extracted file insights",
		"document_id", documentID,
		"insights", len(out.Insights),
		"anchors", len(out.Anchors),
		"motifs", len(out.Motifs))
	return out, nil
}

// HeuristicExtractor derives insights without a model: introduction and
// conclusion chunks become insights and anchors, keywords shared by
// several chunks become motifs.
type HeuristicExtractor struct{}

var _ InsightExtractor = HeuristicExtractor{}

func (HeuristicExtractor) Method() string { return "heuristic" }

// motifMinChunks is the number of chunks a keyword must appear in to
// count as a recurring motif.
const motifMinChunks = 3

func (HeuristicExtractor) Extract(_ context.Context, chunks []models.Chunk) (Extraction, error) {
	var ex Extraction

	sections := make(map[models.SectionLabel][]string)
	keywordChunks := make(map[string][]string)

	for _, c := range chunks {
		label := c.Context.Section
		sections[label] = append(sections[label], c.ID)

		if label == models.SectionIntroduction || label == models.SectionConclusion {
			confidence := 0.5
			if c.Metadata.SemanticScore != nil {
				confidence = *c.Metadata.SemanticScore
			}
			ex.Insights = append(ex.Insights, ExtractedInsight{
				Content:    insightContent(c, label),
				ChunkID:    c.ID,
				Confidence: confidence,
			})
		}

		seen := make(map[string]bool)
		for _, kw := range c.Metadata.Keywords {
			if !seen[kw] {
				seen[kw] = true
				keywordChunks[kw] = append(keywordChunks[kw], c.ID)
			}
		}
	}

	for _, label := range []models.SectionLabel{models.SectionIntroduction, models.SectionConclusion} {
		if ids := sections[label]; len(ids) > 0 {
			ex.Anchors = append(ex.Anchors, ExtractedAnchor{
				Content:      string(label),
				AnchorPoints: ids,
			})
		}
	}

	var motifWords []string
	for kw, ids := range keywordChunks {
		if len(ids) >= motifMinChunks {
			motifWords = append(motifWords, kw)
		}
	}
	sort.Strings(motifWords)
	if len(motifWords) > 5 {
		motifWords = motifWords[:5]
	}
	for _, kw := range motifWords {
		ex.Motifs = append(ex.Motifs, ExtractedMotif{
			Content:        "recurring theme: " + kw,
			MotifInstances: keywordChunks[kw],
		})
	}

	return ex, nil
}

func insightContent(c models.Chunk, label models.SectionLabel) string {
	text := strings.TrimSpace(c.Content)
	if idx := strings.Index(text, ". "); idx > 0 && idx < 300 {
		text = text[:idx+1]
	} else if len(text) > 300 {
		text = text[:300]
	}
	return fmt.Sprintf("%s: %s", label, text)
}
