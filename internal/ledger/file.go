package ledger

import (
	"errors"

	"github.com/mnemo-ai/mnemo/internal/models"
)

// FileAnchor is one structural reference point derived from a document.
type FileAnchor struct {
	Content      string
	AnchorPoints []string
}

// FileMotif is one recurring theme derived from a document.
type FileMotif struct {
	Content        string
	MotifInstances []string
}

// CreateFileMemory stores a file_insight memory carrying its source
// document context.
func (l *Ledger) CreateFileMemory(userID, sessionID, content string, fc models.FileContext, opts CreateOptions) (*models.MemoryEntry, error) {
	if fc.DocumentID == "" {
		return nil, errors.New("file memory requires a document id")
	}
	entry, err := l.CreateMemory(userID, sessionID, models.MemoryFileInsight, "file", content, opts)
	if err != nil {
		return nil, err
	}
	return l.setFileContext(entry.ID, fc, nil)
}

// CreateFileAnchors stores one file_anchor memory per anchor, each
// carrying its anchor points in FileRelationships.
func (l *Ledger) CreateFileAnchors(userID, sessionID string, fc models.FileContext, anchors []FileAnchor, opts CreateOptions) ([]models.MemoryEntry, error) {
	if fc.DocumentID == "" {
		return nil, errors.New("file anchors require a document id")
	}
	out := make([]models.MemoryEntry, 0, len(anchors))
	for _, a := range anchors {
		entry, err := l.CreateMemory(userID, sessionID, models.MemoryFileAnchor, "file", a.Content, opts)
		if err != nil {
			return out, err
		}
		updated, err := l.setFileContext(entry.ID, fc, &models.FileRelationships{AnchorPoints: a.AnchorPoints})
		if err != nil {
			return out, err
		}
		out = append(out, *updated)
	}
	return out, nil
}

// CreateFileMotifs stores one file_motif memory per motif, each carrying
// its instance locations in FileRelationships.
func (l *Ledger) CreateFileMotifs(userID, sessionID string, fc models.FileContext, motifs []FileMotif, opts CreateOptions) ([]models.MemoryEntry, error) {
	if fc.DocumentID == "" {
		return nil, errors.New("file motifs require a document id")
	}
	out := make([]models.MemoryEntry, 0, len(motifs))
	for _, m := range motifs {
		entry, err := l.CreateMemory(userID, sessionID, models.MemoryFileMotif, "file", m.Content, opts)
		if err != nil {
			return out, err
		}
		updated, err := l.setFileContext(entry.ID, fc, &models.FileRelationships{MotifInstances: m.MotifInstances})
		if err != nil {
			return out, err
		}
		out = append(out, *updated)
	}
	return out, nil
}

func (l *Ledger) setFileContext(id string, fc models.FileContext, rel *models.FileRelationships) (*models.MemoryEntry, error) {
	fc.Confidence = models.Clamp01(fc.Confidence)

	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return nil, ErrMemoryNotFound
	}
	entry.Metadata.FileContext = &fc
	entry.Relationships.FileRelationships = rel
	out := *entry
	l.mu.Unlock()
	return &out, nil
}
