package models

import "time"

// MemoryType is the closed set of ledger entry kinds. Plain conversational
// types coexist with file-derived subtypes produced by insight extraction.
type MemoryType string

const (
	MemoryFact       MemoryType = "fact"
	MemoryPreference MemoryType = "preference"
	MemoryContext    MemoryType = "context"
	MemoryInsight    MemoryType = "insight"

	// File-derived subtypes. These always carry a FileContext and may
	// carry FileRelationships.
	MemoryFileInsight MemoryType = "file_insight"
	MemoryFileAnchor  MemoryType = "file_anchor"
	MemoryFileMotif   MemoryType = "file_motif"
)

// IsFileType reports whether t is one of the file-derived subtypes.
func (t MemoryType) IsFileType() bool {
	switch t {
	case MemoryFileInsight, MemoryFileAnchor, MemoryFileMotif:
		return true
	}
	return false
}

// FileContext records the document a file-derived memory came from.
type FileContext struct {
	DocumentID       string  `json:"document_id"`
	FileName         string  `json:"file_name,omitempty"`
	FileType         string  `json:"file_type,omitempty"`
	ExtractionMethod string  `json:"extraction_method,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// MemoryMetadata scores and annotates a ledger entry.
//
// Importance is author-assigned and static unless explicitly updated.
// Relevance is usage-weighted and decays over time. Both are clamped
// to [0,1] by every ledger mutation.
type MemoryMetadata struct {
	Importance  float64      `json:"importance"`
	Relevance   float64      `json:"relevance"`
	TokenCount  int          `json:"token_count"`
	Tags        []string     `json:"tags,omitempty"`
	FileContext *FileContext `json:"file_context,omitempty"`
}

// FileRelationships holds structural references a file-derived memory
// maintains into its source document.
type FileRelationships struct {
	AnchorPoints   []string `json:"anchor_points,omitempty"`
	MotifInstances []string `json:"motif_instances,omitempty"`
}

// Relationships connects a memory to its parent and, for file subtypes,
// to positions within the source document.
type Relationships struct {
	ParentID          string             `json:"parent_id,omitempty"`
	FileRelationships *FileRelationships `json:"file_relationships,omitempty"`
}

// Lifecycle tracks a memory's activity window. IsActive=false entries are
// excluded from default queries; physical removal is the cleanup sweep's job.
type Lifecycle struct {
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MemoryEntry is the ledger's unit of knowledge.
type MemoryEntry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	SessionID string     `json:"session_id,omitempty"`
	Type      MemoryType `json:"type"`
	Category  string     `json:"category,omitempty"`
	Content   string     `json:"content"`

	Metadata      MemoryMetadata `json:"metadata"`
	Relationships Relationships  `json:"relationships"`
	Lifecycle     Lifecycle      `json:"lifecycle"`
}

// FileContextFilter narrows a memory query to file-derived entries.
type FileContextFilter struct {
	DocumentID       string `json:"document_id,omitempty"`
	ExtractionMethod string `json:"extraction_method,omitempty"`
}

// MemoryQuery filters ledger entries. Zero-value fields are ignored; an
// empty query returns every active memory in scope.
type MemoryQuery struct {
	UserID              string             `json:"user_id,omitempty"`
	SessionID           string             `json:"session_id,omitempty"`
	Types               []MemoryType       `json:"types,omitempty"`
	Categories          []string           `json:"categories,omitempty"`
	Tags                []string           `json:"tags,omitempty"`
	MinImportance       float64            `json:"min_importance,omitempty"`
	MinRelevance        float64            `json:"min_relevance,omitempty"`
	FileContext         *FileContextFilter `json:"file_context,omitempty"`
	IncludeInactive     bool               `json:"include_inactive,omitempty"`
	IncludeFileMemories bool               `json:"include_file_memories,omitempty"`
	Limit               int                `json:"limit,omitempty"`
}

// RelevanceFeedback is the usage-feedback signal for one memory.
// The exact weighting belongs to the ledger's consumer; the ledger only
// guarantees the resulting relevance stays in [0,1].
type RelevanceFeedback struct {
	WasHelpful       bool    `json:"was_helpful"`
	ContextRelevance float64 `json:"context_relevance"`
	UserFeedback     string  `json:"user_feedback,omitempty"`
}

// Clamp01 bounds v to the [0,1] score range shared by importance,
// relevance, similarity and link confidence.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
