// Package models defines the core data model of the memory and retrieval engine.
package models

// DocumentType identifies the source format of an ingested document.
// It selects the preprocessing applied before chunking.
type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentEPUB DocumentType = "epub"
	DocumentTXT  DocumentType = "txt"
	DocumentDOCX DocumentType = "docx"
)

// SectionLabel classifies where in a document a chunk falls,
// based on its start position as a fraction of the document length.
type SectionLabel string

const (
	SectionIntroduction SectionLabel = "introduction"
	SectionMainContent  SectionLabel = "main_content"
	SectionConclusion   SectionLabel = "conclusion"
)

// Chunk is a bounded, possibly overlapping segment of a source document.
// Chunks are immutable once produced and are owned by their document:
// removing the document removes its chunks and vectors.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`

	// Half-open [StartIndex, EndIndex) character range into the
	// preprocessed source document.
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`

	Metadata ChunkMetadata `json:"metadata"`
	Context  ChunkContext  `json:"context"`
}

// ChunkMetadata carries derived statistics and optional document linkage.
type ChunkMetadata struct {
	WordCount      int      `json:"word_count"`
	CharacterCount int      `json:"character_count"`
	Keywords       []string `json:"keywords,omitempty"`
	SemanticScore  *float64 `json:"semantic_score,omitempty"`
	DocumentID     string   `json:"document_id,omitempty"`
	FileName       string   `json:"file_name,omitempty"`
}

// ChunkContext situates a chunk among its neighbors.
type ChunkContext struct {
	PreviousPreview string       `json:"previous_preview,omitempty"`
	NextPreview     string       `json:"next_preview,omitempty"`
	Section         SectionLabel `json:"section"`
}

// ChunkingResult is the outcome of chunking one document.
type ChunkingResult struct {
	Chunks      []Chunk      `json:"chunks"`
	TotalChunks int          `json:"total_chunks"`
	SourceChars int          `json:"source_chars"`
	DocType     DocumentType `json:"doc_type"`

	// Truncated is set when MaxChunksPerDocument stopped the walk
	// before the document end. Documented behavior, not an error.
	Truncated bool `json:"truncated,omitempty"`
}
