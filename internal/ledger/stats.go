package ledger

import "github.com/mnemo-ai/mnemo/internal/models"

// Stats summarizes one user's ledger footprint.
type Stats struct {
	TotalMemories  int                       `json:"total_memories"`
	ActiveMemories int                       `json:"active_memories"`
	TotalTokens    int                       `json:"total_tokens"`
	ByType         map[models.MemoryType]int `json:"by_type,omitempty"`
	ByCategory     map[string]int            `json:"by_category,omitempty"`
	FileTypes      map[string]int            `json:"file_types,omitempty"`
	// AvgFileConfidence averages extraction confidence over file-derived
	// entries; zero when there are none.
	AvgFileConfidence float64 `json:"avg_file_confidence,omitempty"`
	Hooks             int     `json:"hooks"`
}

// Stats reports totals and distributions for the user's memories.
func (l *Ledger) Stats(userID string) Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{
		ByType:     make(map[models.MemoryType]int),
		ByCategory: make(map[string]int),
		FileTypes:  make(map[string]int),
	}

	var confidenceSum float64
	var fileCount int

	for id := range l.byUser[userID] {
		entry := l.entries[id]
		s.TotalMemories++
		if entry.Lifecycle.IsActive {
			s.ActiveMemories++
		}
		s.TotalTokens += entry.Metadata.TokenCount
		s.ByType[entry.Type]++
		if entry.Category != "" {
			s.ByCategory[entry.Category]++
		}
		if fc := entry.Metadata.FileContext; fc != nil {
			if fc.FileType != "" {
				s.FileTypes[fc.FileType]++
			}
			confidenceSum += fc.Confidence
			fileCount++
		}
	}
	if fileCount > 0 {
		s.AvgFileConfidence = confidenceSum / float64(fileCount)
	}

	for _, hook := range l.hooks {
		if hook.UserID == userID {
			s.Hooks++
		}
	}
	return s
}
