package unified

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/models"
)

// LinkMemoryToChunk records that the memory is substantiated by the
// chunk. At most one link exists per (memory, chunk) pair; linking again
// overwrites the previous record. The memory must exist in the ledger.
func (r *Retriever) LinkMemoryToChunk(memoryID, chunkID string, linkType models.LinkType, confidence float64, metadata map[string]string) (models.MemoryChunkLink, error) {
	if memoryID == "" || chunkID == "" {
		return models.MemoryChunkLink{}, errors.New("memory id and chunk id are required")
	}
	if _, ok := r.ledger.GetMemory(memoryID); !ok {
		return models.MemoryChunkLink{}, fmt.Errorf("link %s: %w", memoryID, ledger.ErrMemoryNotFound)
	}

	link := models.MemoryChunkLink{
		MemoryID:   memoryID,
		ChunkID:    chunkID,
		Type:       linkType,
		Confidence: models.Clamp01(confidence),
		Metadata:   metadata,
		CreatedAt:  r.now(),
	}

	r.mu.Lock()
	byMemory, ok := r.links[chunkID]
	if !ok {
		byMemory = make(map[string]models.MemoryChunkLink)
		r.links[chunkID] = byMemory
	}
	byMemory[memoryID] = link
	r.mu.Unlock()

	return link, nil
}

// GetLinkedMemories returns all links anchored at the chunk, highest
// confidence first.
func (r *Retriever) GetLinkedMemories(chunkID string) []models.MemoryChunkLink {
	r.mu.RLock()
	byMemory := r.links[chunkID]
	out := make([]models.MemoryChunkLink, 0, len(byMemory))
	for _, link := range byMemory {
		out = append(out, link)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].MemoryID < out[j].MemoryID
	})
	return out
}

// UnlinkChunk drops every link anchored at the chunk. Used when a
// document is removed from the index.
func (r *Retriever) UnlinkChunk(chunkID string) {
	r.mu.Lock()
	delete(r.links, chunkID)
	r.mu.Unlock()
}
