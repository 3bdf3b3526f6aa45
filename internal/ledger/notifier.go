package ledger

import "github.com/mnemo-ai/mnemo/internal/models"

// Notifier observes ledger mutations. Implementations must not call back
// into the ledger; they run under its lock.
type Notifier interface {
	MemoryCreated(entry models.MemoryEntry)
	MemoryUpdated(entry models.MemoryEntry)
	MemoryDeleted(id string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) MemoryCreated(models.MemoryEntry) {}
func (NopNotifier) MemoryUpdated(models.MemoryEntry) {}
func (NopNotifier) MemoryDeleted(string)             {}
