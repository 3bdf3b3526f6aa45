package ledger

import (
	"context"
	"math"
	"time"

	"github.com/mnemo-ai/mnemo/internal/metrics"
	"github.com/mnemo-ai/mnemo/internal/models"
)

// Decay policy constants. Entries older than hardDeleteAge with
// importance below hardDeleteImportance are removed outright; entries
// older than decayAge have their relevance decayed exponentially and are
// removed once it falls under decayFloor.
const (
	hardDeleteAge        = 90 * 24 * time.Hour
	hardDeleteImportance = 0.3
	decayAge             = 30 * 24 * time.Hour
	decayScaleDays       = 30.0
	decayFloor           = 0.1
)

// CleanupResult summarizes one decay sweep.
type CleanupResult struct {
	Deleted int
	Decayed int
}

// RunCleanup applies the decay policy as of now. Entries younger than
// decayAge are untouched, so repeated sweeps at the same instant are
// idempotent for them.
func (l *Ledger) RunCleanup(now time.Time) CleanupResult {
	stop := l.collector.Timed(metrics.OpDecaySweep)

	var res CleanupResult
	var deletedIDs []string

	l.mu.Lock()
	for id, entry := range l.entries {
		age := now.Sub(entry.Lifecycle.CreatedAt)
		switch {
		case age > hardDeleteAge && entry.Metadata.Importance < hardDeleteImportance:
			l.removeLocked(id)
			deletedIDs = append(deletedIDs, id)
			res.Deleted++
		case age > decayAge:
			ageDays := age.Hours() / 24
			decayed := entry.Metadata.Relevance * math.Exp(-ageDays/decayScaleDays)
			if decayed < decayFloor {
				l.removeLocked(id)
				deletedIDs = append(deletedIDs, id)
				res.Deleted++
			} else {
				entry.Metadata.Relevance = models.Clamp01(decayed)
				res.Decayed++
			}
		}
	}
	l.mu.Unlock()

	for _, id := range deletedIDs {
		l.notifier.MemoryDeleted(id)
	}
	stop(res.Deleted + res.Decayed)

	if res.Deleted > 0 || res.Decayed > 0 {
		l.logger.Info("decay sweep", "deleted", res.Deleted, "decayed", res.Decayed)
	}
	return res
}

// StartSweeper runs RunCleanup on a ticker until ctx is cancelled.
func (l *Ledger) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.RunCleanup(l.now())
			}
		}
	}()
}
