package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemo/internal/models"
)

func TestRunCleanup(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	l := newTestLedger(t, DefaultConfig(), WithClock(func() time.Time { return clock }))

	// Old and unimportant: hard-deleted.
	oldTrivial := mustCreate(t, l, "u1", "old trivial", CreateOptions{Importance: 0.1, Relevance: 0.9})

	// Old but important: survives the hard-delete rule, then decays to
	// nothing because exp(-200/30) is far below the floor.
	oldImportant := mustCreate(t, l, "u1", "old important", CreateOptions{Importance: 0.9, Relevance: 1.0})

	// Aged 35 days: decays in place. exp(-35/30) ~ 0.311.
	clock = base.Add(165 * 24 * time.Hour)
	aged := mustCreate(t, l, "u1", "aged", CreateOptions{Importance: 0.9, Relevance: 1.0})

	// Fresh: untouched.
	clock = base.Add(190 * 24 * time.Hour)
	fresh := mustCreate(t, l, "u1", "fresh", CreateOptions{Importance: 0.1, Relevance: 0.05})

	now := base.Add(200 * 24 * time.Hour)
	res := l.RunCleanup(now)

	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}
	if res.Decayed != 1 {
		t.Errorf("Decayed = %d, want 1", res.Decayed)
	}

	if _, ok := l.GetMemory(oldTrivial.ID); ok {
		t.Error("old low-importance entry survived")
	}
	if _, ok := l.GetMemory(oldImportant.ID); ok {
		t.Error("fully decayed entry survived")
	}

	got, ok := l.GetMemory(aged.ID)
	if !ok {
		t.Fatal("aged entry deleted, want decayed in place")
	}
	want := math.Exp(-35.0 / 30.0)
	if math.Abs(got.Metadata.Relevance-want) > 1e-9 {
		t.Errorf("decayed relevance = %v, want %v", got.Metadata.Relevance, want)
	}

	// Fresh entries are untouched even with low scores.
	got, ok = l.GetMemory(fresh.ID)
	if !ok {
		t.Fatal("fresh entry deleted")
	}
	if got.Metadata.Relevance != 0.05 {
		t.Errorf("fresh relevance = %v, want unchanged", got.Metadata.Relevance)
	}
}

func TestRunCleanup_IdempotentForYoungEntries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLedger(t, DefaultConfig(), WithClock(func() time.Time { return base }))

	entry := mustCreate(t, l, "u1", "young", CreateOptions{Relevance: 0.8})

	now := base.Add(10 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		res := l.RunCleanup(now)
		if res.Deleted != 0 || res.Decayed != 0 {
			t.Fatalf("sweep %d touched young entries: %+v", i, res)
		}
	}
	got, ok := l.GetMemory(entry.ID)
	if !ok || got.Metadata.Relevance != 0.8 {
		t.Errorf("entry after sweeps = %+v", got)
	}
}

func TestRunCleanup_NotifiesDeletes(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var deleted []string
	n := &recordingNotifier{onDeleted: func(id string) { deleted = append(deleted, id) }}
	l := newTestLedger(t, DefaultConfig(), WithClock(func() time.Time { return base }), WithNotifier(n))

	entry := mustCreate(t, l, "u1", "doomed", CreateOptions{Importance: 0.1})

	l.RunCleanup(base.Add(100 * 24 * time.Hour))
	if len(deleted) != 1 || deleted[0] != entry.ID {
		t.Errorf("deleted notifications = %v, want [%s]", deleted, entry.ID)
	}
}

type recordingNotifier struct {
	onDeleted func(id string)
}

func (r *recordingNotifier) MemoryCreated(models.MemoryEntry) {}
func (r *recordingNotifier) MemoryUpdated(models.MemoryEntry) {}
func (r *recordingNotifier) MemoryDeleted(id string) {
	if r.onDeleted != nil {
		r.onDeleted(id)
	}
}
