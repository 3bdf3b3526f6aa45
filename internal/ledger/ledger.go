// Package ledger keeps per-user memories with importance/relevance
// scoring, lifecycle decay and continuity hooks.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/metrics"
	"github.com/mnemo-ai/mnemo/internal/models"
)

// ErrMemoryNotFound is returned by updates targeting an unknown id.
// Deletes do not use it; DeleteMemory reports absence as false.
var ErrMemoryNotFound = errors.New("memory not found")

// Config bounds the ledger.
type Config struct {
	// MaxMemoriesPerUser caps a user's entries. Exceeding the cap evicts
	// the least relevant entry, inactive before active. Zero means
	// unbounded.
	MaxMemoriesPerUser int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{MaxMemoriesPerUser: 1000}
}

// CreateOptions are the optional fields of a new memory. Zero Importance
// defaults to 0.5 and zero Relevance to 1.0; pass an explicit small value
// to mean "near zero".
type CreateOptions struct {
	Importance float64
	Relevance  float64
	Tags       []string
	TTL        time.Duration
	ParentID   string
}

// Update names the mutable fields of a memory. Nil pointers leave the
// field untouched; a nil Tags slice leaves tags untouched.
type Update struct {
	Content    *string
	Category   *string
	Importance *float64
	Relevance  *float64
	Tags       []string
	IsActive   *bool
}

// Ledger is an in-memory store of user memories. All methods are safe for
// concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*models.MemoryEntry
	byUser  map[string]map[string]struct{}
	hooks   map[string]*models.ContinuityHook

	cfg       Config
	logger    *slog.Logger
	notifier  Notifier
	counter   TokenCounter
	collector *metrics.Collector
	now       func() time.Time
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithNotifier installs a mutation observer.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithTokenCounter replaces the heuristic token counter.
func WithTokenCounter(c TokenCounter) Option {
	return func(l *Ledger) { l.counter = c }
}

// WithCollector wires runtime metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(l *Ledger) { l.collector = c }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		entries:  make(map[string]*models.MemoryEntry),
		byUser:   make(map[string]map[string]struct{}),
		hooks:    make(map[string]*models.ContinuityHook),
		cfg:      cfg,
		logger:   logger,
		notifier: NopNotifier{},
		counter:  HeuristicCounter{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateMemory stores a new memory for the user. Scores are clamped to
// [0,1] and the token count is computed from content.
func (l *Ledger) CreateMemory(userID, sessionID string, memType models.MemoryType, category, content string, opts CreateOptions) (*models.MemoryEntry, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if content == "" {
		return nil, errors.New("content is required")
	}

	importance := opts.Importance
	if importance == 0 {
		importance = 0.5
	}
	relevance := opts.Relevance
	if relevance == 0 {
		relevance = 1.0
	}

	now := l.now()
	entry := &models.MemoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Type:      memType,
		Category:  category,
		Content:   content,
		Metadata: models.MemoryMetadata{
			Importance: models.Clamp01(importance),
			Relevance:  models.Clamp01(relevance),
			TokenCount: l.counter.Count(content),
			Tags:       opts.Tags,
		},
		Relationships: models.Relationships{ParentID: opts.ParentID},
		Lifecycle:     models.Lifecycle{IsActive: true, CreatedAt: now},
	}
	if opts.TTL > 0 {
		expires := now.Add(opts.TTL)
		entry.Lifecycle.ExpiresAt = &expires
	}

	l.mu.Lock()
	l.insertLocked(entry)
	l.evictLocked(userID, entry.ID)
	l.mu.Unlock()

	l.notifier.MemoryCreated(*entry)
	out := *entry
	return &out, nil
}

func (l *Ledger) insertLocked(entry *models.MemoryEntry) {
	l.entries[entry.ID] = entry
	ids, ok := l.byUser[entry.UserID]
	if !ok {
		ids = make(map[string]struct{})
		l.byUser[entry.UserID] = ids
	}
	ids[entry.ID] = struct{}{}
}

// evictLocked enforces MaxMemoriesPerUser. Victims are the least relevant
// entries, inactive before active, oldest first on ties. The entry named
// by keepID is never evicted.
func (l *Ledger) evictLocked(userID, keepID string) {
	if l.cfg.MaxMemoriesPerUser <= 0 {
		return
	}
	ids := l.byUser[userID]
	for len(ids) > l.cfg.MaxMemoriesPerUser {
		var victim *models.MemoryEntry
		for id := range ids {
			if id == keepID {
				continue
			}
			e := l.entries[id]
			if victim == nil || evictBefore(e, victim) {
				victim = e
			}
		}
		if victim == nil {
			return
		}
		l.removeLocked(victim.ID)
		l.logger.Debug("evicted memory over per-user cap",
			"user_id", userID, "memory_id", victim.ID, "relevance", victim.Metadata.Relevance)
		l.notifier.MemoryDeleted(victim.ID)
	}
}

func evictBefore(a, b *models.MemoryEntry) bool {
	if a.Lifecycle.IsActive != b.Lifecycle.IsActive {
		return !a.Lifecycle.IsActive
	}
	if a.Metadata.Relevance != b.Metadata.Relevance {
		return a.Metadata.Relevance < b.Metadata.Relevance
	}
	return a.Lifecycle.CreatedAt.Before(b.Lifecycle.CreatedAt)
}

func (l *Ledger) removeLocked(id string) {
	entry, ok := l.entries[id]
	if !ok {
		return
	}
	delete(l.entries, id)
	if ids, ok := l.byUser[entry.UserID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(l.byUser, entry.UserID)
		}
	}
}

// GetMemory returns a copy of the entry, if present.
func (l *Ledger) GetMemory(id string) (*models.MemoryEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[id]
	if !ok {
		return nil, false
	}
	out := *entry
	return &out, true
}

// UpdateMemory applies the non-nil fields of upd. Scores are clamped.
func (l *Ledger) UpdateMemory(id string, upd Update) (*models.MemoryEntry, error) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("update %s: %w", id, ErrMemoryNotFound)
	}
	if upd.Content != nil {
		entry.Content = *upd.Content
		entry.Metadata.TokenCount = l.counter.Count(entry.Content)
	}
	if upd.Category != nil {
		entry.Category = *upd.Category
	}
	if upd.Importance != nil {
		entry.Metadata.Importance = models.Clamp01(*upd.Importance)
	}
	if upd.Relevance != nil {
		entry.Metadata.Relevance = models.Clamp01(*upd.Relevance)
	}
	if upd.Tags != nil {
		entry.Metadata.Tags = upd.Tags
	}
	if upd.IsActive != nil {
		entry.Lifecycle.IsActive = *upd.IsActive
	}
	out := *entry
	l.mu.Unlock()

	l.notifier.MemoryUpdated(out)
	return &out, nil
}

// DeleteMemory physically removes the entry. Unknown ids return false,
// not an error.
func (l *Ledger) DeleteMemory(id string) bool {
	l.mu.Lock()
	_, ok := l.entries[id]
	if ok {
		l.removeLocked(id)
	}
	l.mu.Unlock()

	if ok {
		l.notifier.MemoryDeleted(id)
	}
	return ok
}

// UpdateMemoryRelevance folds usage feedback into the entry's relevance.
// Helpful feedback raises it, unhelpful lowers it; the result is clamped
// to [0,1].
func (l *Ledger) UpdateMemoryRelevance(id string, fb models.RelevanceFeedback) (*models.MemoryEntry, error) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("relevance feedback %s: %w", id, ErrMemoryNotFound)
	}
	if fb.WasHelpful {
		entry.Metadata.Relevance = models.Clamp01(entry.Metadata.Relevance + 0.1 + 0.1*models.Clamp01(fb.ContextRelevance))
	} else {
		entry.Metadata.Relevance = models.Clamp01(entry.Metadata.Relevance - 0.1)
	}
	out := *entry
	l.mu.Unlock()

	l.notifier.MemoryUpdated(out)
	return &out, nil
}

// QueryMemories returns copies of the entries matching q, most relevant
// first, newest first on ties. Inactive and expired entries are skipped
// unless IncludeInactive; file-derived entries are skipped unless the
// query opts in via IncludeFileMemories, a file Type, or a FileContext
// filter.
func (l *Ledger) QueryMemories(q models.MemoryQuery) []models.MemoryEntry {
	stop := l.collector.Timed(metrics.OpMemoryQuery)
	now := l.now()

	l.mu.RLock()
	var out []models.MemoryEntry
	scan := func(id string) {
		entry := l.entries[id]
		if l.matches(entry, q, now) {
			out = append(out, *entry)
		}
	}
	if q.UserID != "" {
		for id := range l.byUser[q.UserID] {
			scan(id)
		}
	} else {
		for id := range l.entries {
			scan(id)
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Metadata.Relevance != out[j].Metadata.Relevance {
			return out[i].Metadata.Relevance > out[j].Metadata.Relevance
		}
		return out[i].Lifecycle.CreatedAt.After(out[j].Lifecycle.CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	stop(len(out))
	return out
}

func (l *Ledger) matches(entry *models.MemoryEntry, q models.MemoryQuery, now time.Time) bool {
	if !q.IncludeInactive {
		if !entry.Lifecycle.IsActive {
			return false
		}
		if exp := entry.Lifecycle.ExpiresAt; exp != nil && exp.Before(now) {
			return false
		}
	}
	if entry.Type.IsFileType() && !q.IncludeFileMemories && q.FileContext == nil && !containsFileType(q.Types) {
		return false
	}
	if q.SessionID != "" && entry.SessionID != q.SessionID {
		return false
	}
	if len(q.Types) > 0 && !containsType(q.Types, entry.Type) {
		return false
	}
	if len(q.Categories) > 0 && !containsString(q.Categories, entry.Category) {
		return false
	}
	if len(q.Tags) > 0 && !anyTagOverlap(q.Tags, entry.Metadata.Tags) {
		return false
	}
	if entry.Metadata.Importance < q.MinImportance {
		return false
	}
	if entry.Metadata.Relevance < q.MinRelevance {
		return false
	}
	if q.FileContext != nil {
		fc := entry.Metadata.FileContext
		if fc == nil {
			return false
		}
		if q.FileContext.DocumentID != "" && fc.DocumentID != q.FileContext.DocumentID {
			return false
		}
		if q.FileContext.ExtractionMethod != "" && fc.ExtractionMethod != q.FileContext.ExtractionMethod {
			return false
		}
	}
	return true
}

func containsType(types []models.MemoryType, t models.MemoryType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsFileType(types []models.MemoryType) bool {
	for _, v := range types {
		if v.IsFileType() {
			return true
		}
	}
	return false
}

func containsString(vs []string, s string) bool {
	for _, v := range vs {
		if v == s {
			return true
		}
	}
	return false
}

func anyTagOverlap(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
