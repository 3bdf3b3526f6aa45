package ledger

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/models"
)

// HookOptions are the optional fields of a continuity hook.
type HookOptions struct {
	Priority   int
	FileFilter string
}

// CreateContinuityHook registers a trigger/action rule for the user.
func (l *Ledger) CreateContinuityHook(userID string, trigger models.HookTrigger, action models.HookAction, opts HookOptions) (*models.ContinuityHook, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if trigger.Type == "" {
		return nil, errors.New("trigger type is required")
	}
	if action.Type == "" {
		return nil, errors.New("action type is required")
	}

	hook := &models.ContinuityHook{
		ID:         uuid.NewString(),
		UserID:     userID,
		Trigger:    trigger,
		Action:     action,
		Priority:   opts.Priority,
		FileFilter: opts.FileFilter,
		CreatedAt:  l.now(),
	}

	l.mu.Lock()
	l.hooks[hook.ID] = hook
	l.mu.Unlock()

	out := *hook
	return &out, nil
}

// RemoveContinuityHook deletes the hook. Unknown ids return false.
func (l *Ledger) RemoveContinuityHook(id string) bool {
	l.mu.Lock()
	_, ok := l.hooks[id]
	delete(l.hooks, id)
	l.mu.Unlock()
	return ok
}

// CheckContinuityHooks returns the user's hooks matching the event, in no
// particular order; callers sort by Priority if they care.
//
// A hook matches when its trigger type equals the event type, its file
// filter (if any) equals the event file type, its pattern (substring, or
// regular expression when written /like-this/) matches the event's user
// input or topic, and every trigger condition holds. Supported condition
// keys: "topic", "session_id", "file_type" (equality against the event)
// and "min_importance" (at least one memory referenced by the hook's
// action has importance >= the value). Unknown keys never hold.
func (l *Ledger) CheckContinuityHooks(userID string, event models.ConversationEvent) []models.ContinuityHook {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []models.ContinuityHook
	for _, hook := range l.hooks {
		if hook.UserID != userID {
			continue
		}
		if hook.Trigger.Type != event.Type {
			continue
		}
		if hook.FileFilter != "" && hook.FileFilter != event.FileType {
			continue
		}
		if !l.patternMatches(hook.Trigger.Pattern, event) {
			continue
		}
		if !l.conditionsHoldLocked(hook, event) {
			continue
		}
		matched = append(matched, *hook)
	}
	return matched
}

func (l *Ledger) patternMatches(pattern string, event models.ConversationEvent) bool {
	if pattern == "" {
		return true
	}
	if len(pattern) > 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			l.logger.Warn("invalid hook pattern", "pattern", pattern, "error", err)
			return false
		}
		return re.MatchString(event.UserInput) || re.MatchString(event.Topic)
	}
	needle := strings.ToLower(pattern)
	return strings.Contains(strings.ToLower(event.UserInput), needle) ||
		strings.Contains(strings.ToLower(event.Topic), needle)
}

func (l *Ledger) conditionsHoldLocked(hook *models.ContinuityHook, event models.ConversationEvent) bool {
	for key, want := range hook.Trigger.Conditions {
		switch key {
		case "topic":
			if !strings.EqualFold(event.Topic, want) {
				return false
			}
		case "session_id":
			if event.SessionID != want {
				return false
			}
		case "file_type":
			if event.FileType != want {
				return false
			}
		case "min_importance":
			min, err := strconv.ParseFloat(want, 64)
			if err != nil || !l.anyMemoryAtLeastLocked(hook.Action.MemoryIDs, min) {
				return false
			}
		default:
			l.logger.Warn("unknown hook condition", "key", key, "hook_id", hook.ID)
			return false
		}
	}
	return true
}

func (l *Ledger) anyMemoryAtLeastLocked(ids []string, min float64) bool {
	for _, id := range ids {
		if entry, ok := l.entries[id]; ok && entry.Metadata.Importance >= min {
			return true
		}
	}
	return false
}
