package models

import "time"

// TriggerType says what kind of conversational event a hook reacts to.
type TriggerType string

const (
	TriggerSessionStart TriggerType = "session_start"
	TriggerKeyword      TriggerType = "keyword"
	TriggerFileContent  TriggerType = "file_content"
)

// ActionType says what a triggered hook asks the caller to do.
type ActionType string

const (
	ActionInjectMemory      ActionType = "inject_memory"
	ActionLoadContext       ActionType = "load_context"
	ActionInjectFileContext ActionType = "inject_file_context"
)

// HookTrigger matches conversational events. Pattern is a substring or,
// when wrapped in slashes (/.../), a regular expression evaluated against
// the event's user input and topic. Conditions are named predicates that
// must all hold; the supported predicate keys are documented on
// ledger.CheckContinuityHooks.
type HookTrigger struct {
	Type       TriggerType       `json:"type"`
	Pattern    string            `json:"pattern,omitempty"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// HookAction is the payload handed back to the caller when a hook fires.
type HookAction struct {
	Type      ActionType        `json:"type"`
	MemoryIDs []string          `json:"memory_ids,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// ContinuityHook is a per-user trigger/action rule. Hooks never expire on
// their own; they live until explicitly removed.
type ContinuityHook struct {
	ID      string      `json:"id"`
	UserID  string      `json:"user_id"`
	Trigger HookTrigger `json:"trigger"`
	Action  HookAction  `json:"action"`

	// Priority is a tie-break field for callers: hook evaluation itself
	// makes no ordering guarantee across matches.
	Priority   int       `json:"priority"`
	FileFilter string    `json:"file_filter,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationEvent is the unit continuity hooks are evaluated against.
type ConversationEvent struct {
	Type      TriggerType `json:"type"`
	UserInput string      `json:"user_input,omitempty"`
	Topic     string      `json:"topic,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	FileType  string      `json:"file_type,omitempty"`
}
