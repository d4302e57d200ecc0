package domain

import "strings"

// QueryIntent is the classified purpose of a user query. It governs whether
// the retrieval pipeline runs and whether the tool-execution path runs.
type QueryIntent string

const (
	IntentSearch QueryIntent = "search"
	IntentAction QueryIntent = "action"
	IntentHybrid QueryIntent = "hybrid"
)

// ParseIntent maps a raw classifier label onto a known intent. Anything
// unrecognized falls back to search: the safe default never skips retrieval
// context for a question the user meant as a question.
func ParseIntent(raw string) QueryIntent {
	switch QueryIntent(strings.ToLower(strings.TrimSpace(raw))) {
	case IntentAction:
		return IntentAction
	case IntentHybrid:
		return IntentHybrid
	default:
		return IntentSearch
	}
}

// NeedsRetrieval reports whether the retrieval pipeline runs for the intent.
func (i QueryIntent) NeedsRetrieval() bool {
	return i == IntentSearch || i == IntentHybrid
}

// NeedsTools reports whether the tool-orchestration path runs for the intent.
func (i QueryIntent) NeedsTools() bool {
	return i == IntentAction || i == IntentHybrid
}
