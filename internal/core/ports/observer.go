package ports

import "time"

// QueryObserver receives pipeline measurements from the assistant usecases.
// Implementations must be safe for concurrent use. A nil observer is valid
// wherever one is accepted; the usecases fall back to a no-op.
type QueryObserver interface {
	// RecordQuery is called once per completed query with its classified
	// intent, terminal status and retrieved source count.
	RecordQuery(intent, status string, sourceCount int, duration time.Duration)
	RecordRerank(duration time.Duration)
	RecordToolCall(tool, status string)
	RecordGuardrailRefusal(tool string)
	RecordOrchestratorRun(iterations int)
}
