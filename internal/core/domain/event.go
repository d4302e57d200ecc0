package domain

// QueryEventType discriminates the typed events streamed to the caller for
// one query.
type QueryEventType string

const (
	EventToken   QueryEventType = "token"
	EventStatus  QueryEventType = "status"
	EventSources QueryEventType = "sources"
	EventDone    QueryEventType = "done"
	EventError   QueryEventType = "error"
)

// QueryEvent is one element of a query's event stream. Events are strictly
// ordered as produced; exactly one of done or error terminates the stream
// and nothing follows it.
type QueryEvent struct {
	Type    QueryEventType      `json:"type"`
	Content string              `json:"content,omitempty"`
	Sources []CandidateDocument `json:"sources,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e QueryEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

func TokenEvent(text string) QueryEvent {
	return QueryEvent{Type: EventToken, Content: text}
}

func StatusEvent(text string) QueryEvent {
	return QueryEvent{Type: EventStatus, Content: text}
}

func SourcesEvent(sources []CandidateDocument) QueryEvent {
	return QueryEvent{Type: EventSources, Sources: sources}
}

func DoneEvent() QueryEvent {
	return QueryEvent{Type: EventDone}
}

func ErrorEvent(message string) QueryEvent {
	return QueryEvent{Type: EventError, Content: message}
}
