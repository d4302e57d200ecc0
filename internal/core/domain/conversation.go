package domain

// Message roles used in the per-query conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall records one finalized tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is one entry of a per-query conversation. A conversation is
// owned exclusively by one in-flight query and discarded at query end; the
// caller persists it if needed.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// NewConversation assembles the initial conversation for a query: system
// prompt, caller-supplied history, then the new user message.
func NewConversation(systemPrompt string, history []ChatMessage, userMessage string) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+2)
	if systemPrompt != "" {
		out = append(out, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	out = append(out, history...)
	out = append(out, ChatMessage{Role: RoleUser, Content: userMessage})
	return out
}

// QueryRequest is the inbound shape of one assistant query.
type QueryRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history,omitempty"`
	TopK    int           `json:"top_k,omitempty"`
	Filter  SearchFilter  `json:"filter,omitempty"`
}

// QueryAnswer is the staged (non-streaming) result of one query.
type QueryAnswer struct {
	Intent  QueryIntent         `json:"intent"`
	Text    string              `json:"text"`
	Sources []CandidateDocument `json:"sources,omitempty"`
	Tools   []string            `json:"tools_invoked,omitempty"`
}
