package domain

// ToolDescriptor describes one callable workspace action. Descriptors are
// loaded once at process start and shared read-only by all queries.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Destructive bool           `json:"destructive"`
	// Effect is the human-readable description of what the tool does to the
	// workspace, used verbatim in the guardrail refusal.
	Effect string `json:"effect,omitempty"`
}

// ToolSchema serializes the descriptor into the chat-completion tool format:
// {type:"function", function:{name, description, parameters}}.
func (d ToolDescriptor) ToolSchema() map[string]any {
	params := d.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  params,
		},
	}
}

// ToolArguments is the parsed argument map of one tool call.
type ToolArguments map[string]any

// Confirmed reports whether the call carries an explicit confirmed=true.
// Only such calls may reach a destructive tool's connector.
func (a ToolArguments) Confirmed() bool {
	v, ok := a["confirmed"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// String returns the string value under key, or fallback.
func (a ToolArguments) String(key, fallback string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

// Int returns the integer value under key, or fallback. JSON numbers arrive
// as float64.
func (a ToolArguments) Int(key string, fallback int) int {
	v, ok := a[key]
	if !ok || v == nil {
		return fallback
	}
	switch typed := v.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	default:
		return fallback
	}
}
