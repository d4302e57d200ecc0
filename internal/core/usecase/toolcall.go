package usecase

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// pendingToolCall builds one tool call from streamed deltas: the name is
// captured as soon as it is seen, argument text is collected fragment by
// fragment in arrival order.
type pendingToolCall struct {
	id        string
	name      string
	fragments []string
}

func (c *pendingToolCall) appendDelta(delta ports.ChatDelta) {
	if delta.ToolCallID != "" && c.id == "" {
		c.id = delta.ToolCallID
	}
	if delta.ToolCallName != "" && c.name == "" {
		c.name = delta.ToolCallName
	}
	if delta.ArgumentsFragment != "" {
		c.fragments = append(c.fragments, delta.ArgumentsFragment)
	}
}

// toolCallAccumulator collects streamed tool-call deltas keyed by the
// stream index, so fragments of parallel calls never interleave. The
// orchestrator executes one call per turn; when the model emits several
// in parallel, only the first is kept and the rest are logged and dropped.
type toolCallAccumulator struct {
	calls map[int]*pendingToolCall
	order []int
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: map[int]*pendingToolCall{}}
}

func (a *toolCallAccumulator) appendDelta(delta ports.ChatDelta) {
	if delta.ToolCallID == "" && delta.ToolCallName == "" && delta.ArgumentsFragment == "" {
		return
	}
	call, ok := a.calls[delta.ToolCallIndex]
	if !ok {
		call = &pendingToolCall{}
		a.calls[delta.ToolCallIndex] = call
		a.order = append(a.order, delta.ToolCallIndex)
	}
	call.appendDelta(delta)
}

func (a *toolCallAccumulator) pending() bool {
	for _, call := range a.calls {
		if call.name != "" {
			return true
		}
	}
	return false
}

// finalize concatenates the first named call's fragments and parses them
// as a structured map. A parse failure yields an empty argument map, not a
// fatal error.
func (a *toolCallAccumulator) finalize() (domain.ToolCall, domain.ToolArguments) {
	var first *pendingToolCall
	for _, index := range a.order {
		if call := a.calls[index]; call.name != "" {
			first = call
			break
		}
	}
	if first == nil {
		return domain.ToolCall{}, domain.ToolArguments{}
	}
	if named := a.namedCount(); named > 1 {
		slog.Warn("parallel_tool_calls_dropped", "kept", first.name, "dropped", named-1)
	}

	raw := strings.Join(first.fragments, "")
	call := domain.ToolCall{ID: first.id, Name: first.name, Arguments: raw}

	args := domain.ToolArguments{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			slog.Warn("tool_arguments_parse_failed", "tool", first.name, "error", err)
			args = domain.ToolArguments{}
		}
	}
	return call, args
}

func (a *toolCallAccumulator) namedCount() int {
	named := 0
	for _, call := range a.calls {
		if call.name != "" {
			named++
		}
	}
	return named
}
