package usecase

import (
	"testing"

	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

func TestToolCallAccumulatorConcatenatesFragments(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.appendDelta(ports.ChatDelta{ToolCallID: "call-1", ToolCallName: "send_message"})
	acc.appendDelta(ports.ChatDelta{ArgumentsFragment: `{"channel"`})
	acc.appendDelta(ports.ChatDelta{ArgumentsFragment: `:"ops","text"`})
	acc.appendDelta(ports.ChatDelta{ArgumentsFragment: `:"hi"}`})

	if !acc.pending() {
		t.Fatalf("expected pending call once the name arrived")
	}
	call, args := acc.finalize()
	if call.ID != "call-1" || call.Name != "send_message" {
		t.Fatalf("unexpected call identity: %+v", call)
	}
	if call.Arguments != `{"channel":"ops","text":"hi"}` {
		t.Fatalf("fragments must concatenate in arrival order, got %q", call.Arguments)
	}
	if args.String("channel", "") != "ops" || args.String("text", "") != "hi" {
		t.Fatalf("unexpected parsed arguments: %v", args)
	}
}

func TestToolCallAccumulatorKeepsFirstSeenIdentity(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.appendDelta(ports.ChatDelta{ToolCallID: "call-1", ToolCallName: "send_message"})
	acc.appendDelta(ports.ChatDelta{ToolCallID: "call-2", ToolCallName: "delete_message"})

	call, _ := acc.finalize()
	if call.ID != "call-1" || call.Name != "send_message" {
		t.Fatalf("later identity deltas must not overwrite, got %+v", call)
	}
}

func TestToolCallAccumulatorParseFailureYieldsEmptyArguments(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.appendDelta(ports.ChatDelta{ToolCallName: "send_message"})
	acc.appendDelta(ports.ChatDelta{ArgumentsFragment: `{"channel": truncated`})

	call, args := acc.finalize()
	if call.Arguments != `{"channel": truncated` {
		t.Fatalf("raw argument text must be preserved, got %q", call.Arguments)
	}
	if len(args) != 0 {
		t.Fatalf("expected empty arguments on parse failure, got %v", args)
	}
}

func TestToolCallAccumulatorEmptyIsNotPending(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.appendDelta(ports.ChatDelta{Content: "plain answer text"})
	if acc.pending() {
		t.Fatalf("content-only deltas must not create a pending call")
	}
}

func TestToolCallAccumulatorKeepsParallelCallsSeparate(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.appendDelta(ports.ChatDelta{ToolCallIndex: 0, ToolCallID: "call-1", ToolCallName: "send_message"})
	acc.appendDelta(ports.ChatDelta{ToolCallIndex: 1, ToolCallID: "call-2", ToolCallName: "list_channels"})
	acc.appendDelta(ports.ChatDelta{ToolCallIndex: 0, ArgumentsFragment: `{"channel":`})
	acc.appendDelta(ports.ChatDelta{ToolCallIndex: 1, ArgumentsFragment: `{}`})
	acc.appendDelta(ports.ChatDelta{ToolCallIndex: 0, ArgumentsFragment: `"ops"}`})

	call, args := acc.finalize()
	if call.ID != "call-1" || call.Name != "send_message" {
		t.Fatalf("expected the first parallel call to win, got %+v", call)
	}
	if call.Arguments != `{"channel":"ops"}` {
		t.Fatalf("fragments of other calls must not interleave, got %q", call.Arguments)
	}
	if args.String("channel", "") != "ops" {
		t.Fatalf("unexpected parsed arguments: %v", args)
	}
}
