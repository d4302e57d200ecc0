package openaichat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamChat opens a streamed chat completion. Stream deltas are not
// retried; the caller sees a transport failure as a final delta with Err set
// and decides whether to restart the turn.
func (c *Client) StreamChat(ctx context.Context, req ports.ChatRequest) (<-chan ports.ChatDelta, error) {
	payload := chatCompletionRequest{
		Model:      c.chatModel,
		Messages:   toWireMessages(req.Messages),
		Tools:      req.Tools,
		ToolChoice: req.ToolChoice,
		Stream:     true,
	}

	resp, err := c.post(ctx, "/v1/chat/completions", payload, "chat stream")
	if err != nil {
		return nil, wrapTemporaryIfNeeded("chat stream", err)
	}
	if resp.StatusCode >= 300 {
		err := readStatusError("chat stream", resp)
		resp.Body.Close()
		return nil, wrapTemporaryIfNeeded("chat stream", err)
	}

	out := make(chan ports.ChatDelta)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk chatChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				sendDelta(ctx, out, ports.ChatDelta{Err: fmt.Errorf("decode chat stream chunk: %w", err)})
				return
			}
			for _, delta := range chunkDeltas(chunk) {
				if !sendDelta(ctx, out, delta) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			sendDelta(ctx, out, ports.ChatDelta{Err: fmt.Errorf("read chat stream: %w", err)})
		}
	}()

	return out, nil
}

func chunkDeltas(chunk chatChunk) []ports.ChatDelta {
	if len(chunk.Choices) == 0 {
		return nil
	}

	var deltas []ports.ChatDelta
	choice := chunk.Choices[0]
	if choice.Delta.Content != "" {
		deltas = append(deltas, ports.ChatDelta{Content: choice.Delta.Content})
	}
	for _, call := range choice.Delta.ToolCalls {
		deltas = append(deltas, ports.ChatDelta{
			ToolCallIndex:     call.Index,
			ToolCallID:        call.ID,
			ToolCallName:      call.Function.Name,
			ArgumentsFragment: call.Function.Arguments,
		})
	}
	return deltas
}

func sendDelta(ctx context.Context, out chan<- ports.ChatDelta, delta ports.ChatDelta) bool {
	select {
	case out <- delta:
		return true
	case <-ctx.Done():
		return false
	}
}
