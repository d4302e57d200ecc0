// Package openaichat talks to an OpenAI-compatible chat-completion and
// embeddings endpoint.
package openaichat

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
	"github.com/nimbusworks/workspace-assistant/internal/infrastructure/resilience"
)

const (
	queryPrefix    = "search_query: "
	documentPrefix = "search_document: "
)

type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, chatModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatCompletionRequest struct {
	Model          string           `json:"model"`
	Messages       []wireMessage    `json:"messages"`
	Tools          []map[string]any `json:"tools,omitempty"`
	ToolChoice     string           `json:"tool_choice,omitempty"`
	Stream         bool             `json:"stream"`
	ResponseFormat map[string]any   `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func toWireMessages(messages []domain.ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wire := wireMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

// Complete performs one non-streamed chat completion.
func (c *Client) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	payload := chatCompletionRequest{
		Model:      c.chatModel,
		Messages:   toWireMessages(req.Messages),
		Tools:      req.Tools,
		ToolChoice: req.ToolChoice,
	}

	var response chatCompletionResponse
	err := c.execute(ctx, "chat.complete", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", payload, &response, "chat completion")
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded("chat completion", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// GenerateJSON asks for a single JSON object answer.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.chatModel,
		Messages: []wireMessage{
			{Role: domain.RoleUser, Content: prompt},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	var response chatCompletionResponse
	err := c.execute(ctx, "chat.generate_json", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", payload, &response, "generate json")
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate json", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generate json: empty choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedQuery encodes text in its query flavor. The embedding model emits
// different vectors for queries and documents, so the flavor travels as a
// text prefix.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{queryPrefix + text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: empty result")
	}
	return vectors[0], nil
}

// EmbedDocuments encodes texts in their document flavor.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prefixed := make([]string, 0, len(texts))
	for _, text := range texts {
		prefixed = append(prefixed, documentPrefix+text)
	}
	return c.embed(ctx, prefixed)
}

func (c *Client) embed(ctx context.Context, input []string) ([][]float32, error) {
	payload := embeddingsRequest{Model: c.embedModel, Input: input}

	var response embeddingsResponse
	err := c.execute(ctx, "embeddings", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/embeddings", payload, &response, "embeddings")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embeddings", err)
	}

	out := make([][]float32, len(input))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", item.Index)
		}
		out[item.Index] = l2Normalize(item.Embedding)
	}
	return out, nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyHTTPError)
}

// l2Normalize makes dot product equal cosine similarity downstream.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
