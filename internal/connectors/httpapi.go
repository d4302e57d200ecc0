package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// HTTPWorkspaceAPI talks to the workspace's REST API. 5xx and 429 responses
// are wrapped with domain.ErrTemporary so the invoker retries them.
type HTTPWorkspaceAPI struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPWorkspaceAPI(baseURL, token string) *HTTPWorkspaceAPI {
	return &HTTPWorkspaceAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *HTTPWorkspaceAPI) SendMessage(ctx context.Context, channel, text string) (string, error) {
	err := a.call(ctx, http.MethodPost, "/api/messages", map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Message sent to #%s.", channel), nil
}

func (a *HTTPWorkspaceAPI) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	err := a.call(ctx, http.MethodPost, "/api/emails", map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Email %q sent to %s.", subject, to), nil
}

func (a *HTTPWorkspaceAPI) CreatePage(ctx context.Context, title, body string) (string, error) {
	err := a.call(ctx, http.MethodPost, "/api/pages", map[string]string{
		"title": title,
		"body":  body,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Page %q created.", title), nil
}

func (a *HTTPWorkspaceAPI) ArchiveChannel(ctx context.Context, channel string) (string, error) {
	err := a.call(ctx, http.MethodPost, "/api/channels/"+channel+"/archive", nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Channel #%s archived.", channel), nil
}

func (a *HTTPWorkspaceAPI) DeleteMessage(ctx context.Context, channel, messageID string) (string, error) {
	err := a.call(ctx, http.MethodDelete, "/api/channels/"+channel+"/messages/"+messageID, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Message %s deleted from #%s.", messageID, channel), nil
}

func (a *HTTPWorkspaceAPI) ListChannels(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/channels", nil)
	if err != nil {
		return "", fmt.Errorf("create list channels request: %w", err)
	}
	a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "list channels", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", statusError("list channels", resp)
	}

	var payload struct {
		Channels []struct {
			Name  string `json:"name"`
			Topic string `json:"topic"`
		} `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode channels response: %w", err)
	}
	if len(payload.Channels) == 0 {
		return "No channels found.", nil
	}

	var sb strings.Builder
	for i, channel := range payload.Channels {
		if i > 0 {
			sb.WriteString("\n")
		}
		if channel.Topic != "" {
			fmt.Fprintf(&sb, "#%s: %s", channel.Name, channel.Topic)
		} else {
			fmt.Fprintf(&sb, "#%s", channel.Name)
		}
	}
	return sb.String(), nil
}

func (a *HTTPWorkspaceAPI) call(ctx context.Context, method, path string, payload map[string]string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(path, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (a *HTTPWorkspaceAPI) authorize(req *http.Request) {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
}

func statusError(operation string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("workspace %s status: %s: %s", operation, resp.Status, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
