// Package pages fetches knowledge-base pages from the workspace API at
// query time.
package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL, token string, callsPerSecond float64) *Client {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(callsPerSecond), 1),
	}
}

type wirePage struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Space   string            `json:"space"`
	Updated string            `json:"updated_at"`
	Labels  map[string]string `json:"labels"`
}

// FetchPages lists the most recently updated pages. Page content is not
// persisted; callers embed it on the fly.
func (c *Client) FetchPages(ctx context.Context, limit int) ([]domain.StoredDocument, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/pages?" + url.Values{
		"limit": []string{strconv.Itoa(limit)},
		"sort":  []string{"-updated_at"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create pages request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("pages status: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		Pages []wirePage `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode pages response: %w", err)
	}

	out := make([]domain.StoredDocument, 0, len(payload.Pages))
	for _, page := range payload.Pages {
		if strings.TrimSpace(page.Body) == "" {
			continue
		}
		metadata := map[string]string{
			"space":      page.Space,
			"updated_at": page.Updated,
		}
		for key, value := range page.Labels {
			metadata["label_"+key] = value
		}
		out = append(out, domain.StoredDocument{
			ID:         page.ID,
			SourceType: domain.SourcePage,
			Title:      page.Title,
			Text:       page.Body,
			Metadata:   metadata,
		})
	}
	return out, nil
}
