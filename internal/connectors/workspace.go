package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
	"github.com/nimbusworks/workspace-assistant/internal/tools"
)

// WorkspaceAPI is the external collaborator that performs the actual calls
// into a workspace's remote API. Implementations return a human-readable
// string on success and an error on failure; transient failures should be
// wrapped with domain.ErrTemporary so the invoker retries them.
type WorkspaceAPI interface {
	SendMessage(ctx context.Context, channel, text string) (string, error)
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
	CreatePage(ctx context.Context, title, body string) (string, error)
	ArchiveChannel(ctx context.Context, channel string) (string, error)
	DeleteMessage(ctx context.Context, channel, messageID string) (string, error)
	ListChannels(ctx context.Context) (string, error)
}

// Bind attaches rate-limited workspace connectors, plus the retrieval tool,
// to the declared catalog entries.
func Bind(catalog *tools.Catalog, api WorkspaceAPI, invoker *Invoker, search ports.SearchService) error {
	bindings := map[string]ports.ToolHandler{
		"workspace_search": searchHandler(search),
		"list_channels": invoked(invoker, "list_channels", func(ctx context.Context, _ domain.ToolArguments) (string, error) {
			return api.ListChannels(ctx)
		}),
		"send_message": invoked(invoker, "send_message", func(ctx context.Context, args domain.ToolArguments) (string, error) {
			channel, text := args.String("channel", ""), args.String("text", "")
			if channel == "" || text == "" {
				return "", fmt.Errorf("send_message requires channel and text")
			}
			return api.SendMessage(ctx, channel, text)
		}),
		"send_email": invoked(invoker, "send_email", func(ctx context.Context, args domain.ToolArguments) (string, error) {
			to := args.String("to", "")
			if to == "" {
				return "", fmt.Errorf("send_email requires a recipient")
			}
			return api.SendEmail(ctx, to, args.String("subject", ""), args.String("body", ""))
		}),
		"create_page": invoked(invoker, "create_page", func(ctx context.Context, args domain.ToolArguments) (string, error) {
			title := args.String("title", "")
			if title == "" {
				return "", fmt.Errorf("create_page requires a title")
			}
			return api.CreatePage(ctx, title, args.String("body", ""))
		}),
		"archive_channel": invoked(invoker, "archive_channel", func(ctx context.Context, args domain.ToolArguments) (string, error) {
			channel := args.String("channel", "")
			if channel == "" {
				return "", fmt.Errorf("archive_channel requires a channel")
			}
			return api.ArchiveChannel(ctx, channel)
		}),
		"delete_message": invoked(invoker, "delete_message", func(ctx context.Context, args domain.ToolArguments) (string, error) {
			channel, id := args.String("channel", ""), args.String("message_id", "")
			if channel == "" || id == "" {
				return "", fmt.Errorf("delete_message requires channel and message_id")
			}
			return api.DeleteMessage(ctx, channel, id)
		}),
	}

	for name, handler := range bindings {
		if err := catalog.Bind(name, handler); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return catalog.Validate()
}

// invoked wraps a connector call with the per-method limiter and retry.
func invoked(invoker *Invoker, method string, call func(context.Context, domain.ToolArguments) (string, error)) ports.ToolHandler {
	return ports.ToolHandlerFunc(func(ctx context.Context, args domain.ToolArguments) (string, error) {
		return invoker.Do(ctx, method, func(ctx context.Context) (string, error) {
			return call(ctx, args)
		})
	})
}

// searchHandler exposes hybrid retrieval as a tool so the model can look
// things up mid-conversation.
func searchHandler(search ports.SearchService) ports.ToolHandler {
	return ports.ToolHandlerFunc(func(ctx context.Context, args domain.ToolArguments) (string, error) {
		query := args.String("query", "")
		if strings.TrimSpace(query) == "" {
			return "", fmt.Errorf("workspace_search requires a query")
		}
		docs, err := search.Search(ctx, query, args.Int("top_k", 5), domain.SearchFilter{})
		if err != nil {
			return "", err
		}
		if len(docs) == 0 {
			return "No matching workspace content was found.", nil
		}

		var b strings.Builder
		for i, doc := range docs {
			title := doc.Metadata["title"]
			if title != "" {
				fmt.Fprintf(&b, "%d. (%s) %s: %s\n", i+1, doc.SourceType, title, doc.Text)
			} else {
				fmt.Fprintf(&b, "%d. (%s) %s\n", i+1, doc.SourceType, doc.Text)
			}
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})
}
