// Package mcpadapter exposes hybrid workspace search as an MCP tool over
// stdio, so external agent hosts can retrieve workspace context directly.
package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

type Server struct {
	search ports.SearchService
	mcp    *server.MCPServer
}

func NewServer(search ports.SearchService, version string) *Server {
	s := &Server{search: search}

	mcpServer := server.NewMCPServer("workspace-assistant", version,
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("workspace_search",
		mcp.WithDescription("Search chat messages, emails and knowledge-base pages across the workspace."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query."),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results to return."),
		),
		mcp.WithString("source_type",
			mcp.Description("Restrict results to one source: chat, email or page."),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearch)

	s.mcp = mcpServer
	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}

	topK := request.GetInt("top_k", 0)

	var filter domain.SearchFilter
	if sourceType := strings.TrimSpace(request.GetString("source_type", "")); sourceType != "" {
		switch st := domain.SourceType(sourceType); st {
		case domain.SourceChat, domain.SourceEmail, domain.SourcePage:
			filter.SourceTypes = []domain.SourceType{st}
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown source_type %q", sourceType)), nil
		}
	}

	results, err := s.search.Search(ctx, query, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("workspace search: %w", err)
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching workspace content was found."), nil
	}

	var sb strings.Builder
	for i, doc := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		title := doc.Metadata["title"]
		if title != "" {
			fmt.Fprintf(&sb, "[%d] (%s) %s\n%s", i+1, doc.SourceType, title, doc.Text)
		} else {
			fmt.Fprintf(&sb, "[%d] (%s)\n%s", i+1, doc.SourceType, doc.Text)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
