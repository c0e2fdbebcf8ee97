// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the daily note and its archive via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/index"
	"github.com/starford/dailynote/internal/models"
	"github.com/starford/dailynote/internal/notebook"
	"github.com/starford/dailynote/internal/publish"
)

// Notebook is the document surface the tools operate on.
type Notebook interface {
	Today(ctx context.Context) (string, error)
	UpdateToday(ctx context.Context, content string) (*notebook.UpdateResult, error)
	Links(ctx context.Context) ([]models.ArchiveLink, error)
	ReadEntry(ctx context.Context, id string) (string, error)
	ListArchive(ctx context.Context, limit, offset int, tag string) ([]index.EntryRow, int, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
}

// Publisher runs a full publish.
type Publisher interface {
	Run(ctx context.Context, content string) (*publish.Result, error)
}

// Server wraps the MCP server with the daily note tools.
type Server struct {
	mcp       *server.MCPServer
	nb        Notebook
	publisher Publisher
}

// New creates a new MCP server. publish_today is registered only when p is
// non-nil.
func New(nb Notebook, p Publisher) *Server {
	s := &Server{nb: nb, publisher: p}

	s.mcp = server.NewMCPServer(
		"dailynote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_today",
		mcp.WithDescription("Return the current body of the Today's Content section."),
	), s.getToday)

	s.mcp.AddTool(mcp.NewTool("update_today",
		mcp.WithDescription("Archive the current Today's Content and replace it with new content. "+
			"Only the local document and archive directory change; nothing is committed. "+
			"Read the format contract first via the dailynote://today-format resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown body for Today's Content")),
	), s.updateToday)

	if p != nil {
		s.mcp.AddTool(mcp.NewTool("publish_today",
			mcp.WithDescription("Update Today's Content and publish it: branch, commit, push, "+
				"open a pull request and enable auto-merge."),
			mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown body for Today's Content")),
		), s.publishToday)
	}

	s.mcp.AddTool(mcp.NewTool("list_archive",
		mcp.WithDescription("List archived entries, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Entries to skip")),
		mcp.WithString("tag", mcp.Description("Only entries carrying this tag")),
	), s.listArchive)

	s.mcp.AddTool(mcp.NewTool("read_archive_entry",
		mcp.WithDescription("Read the archived body for an entry identifier (YYYY-MM-DD_HH-MM-SS)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry identifier")),
	), s.readArchiveEntry)

	s.mcp.AddTool(mcp.NewTool("search_archive",
		mcp.WithDescription("Full-text search through archived entries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArchive)

	s.mcp.AddTool(mcp.NewTool("get_today_contract",
		mcp.WithDescription("Returns the format rules for Today's Content."),
	), s.getTodayContract)

	s.mcp.AddResource(
		mcp.NewResource("dailynote://today-format", "Today's Content Format",
			mcp.WithResourceDescription("Rules new Today's Content must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTodayFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getToday(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := s.nb.Today(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if body == "" {
		return mcp.NewToolResultText("(empty)"), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) updateToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.nb.UpdateToday(ctx, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Entry == nil {
		return mcp.NewToolResultText(fmt.Sprintf("updated: %s", res.DocumentPath)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (archived %s)", res.DocumentPath, res.Entry.Path)), nil
}

func (s *Server) publishToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.publisher.Run(ctx, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps := make([]string, 0, len(res.Steps))
	for _, st := range res.Steps {
		steps = append(steps, st.Step.String())
	}
	return mcp.NewToolResultText(fmt.Sprintf("published on %s: %s", res.Branch, strings.Join(steps, ", "))), nil
}

func (s *Server) listArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	offset := req.GetInt("offset", 0)
	tag := req.GetString("tag", "")

	rows, total, err := s.nb.ListArchive(ctx, limit, offset, tag)
	if err == nil {
		out, _ := json.MarshalIndent(map[string]any{"entries": rows, "total": total}, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}
	if tag != "" {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Without a catalog, fall back to the links in the document.
	links, linkErr := s.nb.Links(ctx)
	if linkErr != nil {
		return mcp.NewToolResultError(linkErr.Error()), nil
	}
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, l.ID+"\t"+l.Path)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no archived entries"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readArchiveEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := s.nb.ReadEntry(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) searchArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.nb.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTodayContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TodayFormatContract), nil
}

func (s *Server) readTodayFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dailynote://today-format",
			MIMEType: "text/markdown",
			Text:     TodayFormatContract,
		},
	}, nil
}
