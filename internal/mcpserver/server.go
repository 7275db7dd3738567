// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the Ansuz documentation indexes and link graph as tools for LLM
// integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/docservice"
)

// Structured error codes returned inside the tool-result envelope.
const (
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeInvalidArgs     = "INVALID_ARGS"
	CodeExecutionFailed = "EXECUTION_FAILED"
	CodeAccessDenied    = "ACCESS_DENIED"
	CodeNotFound        = "NOT_FOUND"
	// CodeFileNotFound is the backlinks-specific miss code; other lookup
	// tools report the generic CodeNotFound.
	CodeFileNotFound = "FILE_NOT_FOUND"
)

// Search limits enforced on tool arguments.
const (
	minSearchLimit = 1
	maxSearchLimit = 20
)

// Server wraps the MCP server with the Ansuz tool set.
type Server struct {
	mcp   *server.MCPServer
	svc   *docservice.Service
	tools map[string]server.ToolHandlerFunc
}

// New creates a new MCP server with all tools and resources registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc, tools: make(map[string]server.ToolHandlerFunc)}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.addTool(mcp.NewTool("search",
		mcp.WithDescription("Search documentation sections by keyword. Titles rank above body text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string (non-empty)")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, 1-20 (default 5)")),
	), s.search)

	s.addTool(mcp.NewTool("extract_section",
		mcp.WithDescription("Return one section of a document by its exact second-level heading."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("heading", mcp.Required(), mcp.Description("Exact section title, without the ## prefix")),
	), s.extractSection)

	s.addTool(mcp.NewTool("glossary_lookup",
		mcp.WithDescription("Look up a glossary term (case-insensitive)."),
		mcp.WithString("term", mcp.Required(), mcp.Description("Term to resolve")),
	), s.glossaryLookup)

	s.addTool(mcp.NewTool("list_docs",
		mcp.WithDescription("List indexed document paths, optionally filtered by path prefix."),
		mcp.WithString("prefix", mcp.Description("Optional relative-path prefix filter")),
	), s.listDocs)

	s.addTool(mcp.NewTool("spec_lookup",
		mcp.WithDescription("Fetch a full spec record (metadata and body) by its specId."),
		mcp.WithString("specId", mcp.Required(), mcp.Description("Spec identifier, matched case-insensitively")),
	), s.specLookup)

	s.addTool(mcp.NewTool("spec_search",
		mcp.WithDescription("Search specs by title, summary, and tags. Returns summary metadata only."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string (non-empty)")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, 1-20 (default 5)")),
	), s.specSearch)

	s.addTool(mcp.NewTool("backlinks",
		mcp.WithDescription("List every document linking to the given file."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Relative path of the target document")),
	), s.backlinks)

	s.addTool(mcp.NewTool("validate_links",
		mcp.WithDescription("Validate every internal link and anchor in the docs tree."),
	), s.validateLinks)

	s.addTool(mcp.NewTool("update_backlinks",
		mcp.WithDescription("Rewrite the generated backlinks section of every document. Idempotent."),
	), s.updateBacklinks)

	s.addTool(mcp.NewTool("orphaned_files",
		mcp.WithDescription("List documents that no other document links to."),
	), s.orphanedFiles)

	s.registerResources()
	return s
}

// addTool registers a tool with panic recovery wrapped around its handler.
func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	wrapped := withRecovery(h)
	s.tools[tool.Name] = wrapped
	s.mcp.AddTool(tool, wrapped)
}

// CallTool dispatches a request by tool name the way the transport does.
// An unregistered name yields a structured UNKNOWN_TOOL error.
func (s *Server) CallTool(ctx context.Context, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, ok := s.tools[name]
	if !ok {
		return errResult(CodeUnknownTool, fmt.Sprintf("unknown tool: %s", name)), nil
	}
	return h(ctx, req)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// withRecovery converts a handler panic into an EXECUTION_FAILED result.
// No tool call may propagate an unhandled failure to the transport.
func withRecovery(h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				res = errResult(CodeExecutionFailed, fmt.Sprintf("tool panicked: %v", r))
				err = nil
			}
		}()
		return h(ctx, req)
	}
}

// envelope is the uniform tool-result payload. The ok field discriminates
// success from structured failure; transports never see raw errors.
type envelope struct {
	OK      bool   `json:"ok"`
	Tool    string `json:"tool,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func okResult(tool string, data any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(envelope{OK: true, Tool: tool, Data: data}, "", "  ")
	if err != nil {
		return errResult(CodeExecutionFailed, fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

func errResult(code, message string) *mcp.CallToolResult {
	out, _ := json.Marshal(envelope{OK: false, Error: code, Message: message})
	return mcp.NewToolResultError(string(out))
}
