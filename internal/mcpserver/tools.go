package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/apperr"
)

// requireString fetches a mandatory string argument.
func requireString(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	v, err := req.RequireString(key)
	if err != nil {
		return "", errResult(CodeInvalidArgs, err.Error())
	}
	return v, nil
}

// optString fetches an optional string argument, empty when absent.
func optString(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return "", nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", errResult(CodeInvalidArgs, fmt.Sprintf("argument %q must be a string", key))
	}
	return v, nil
}

// searchLimit fetches the optional limit argument, enforcing the 1-20
// range, defaulting to 5 when absent.
func searchLimit(req mcp.CallToolRequest) (int, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()["limit"]
	if !ok || raw == nil {
		return 5, nil
	}
	var limit int
	switch v := raw.(type) {
	case float64:
		limit = int(v)
	case int:
		limit = v
	default:
		return 0, errResult(CodeInvalidArgs, "argument \"limit\" must be a number")
	}
	if limit < minSearchLimit || limit > maxSearchLimit {
		return 0, errResult(CodeInvalidArgs,
			fmt.Sprintf("limit must be between %d and %d", minSearchLimit, maxSearchLimit))
	}
	return limit, nil
}

// mapError converts a service error into its structured envelope.
func mapError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return errResult(CodeNotFound, err.Error())
	case errors.Is(err, apperr.ErrAccessDenied):
		return errResult(CodeAccessDenied, err.Error())
	default:
		return errResult(CodeExecutionFailed, err.Error())
	}
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, fail := requireString(req, "query")
	if fail != nil {
		return fail, nil
	}
	if strings.TrimSpace(query) == "" {
		return errResult(CodeInvalidArgs, "query must not be empty"), nil
	}
	limit, fail := searchLimit(req)
	if fail != nil {
		return fail, nil
	}
	return okResult("search", s.svc.Search(ctx, query, limit)), nil
}

func (s *Server) extractSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, fail := requireString(req, "file")
	if fail != nil {
		return fail, nil
	}
	heading, fail := requireString(req, "heading")
	if fail != nil {
		return fail, nil
	}
	sec, err := s.svc.ExtractSection(ctx, file, heading)
	if err != nil {
		return mapError(err), nil
	}
	return okResult("extract_section", sec), nil
}

func (s *Server) glossaryLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, fail := requireString(req, "term")
	if fail != nil {
		return fail, nil
	}
	entry, err := s.svc.GlossaryLookup(ctx, term)
	if err != nil {
		return mapError(err), nil
	}
	return okResult("glossary_lookup", entry), nil
}

func (s *Server) listDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix, fail := optString(req, "prefix")
	if fail != nil {
		return fail, nil
	}
	return okResult("list_docs", s.svc.ListDocs(ctx, prefix)), nil
}

func (s *Server) specLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specID, fail := requireString(req, "specId")
	if fail != nil {
		return fail, nil
	}
	rec, err := s.svc.SpecLookup(ctx, specID)
	if err != nil {
		return mapError(err), nil
	}
	return okResult("spec_lookup", rec), nil
}

func (s *Server) specSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, fail := requireString(req, "query")
	if fail != nil {
		return fail, nil
	}
	if strings.TrimSpace(query) == "" {
		return errResult(CodeInvalidArgs, "query must not be empty"), nil
	}
	limit, fail := searchLimit(req)
	if fail != nil {
		return fail, nil
	}
	return okResult("spec_search", s.svc.SpecSearch(ctx, query, limit)), nil
}

func (s *Server) backlinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, fail := requireString(req, "file")
	if fail != nil {
		return fail, nil
	}
	res, err := s.svc.Backlinks(ctx, file)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return errResult(CodeFileNotFound, err.Error()), nil
		}
		return mapError(err), nil
	}
	return okResult("backlinks", res), nil
}

func (s *Server) validateLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.ValidateLinks(ctx)
	if err != nil {
		return mapError(err), nil
	}
	return okResult("validate_links", map[string]any{
		"summary": map[string]int{
			"totalFiles":  report.TotalFiles,
			"totalLinks":  report.TotalLinks,
			"brokenLinks": report.BrokenLinks,
		},
		"errors": report.Errors,
	}), nil
}

func (s *Server) updateBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.UpdateBacklinks(ctx, false)
	if err != nil {
		return mapError(err), nil
	}
	return okResult("update_backlinks", map[string]any{
		"updated": res.Updated,
		"total":   res.Total,
		"failed":  res.Failed,
		"message": fmt.Sprintf("updated %d of %d files", res.Updated, res.Total),
	}), nil
}

func (s *Server) orphanedFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.OrphanedFiles(ctx)
	if err != nil {
		return mapError(err), nil
	}
	return okResult("orphaned_files", res), nil
}
