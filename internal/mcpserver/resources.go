package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs. Documents live under the docs prefix; the two index
// resources are virtual, serialized from the in-memory snapshot on read.
const (
	docResourcePrefix = "ansuz://docs/"
	searchIndexURI    = "ansuz://search-index"
	specIndexURI      = "ansuz://spec-index"
	specFormatURI     = "ansuz://spec-format"
)

func (s *Server) registerResources() {
	for _, rel := range s.svc.Index().Files {
		s.mcp.AddResource(
			mcp.NewResource(docResourcePrefix+rel, rel,
				mcp.WithResourceDescription("Indexed documentation file."),
				mcp.WithMIMEType("text/markdown"),
			),
			s.readDocResource,
		)
	}

	s.mcp.AddResource(
		mcp.NewResource(searchIndexURI, "Search Index",
			mcp.WithResourceDescription("Serialized flat search index: one record per document section."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSearchIndexResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(specIndexURI, "Spec Index",
			mcp.WithResourceDescription("Serialized spec index with validation errors."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSpecIndexResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(specFormatURI, "Spec Format Contract",
			mcp.WithResourceDescription("Canonical front-matter format that spec documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSpecFormatResource,
	)
}

func (s *Server) readDocResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rel := strings.TrimPrefix(req.Params.URI, docResourcePrefix)
	content, err := s.svc.ReadDoc(ctx, rel)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     content,
		},
	}, nil
}

func (s *Server) readSearchIndexResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Index().Search, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      searchIndexURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readSpecIndexResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Index().Specs, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      specIndexURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readSpecFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      specFormatURI,
			MIMEType: "text/markdown",
			Text:     SpecFormatContract,
		},
	}, nil
}
