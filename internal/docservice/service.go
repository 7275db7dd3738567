// Package docservice is the read-model query layer shared by the HTTP API
// and the MCP server. It answers every query from the current index
// snapshot plus on-demand link-graph passes; it never mutates documents
// except through the explicit backlinks update.
package docservice

import (
	"context"
	"errors"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// GlossaryEntry is one resolved glossary term.
type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// BacklinksResult lists the incoming links recorded for one document.
type BacklinksResult struct {
	File           string               `json:"file"`
	BacklinksCount int                  `json:"backlinksCount"`
	Backlinks      []linkgraph.Backlink `json:"backlinks"`
}

// OrphansResult is the orphan listing with its count.
type OrphansResult struct {
	Count int                      `json:"count"`
	Files []linkgraph.OrphanedFile `json:"files"`
}

// Service coordinates index snapshots, storage, and the link graph.
type Service struct {
	store   storage.Provider
	manager *index.Manager
	links   *linkgraph.Engine
}

// NewService creates a new doc service.
func NewService(store storage.Provider, manager *index.Manager, links *linkgraph.Engine) *Service {
	return &Service{store: store, manager: manager, links: links}
}

// Index returns the live index snapshot.
func (s *Service) Index() *index.Index {
	return s.manager.Current()
}

// Rebuild refreshes the index from disk.
func (s *Service) Rebuild(_ context.Context) (bool, error) {
	return s.manager.Rebuild()
}

// Search ranks index entries against query.
func (s *Service) Search(_ context.Context, query string, limit int) []index.SearchResult {
	return index.SearchEntries(s.Index().Search, query, limit)
}

// ReadDoc returns the raw content of one document.
func (s *Service) ReadDoc(_ context.Context, file string) (string, error) {
	data, err := s.store.Read(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExtractSection re-reads a document and returns the section with the
// exact given heading.
func (s *Service) ExtractSection(_ context.Context, file, heading string) (*parser.Section, error) {
	data, err := s.store.Read(file)
	if err != nil {
		return nil, err
	}
	sec := parser.ExtractSection(string(data), heading)
	if sec == nil {
		return nil, apperr.ErrNotFound
	}
	return sec, nil
}

// GlossaryLookup resolves a term case-insensitively against the glossary.
func (s *Service) GlossaryLookup(_ context.Context, term string) (*GlossaryEntry, error) {
	canonical, def, ok := parser.LookupTerm(s.Index().Glossary, term)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &GlossaryEntry{Term: canonical, Definition: def}, nil
}

// ListDocs returns every indexed path, optionally filtered by prefix.
func (s *Service) ListDocs(_ context.Context, prefix string) []string {
	files := s.Index().Files
	if prefix == "" {
		out := make([]string, len(files))
		copy(out, files)
		return out
	}
	out := []string{}
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// SpecLookup returns the full spec record for an id.
func (s *Service) SpecLookup(_ context.Context, specID string) (*index.SpecRecord, error) {
	rec := s.Index().Specs.Lookup(specID)
	if rec == nil {
		return nil, apperr.ErrNotFound
	}
	return rec, nil
}

// SpecSearch ranks specs against query, returning summary metadata only.
func (s *Service) SpecSearch(_ context.Context, query string, limit int) []index.SpecSearchResult {
	out := s.Index().Specs.Search(query, limit)
	if out == nil {
		out = []index.SpecSearchResult{}
	}
	return out
}

// Backlinks returns the incoming links for one document. The file must
// exist; the backlink map is rebuilt from the tree on every call.
func (s *Service) Backlinks(_ context.Context, file string) (*BacklinksResult, error) {
	abs, err := s.store.Abs(file)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Read(file); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	m, err := s.links.BuildBacklinksMap()
	if err != nil {
		return nil, err
	}
	bucket := m[abs]
	if bucket == nil {
		bucket = []linkgraph.Backlink{}
	}
	return &BacklinksResult{File: file, BacklinksCount: len(bucket), Backlinks: bucket}, nil
}

// ValidateLinks runs a full-tree link validation pass.
func (s *Service) ValidateLinks(_ context.Context) (*linkgraph.ValidationReport, error) {
	return s.links.ValidateLinks()
}

// UpdateBacklinks rewrites every document's backlinks section and then
// refreshes the index, since the pass mutates files on disk.
func (s *Service) UpdateBacklinks(ctx context.Context, dryRun bool) (*linkgraph.UpdateResult, error) {
	res, err := s.links.UpdateAll(dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun && res.Updated > 0 {
		if _, err := s.Rebuild(ctx); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// OrphanedFiles lists the documents nothing links to.
func (s *Service) OrphanedFiles(_ context.Context) (*OrphansResult, error) {
	files, err := s.links.OrphanedFiles()
	if err != nil {
		return nil, err
	}
	return &OrphansResult{Count: len(files), Files: files}, nil
}
