// Package index builds and queries the in-memory documentation indexes:
// the flat search index, the spec front-matter index, and the glossary.
// All of them are built in one pass and rebuilt wholesale; there is no
// partial invalidation.
package index

import (
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Config holds the build inputs, all paths relative to the docs root.
type Config struct {
	// DocsDir is the subtree walked for the search index; empty means the
	// whole root.
	DocsDir string
	// SpecsDir is the subtree scanned for spec front matter.
	SpecsDir string
	// GlossaryPath points at the glossary reference document; a missing
	// file yields an empty glossary.
	GlossaryPath string
	// ExtraFiles are indexed ahead of the tree walk (README and friends
	// living outside DocsDir).
	ExtraFiles []string
}

// Index is the aggregate read-model: built once, queried everywhere.
// Constructed explicitly and passed by reference — never module-level state.
type Index struct {
	Files       []string // relative doc paths, traversal order
	Search      []SearchEntry
	Specs       *SpecIndex
	Glossary    map[string]string
	Fingerprint string // digest over the indexed doc set
	BuiltAt     time.Time
}

// Build reads the docs tree once and constructs every index.
func Build(store storage.Provider, cfg Config) (*Index, error) {
	sums := make(map[string]string)
	var files []string
	seen := make(map[string]struct{})

	add := func(path, sum string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
		sums[path] = sum
	}

	for _, extra := range cfg.ExtraFiles {
		data, err := store.Read(extra)
		if err != nil {
			continue // extras are optional
		}
		add(extra, checksum.Sum(data))
	}

	metas, err := store.List(cfg.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("index: walk docs: %w", err)
	}
	for _, m := range metas {
		add(m.Path, m.Checksum)
	}

	specs, err := BuildSpecIndex(store, cfg.SpecsDir)
	if err != nil {
		return nil, err
	}

	glossary := map[string]string{}
	if cfg.GlossaryPath != "" {
		if data, err := store.Read(cfg.GlossaryPath); err == nil {
			glossary = parser.BuildGlossary(string(data))
		}
	}

	return &Index{
		Files:       files,
		Search:      BuildSearchEntries(store, files),
		Specs:       specs,
		Glossary:    glossary,
		Fingerprint: checksum.Tree(sums),
		BuiltAt:     time.Now(),
	}, nil
}

// Summary returns the one-line build summary printed by --check.
func (ix *Index) Summary() string {
	return fmt.Sprintf("indexed files=%d sections=%d specs=%d errors=%d glossaryTerms=%d",
		len(ix.Files), len(ix.Search), len(ix.Specs.Specs), len(ix.Specs.Errors), len(ix.Glossary))
}
