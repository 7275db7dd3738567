// Package linkgraph scans the docs tree for inline Markdown links and
// derives the reverse-link map, the broken-link report, and the orphan
// list. Everything is computed by full tree walks; there is no incremental
// maintenance, callers rebuild after the tree changes.
package linkgraph

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

// SectionMarker is the fixed heading that opens a generated backlinks
// section. Links after this marker are never extracted, otherwise the
// generated section would feed back into itself on the next run.
const SectionMarker = "## Linked from"

// markdownLinkRe matches [text](path) and [text](path#anchor).
var markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// resolvedLink is one internal link with its target resolved against the
// linking document's own directory, before any extension filtering.
type resolvedLink struct {
	Text    string
	RawPath string // the path exactly as written in the document
	Abs     string // resolved absolute target, anchor stripped
	Anchor  string
}

// scanLinks returns every internal link in content. External http(s) links
// are discarded; relative targets resolve against fromAbs's directory.
func scanLinks(fromAbs, content string) []resolvedLink {
	var out []resolvedLink
	for _, m := range markdownLinkRe.FindAllStringSubmatch(content, -1) {
		text, raw := m[1], m[2]
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			continue
		}
		pathPart, anchor, _ := strings.Cut(raw, "#")
		var abs string
		if filepath.IsAbs(pathPart) {
			abs = filepath.Clean(pathPart)
		} else {
			abs = filepath.Join(filepath.Dir(fromAbs), pathPart)
		}
		out = append(out, resolvedLink{Text: text, RawPath: raw, Abs: abs, Anchor: anchor})
	}
	return out
}

// ExtractLinks returns the internal .md links of one document, excluding
// anything after the generated backlinks section.
func ExtractLinks(fromAbs, content string) []models.Link {
	scan := content
	if i := strings.Index(content, SectionMarker); i != -1 {
		scan = content[:i]
	}

	var out []models.Link
	for _, l := range scanLinks(fromAbs, scan) {
		if !strings.HasSuffix(l.Abs, ".md") {
			continue
		}
		out = append(out, models.Link{
			FromFile:   fromAbs,
			LinkText:   l.Text,
			TargetPath: l.Abs,
			Anchor:     l.Anchor,
		})
	}
	return out
}

// Engine runs link-graph operations over one docs subtree.
type Engine struct {
	store  storage.Provider
	dir    string // subtree walked, relative to the docs root; empty means all
	logger *slog.Logger
}

// New returns an engine scanning dir under the store's root.
func New(store storage.Provider, dir string, logger *slog.Logger) *Engine {
	return &Engine{store: store, dir: dir, logger: logger}
}

// docFile pairs the two path forms every walk needs.
type docFile struct {
	Rel string
	Abs string
}

// walk lists the subtree and resolves each path once. Files that fail to
// resolve are skipped; they cannot be addressed safely.
func (e *Engine) walk() ([]docFile, error) {
	metas, err := e.store.List(e.dir)
	if err != nil {
		return nil, err
	}
	out := make([]docFile, 0, len(metas))
	for _, m := range metas {
		abs, err := e.store.Abs(m.Path)
		if err != nil {
			e.logger.Warn("linkgraph: skipping unresolvable path",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, docFile{Rel: m.Path, Abs: abs})
	}
	return out, nil
}
