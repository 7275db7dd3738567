package linkgraph

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// emptySectionBody is rendered when a document has no incoming links.
const emptySectionBody = "_(no incoming links yet)_\n"

// Backlink is one incoming reference recorded against a target document.
type Backlink struct {
	FromFile string `json:"fromFile"` // absolute path of the linking document
	LinkText string `json:"linkText"`
	Anchor   string `json:"anchor,omitempty"`
}

// UpdateFailure records one file the bulk updater could not rewrite.
type UpdateFailure struct {
	File  string `json:"file"` // relative path
	Error string `json:"error"`
}

// UpdateResult summarizes a bulk backlink-section update.
type UpdateResult struct {
	Updated int             `json:"updated"`
	Total   int             `json:"total"`
	Failed  []UpdateFailure `json:"failed"`
}

// BuildBacklinksMap walks the tree once and buckets every internal link
// under its resolved absolute target path. Bucket order follows the walk;
// the renderer sorts independently, so the map itself carries no ordering
// guarantee.
func (e *Engine) BuildBacklinksMap() (map[string][]Backlink, error) {
	out := make(map[string][]Backlink)
	files, err := e.walk()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		data, err := e.store.Read(f.Rel)
		if err != nil {
			continue
		}
		for _, l := range ExtractLinks(f.Abs, string(data)) {
			out[l.TargetPath] = append(out[l.TargetPath], Backlink{
				FromFile: l.FromFile,
				LinkText: l.LinkText,
				Anchor:   l.Anchor,
			})
		}
	}
	return out, nil
}

// renderSection produces the full backlinks section for targetAbs.
// Contributing files are sorted by basename so output is deterministic
// regardless of walk order.
func renderSection(targetAbs string, backlinks []Backlink) string {
	var b strings.Builder
	b.WriteString(SectionMarker)
	b.WriteString("\n\n")

	if len(backlinks) == 0 {
		b.WriteString(emptySectionBody)
		return b.String()
	}

	sorted := make([]Backlink, len(backlinks))
	copy(sorted, backlinks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i].FromFile) < filepath.Base(sorted[j].FromFile)
	})

	targetDir := filepath.Dir(targetAbs)
	for _, bl := range sorted {
		rel, err := filepath.Rel(targetDir, bl.FromFile)
		if err != nil {
			rel = bl.FromFile
		}
		name := strings.TrimSuffix(filepath.Base(bl.FromFile), ".md")
		fmt.Fprintf(&b, "- [%s](%s)", name, filepath.ToSlash(rel))
		if bl.Anchor != "" {
			fmt.Fprintf(&b, " (#%s)", bl.Anchor)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// UpdateSection rewrites one document's backlinks section. An existing
// section (everything from the marker to end of file) is replaced; a
// document without one gets the section appended. The write is skipped
// when the result is byte-identical, which makes the operation idempotent.
func (e *Engine) UpdateSection(rel string, backlinks []Backlink) (updated bool, err error) {
	abs, err := e.store.Abs(rel)
	if err != nil {
		return false, err
	}
	data, err := e.store.Read(rel)
	if err != nil {
		return false, err
	}
	content := string(data)

	section := renderSection(abs, backlinks)
	head := content
	if i := strings.Index(content, SectionMarker); i != -1 {
		head = content[:i]
	}
	next := strings.TrimRight(head, " \t\r\n") + "\n\n" + section

	if next == content {
		return false, nil
	}
	if err := e.store.Write(rel, []byte(next)); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateAll rebuilds the backlink map and rewrites every document's
// section. A failing file is recorded and the batch continues; every file
// is always attempted. With dryRun set, nothing is written and Updated
// counts the files that would change.
func (e *Engine) UpdateAll(dryRun bool) (*UpdateResult, error) {
	res := &UpdateResult{Failed: []UpdateFailure{}}

	backlinks, err := e.BuildBacklinksMap()
	if err != nil {
		return nil, err
	}
	files, err := e.walk()
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		res.Total++
		bucket := backlinks[f.Abs]

		if dryRun {
			changed, err := e.sectionStale(f, bucket)
			if err != nil {
				res.Failed = append(res.Failed, UpdateFailure{File: f.Rel, Error: err.Error()})
				continue
			}
			if changed {
				res.Updated++
			}
			continue
		}

		updated, err := e.UpdateSection(f.Rel, bucket)
		if err != nil {
			res.Failed = append(res.Failed, UpdateFailure{File: f.Rel, Error: err.Error()})
			continue
		}
		if updated {
			res.Updated++
		}
	}

	e.logger.Info("linkgraph: backlinks pass finished",
		slog.Int("updated", res.Updated),
		slog.Int("total", res.Total),
		slog.Int("failed", len(res.Failed)),
		slog.Bool("dryRun", dryRun))
	return res, nil
}

// sectionStale reports whether a rewrite would change the file.
func (e *Engine) sectionStale(f docFile, backlinks []Backlink) (bool, error) {
	data, err := e.store.Read(f.Rel)
	if err != nil {
		return false, err
	}
	content := string(data)
	section := renderSection(f.Abs, backlinks)
	head := content
	if i := strings.Index(content, SectionMarker); i != -1 {
		head = content[:i]
	}
	next := strings.TrimRight(head, " \t\r\n") + "\n\n" + section
	return next != content, nil
}
