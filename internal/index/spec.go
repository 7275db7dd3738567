package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// SpecStatuses is the closed set of valid spec lifecycle statuses.
var SpecStatuses = []string{"draft", "review", "approved", "implementing", "done", "deprecated"}

// Spec validation error codes.
const (
	CodeMissingSpecID   = "MISSING_specId"
	CodeDuplicateSpecID = "DUPLICATE_specId"
	CodeMissingTitle    = "MISSING_title"
	CodeMissingStatus   = "MISSING_status"
	CodeInvalidStatus   = "INVALID_status"
	CodeMissingVersion  = "MISSING_version"
	// CodeInvalidVersion is reported by the strict build only: the server
	// index accepts any non-empty version string.
	CodeInvalidVersion = "INVALID_version"
)

// versionShapeRe is the SemVer shape required of spec versions in strict
// validation.
var versionShapeRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// SpecRecord is one spec document: its front matter plus file and body.
type SpecRecord struct {
	Meta parser.Meta
	File string // relative path
	Body string
}

// MarshalJSON flattens the record the way the index artifact expects:
// known meta fields and extras at the top level alongside file and body.
func (r SpecRecord) MarshalJSON() ([]byte, error) {
	m := r.Meta.Fields()
	m["file"] = r.File
	m["body"] = r.Body
	return json.Marshal(m)
}

// SpecValidationError reports the rule violations found in one spec file.
type SpecValidationError struct {
	File   string   `json:"file"`
	SpecID *string  `json:"specId"` // nil when the file has no specId
	Errors []string `json:"errors"`
}

// SpecWarning is a non-fatal problem noticed while parsing one spec file
// in strict mode, such as an unparsable front-matter line.
type SpecWarning struct {
	File    string
	Warning string
}

// SpecIndex holds every spec under the specs root, valid or not, plus the
// validation errors collected alongside. Rebuilt wholesale on every build.
// Warnings are populated by strict builds only and never serialized.
type SpecIndex struct {
	Specs    []SpecRecord          `json:"specs"`
	Errors   []SpecValidationError `json:"errors"`
	Warnings []SpecWarning         `json:"-"`
}

// SpecSearchResult is one ranked spec_search hit; summary metadata only.
type SpecSearchResult struct {
	SpecID string `json:"specId"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Score  int    `json:"score"`
}

// BuildSpecIndex scans every document under specsDir, parses front matter,
// and validates required fields. Validation never stops indexing: a file
// with errors still lands in Specs, with its codes accumulated in Errors.
// A missing specs directory yields an empty index.
func BuildSpecIndex(store storage.Provider, specsDir string) (*SpecIndex, error) {
	return buildSpecIndex(store, specsDir, false)
}

// BuildSpecIndexStrict is the validator build used by the spec-index
// command: unparsable front-matter lines are collected as Warnings, quoted
// scalars are unquoted, and a present version must be SemVer-shaped
// (INVALID_version otherwise).
func BuildSpecIndexStrict(store storage.Provider, specsDir string) (*SpecIndex, error) {
	return buildSpecIndex(store, specsDir, true)
}

func buildSpecIndex(store storage.Provider, specsDir string, strict bool) (*SpecIndex, error) {
	idx := &SpecIndex{Specs: []SpecRecord{}, Errors: []SpecValidationError{}}

	metas, err := store.List(specsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("index: list specs: %w", err)
	}

	seen := make(map[string]struct{})
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			continue
		}
		var fm *parser.FrontMatter
		if strict {
			fm = parser.ParseFrontMatterStrict(string(data))
			for _, w := range fm.Warnings {
				idx.Warnings = append(idx.Warnings, SpecWarning{File: m.Path, Warning: w})
			}
		} else {
			fm = parser.ParseFrontMatter(string(data))
		}
		rec := SpecRecord{Meta: fm.Meta, File: m.Path, Body: fm.Body}

		var codes []string
		id := fm.Meta.SpecID
		if id == "" {
			codes = append(codes, CodeMissingSpecID)
		} else {
			// Only repeats are flagged, never the first occurrence.
			if _, dup := seen[id]; dup {
				codes = append(codes, CodeDuplicateSpecID)
			}
			seen[id] = struct{}{}
		}
		if fm.Meta.Title == "" {
			codes = append(codes, CodeMissingTitle)
		}
		switch status := fm.Meta.Status; {
		case status == "":
			codes = append(codes, CodeMissingStatus)
		case !validStatus(status):
			codes = append(codes, CodeInvalidStatus)
		}
		switch version := fm.Meta.Version; {
		case version == "":
			codes = append(codes, CodeMissingVersion)
		case strict && !versionShapeRe.MatchString(version):
			codes = append(codes, CodeInvalidVersion)
		}

		if len(codes) > 0 {
			var specID *string
			if id != "" {
				specID = &id
			}
			idx.Errors = append(idx.Errors, SpecValidationError{File: m.Path, SpecID: specID, Errors: codes})
		}
		idx.Specs = append(idx.Specs, rec)
	}
	return idx, nil
}

func validStatus(s string) bool {
	for _, v := range SpecStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Lookup returns the spec with the given id (case-insensitive exact match).
func (idx *SpecIndex) Lookup(specID string) *SpecRecord {
	want := strings.ToLower(specID)
	for i := range idx.Specs {
		if strings.ToLower(idx.Specs[i].Meta.SpecID) == want {
			return &idx.Specs[i]
		}
	}
	return nil
}

// Search scores specs by substring presence of the lowercased query in
// title, summary, and the space-joined tags: one point per field, max 3.
// Zero-score entries are excluded; results sorted descending, truncated.
func (idx *SpecIndex) Search(query string, limit int) []SpecSearchResult {
	q := strings.ToLower(query)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var out []SpecSearchResult
	for _, s := range idx.Specs {
		score := 0
		if strings.Contains(strings.ToLower(s.Meta.Title), q) {
			score++
		}
		if strings.Contains(strings.ToLower(s.Meta.Summary), q) {
			score++
		}
		if strings.Contains(strings.ToLower(strings.Join(s.Meta.Tags, " ")), q) {
			score++
		}
		if score == 0 {
			continue
		}
		out = append(out, SpecSearchResult{
			SpecID: s.Meta.SpecID,
			Title:  s.Meta.Title,
			Status: s.Meta.Status,
			Score:  score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Artifact is the persisted JSON form of a spec index build.
type Artifact struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	Count       int                   `json:"count"`
	Specs       []SpecRecord          `json:"specs"`
	Errors      []SpecValidationError `json:"errors"`
}

// WriteArtifact serializes the index to path, creating parent directories.
func (idx *SpecIndex) WriteArtifact(path string) error {
	art := Artifact{
		GeneratedAt: time.Now().UTC(),
		Count:       len(idx.Specs),
		Specs:       idx.Specs,
		Errors:      idx.Errors,
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("index: mkdir artifact dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("index: write artifact: %w", err)
	}
	return nil
}
