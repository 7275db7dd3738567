package linkgraph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/ansuz/internal/parser"
)

// Link error types reported by validation.
const (
	ErrTypeFileNotFound  = "FILE_NOT_FOUND"
	ErrTypeInvalidAnchor = "INVALID_ANCHOR"
)

// LinkError is one broken link or broken anchor found during validation.
type LinkError struct {
	File      string `json:"file"` // absolute path of the linking document
	LinkText  string `json:"linkText"`
	LinkPath  string `json:"linkPath"` // the link exactly as written
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

// ValidationReport aggregates a full-tree link validation pass.
type ValidationReport struct {
	TotalFiles  int         `json:"totalFiles"`
	TotalLinks  int         `json:"totalLinks"`
	BrokenLinks int         `json:"brokenLinks"`
	Errors      []LinkError `json:"errors"`
}

// ValidateLinks checks every internal link in the tree. Unlike extraction,
// validation looks at all links regardless of target extension and does not
// stop at the backlinks marker; a generated section pointing at a deleted
// file is exactly what it should catch.
func (e *Engine) ValidateLinks() (*ValidationReport, error) {
	report := &ValidationReport{Errors: []LinkError{}}

	files, err := e.walk()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		data, err := e.store.Read(f.Rel)
		if err != nil {
			continue
		}
		report.TotalFiles++

		for _, l := range scanLinks(f.Abs, string(data)) {
			report.TotalLinks++
			if lerr := validateLink(f.Abs, l); lerr != nil {
				report.Errors = append(report.Errors, *lerr)
			}
		}
	}

	report.BrokenLinks = len(report.Errors)
	return report, nil
}

// validateLink checks one resolved link: target existence first, then the
// anchor against the target's heading-derived anchor set.
func validateLink(fromAbs string, l resolvedLink) *LinkError {
	if _, err := os.Stat(l.Abs); err != nil {
		return &LinkError{
			File:      fromAbs,
			LinkText:  l.Text,
			LinkPath:  l.RawPath,
			ErrorType: ErrTypeFileNotFound,
			Message:   fmt.Sprintf("link target does not exist: %s", l.Abs),
		}
	}
	if l.Anchor == "" {
		return nil
	}

	target, err := os.ReadFile(l.Abs)
	if err != nil {
		return &LinkError{
			File:      fromAbs,
			LinkText:  l.Text,
			LinkPath:  l.RawPath,
			ErrorType: ErrTypeFileNotFound,
			Message:   fmt.Sprintf("failed to read link target: %v", err),
		}
	}
	anchors := parser.ExtractAnchors(string(target))
	if _, ok := anchors[l.Anchor]; !ok {
		return &LinkError{
			File:      fromAbs,
			LinkText:  l.Text,
			LinkPath:  l.RawPath,
			ErrorType: ErrTypeInvalidAnchor,
			Message:   fmt.Sprintf("anchor '#%s' not found in %s", l.Anchor, filepath.Base(l.Abs)),
		}
	}
	return nil
}
