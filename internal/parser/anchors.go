package parser

import (
	"regexp"
	"strings"
)

var (
	headingTextRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	nonAnchorRe   = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Slugify converts heading text into its anchor id: lowercase, trimmed,
// non-word/space/hyphen characters stripped, whitespace collapsed to
// single hyphens.
func Slugify(heading string) string {
	s := strings.TrimSpace(strings.ToLower(heading))
	s = nonAnchorRe.ReplaceAllString(s, "")
	return whitespaceRe.ReplaceAllString(s, "-")
}

// ExtractAnchors returns the set of valid anchor ids for a document,
// derived from every heading of level 1–6.
func ExtractAnchors(text string) map[string]struct{} {
	anchors := make(map[string]struct{})
	for _, m := range headingTextRe.FindAllStringSubmatch(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		anchors[Slugify(m[1])] = struct{}{}
	}
	return anchors
}
