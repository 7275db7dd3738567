package parser

import (
	"regexp"
	"strings"
)

var (
	bulletTermRe  = regexp.MustCompile(`^[-*]\s+([^:]+):\s*(.+)$`)
	h3TermRe      = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	parenSuffixRe = regexp.MustCompile(`\s*\(.+\)\s*$`)
	anyHeadingRe  = regexp.MustCompile(`^#{1,6}\s`)
	hruleRe       = regexp.MustCompile(`^---+$`)
)

// BuildGlossary derives a term→definition map from reference-document text.
//
// Two extraction rules run in order. Bullet lines (`- Term: Definition`)
// win over heading-derived entries: the heading pass never overwrites an
// existing key. A heading term has any trailing parenthetical stripped and
// takes as definition the following contiguous non-empty, non-heading,
// non-table, non-rule lines joined with single spaces.
func BuildGlossary(text string) map[string]string {
	out := make(map[string]string)
	lines := splitLines(text)

	for _, line := range lines {
		if m := bulletTermRe.FindStringSubmatch(line); m != nil {
			out[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
		}
	}

	for i, line := range lines {
		hm := h3TermRe.FindStringSubmatch(line)
		if hm == nil {
			continue
		}
		term := strings.TrimSpace(parenSuffixRe.ReplaceAllString(strings.TrimSpace(hm[1]), ""))

		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		var buf []string
		for j < len(lines) {
			l := lines[j]
			if anyHeadingRe.MatchString(l) || hruleRe.MatchString(l) ||
				strings.HasPrefix(l, "|") || strings.TrimSpace(l) == "" {
				break
			}
			buf = append(buf, strings.TrimSpace(l))
			j++
		}
		if term != "" && len(buf) > 0 {
			if _, exists := out[term]; !exists {
				out[term] = strings.Join(buf, " ")
			}
		}
	}
	return out
}

// LookupTerm finds a glossary entry by case-insensitive term match and
// returns the canonical term spelling with its definition.
func LookupTerm(glossary map[string]string, term string) (string, string, bool) {
	want := strings.ToLower(term)
	for k, v := range glossary {
		if strings.ToLower(k) == want {
			return k, v, true
		}
	}
	return "", "", false
}
