package index

import (
	"path"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// ExcerptPadding is the number of context characters kept on each side of
// the first query occurrence when building a search excerpt.
const ExcerptPadding = 80

// DefaultSearchLimit is used when a caller passes a non-positive limit.
const DefaultSearchLimit = 5

// SearchEntry is one searchable record: a document section, or the whole
// document when it has none.
type SearchEntry struct {
	File    string `json:"file"` // relative path
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	File    string `json:"file"`
	Title   string `json:"title"`
	Score   int    `json:"score"`
	Excerpt string `json:"excerpt"`
}

// BuildSearchEntries flattens documents into a flat list of searchable
// records: traversal order, then section order within a file. Ties in the
// ranking preserve this order, so it is part of the contract.
func BuildSearchEntries(store storage.Provider, files []string) []SearchEntry {
	var out []SearchEntry
	for _, rel := range files {
		data, err := store.Read(rel)
		if err != nil {
			continue
		}
		text := string(data)
		base := path.Base(rel)

		sections := parser.SplitSections(text)
		if len(sections) == 0 {
			out = append(out, SearchEntry{File: rel, Title: base, Content: text})
			continue
		}
		for _, s := range sections {
			title := s.Title
			if title == "" {
				title = base
			}
			out = append(out, SearchEntry{File: rel, Title: title, Content: s.Content})
		}
	}
	return out
}

// SearchEntries scores every entry against query: +3 when the title
// contains it, +1 (additively) when the content does. Zero-score entries
// are dropped, survivors sorted by descending score with ties in index
// order, then truncated to limit.
func SearchEntries(entries []SearchEntry, query string, limit int) []SearchResult {
	q := strings.ToLower(query)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var out []SearchResult
	for _, e := range entries {
		score := 0
		contentLc := strings.ToLower(e.Content)
		if strings.Contains(strings.ToLower(e.Title), q) {
			score += 3
		}
		if strings.Contains(contentLc, q) {
			score++
		}
		if score == 0 {
			continue
		}

		excerpt := ""
		if pos := strings.Index(contentLc, q); pos >= 0 {
			start := max(0, pos-ExcerptPadding)
			end := min(len(e.Content), pos+len(q)+ExcerptPadding)
			excerpt = e.Content[start:end]
		}
		out = append(out, SearchResult{File: e.File, Title: e.Title, Score: score, Excerpt: excerpt})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
