package parser

import "strings"

const sectionPrefix = "## "

// Section is one second-level-heading segment of a document body.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SplitSections partitions text at every line beginning with `## `. Deeper
// or shallower headings are ordinary content. Content before the first
// heading becomes a leading section with an empty title. The split is a pure
// function of its input and loses nothing but the heading lines themselves.
func SplitSections(text string) []Section {
	var sections []Section
	title := ""
	var buf []string

	flush := func() {
		if title != "" || len(buf) > 0 {
			sections = append(sections, Section{Title: title, Content: strings.Join(buf, "\n")})
		}
	}

	for _, line := range splitLines(text) {
		if strings.HasPrefix(line, sectionPrefix) {
			flush()
			title = strings.TrimSpace(line[len(sectionPrefix):])
			buf = nil
		} else {
			buf = append(buf, line)
		}
	}
	flush()
	return sections
}

// ExtractSection returns the section whose title matches heading exactly
// (after trimming), or nil when the document has no such section.
func ExtractSection(text, heading string) *Section {
	want := strings.TrimSpace(heading)
	for _, s := range SplitSections(text) {
		if strings.TrimSpace(s.Title) == want {
			sec := s
			return &sec
		}
	}
	return nil
}
