// Package parser extracts front matter, sections, glossary terms, and heading
// anchors from Markdown content. Parsing is hand-rolled line scanning — no
// full YAML or Markdown grammar — kept behind narrow functions so a real
// parser could be substituted without touching callers.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

const frontMatterDelim = "---"

var (
	keyLineRe   = regexp.MustCompile(`^([A-Za-z0-9_]+):\s*(.*)$`)
	listItemRe  = regexp.MustCompile(`^\s+-\s+`)
	allDigitsRe = regexp.MustCompile(`^[0-9]+$`)
	inlineSeqRe = regexp.MustCompile(`^\[.*\]$`)
)

// Meta holds the known front-matter fields with explicit optionality
// (zero value = absent) plus any unrecognised keys in Extra.
type Meta struct {
	SpecID      string
	Title       string
	Status      string
	Version     string
	Summary     string
	LastUpdated string
	Tags        []string
	Extra       map[string]any
}

// IsZero reports whether no field was populated at all.
func (m *Meta) IsZero() bool {
	return m.SpecID == "" && m.Title == "" && m.Status == "" && m.Version == "" &&
		m.Summary == "" && m.LastUpdated == "" && len(m.Tags) == 0 && len(m.Extra) == 0
}

// Fields returns the meta as a flat map, known fields merged with Extra.
// Used when serializing spec records.
func (m *Meta) Fields() map[string]any {
	out := make(map[string]any, len(m.Extra)+7)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.SpecID != "" {
		out["specId"] = m.SpecID
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	if m.Status != "" {
		out["status"] = m.Status
	}
	if m.Version != "" {
		out["version"] = m.Version
	}
	if m.Summary != "" {
		out["summary"] = m.Summary
	}
	if m.LastUpdated != "" {
		out["lastUpdated"] = m.LastUpdated
	}
	if len(m.Tags) > 0 {
		out["tags"] = m.Tags
	}
	return out
}

// FrontMatter is the output of ParseFrontMatter.
type FrontMatter struct {
	Meta Meta
	Body string
	// Present is true only when a complete delimited block was found.
	Present bool
	// Warnings holds unparsable lines collected in strict mode.
	Warnings []string
}

// ParseFrontMatter extracts a leading `---`-delimited metadata block.
//
// A document that does not begin with the delimiter, or whose block is never
// closed, yields empty meta and the original text as body — absence is a
// valid state, not an error. Callers that require front matter (the spec
// index, the validate command) report MISSING_* codes themselves.
func ParseFrontMatter(raw string) *FrontMatter {
	return parseFrontMatter(raw, false)
}

// ParseFrontMatterStrict behaves like ParseFrontMatter but collects
// unparsable meta lines as warnings and strips surrounding quotes from
// string scalars.
func ParseFrontMatterStrict(raw string) *FrontMatter {
	return parseFrontMatter(raw, true)
}

func parseFrontMatter(raw string, strict bool) *FrontMatter {
	absent := &FrontMatter{Body: raw, Meta: Meta{Extra: map[string]any{}}}

	lines := splitLines(raw)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return absent
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == frontMatterDelim {
			end = i
			break
		}
	}
	if end < 0 {
		// Unterminated block: treated as absent, not malformed.
		if strict {
			absent.Warnings = append(absent.Warnings, "unterminated front matter block")
		}
		return absent
	}

	fm := &FrontMatter{
		Meta:    Meta{Extra: map[string]any{}},
		Body:    strings.Join(lines[end+1:], "\n"),
		Present: true,
	}

	current := ""
	for _, l := range lines[1:end] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if m := keyLineRe.FindStringSubmatch(l); m != nil {
			current = m[1]
			v := m[2]
			if v == "" || v == ">-" || v == "|" {
				fm.Meta.set(current, "")
			} else {
				fm.Meta.set(current, parseScalar(v, strict))
			}
			continue
		}
		if listItemRe.MatchString(l) && current != "" {
			item := strings.TrimSpace(listItemRe.ReplaceAllString(l, ""))
			fm.Meta.appendList(current, item)
			continue
		}
		if strict {
			fm.Warnings = append(fm.Warnings, "unparsable front matter line: "+strings.TrimSpace(l))
		}
	}
	return fm
}

// parseScalar interprets a YAML-like scalar: `[]` is an empty list,
// `[a, b]` a list of trimmed strings, true/false a bool, all-digit an int,
// anything else the trimmed string.
func parseScalar(val string, strict bool) any {
	t := strings.TrimSpace(val)
	switch {
	case t == "[]":
		return []string{}
	case inlineSeqRe.MatchString(t):
		parts := strings.Split(t[1:len(t)-1], ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case t == "true", t == "false":
		return t == "true"
	case allDigitsRe.MatchString(t):
		n, _ := strconv.Atoi(t)
		return n
	}
	if strict {
		t = stripQuotes(t)
	}
	return t
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// set routes a parsed value into the matching known field, or Extra.
// Status is only accepted as a string so that a non-string status surfaces
// as MISSING_status rather than INVALID_status downstream.
func (m *Meta) set(key string, v any) {
	switch key {
	case "specId":
		m.SpecID = scalarString(v)
	case "title":
		m.Title = scalarString(v)
	case "status":
		if s, ok := v.(string); ok {
			m.Status = s
		}
	case "version":
		m.Version = scalarString(v)
	case "summary":
		m.Summary = scalarString(v)
	case "lastUpdated":
		m.LastUpdated = scalarString(v)
	case "tags":
		if list, ok := v.([]string); ok {
			m.Tags = list
		} else if s := scalarString(v); s != "" {
			m.Tags = []string{s}
		}
	default:
		m.Extra[key] = v
	}
}

// appendList grows the list under key, for the `key:` + indented-dash form.
func (m *Meta) appendList(key, item string) {
	if key == "tags" {
		m.Tags = append(m.Tags, item)
		return
	}
	switch existing := m.Extra[key].(type) {
	case []string:
		m.Extra[key] = append(existing, item)
	case string:
		if existing == "" {
			m.Extra[key] = []string{item}
			return
		}
		m.Extra[key] = []string{existing, item}
	default:
		m.Extra[key] = []string{item}
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
