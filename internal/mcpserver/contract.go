package mcpserver

// SpecFormatContract describes the canonical spec-document format that
// LLM consumers should follow when authoring spec files.
const SpecFormatContract = `# Ansuz Spec Format Contract

Every document under the specs directory MUST follow this structure.

## Structure

` + "```" + `markdown
---
specId: AUTH-001                    # REQUIRED – unique across the specs tree
title: Human-readable title         # REQUIRED – shown in search and lookups
status: draft                       # REQUIRED – one of the lifecycle statuses
version: 1.0.0                      # REQUIRED – MAJOR.MINOR.PATCH
summary: One-line description       # OPTIONAL – used by spec_search
tags: [auth, session]               # OPTIONAL – inline list or indented dashes
---

Body text in standard Markdown. Split content with ## second-level
headings; they become individually searchable sections.
` + "```" + `

## Rules

1. **Front matter is mandatory.** The ` + "`" + `---` + "`" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `specId` + "`" + ` must be unique.** A repeated id is flagged DUPLICATE_specId
   on every occurrence after the first.
3. **` + "`" + `status` + "`" + ` is a closed set:** draft, review, approved, implementing,
   done, deprecated. Anything else is flagged INVALID_status.
4. **` + "`" + `version` + "`" + ` is SemVer-shaped:** three dot-separated numbers.
5. **Internal links** use standard Markdown syntax relative to the linking
   file: ` + "`" + `[text](../guide.md)` + "`" + ` or ` + "`" + `[text](guide.md#section-anchor)` + "`" + `.
6. **Do not edit the "Linked from" section.** It is generated by the
   backlinks updater and rewritten on every pass.
7. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
specId: SEARCH-004
title: Section search ranking
status: review
version: 2.1.0
summary: Scoring rules for section search
tags:
  - search
  - ranking
---

# Section search ranking

## Scoring

Title matches outrank body matches three to one.
` + "```" + `
`
