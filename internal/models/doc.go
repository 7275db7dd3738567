// Package models defines the domain types shared across Ansuz packages.
package models

import "time"

// DocMetadata is a lightweight representation returned by list operations.
type DocMetadata struct {
	Path      string    `json:"path"` // relative to the docs root
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is one inline Markdown link resolved against its source document.
type Link struct {
	FromFile   string `json:"fromFile"` // absolute path of the linking document
	LinkText   string `json:"linkText"`
	TargetPath string `json:"targetPath"` // resolved absolute target, anchor stripped
	Anchor     string `json:"anchor,omitempty"`
}
