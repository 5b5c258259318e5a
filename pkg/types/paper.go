// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// UnknownAuthors is the Authors value for entries that carry no Authors: line.
const UnknownAuthors = "Unknown"

// ArxivAbsURL is the canonical abstract-page template for an arXiv identifier.
const ArxivAbsURL = "https://arxiv.org/abs/%s"

// PaperRecord is one paper extracted from a digest. Records are built once by
// the digest extractor and passed around by value; nothing mutates them.
//
// Title and ExternalID are never empty for a record that survived
// extraction. Every other field has a safe default.
type PaperRecord struct {
	// ExternalID is the arXiv identifier (e.g. "2401.01234").
	ExternalID string `json:"external_id" yaml:"external_id"`

	// Title is the whitespace-normalized, single-line title.
	Title string `json:"title" yaml:"title"`

	// Authors is the normalized author list as printed in the digest,
	// or UnknownAuthors.
	Authors string `json:"authors" yaml:"authors"`

	// Categories is the raw classification string (e.g. "cs.LG cs.AI").
	Categories string `json:"categories" yaml:"categories"`

	// Abstract is the normalized abstract, empty when none was found.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Link is the canonical abstract page built from ExternalID.
	Link string `json:"link" yaml:"link"`
}

// NewPaperRecord fills defaults and derives Link from the identifier.
func NewPaperRecord(id, title, authors, categories, abstract string) PaperRecord {
	if authors == "" {
		authors = UnknownAuthors
	}
	return PaperRecord{
		ExternalID: id,
		Title:      title,
		Authors:    authors,
		Categories: categories,
		Abstract:   abstract,
		Link:       fmt.Sprintf(ArxivAbsURL, id),
	}
}
