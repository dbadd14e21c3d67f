// Package models defines the domain types for Raido.
package models

import (
	"fmt"
	"time"
)

// Category is one of the fixed top-level library directories.
type Category string

// Known categories. Files outside these directories are never indexed.
const (
	CategoryPrompts   Category = "prompts"
	CategoryTemplates Category = "templates"
	CategorySkills    Category = "skills"
	CategoryChains    Category = "chains"
)

// Categories lists every valid category in scan order.
func Categories() []Category {
	return []Category{CategoryPrompts, CategoryTemplates, CategorySkills, CategoryChains}
}

// ParseCategory validates a raw category string against the fixed enumeration.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryPrompts, CategoryTemplates, CategorySkills, CategoryChains:
		return Category(s), nil
	}
	return "", fmt.Errorf("models: unknown category %q", s)
}

// Metadata is the sparse key-value record attached to an Item. Title and
// description fall back to values extracted from the body when absent.
type Metadata struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Aliases     []string       `json:"aliases,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Item is one indexed content document.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Path        string    `json:"path"`
	Content     string    `json:"-"`
	Body        string    `json:"body,omitempty"`
	Metadata    Metadata  `json:"metadata"`
	SearchBlob  string    `json:"-"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchEntry is a lightweight projection of an Item kept in a flat list so
// per-query scoring never re-derives weights.
type SearchEntry struct {
	ID     string
	Blob   string
	Weight float64
}

// FileMeta is a lightweight stat record returned by storage listings.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveRequest describes a new item to persist into the library.
type SaveRequest struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Metadata    Metadata `json:"metadata"`
}

// Stats summarises the index contents.
type Stats struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	Tags       int              `json:"tags"`
	Chains     int              `json:"chains"`
}

// Suggestion is one recommended item with the reason it was recommended.
type Suggestion struct {
	Item       *Item   `json:"item"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// ScoredItem is one ranked search hit.
type ScoredItem struct {
	Item  *Item   `json:"item"`
	Score float64 `json:"score"`
}
