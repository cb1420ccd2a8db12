package models

import "time"

// Post types stored by the editor.
const (
	PostTypePattern    = "pattern"
	PostTypeNavigation = "navigation"
)

// Post statuses.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusTrash   = "trash"
)

// Post is a pattern (reusable block) or navigation menu stored in the editor database.
type Post struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Status    string    `json:"status"`
	Category  string    `json:"category,omitempty"` // pattern_category term slug
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category is a pattern_category taxonomy term.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// RegisteredPattern is an entry of the in-memory pattern registry.
type RegisteredPattern struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
	BlockTypes []string `json:"block_types,omitempty"`
	Content    string   `json:"content"`
	Theme      string   `json:"theme"`
	FilePath   string   `json:"file_path,omitempty"`
}

// PatternEntry is a row of the pattern listing.
type PatternEntry struct {
	Post
	// Path is the exported file relative to the theme directory. Empty when
	// the pattern has no category to export under.
	Path     string `json:"path,omitempty"`
	Exported bool   `json:"exported"`
	IsDirty  bool   `json:"is_dirty"`
}
