package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
	"pattern-editor/pkg/textutil"
)

// ReusableBlock is a synced pattern that other content may reference by id.
type ReusableBlock struct {
	ID    int64
	Title string
}

// Lookup holds the posts the content rewriter resolves references against.
// Build it once per export batch.
type Lookup struct {
	ReusableBlocks []ReusableBlock
	NavMenuIDs     map[int64]bool
}

// PostLister is the part of the store the lookup needs.
type PostLister interface {
	List(ctx context.Context, opts store.ListOptions) ([]models.Post, error)
}

// BuildLookup loads reusable blocks and navigation menus from the store.
func BuildLookup(ctx context.Context, posts PostLister) (Lookup, error) {
	lookup := Lookup{NavMenuIDs: map[int64]bool{}}

	blocks, err := posts.List(ctx, store.ListOptions{Type: models.PostTypePattern})
	if err != nil {
		return lookup, fmt.Errorf("load reusable blocks: %w", err)
	}
	for _, b := range blocks {
		lookup.ReusableBlocks = append(lookup.ReusableBlocks, ReusableBlock{ID: b.ID, Title: b.Title})
	}

	menus, err := posts.List(ctx, store.ListOptions{Type: models.PostTypeNavigation})
	if err != nil {
		return lookup, fmt.Errorf("load navigation menus: %w", err)
	}
	for _, m := range menus {
		lookup.NavMenuIDs[m.ID] = true
	}
	return lookup, nil
}

// DefaultBlockReplacements maps plugin blocks and attributes to their core equivalents.
var DefaultBlockReplacements = []models.Replacement{
	{From: "wp:blockify/post-content", To: "wp:post-content"},
	{From: "wp:blockify/template-part", To: "wp:template-part"},
	{From: "wp:blockify/pattern", To: "wp:pattern"},
	{From: `"constrained":true`, To: `"layout":{"type":"constrained"}`},
}

var (
	navRefPattern    = regexp.MustCompile(`"ref":(\d+)`)
	blankLinePattern = regexp.MustCompile(`(^[\r\n]*|[\r\n]+)[\s\t]*[\r\n]+`)
)

// StripNavRefs blanks "ref":<id> tokens that point at known navigation menus.
func StripNavRefs(html string, lookup Lookup) string {
	if len(lookup.NavMenuIDs) == 0 {
		return html
	}
	return navRefPattern.ReplaceAllStringFunc(html, func(m string) string {
		id, err := strconv.ParseInt(m[len(`"ref":`):], 10, 64)
		if err != nil || !lookup.NavMenuIDs[id] {
			return m
		}
		return `"ref":""`
	})
}

// ReplaceReusableBlocks swaps block-by-id references for pattern-by-slug references.
func ReplaceReusableBlocks(html string, lookup Lookup) string {
	if html == "" {
		return html
	}
	for _, b := range lookup.ReusableBlocks {
		html = strings.ReplaceAll(html,
			fmt.Sprintf(`<!-- wp:block {"ref":%d} /-->`, b.ID),
			fmt.Sprintf(`<!-- wp:pattern {"slug":"%s"} /-->`, textutil.SanitizeTitle(b.Title)),
		)
	}
	return html
}

// ReplaceCustomBlocks applies the literal replacements in order.
func ReplaceCustomBlocks(html string, replacements []models.Replacement) string {
	for _, r := range replacements {
		if r.From == "" {
			continue
		}
		html = strings.ReplaceAll(html, r.From, r.To)
	}
	return html
}

// NormalizeWhitespace collapses runs of blank lines into a single newline.
func NormalizeWhitespace(html string) string {
	return blankLinePattern.ReplaceAllString(html, "\n")
}

// ContentRewriter prepares stored markup for shipping as a theme file.
type ContentRewriter struct {
	Replacements []models.Replacement
}

// Rewrite strips navigation references, replaces reusable blocks, swaps custom
// blocks for core ones and collapses blank lines, in that order.
func (r ContentRewriter) Rewrite(html string, lookup Lookup) string {
	replacements := r.Replacements
	if replacements == nil {
		replacements = DefaultBlockReplacements
	}
	html = StripNavRefs(html, lookup)
	html = ReplaceReusableBlocks(html, lookup)
	html = ReplaceCustomBlocks(html, replacements)
	return NormalizeWhitespace(html)
}
