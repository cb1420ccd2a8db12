package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
	"pattern-editor/pkg/textutil"
)

// DirResolver returns the patterns directory a post is exported into.
type DirResolver func(post models.Post) string

// ContentTransform lets callers rewrite exported markup per post and category.
type ContentTransform func(content string, post models.Post, category string) string

// DefaultPatternDir exports into {themeDir}/patterns.
func DefaultPatternDir(themeDir string) DirResolver {
	return func(models.Post) string {
		return filepath.Join(themeDir, "patterns")
	}
}

// SkipReason explains why an export was a no-op.
type SkipReason string

const (
	SkipNotUpdate    SkipReason = "not an update"
	SkipNotPublished SkipReason = "not published"
	SkipNoCategory   SkipReason = "no category"
	SkipUnsafePath   SkipReason = "unsafe path"
)

// ExportResult describes one export. Path is empty when Skipped.
type ExportResult struct {
	PostID   int64      `json:"post_id"`
	Title    string     `json:"title"`
	Category string     `json:"category,omitempty"`
	Name     string     `json:"name,omitempty"`
	Path     string     `json:"path,omitempty"`
	Skipped  bool       `json:"skipped"`
	Reason   SkipReason `json:"reason,omitempty"`
}

// DeriveCategory splits a slug on its first dash. A slug without a dash is
// both category and name.
func DeriveCategory(slug string) (category, name string) {
	category, name, found := strings.Cut(slug, "-")
	if !found {
		return slug, slug
	}
	return category, name
}

// Exporter writes published patterns into the theme as PHP pattern files.
type Exporter struct {
	Posts      PostLister
	Content    ContentRewriter
	Assets     AssetRewriter
	PatternDir DirResolver
	Transform  ContentTransform
	Settings   models.Settings
	Flusher    Flusher
	Logger     *zap.Logger
}

func (e *Exporter) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Export exports a single post. Guards produce a skipped result without side effects.
func (e *Exporter) Export(ctx context.Context, post models.Post, isUpdate bool) (ExportResult, error) {
	res := ExportResult{PostID: post.ID, Title: post.Title}
	if reason, ok := e.guard(post, isUpdate); !ok {
		res.Skipped, res.Reason = true, reason
		return res, nil
	}

	lookup, err := BuildLookup(ctx, e.Posts)
	if err != nil {
		return res, err
	}
	res, err = e.export(post, lookup)
	if err != nil {
		return res, err
	}
	e.flush(ctx)
	return res, nil
}

// ExportAll exports every published pattern with one lookup table for the batch.
// Failures do not stop the batch; they are joined into the returned error.
func (e *Exporter) ExportAll(ctx context.Context) ([]ExportResult, error) {
	posts, err := e.Posts.List(ctx, store.ListOptions{Type: models.PostTypePattern, OrderBy: "title"})
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	lookup, err := BuildLookup(ctx, e.Posts)
	if err != nil {
		return nil, err
	}

	var (
		results []ExportResult
		errs    []error
		written bool
	)
	for _, post := range posts {
		if reason, ok := e.guard(post, true); !ok {
			results = append(results, ExportResult{PostID: post.ID, Title: post.Title, Skipped: true, Reason: reason})
			continue
		}
		res, err := e.export(post, lookup)
		if err != nil {
			errs = append(errs, fmt.Errorf("export %q: %w", post.Slug, err))
			continue
		}
		written = true
		results = append(results, res)
	}
	if written {
		e.flush(ctx)
	}
	return results, errors.Join(errs...)
}

// Preview renders the file an export would write and where, without touching disk.
func (e *Exporter) Preview(ctx context.Context, post models.Post) (string, []byte, error) {
	category, name, reason := e.resolve(post)
	if reason != "" {
		return "", nil, fmt.Errorf("pattern %q: %s", post.Slug, reason)
	}
	lookup, err := BuildLookup(ctx, e.Posts)
	if err != nil {
		return "", nil, err
	}
	dry := *e
	dry.Assets.DryRun = true
	content, err := dry.render(post, lookup, category, name)
	if err != nil {
		return "", nil, err
	}
	path, _ := e.PathFor(post)
	return path, content, nil
}

// PathFor returns where post would be exported, or false when it has no
// usable category or name.
func (e *Exporter) PathFor(post models.Post) (string, bool) {
	category, name, reason := e.resolve(post)
	if reason != "" {
		return "", false
	}
	path := SafeJoin(e.PatternDir(post), category, name+".php")
	return path, path != ""
}

func (e *Exporter) guard(post models.Post, isUpdate bool) (SkipReason, bool) {
	if !isUpdate {
		return SkipNotUpdate, false
	}
	if post.Status != models.StatusPublish {
		return SkipNotPublished, false
	}
	if _, _, reason := e.resolve(post); reason != "" {
		return reason, false
	}
	return "", true
}

// resolve picks the category from the taxonomy term, else from the slug's
// first segment, and strips the category prefix from the slug to get the name.
// Both become path segments, so anything that could leave the patterns
// directory is rejected.
func (e *Exporter) resolve(post models.Post) (category, name string, reason SkipReason) {
	slug := post.Slug
	if slug == "" {
		slug = textutil.SanitizeTitle(post.Title)
	}
	if slug == "" {
		return "", "", SkipNoCategory
	}
	category = post.Category
	if category == "" {
		category, _ = DeriveCategory(slug)
	}
	if category == "" {
		return "", "", SkipNoCategory
	}
	name = strings.TrimPrefix(slug, category+"-")
	if name == "" {
		name = slug
	}
	if !safeSegment(category) || !safeSegment(name) {
		return "", "", SkipUnsafePath
	}
	return category, name, ""
}

func safeSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

func (e *Exporter) render(post models.Post, lookup Lookup, category, name string) ([]byte, error) {
	content := e.Content.Rewrite(post.Content, lookup)
	content, err := e.Assets.Rewrite(content)
	if err != nil {
		return nil, err
	}
	if e.Transform != nil {
		content = e.Transform(content, post, category)
	}
	content = NormalizeWhitespace(content)

	h := Header{
		Title:      textutil.TitleCase(category + " " + name),
		Slug:       name,
		Categories: []string{category},
		BlockTypes: BlockTypesFor(e.Settings, category),
	}
	if category == "template" {
		slug := post.Slug
		if slug == "" {
			slug = textutil.SanitizeTitle(post.Title)
		}
		inserter := false
		h.TemplateTypes = []string{slug}
		h.Inserter = &inserter
	}
	return []byte(BuildHeaderComment(h) + "\n" + content), nil
}

func (e *Exporter) export(post models.Post, lookup Lookup) (ExportResult, error) {
	category, name, _ := e.resolve(post)
	res := ExportResult{PostID: post.ID, Title: post.Title, Category: category, Name: name}

	data, err := e.render(post, lookup, category, name)
	if err != nil {
		return res, err
	}

	path := SafeJoin(e.PatternDir(post), category, name+".php")
	if path == "" {
		return res, fmt.Errorf("pattern %q: %s", post.Slug, SkipUnsafePath)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return res, fsError("mkdir", dir, err)
	}
	res.Path = path
	if err := os.WriteFile(res.Path, data, 0644); err != nil {
		return res, fsError("write", res.Path, err)
	}

	e.logger().Info("pattern exported",
		zap.Int64("id", post.ID),
		zap.String("category", category),
		zap.String("path", res.Path),
	)
	return res, nil
}

func (e *Exporter) flush(ctx context.Context) {
	if e.Flusher == nil {
		return
	}
	if err := e.Flusher.Flush(ctx); err != nil {
		e.logger().Warn("rewrite flush failed", zap.Error(err))
	}
}
