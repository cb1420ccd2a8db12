package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
	"pattern-editor/pkg/textutil"
)

// Candidate is a pattern an import source offers for creation.
type Candidate struct {
	Slug     string
	Title    string
	Category string
	Content  string
	// Path is the file the candidate came from, if any.
	Path string
	// Err marks a candidate that could not be read. It is skipped.
	Err error
}

// Source enumerates the patterns an import creates posts for.
type Source interface {
	Name() string
	Candidates(ctx context.Context) ([]Candidate, error)
}

// CategoryTitle is the display name of a category term.
func CategoryTitle(category string) string {
	switch category {
	case "cta", "faq":
		return strings.ToUpper(category)
	}
	return textutil.TitleCase(category)
}

// qualifySlug prefixes name with its category unless it already carries it.
func qualifySlug(category, name string) string {
	if name == category || strings.HasPrefix(name, category+"-") {
		return name
	}
	return category + "-" + name
}

type patternFile struct {
	Path     string
	Slug     string
	Title    string
	Category string
	Header   *Header
	Body     string
	Err      error
}

// scanPatternFiles reads every *.php file directly under dir and one level
// below it. A missing dir yields no files.
func scanPatternFiles(dir string) ([]patternFile, error) {
	var paths []string
	for _, pattern := range []string{"*.php", "*/*.php"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	files := make([]patternFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, readPatternFile(dir, p))
	}
	return files, nil
}

func readPatternFile(dir, path string) patternFile {
	f := patternFile{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		f.Err = fsError("read", path, err)
		return f
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	subdir := ""
	if rel, err := filepath.Rel(dir, filepath.Dir(path)); err == nil && rel != "." {
		subdir = filepath.ToSlash(rel)
	}

	name := base
	h, body, err := ParseHeaderComment(data)
	if err == nil {
		f.Header = &h
		f.Body = body
		f.Title = h.Title
		f.Category = h.Category()
		name = h.Slug
	} else {
		f.Body = normalizeLineEndings(string(data))
	}

	if f.Category == "" {
		f.Category = subdir
	}
	if f.Category == "" {
		f.Category, _ = DeriveCategory(name)
	}
	if name == "" || f.Category == "" {
		f.Err = fmt.Errorf("%s: cannot derive pattern name", path)
		return f
	}

	f.Slug = qualifySlug(f.Category, name)
	if f.Title == "" {
		f.Title = CategoryTitle(f.Category)
		if short := strings.TrimPrefix(f.Slug, f.Category+"-"); short != f.Category {
			f.Title += " " + textutil.TitleCase(short)
		}
	}
	return f
}

// FileSource imports the pattern files of a theme's patterns directory.
// Template patterns are not imported.
type FileSource struct {
	PatternDir   string
	Placeholders PlaceholderValues
}

func (s FileSource) Name() string { return "files" }

func (s FileSource) Candidates(ctx context.Context) ([]Candidate, error) {
	files, err := scanPatternFiles(s.PatternDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.PatternDir, err)
	}
	var out []Candidate
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Err != nil {
			out = append(out, Candidate{Path: f.Path, Err: f.Err})
			continue
		}
		if f.Category == "template" {
			continue
		}
		out = append(out, Candidate{
			Slug:     f.Slug,
			Title:    f.Title,
			Category: f.Category,
			Content:  RenderPatternBody(f.Body, s.Placeholders),
			Path:     f.Path,
		})
	}
	return out, nil
}

// RegistrySource imports the registered patterns of the active theme.
type RegistrySource struct {
	Registry *Registry
	Theme    string
}

func (s RegistrySource) Name() string { return "registry" }

func (s RegistrySource) Candidates(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	for _, p := range s.Registry.All() {
		if p.Theme != s.Theme {
			continue
		}
		category := "uncategorized"
		if len(p.Categories) > 0 {
			category = p.Categories[0]
		}
		// Registered titles usually repeat the category ("Header Default").
		title := textutil.ReplaceFirst(p.Title, textutil.TitleCase(category)+" ", "")
		out = append(out, Candidate{
			Slug:     p.Slug,
			Title:    CategoryTitle(category) + " " + title,
			Category: category,
			Content:  p.Content,
			Path:     p.FilePath,
		})
	}
	return out, nil
}

// ImportStore is the part of the store the importer writes to.
type ImportStore interface {
	GetBySlug(ctx context.Context, postType, slug string) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) error
	EnsureCategory(ctx context.Context, c models.Category) error
}

// ImportReport lists what an import did, by slug (or path for failures).
type ImportReport struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// Importer creates editor posts for the patterns a Source offers.
type Importer struct {
	Store   ImportStore
	Flusher Flusher
	Logger  *zap.Logger
}

// Import creates a published post for every candidate whose slug is not taken
// yet. Existing posts are never overwritten.
func (im *Importer) Import(ctx context.Context, src Source) (ImportReport, error) {
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var report ImportReport

	candidates, err := src.Candidates(ctx)
	if err != nil {
		return report, err
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if c.Err != nil {
			logger.Debug("pattern skipped", zap.String("path", c.Path), zap.Error(c.Err))
			report.Failed = append(report.Failed, c.Path)
			continue
		}

		if err := im.Store.EnsureCategory(ctx, models.Category{Slug: c.Category, Name: CategoryTitle(c.Category)}); err != nil {
			return report, err
		}

		_, err := im.Store.GetBySlug(ctx, models.PostTypePattern, c.Slug)
		if err == nil {
			report.Skipped = append(report.Skipped, c.Slug)
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return report, err
		}

		post := &models.Post{
			Type:     models.PostTypePattern,
			Slug:     c.Slug,
			Title:    c.Title,
			Content:  c.Content,
			Status:   models.StatusPublish,
			Category: c.Category,
		}
		if err := im.Store.Create(ctx, post); err != nil {
			return report, err
		}
		report.Created = append(report.Created, c.Slug)
	}

	logger.Info("patterns imported",
		zap.String("source", src.Name()),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
	)

	if im.Flusher != nil {
		if err := im.Flusher.Flush(ctx); err != nil {
			logger.Warn("rewrite flush failed", zap.Error(err))
		}
	}
	return report, nil
}
