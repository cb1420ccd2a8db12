package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
	"pattern-editor/pkg/textutil"
)

// PatternStore is the part of the store the editor writes through.
type PatternStore interface {
	PostLister
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, id int64) (*models.Post, error)
	GetBySlug(ctx context.Context, postType, slug string) (*models.Post, error)
	DeleteAll(ctx context.Context, postType string) (int64, error)
}

// PatternService is the editor's save path. Every save of an existing
// pattern re-exports it into the theme.
type PatternService struct {
	Store    PatternStore
	Exporter *Exporter
	Cache    *PatternCache
	Logger   *zap.Logger
}

func (s *PatternService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Save creates the post when it has no id and updates it otherwise, then
// hands it to the exporter. Only updates are exported.
func (s *PatternService) Save(ctx context.Context, post *models.Post) (ExportResult, error) {
	post.Type = models.PostTypePattern
	isUpdate := post.ID != 0

	var err error
	if isUpdate {
		err = s.Store.Update(ctx, post)
	} else {
		err = s.Store.Create(ctx, post)
	}
	if err != nil {
		return ExportResult{}, err
	}
	s.Invalidate()

	res, err := s.Exporter.Export(ctx, *post, isUpdate)
	if err != nil {
		return res, fmt.Errorf("export pattern %d: %w", post.ID, err)
	}
	if res.Skipped {
		s.logger().Debug("pattern saved without export",
			zap.Int64("id", post.ID),
			zap.String("reason", string(res.Reason)),
		)
	}
	return res, nil
}

// Get returns a pattern by id.
func (s *PatternService) Get(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Type != models.PostTypePattern {
		return nil, store.ErrNotFound
	}
	return post, nil
}

// List returns the cached pattern listing.
func (s *PatternService) List(ctx context.Context) ([]models.PatternEntry, error) {
	return s.Cache.Get(ctx)
}

// Trashed returns the patterns in the trash, newest first.
func (s *PatternService) Trashed(ctx context.Context) ([]models.Post, error) {
	return s.Store.List(ctx, store.ListOptions{Type: models.PostTypePattern, Status: models.StatusTrash, Desc: true})
}

// Trash moves a pattern to the trash. Trashed patterns are never exported and
// their files are left in place.
func (s *PatternService) Trash(ctx context.Context, id int64) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	post.Status = models.StatusTrash
	if err := s.Store.Update(ctx, post); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Duplicate copies a pattern into a new draft titled "<title> (Copy)" that
// keeps the category. The copy gets the first free slug derived from its title.
func (s *PatternService) Duplicate(ctx context.Context, id int64) (*models.Post, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := &models.Post{
		Type:     models.PostTypePattern,
		Title:    src.Title + " (Copy)",
		Content:  src.Content,
		Status:   models.StatusDraft,
		Category: src.Category,
	}
	if dup.Slug, err = s.freeSlug(ctx, textutil.SanitizeTitle(dup.Title)); err != nil {
		return nil, err
	}
	if err := s.Store.Create(ctx, dup); err != nil {
		return nil, err
	}
	s.Invalidate()
	s.logger().Info("pattern duplicated", zap.Int64("from", src.ID), zap.Int64("id", dup.ID))
	return dup, nil
}

func (s *PatternService) freeSlug(ctx context.Context, base string) (string, error) {
	slug := base
	for n := 2; ; n++ {
		_, err := s.Store.GetBySlug(ctx, models.PostTypePattern, slug)
		if errors.Is(err, store.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// DeleteAll permanently removes every pattern post. Exported files stay.
func (s *PatternService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.Store.DeleteAll(ctx, models.PostTypePattern)
	if err != nil {
		return 0, err
	}
	s.Invalidate()
	s.logger().Info("patterns deleted", zap.Int64("count", n))
	return n, nil
}

// Invalidate drops the cached listing.
func (s *PatternService) Invalidate() {
	if s.Cache != nil {
		s.Cache.Invalidate()
	}
}
