package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pattern-editor/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &models.Post{Slug: "header-default", Title: "Header Default", Content: "<!-- wp:group /-->"}
	require.NoError(t, s.Create(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, models.PostTypePattern, p.Type)
	assert.Equal(t, models.StatusDraft, p.Status)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "header-default", got.Slug)
	assert.Equal(t, "<!-- wp:group /-->", got.Content)
	assert.False(t, got.CreatedAt.IsZero())

	bySlug, err := s.GetBySlug(ctx, models.PostTypePattern, "header-default")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySlug.ID)

	_, err = s.GetBySlug(ctx, models.PostTypeNavigation, "header-default")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &models.Post{Slug: "footer-dark", Title: "Footer Dark"}
	require.NoError(t, s.Create(ctx, p))

	p.Status = models.StatusPublish
	p.Content = "updated"
	require.NoError(t, s.Update(ctx, p))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublish, got.Status)
	assert.Equal(t, "updated", got.Content)

	missing := &models.Post{ID: 42}
	assert.ErrorIs(t, s.Update(ctx, missing), ErrNotFound)
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, p := range []*models.Post{
		{Slug: "page-b", Title: "page B", Status: models.StatusPublish},
		{Slug: "page-a", Title: "Page A", Status: models.StatusDraft},
		{Slug: "page-c", Title: "Page C", Status: models.StatusTrash},
		{Type: models.PostTypeNavigation, Slug: "menu", Title: "Menu", Status: models.StatusPublish},
	} {
		require.NoError(t, s.Create(ctx, p))
	}

	posts, err := s.List(ctx, ListOptions{Type: models.PostTypePattern, OrderBy: "title"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "page-a", posts[0].Slug)
	assert.Equal(t, "page-b", posts[1].Slug)

	trashed, err := s.List(ctx, ListOptions{Type: models.PostTypePattern, Status: models.StatusTrash})
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "page-c", trashed[0].Slug)

	navs, err := s.List(ctx, ListOptions{Type: models.PostTypeNavigation})
	require.NoError(t, err)
	assert.Len(t, navs, 1)
}

func TestDeleteAllOnlyTouchesType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Create(ctx, &models.Post{Slug: "a"}))
	require.NoError(t, s.Create(ctx, &models.Post{Slug: "b"}))
	require.NoError(t, s.Create(ctx, &models.Post{Type: models.PostTypeNavigation, Slug: "menu"}))

	n, err := s.DeleteAll(ctx, models.PostTypePattern)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	navs, err := s.List(ctx, ListOptions{Type: models.PostTypeNavigation})
	require.NoError(t, err)
	assert.Len(t, navs, 1)
}

func TestEnsureCategoryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.EnsureCategory(ctx, models.Category{Slug: "header", Name: "Header"}))
	require.NoError(t, s.EnsureCategory(ctx, models.Category{Slug: "header", Name: "Other"}))
	require.NoError(t, s.EnsureCategory(ctx, models.Category{Slug: "cta", Name: "CTA"}))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{Slug: "cta", Name: "CTA"}, {Slug: "header", Name: "Header"}}, cats)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "editor.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	assert.FileExists(t, path)
}
