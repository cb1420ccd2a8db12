package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
)

type exportFixture struct {
	store      *store.Store
	exporter   *Exporter
	contentDir string
	patternDir string
	flushes    int
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &exportFixture{store: s}
	f.contentDir = filepath.Join(t.TempDir(), "wp-content")
	themeDir := filepath.Join(f.contentDir, "themes", "blockify")
	f.patternDir = filepath.Join(themeDir, "patterns")
	f.exporter = &Exporter{
		Posts: s,
		Assets: AssetRewriter{
			ContentDir:    f.contentDir,
			AssetDir:      "themes/blockify/assets",
			HomeURL:       "https://example.com",
			UploadsURL:    "https://example.com/wp-content/uploads",
			UploadsDir:    filepath.Join(f.contentDir, "uploads"),
			StylesheetURI: "https://example.com/wp-content/themes/blockify",
		},
		PatternDir: DefaultPatternDir(themeDir),
		Flusher: FlushFunc(func(context.Context) error {
			f.flushes++
			return nil
		}),
	}
	return f
}

func (f *exportFixture) create(t *testing.T, p *models.Post) *models.Post {
	t.Helper()
	require.NoError(t, f.store.Create(context.Background(), p))
	return p
}

func TestExportHeaderScenario(t *testing.T) {
	f := newExportFixture(t)
	post := f.create(t, &models.Post{
		Slug:    "header-default",
		Title:   "Header Default",
		Content: "<!-- wp:group --><!-- /wp:group -->",
		Status:  models.StatusPublish,
	})

	res, err := f.exporter.Export(context.Background(), *post, true)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, filepath.Join(f.patternDir, "header", "default.php"), res.Path)
	assert.Equal(t, 1, f.flushes)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	want := "<?php\n" +
		"/**\n" +
		" * Title: Header Default\n" +
		" * Slug: default\n" +
		" * Categories: header\n" +
		" * Block Types: core/template-part/header\n" +
		" */\n" +
		"?>\n" +
		"<!-- wp:group --><!-- /wp:group -->"
	assert.Equal(t, want, string(data))
}

func TestExportPageWithLocalImage(t *testing.T) {
	f := newExportFixture(t)
	upload := filepath.Join(f.contentDir, "uploads", "2024", "01", "photo.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(upload), 0755))
	require.NoError(t, os.WriteFile(upload, []byte("jpg"), 0644))

	post := f.create(t, &models.Post{
		Slug:    "page-about",
		Title:   "Page About",
		Content: `<!-- wp:image --><img src="https://example.com/wp-content/uploads/2024/01/photo.jpg"><!-- /wp:image -->`,
		Status:  models.StatusPublish,
	})

	res, err := f.exporter.Export(context.Background(), *post, true)
	require.NoError(t, err)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<img src="<?php echo content_url( "/themes/blockify/assets/" ) ?>img/photo.jpg">`)
	assert.Contains(t, string(data), " * Block Types: core/post-content\n")
	assert.FileExists(t, filepath.Join(f.contentDir, "themes", "blockify", "assets", "img", "photo.jpg"))
}

func TestExportTemplateCategory(t *testing.T) {
	f := newExportFixture(t)
	post := f.create(t, &models.Post{Slug: "template-single", Title: "Template Single", Status: models.StatusPublish})

	res, err := f.exporter.Export(context.Background(), *post, true)
	require.NoError(t, err)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), " * Template Types: template-single\n * Inserter: false\n */\n?>")

	h, _, err := ParseHeaderComment(data)
	require.NoError(t, err)
	assert.Equal(t, "single", h.Slug)
	assert.Equal(t, "Template Single", h.Title)
}

func TestExportGuards(t *testing.T) {
	cases := []struct {
		name     string
		post     models.Post
		isUpdate bool
		reason   SkipReason
	}{
		{"insert", models.Post{Slug: "header-a", Status: models.StatusPublish}, false, SkipNotUpdate},
		{"trash", models.Post{Slug: "header-a", Status: models.StatusTrash}, true, SkipNotPublished},
		{"draft", models.Post{Slug: "header-a", Status: models.StatusDraft}, true, SkipNotPublished},
		{"no category", models.Post{Slug: "-orphan", Status: models.StatusPublish}, true, SkipNoCategory},
		{"no slug or title", models.Post{Status: models.StatusPublish}, true, SkipNoCategory},
		{"name climbs out", models.Post{Slug: "header-../../../escaped", Status: models.StatusPublish}, true, SkipUnsafePath},
		{"category climbs out", models.Post{Slug: "..-escaped", Status: models.StatusPublish}, true, SkipUnsafePath},
		{"taxonomy with separator", models.Post{Slug: "a", Category: "x/../../y", Status: models.StatusPublish}, true, SkipUnsafePath},
		{"backslash in name", models.Post{Slug: `footer-a\b`, Status: models.StatusPublish}, true, SkipUnsafePath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExportFixture(t)
			res, err := f.exporter.Export(context.Background(), tc.post, tc.isUpdate)
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Zero(t, f.flushes)
			assert.NoDirExists(t, f.patternDir)
		})
	}
}

func TestExportNeverWritesOutsidePatternDir(t *testing.T) {
	f := newExportFixture(t)
	post := *f.create(t, &models.Post{Slug: "header-../../../escaped", Title: "Escaped", Status: models.StatusPublish})

	_, ok := f.exporter.PathFor(post)
	assert.False(t, ok)

	results, err := f.exporter.ExportAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)
	assert.Equal(t, SkipUnsafePath, results[0].Reason)

	res, err := f.exporter.Export(context.Background(), post, true)
	require.NoError(t, err)
	assert.Equal(t, SkipUnsafePath, res.Reason)
	assert.Empty(t, res.Path)
	assert.NoFileExists(t, filepath.Join(f.contentDir, "themes", "escaped.php"))
	assert.NoFileExists(t, filepath.Join(f.contentDir, "themes", "blockify", "escaped.php"))

	_, _, err = f.exporter.Preview(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(SkipUnsafePath))
}

func TestExportUsesTaxonomyCategoryAndTitleFallback(t *testing.T) {
	f := newExportFixture(t)

	res, err := f.exporter.Export(context.Background(), models.Post{
		Title:    "Footer Dark Links",
		Category: "footer",
		Status:   models.StatusPublish,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.patternDir, "footer", "dark-links.php"), res.Path)

	res, err = f.exporter.Export(context.Background(), models.Post{
		Slug:     "newsletter",
		Category: "cta",
		Status:   models.StatusPublish,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.patternDir, "cta", "newsletter.php"), res.Path)
}

func TestExportRoundTripHeader(t *testing.T) {
	for _, slug := range []string{"header-default", "page-about-us", "cta-newsletter", "gallery"} {
		t.Run(slug, func(t *testing.T) {
			f := newExportFixture(t)
			res, err := f.exporter.Export(context.Background(), models.Post{Slug: slug, Status: models.StatusPublish}, true)
			require.NoError(t, err)

			data, err := os.ReadFile(res.Path)
			require.NoError(t, err)
			h, _, err := ParseHeaderComment(data)
			require.NoError(t, err)

			category, name := DeriveCategory(slug)
			assert.Equal(t, name, h.Slug)
			assert.Equal(t, category, h.Category())
		})
	}
}

func TestExportIsIdempotent(t *testing.T) {
	f := newExportFixture(t)
	post := models.Post{Slug: "footer-default", Content: "<p>a</p>\n\n\n<p>b</p>", Status: models.StatusPublish}

	res, err := f.exporter.Export(context.Background(), post, true)
	require.NoError(t, err)
	first, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	_, err = f.exporter.Export(context.Background(), post, true)
	require.NoError(t, err)
	second, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(string(first), "<p>a</p>\n<p>b</p>"))
}

func TestExportTransformHook(t *testing.T) {
	f := newExportFixture(t)
	f.exporter.Transform = func(content string, post models.Post, category string) string {
		return content + "\n<!-- " + category + " -->"
	}

	res, err := f.exporter.Export(context.Background(), models.Post{Slug: "header-x", Content: "<p/>", Status: models.StatusPublish}, true)
	require.NoError(t, err)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "<p/>\n<!-- header -->"))
}

func TestExportWriteFailure(t *testing.T) {
	f := newExportFixture(t)
	require.NoError(t, os.MkdirAll(f.patternDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.patternDir, "header"), []byte("file in the way"), 0644))

	_, err := f.exporter.Export(context.Background(), models.Post{Slug: "header-x", Status: models.StatusPublish}, true)
	var fsErr *FSError
	require.True(t, errors.As(err, &fsErr))
	assert.Zero(t, f.flushes)
}

func TestExportAll(t *testing.T) {
	f := newExportFixture(t)
	footer := f.create(t, &models.Post{Slug: "footer-links", Title: "Footer Links", Status: models.StatusPublish})
	f.create(t, &models.Post{
		Slug:    "page-home",
		Title:   "Page Home",
		Content: `<!-- wp:block {"ref":` + strconv.FormatInt(footer.ID, 10) + `} /-->`,
		Status:  models.StatusPublish,
	})
	f.create(t, &models.Post{Slug: "header-draft", Title: "Header Draft", Status: models.StatusDraft})

	results, err := f.exporter.ExportAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, f.flushes)

	var skipped int
	for _, r := range results {
		if r.Skipped {
			skipped++
			assert.Equal(t, SkipNotPublished, r.Reason)
		}
	}
	assert.Equal(t, 1, skipped)

	data, err := os.ReadFile(filepath.Join(f.patternDir, "page", "home.php"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `<!-- wp:pattern {"slug":"footer-links"} /-->`)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	f := newExportFixture(t)
	path, data, err := f.exporter.Preview(context.Background(), models.Post{Slug: "header-default", Content: "<p/>"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.patternDir, "header", "default.php"), path)
	assert.Contains(t, string(data), "Slug: default")
	assert.NoDirExists(t, f.patternDir)

	_, _, err = f.exporter.Preview(context.Background(), models.Post{})
	assert.Error(t, err)
}

func TestDeriveCategory(t *testing.T) {
	c, n := DeriveCategory("header-default")
	assert.Equal(t, "header", c)
	assert.Equal(t, "default", n)

	c, n = DeriveCategory("page-about-us")
	assert.Equal(t, "page", c)
	assert.Equal(t, "about-us", n)

	c, n = DeriveCategory("gallery")
	assert.Equal(t, "gallery", c)
	assert.Equal(t, "gallery", n)
}
