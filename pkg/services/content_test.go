package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
)

func TestStripNavRefs(t *testing.T) {
	lookup := Lookup{NavMenuIDs: map[int64]bool{12: true}}

	in := `<!-- wp:navigation {"ref":12,"overlayMenu":"never"} /--><!-- wp:navigation {"ref":123} /-->`
	want := `<!-- wp:navigation {"ref":"","overlayMenu":"never"} /--><!-- wp:navigation {"ref":123} /-->`
	assert.Equal(t, want, StripNavRefs(in, lookup))

	assert.Equal(t, in, StripNavRefs(in, Lookup{}))
}

func TestReplaceReusableBlocks(t *testing.T) {
	lookup := Lookup{ReusableBlocks: []ReusableBlock{{ID: 7, Title: "CTA Newsletter Signup"}}}

	in := `<!-- wp:group --><!-- wp:block {"ref":7} /--><!-- wp:block {"ref":8} /--><!-- /wp:group -->`
	want := `<!-- wp:group --><!-- wp:pattern {"slug":"cta-newsletter-signup"} /--><!-- wp:block {"ref":8} /--><!-- /wp:group -->`
	assert.Equal(t, want, ReplaceReusableBlocks(in, lookup))
	assert.Equal(t, "", ReplaceReusableBlocks("", lookup))
}

func TestReplaceCustomBlocks(t *testing.T) {
	in := `<!-- wp:blockify/post-content {"constrained":true} /--><!-- wp:blockify/template-part {"slug":"header"} /-->`
	want := `<!-- wp:post-content {"layout":{"type":"constrained"}} /--><!-- wp:template-part {"slug":"header"} /-->`
	assert.Equal(t, want, ReplaceCustomBlocks(in, DefaultBlockReplacements))
}

func TestNormalizeWhitespace(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"blank lines collapse", "a\n\n\nb", "a\nb"},
		{"whitespace only lines", "a\n   \n\t\nb", "a\nb"},
		{"crlf", "a\r\n\r\nb", "a\nb"},
		{"single newline untouched", "a\nb", "a\nb"},
		{"leading blank lines", "\n\n\nabc", "\nabc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeWhitespace(tc.in))
		})
	}
}

func TestContentRewriterIsIdempotent(t *testing.T) {
	lookup := Lookup{
		ReusableBlocks: []ReusableBlock{{ID: 3, Title: "Footer Links"}},
		NavMenuIDs:     map[int64]bool{5: true},
	}
	r := ContentRewriter{}

	in := "<!-- wp:group -->\n\n\n<!-- wp:navigation {\"ref\":5} /-->\n  \n<!-- wp:block {\"ref\":3} /-->\n<!-- wp:blockify/post-content /-->\n<!-- /wp:group -->"
	once := r.Rewrite(in, lookup)
	twice := r.Rewrite(once, lookup)

	assert.Equal(t, once, twice)
	assert.Contains(t, once, `"ref":""`)
	assert.Contains(t, once, `<!-- wp:pattern {"slug":"footer-links"} /-->`)
	assert.Contains(t, once, `<!-- wp:post-content /-->`)
	assert.NotContains(t, once, "\n\n")
}

func TestBuildLookup(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	block := &models.Post{Slug: "footer-links", Title: "Footer Links", Status: models.StatusPublish}
	menu := &models.Post{Type: models.PostTypeNavigation, Slug: "primary", Title: "Primary"}
	trashed := &models.Post{Slug: "gone", Title: "Gone", Status: models.StatusTrash}
	for _, p := range []*models.Post{block, menu, trashed} {
		require.NoError(t, s.Create(ctx, p))
	}

	lookup, err := BuildLookup(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []ReusableBlock{{ID: block.ID, Title: "Footer Links"}}, lookup.ReusableBlocks)
	assert.True(t, lookup.NavMenuIDs[menu.ID])
	assert.Len(t, lookup.NavMenuIDs, 1)
}
