package handlers

import (
	"cmp"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/services"
	"pattern-editor/pkg/store"
)

// Admin actions.
const (
	ActionExport = "export_patterns"
	ActionImport = "import_patterns"
	ActionDelete = "delete_patterns"

	// ActionDuplicate is the per-row action on the listing.
	ActionDuplicate = "duplicate_pattern"
)

var adminActions = []string{ActionExport, ActionImport, ActionDelete}

var nonceActions = []string{ActionExport, ActionImport, ActionDelete, ActionDuplicate}

var successNotices = map[string]string{
	ActionExport: "Patterns successfully exported.",
	ActionImport: "Patterns successfully imported.",
	ActionDelete: "Patterns successfully deleted.",
}

// patternsRedirect sends the user to the title-sorted listing. With an action
// the URL carries a nonce so the listing can confirm it.
func patternsRedirect(c *gin.Context, status int, nonceFor func() (string, string, bool)) {
	q := url.Values{}
	q.Set("post_type", "wp_block")
	q.Set("orderby", "title")
	q.Set("order", "ASC")
	if nonceFor != nil {
		if action, nonce, ok := nonceFor(); ok {
			q.Set("action", action)
			q.Set("_wpnonce", nonce)
		}
	}
	c.Redirect(status, "/admin/patterns?"+q.Encode())
}

type patternsPage struct {
	Patterns []models.PatternEntry
	Notice   string
	Trash    bool
	Nonces   map[string]string
	Sources  []string
}

// PatternsPage renders the pattern listing. Requests without an explicit
// order are redirected to the title-sorted view.
func (h *Handler) PatternsPage(c *gin.Context) {
	trash := c.Query("post_status") == models.StatusTrash
	if c.Query("orderby") == "" && !trash {
		patternsRedirect(c, http.StatusFound, nil)
		return
	}

	ctx := c.Request.Context()
	var (
		entries []models.PatternEntry
		err     error
	)
	if trash {
		var posts []models.Post
		posts, err = h.Patterns.Trashed(ctx)
		for _, p := range posts {
			entries = append(entries, models.PatternEntry{Post: p})
		}
	} else {
		entries, err = h.Patterns.List(ctx)
	}
	if err != nil {
		h.logger().Error("list patterns failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to fetch patterns")
		return
	}

	entries = sortEntries(entries, c.Query("orderby"), c.Query("order"))

	page := patternsPage{
		Patterns: entries,
		Trash:    trash,
		Nonces:   map[string]string{},
	}
	for name := range h.Sources {
		page.Sources = append(page.Sources, name)
	}
	sort.Strings(page.Sources)

	if action := c.Query("action"); action != "" && c.Query("post_type") == "wp_block" {
		if h.Nonces.Verify(action, c.Query("_wpnonce")) {
			page.Notice = successNotices[action]
		}
	}
	for _, action := range nonceActions {
		nonce, err := h.Nonces.Create(action)
		if err != nil {
			c.String(http.StatusInternalServerError, "Failed to create nonce")
			return
		}
		page.Nonces[action] = nonce
	}

	c.HTML(http.StatusOK, "patterns.html", page)
}

func sortEntries(entries []models.PatternEntry, orderBy, order string) []models.PatternEntry {
	out := slices.Clone(entries)
	less := func(a, b models.PatternEntry) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}
	switch orderBy {
	case "date":
		less = func(a, b models.PatternEntry) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	case "id":
		less = func(a, b models.PatternEntry) int { return cmp.Compare(a.ID, b.ID) }
	}
	slices.SortStableFunc(out, less)
	if strings.EqualFold(order, "DESC") {
		slices.Reverse(out)
	}
	return out
}

// AdminAction runs one of the bulk pattern actions and redirects back to the
// listing with a confirmation nonce.
func (h *Handler) AdminAction(c *gin.Context) {
	action := c.Param("action")
	if !slices.Contains(adminActions, action) {
		c.String(http.StatusNotFound, "Unknown action")
		return
	}
	if !h.Nonces.Verify(action, c.PostForm("_wpnonce")) {
		c.String(http.StatusForbidden, "The link you followed has expired.")
		return
	}

	ctx := c.Request.Context()
	logger := h.logger().With(zap.String("action", action))

	switch action {
	case ActionExport:
		results, err := h.Exporter.ExportAll(ctx)
		if err != nil {
			logger.Error("export failed", zap.Error(err))
			c.String(http.StatusInternalServerError, "Pattern export failed: %v", err)
			return
		}
		logger.Info("patterns exported", zap.Int("count", len(results)))
	case ActionImport:
		name := c.DefaultPostForm("source", "files")
		src, ok := h.Sources[name]
		if !ok {
			c.String(http.StatusBadRequest, "Unknown import source %q", name)
			return
		}
		if _, err := h.Importer.Import(ctx, src); err != nil {
			logger.Error("import failed", zap.Error(err))
			c.String(http.StatusInternalServerError, "Pattern import failed: %v", err)
			return
		}
	case ActionDelete:
		if _, err := h.Patterns.DeleteAll(ctx); err != nil {
			logger.Error("delete failed", zap.Error(err))
			c.String(http.StatusInternalServerError, "Pattern delete failed: %v", err)
			return
		}
	}
	h.Patterns.Invalidate()

	patternsRedirect(c, http.StatusSeeOther, func() (string, string, bool) {
		nonce, err := h.Nonces.Create(action)
		if err != nil {
			logger.Warn("create nonce failed", zap.Error(err))
			return "", "", false
		}
		return action, nonce, true
	})
}

// DuplicateAction is the listing's row action: it copies one pattern into a
// draft and returns to the listing.
func (h *Handler) DuplicateAction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "Invalid id")
		return
	}
	if !h.Nonces.Verify(ActionDuplicate, c.PostForm("_wpnonce")) {
		c.String(http.StatusForbidden, "The link you followed has expired.")
		return
	}
	_, err = h.Patterns.Duplicate(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.String(http.StatusNotFound, "Pattern not found")
		return
	}
	if err != nil {
		h.logger().Error("duplicate pattern failed", zap.Int64("id", id), zap.Error(err))
		c.String(http.StatusInternalServerError, "Pattern duplicate failed: %v", err)
		return
	}
	patternsRedirect(c, http.StatusSeeOther, nil)
}

// categoryLabel is the listing's category column: the category term, or the
// slug's first segment when the pattern has none.
func categoryLabel(p models.PatternEntry) string {
	category := p.Category
	if category == "" && p.Slug != "" {
		category, _ = services.DeriveCategory(p.Slug)
	}
	if category == "" {
		return ""
	}
	return services.CategoryTitle(category)
}
