package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/services"
	"pattern-editor/pkg/store"
)

// envelope is the REST response shape: {"success": ok, "data": {"message": msg}}.
func envelope(ok bool, message string) gin.H {
	return gin.H{"success": ok, "data": gin.H{"message": message}}
}

// requestID accepts a post id sent as a JSON number or a numeric string.
type requestID int64

func (id *requestID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = requestID(n)
	return nil
}

type exportPatternRequest struct {
	ID      requestID `json:"id" form:"id" binding:"required"`
	Slug    string    `json:"slug" form:"slug" binding:"required"`
	Content string    `json:"content" form:"content" binding:"required"`
	Title   string    `json:"title" form:"title" binding:"required"`
}

var requiredMessages = map[string]string{
	"ID":      "Pattern ID is required.",
	"Slug":    "Pattern slug is required.",
	"Content": "Pattern content is required.",
	"Title":   "Pattern title is required.",
}

// ExportPatternREST exports the submitted markup as a published pattern
// without saving it to the editor database.
func (h *Handler) ExportPatternREST(c *gin.Context) {
	var req exportPatternRequest
	if err := c.ShouldBind(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			c.JSON(http.StatusBadRequest, envelope(false, requiredMessages[verrs[0].Field()]))
			return
		}
		c.JSON(http.StatusBadRequest, envelope(false, "Invalid request body."))
		return
	}

	ctx := c.Request.Context()
	id := int64(req.ID)
	post := models.Post{ID: id, Type: models.PostTypePattern}
	if stored, err := h.Patterns.Get(ctx, id); err == nil {
		post = *stored
	}
	post.Slug = req.Slug
	post.Title = req.Title
	post.Content = req.Content
	post.Status = models.StatusPublish

	res, err := h.Exporter.Export(ctx, post, true)
	if err != nil {
		h.logger().Error("pattern export failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, envelope(false, "Pattern export failed."))
		return
	}
	if res.Skipped {
		c.JSON(http.StatusUnprocessableEntity, envelope(false, "Pattern export failed."))
		return
	}
	h.Patterns.Invalidate()
	c.JSON(http.StatusOK, envelope(true, "Pattern exported successfully."))
}

func (h *Handler) ListPatterns(c *gin.Context) {
	entries, err := h.Patterns.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch patterns"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func patternID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) GetPattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	post, err := h.Patterns.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pattern not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pattern"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// SavePattern creates the pattern when the body has no id, otherwise updates it.
func (h *Handler) SavePattern(c *gin.Context) {
	var post models.Post
	if err := c.BindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if post.Title == "" && post.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title or slug required"})
		return
	}

	res, err := h.Patterns.Save(c.Request.Context(), &post)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pattern not found"})
		return
	}
	if err != nil {
		h.logger().Error("save pattern failed", zap.Int64("id", post.ID), zap.Error(err))
		var fsErr *services.FSError
		if errors.As(err, &fsErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed: " + fsErr.Error(), "pattern": post})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "pattern": post, "export": res})
}

func (h *Handler) TrashPattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	err := h.Patterns.Trash(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pattern not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Trash failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "trashed"})
}

// DuplicatePattern copies a pattern into a new draft.
func (h *Handler) DuplicatePattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	dup, err := h.Patterns.Duplicate(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pattern not found"})
		return
	}
	if err != nil {
		h.logger().Error("duplicate pattern failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Duplicate failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "duplicated", "pattern": dup})
}

// GetDiff previews the export of the submitted pattern against the theme file.
func (h *Handler) GetDiff(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	var edit struct {
		Slug     string `json:"slug"`
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	if err := c.BindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	ctx := c.Request.Context()
	post, err := h.Patterns.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pattern not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pattern"})
		return
	}
	if edit.Slug != "" {
		post.Slug = edit.Slug
	}
	if edit.Title != "" {
		post.Title = edit.Title
	}
	if edit.Category != "" {
		post.Category = edit.Category
	}
	post.Content = edit.Content

	path, proposed, err := h.Exporter.Preview(ctx, *post)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	current, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read pattern file"})
		return
	}

	rel, err := filepath.Rel(h.ThemeDir, path)
	if err != nil {
		rel = path
	}
	diffStr, diffType, err := h.Repo.Diff(ctx, current, proposed, filepath.ToSlash(rel))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Diff failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"diff": diffStr, "type": diffType, "path": filepath.ToSlash(rel)})
}

func (h *Handler) HandleSync(c *gin.Context) {
	log, err := h.Repo.Sync(c.Request.Context(), accessToken(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	h.Patterns.Invalidate()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func (h *Handler) HandlePublish(c *gin.Context) {
	log, err := h.Repo.Publish(c.Request.Context(), accessToken(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	h.Patterns.Invalidate()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}
