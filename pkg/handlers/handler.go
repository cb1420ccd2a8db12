// Package handlers serves the pattern editor's admin screens, REST endpoint
// and JSON API.
package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"pattern-editor/pkg/logging"
	"pattern-editor/pkg/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler carries the services the routes use.
type Handler struct {
	Patterns *services.PatternService
	Exporter *services.Exporter
	Importer *services.Importer
	// Sources are the import strategies by name ("files", "registry").
	Sources map[string]services.Source
	Repo    services.ThemeRepo
	Nonces  *services.Nonces
	Assets  services.AssetRewriter

	ThemeDir   string
	ContentURL string

	OAuth       *oauth2.Config
	UserInfoURL string
	IsAdmin     func(login string) bool

	Logger *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// NewRouter builds the gin engine with request logging and cookie sessions.
func NewRouter(h *Handler, store sessions.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(h.logger()))
	r.Use(sessions.Sessions("pattern_editor", store))
	h.Register(r)
	return r
}

// Register mounts every route on r. The sessions middleware must already be installed.
func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.New("").
		Funcs(template.FuncMap{"category": categoryLabel}).
		ParseFS(templateFS, "templates/*.html")))

	// --- Auth Routes ---
	r.GET("/login", h.LoginPage)
	r.GET("/login/github", h.GithubLogin)
	r.GET("/auth/callback", h.AuthCallback)
	r.GET("/logout", h.Logout)

	// --- Main App (Authorized) ---
	authorized := r.Group("/")
	authorized.Use(AuthRequired, RequireCapability(CapManageOptions))
	{
		authorized.GET("/", func(c *gin.Context) { patternsRedirect(c, http.StatusFound, nil) })

		admin := authorized.Group("/admin")
		{
			admin.GET("/patterns", h.PatternsPage)
			admin.POST("/actions/:action", h.AdminAction)
			admin.POST("/patterns/:id/duplicate", h.DuplicateAction)
		}

		rest := authorized.Group("/blockify/v1")
		{
			rest.POST("/export-pattern", h.ExportPatternREST)
		}

		api := authorized.Group("/api")
		{
			api.GET("/patterns", h.ListPatterns)
			api.POST("/patterns", h.SavePattern)
			api.GET("/patterns/:id", h.GetPattern)
			api.DELETE("/patterns/:id", h.TrashPattern)
			api.POST("/patterns/:id/duplicate", h.DuplicatePattern)
			api.POST("/patterns/:id/diff", h.GetDiff)
			api.POST("/sync", h.HandleSync)
			api.POST("/publish", h.HandlePublish)
			api.GET("/assets", h.ListMedia)
		}
	}
}
