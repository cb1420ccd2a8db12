package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pattern-editor/pkg/config"
	"pattern-editor/pkg/handlers"
	"pattern-editor/pkg/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pattern editor web server",
	Long: `Serves the admin screens, the export REST endpoint and the JSON editor API,
and keeps the pattern registry in sync with the theme's pattern files.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	secret := []byte(config.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	h := &handlers.Handler{
		Patterns: a.patterns,
		Exporter: a.exporter,
		Importer: a.importer,
		Sources:  a.sources,
		Repo: services.ThemeRepo{
			Dir:       a.themeDir,
			Remote:    config.GitRemote,
			Branch:    config.GitBranch,
			UserName:  config.GitUserName,
			UserEmail: config.GitUserEmail,
			Logger:    logger,
		},
		Nonces:     services.NewNonces(secret, services.DefaultNonceLifetime),
		Assets:     a.assets,
		ThemeDir:   a.themeDir,
		ContentURL: config.ContentURL,
		OAuth:      config.OauthConf,
		IsAdmin:    config.IsAdmin,
		Logger:     logger,
	}
	srv := &http.Server{
		Addr:    config.ListenAddr,
		Handler: handlers.NewRouter(h, cookie.NewStore(secret)),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.registry.Watch(ctx, a.patternDir, config.Stylesheet)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
