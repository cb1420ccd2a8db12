// Package cli implements the blockify command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pattern-editor/pkg/config"
	"pattern-editor/pkg/logging"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "blockify",
	Short: "Edit block patterns and ship them as theme files",
	Long: `blockify keeps a theme's block patterns in an editor database and
exports them as PHP pattern files under the theme's patterns directory.

Configuration is read from the environment (and a .env file), see SITE_PATH,
CONTENT_DIR, STYLESHEET, HOME_URL and DATABASE_PATH.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Init()

		level := config.LogLevel
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		logger.Debug("configuration loaded",
			zap.Bool("env_file", config.EnvFileLoaded),
			zap.String("theme", config.ThemeDir()),
			zap.String("database", config.DatabasePath),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, exportPatternsCmd, importPatternsCmd, deletePatternsCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
