package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pattern-editor/pkg/config"
)

var importSource string

var exportPatternsCmd = &cobra.Command{
	Use:   "export-patterns",
	Short: "Export every published pattern into the theme",
	Long: `Writes each published pattern to {theme}/patterns/{category}/{name}.php,
copying referenced uploads into the theme's asset directory.`,
	Args: cobra.NoArgs,
	RunE: runExportPatterns,
}

var importPatternsCmd = &cobra.Command{
	Use:   "import-patterns",
	Short: "Create editor patterns from the theme's pattern files",
	Long: `Creates a published pattern for every theme pattern whose slug is not in
the editor yet. Existing patterns are left untouched.

Sources:
  - files: the theme's patterns directory (default)
  - registry: the patterns registered for the active theme`,
	Args: cobra.NoArgs,
	RunE: runImportPatterns,
}

var deletePatternsCmd = &cobra.Command{
	Use:   "delete-patterns",
	Short: "Delete every pattern from the editor (theme files are kept)",
	Args:  cobra.NoArgs,
	RunE:  runDeletePatterns,
}

func init() {
	importPatternsCmd.Flags().StringVar(&importSource, "source", "files", "Import source: files or registry")
}

func runExportPatterns(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.exporter.ExportAll(cmd.Context())
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Skipped {
			fmt.Fprintf(out, "Warning: Skipped pattern: %s (%s)\n", r.Title, r.Reason)
			continue
		}
		fmt.Fprintf(out, "Success: Exported pattern: %s\n", r.Title)
	}
	return err
}

func runImportPatterns(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	src, ok := a.sources[importSource]
	if !ok {
		names := make([]string, 0, len(a.sources))
		for name := range a.sources {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown source %q (want one of %s)", importSource, strings.Join(names, ", "))
	}
	if importSource == "registry" {
		n, err := a.registry.Load(a.patternDir, config.Stylesheet)
		if err != nil {
			return err
		}
		logger.Debug("registry loaded", zap.Int("patterns", n))
	}

	report, err := a.importer.Import(cmd.Context(), src)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, slug := range report.Created {
		fmt.Fprintf(out, "Success: Imported pattern: %s\n", slug)
	}
	fmt.Fprintf(out, "Imported %d, skipped %d existing, %d unreadable.\n",
		len(report.Created), len(report.Skipped), len(report.Failed))
	return nil
}

func runDeletePatterns(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.patterns.DeleteAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Success: Deleted %d patterns.\n", n)
	return nil
}
