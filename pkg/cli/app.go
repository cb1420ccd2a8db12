package cli

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"pattern-editor/pkg/config"
	"pattern-editor/pkg/models"
	"pattern-editor/pkg/services"
	"pattern-editor/pkg/store"
)

// app wires the services from the loaded configuration.
type app struct {
	store      *store.Store
	settings   models.Settings
	themeDir   string
	patternDir string
	assets     services.AssetRewriter
	exporter   *services.Exporter
	importer   *services.Importer
	patterns   *services.PatternService
	registry   *services.Registry
	sources    map[string]services.Source
}

func newApp(logger *zap.Logger) (*app, error) {
	settings, err := services.LoadSettings(config.SettingsPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(config.DatabasePath)
	if err != nil {
		return nil, err
	}

	themeDir := config.ThemeDir()
	patternDir := filepath.Join(themeDir, "patterns")
	if settings.PatternDir != "" {
		patternDir = services.SafeJoin(themeDir, "", settings.PatternDir)
		if patternDir == "" {
			st.Close()
			return nil, fmt.Errorf("pattern_dir %q escapes the theme directory", settings.PatternDir)
		}
	}
	assetDir := settings.AssetDir
	if assetDir == "" {
		assetDir = "themes/" + config.Stylesheet + "/assets"
	}

	assets := services.AssetRewriter{
		ContentDir:    config.ContentDir,
		AssetDir:      assetDir,
		HomeURL:       config.HomeURL,
		UploadsURL:    config.UploadsURL,
		UploadsDir:    config.UploadsDir,
		StylesheetURI: config.StylesheetURI,
		Types:         settings.AssetTypes,
	}
	flusher := services.CommandFlusher{Command: config.FlushCommand, Dir: config.SitePath, Logger: logger}
	exporter := &services.Exporter{
		Posts:      st,
		Content:    services.ContentRewriter{Replacements: services.Replacements(settings)},
		Assets:     assets,
		PatternDir: func(models.Post) string { return patternDir },
		Settings:   settings,
		Flusher:    flusher,
		Logger:     logger,
	}

	placeholders := services.PlaceholderValues{
		HomeURL:       config.HomeURL,
		ContentURL:    config.ContentURL,
		StylesheetURI: config.StylesheetURI,
	}
	registry := services.NewRegistry(placeholders, logger)

	return &app{
		store:      st,
		settings:   settings,
		themeDir:   themeDir,
		patternDir: patternDir,
		assets:     assets,
		exporter:   exporter,
		importer:   &services.Importer{Store: st, Flusher: flusher, Logger: logger},
		patterns: &services.PatternService{
			Store:    st,
			Exporter: exporter,
			Cache:    &services.PatternCache{Posts: st, Exporter: exporter, ThemeDir: themeDir},
			Logger:   logger,
		},
		registry: registry,
		sources: map[string]services.Source{
			"files":    services.FileSource{PatternDir: patternDir, Placeholders: placeholders},
			"registry": services.RegistrySource{Registry: registry, Theme: config.Stylesheet},
		},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
