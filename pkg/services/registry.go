package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"pattern-editor/pkg/models"
)

// Registry holds the patterns registered by themes, keyed by slug.
type Registry struct {
	Placeholders PlaceholderValues
	Logger       *zap.Logger

	mu       sync.RWMutex
	patterns map[string]models.RegisteredPattern
}

func NewRegistry(placeholders PlaceholderValues, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		Placeholders: placeholders,
		Logger:       logger,
		patterns:     map[string]models.RegisteredPattern{},
	}
}

// Register adds or replaces a pattern.
func (r *Registry) Register(p models.RegisteredPattern) error {
	if p.Slug == "" {
		return errors.New("pattern has no slug")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[p.Slug] = p
	return nil
}

// Unregister removes the pattern registered under slug.
func (r *Registry) Unregister(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.patterns, slug)
}

// All returns the registered patterns ordered by slug.
func (r *Registry) All() []models.RegisteredPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RegisteredPattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Load replaces the patterns of theme with the pattern files found in dir.
// It returns how many were registered.
func (r *Registry) Load(dir, theme string) (int, error) {
	files, err := scanPatternFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}

	loaded := map[string]models.RegisteredPattern{}
	for _, f := range files {
		if f.Err != nil {
			r.Logger.Debug("pattern file ignored", zap.String("path", f.Path), zap.Error(f.Err))
			continue
		}
		p := models.RegisteredPattern{
			Slug:       f.Slug,
			Title:      f.Title,
			Categories: []string{f.Category},
			Content:    RenderPatternBody(f.Body, r.Placeholders),
			Theme:      theme,
			FilePath:   f.Path,
		}
		if f.Header != nil {
			if len(f.Header.Categories) > 0 {
				p.Categories = f.Header.Categories
			}
			p.BlockTypes = f.Header.BlockTypes
		}
		loaded[p.Slug] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for slug, p := range r.patterns {
		if p.Theme == theme {
			delete(r.patterns, slug)
		}
	}
	for slug, p := range loaded {
		r.patterns[slug] = p
	}
	return len(loaded), nil
}

// Watch loads dir and reloads it whenever a file below it changes, until ctx
// is cancelled.
func (r *Registry) Watch(ctx context.Context, dir, theme string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fsError("mkdir", dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := r.watchTree(watcher, dir); err != nil {
		return err
	}
	if _, err := r.Load(dir, theme); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if n := r.forget(event.Name); n > 0 {
					r.Logger.Debug("patterns unregistered", zap.String("path", event.Name), zap.Int("count", n))
					continue
				}
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						r.Logger.Warn("watch directory", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			n, err := r.Load(dir, theme)
			if err != nil {
				r.Logger.Warn("reload patterns", zap.Error(err))
				continue
			}
			r.Logger.Debug("patterns reloaded", zap.String("event", event.String()), zap.Int("count", n))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.Logger.Warn("pattern watcher error", zap.Error(err))
		}
	}
}

// forget unregisters the patterns loaded from path, or from below it when
// path was a directory.
func (r *Registry) forget(path string) int {
	n := 0
	for _, p := range r.All() {
		if p.FilePath == path || strings.HasPrefix(p.FilePath, path+string(filepath.Separator)) {
			r.Unregister(p.Slug)
			n++
		}
	}
	return n
}

// watchTree adds dir and its direct subdirectories to the watcher.
func (r *Registry) watchTree(watcher *fsnotify.Watcher, dir string) error {
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fsError("readdir", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if err := watcher.Add(sub); err != nil {
			return fmt.Errorf("watch %s: %w", sub, err)
		}
	}
	return nil
}
