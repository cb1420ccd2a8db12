package services

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"pattern-editor/pkg/models"
	"pattern-editor/pkg/store"
)

// PatternCache memoizes the pattern listing until the next write.
type PatternCache struct {
	Posts    PostLister
	Exporter *Exporter
	// ThemeDir is the root of the theme's git checkout.
	ThemeDir string

	mu      sync.Mutex
	entries []models.PatternEntry
	loaded  bool
}

// Get returns every non-trashed pattern ordered by title.
func (c *PatternCache) Get(ctx context.Context) ([]models.PatternEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.entries, nil
	}

	posts, err := c.Posts.List(ctx, store.ListOptions{Type: models.PostTypePattern, OrderBy: "title"})
	if err != nil {
		return nil, err
	}

	dirtyFiles, _ := getGitDirtyFiles(ctx, c.ThemeDir)

	entries := make([]models.PatternEntry, 0, len(posts))
	for _, post := range posts {
		entry := models.PatternEntry{Post: post}
		if path, ok := c.Exporter.PathFor(post); ok {
			if rel, err := filepath.Rel(c.ThemeDir, path); err == nil {
				entry.Path = filepath.ToSlash(rel)
			}
			if _, err := os.Stat(path); err == nil {
				entry.Exported = true
			}
			entry.IsDirty = dirtyFiles[entry.Path]
		}
		entries = append(entries, entry)
	}

	c.entries = entries
	c.loaded = true
	return c.entries, nil
}

func getGitDirtyFiles(ctx context.Context, dir string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--untracked-files=all")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	dirty := make(map[string]bool)
	lines := strings.Split(string(out), "\n")
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		path = strings.Trim(path, "\"")
		dirty[path] = true
	}
	return dirty, nil
}

func (c *PatternCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.entries = nil
}
