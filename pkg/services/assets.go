package services

import (
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultAssetTypes are the media extensions copied into the theme on export.
var DefaultAssetTypes = []string{"jpg", "jpeg", "png", "webp", "gif", "mp4", "mov", "svg", "webm"}

const (
	homeURLPlaceholder       = `<?php echo home_url() ?>`
	stylesheetURIPlaceholder = `<?php echo get_stylesheet_directory_uri() ?>`
)

func contentURLPlaceholder(setting string) string {
	return `<?php echo content_url( "/` + setting + `/" ) ?>`
}

var assetURLPattern = regexp.MustCompile(`(?i)\b(?:(?:https?|ftp)://|www\.)[-a-z0-9+&@#/%?=~_|!:,.;]*[-a-z0-9+&@#/%=~_|]`)

// AssetRewriter copies uploaded media referenced by pattern markup into the
// theme and rewrites the markup to portable placeholders.
type AssetRewriter struct {
	ContentDir string
	// AssetDir is relative to ContentDir, e.g. "themes/blockify/assets".
	AssetDir      string
	HomeURL       string
	UploadsURL    string
	UploadsDir    string
	StylesheetURI string
	Types         []string
	// DryRun rewrites the markup without creating directories or copying files.
	DryRun bool
}

// Root returns the asset directory on disk with a trailing slash.
func (a AssetRewriter) Root() string {
	return strings.TrimRight(filepath.ToSlash(a.ContentDir), "/") + "/" + a.setting() + "/"
}

func (a AssetRewriter) setting() string {
	return strings.Trim(filepath.ToSlash(a.AssetDir), "/")
}

func (a AssetRewriter) types() []string {
	if len(a.Types) == 0 {
		return DefaultAssetTypes
	}
	return a.Types
}

func (a AssetRewriter) host() string {
	u, err := url.Parse(a.HomeURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Rewrite copies every local media file referenced by html into the theme
// asset directory and returns html pointing at the copies.
func (a AssetRewriter) Rewrite(html string) (string, error) {
	matches := assetURLPattern.FindAllString(html, -1)
	root := a.Root()
	host := a.host()

	for _, u := range matches {
		base := path.Base(u)
		if !strings.Contains(base, ".") {
			continue
		}

		// Only the second dot segment counts as extension; "a.b.png" yields "b".
		ext := strings.Split(base, ".")[1]
		if !slices.Contains(a.types(), ext) {
			continue
		}

		// Limit to current site. Without a home URL nothing is local.
		if host == "" || !strings.Contains(u, host) {
			continue
		}

		if a.UploadsURL == "" {
			continue
		}
		original := strings.ReplaceAll(u, a.UploadsURL, a.UploadsDir)
		if info, err := os.Stat(original); err != nil || info.IsDir() {
			continue
		}

		newDir := root + assetSubDir(ext) + "/"
		dst := newDir + base
		if !a.DryRun {
			if err := os.MkdirAll(newDir, 0755); err != nil {
				return html, fsError("mkdir", newDir, err)
			}
			if err := copyFile(original, dst); err != nil {
				return html, err
			}
		}

		html = strings.ReplaceAll(strings.TrimSpace(html), u, dst)
	}

	html = strings.ReplaceAll(html, root, contentURLPlaceholder(a.setting()))
	if a.StylesheetURI != "" {
		html = strings.ReplaceAll(html, a.StylesheetURI, stylesheetURIPlaceholder)
	}
	if a.HomeURL != "" {
		html = strings.ReplaceAll(html, a.HomeURL, homeURLPlaceholder)
	}
	return html, nil
}

func assetSubDir(ext string) string {
	switch ext {
	case "svg":
		return "svg"
	case "mp4", "mov":
		return "video"
	case "gif":
		return "gif"
	default:
		return "img"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fsError("open", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fsError("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fsError("copy", dst, err)
	}
	return fsError("close", dst, out.Close())
}

type MediaFile struct {
	Name string `json:"name"`
	Path string `json:"path"` // Relative to the asset directory
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// ListAssets lists the media exported into the theme asset directory.
func ListAssets(a AssetRewriter, contentURL string) ([]MediaFile, error) {
	root := a.Root()
	var files []MediaFile
	for _, sub := range []string{"img", "gif", "svg", "video"} {
		entries, err := os.ReadDir(root + sub)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fsError("readdir", root+sub, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			rel := sub + "/" + entry.Name()
			files = append(files, MediaFile{
				Name: entry.Name(),
				Path: rel,
				Size: info.Size(),
				URL:  strings.TrimRight(contentURL, "/") + "/" + a.setting() + "/" + rel,
			})
		}
	}
	return files, nil
}
