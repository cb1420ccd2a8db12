package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"pattern-editor/pkg/models"
)

func SafeJoin(root, sub, target string) string {
	cleanTarget := filepath.Clean(target)
	if strings.Contains(cleanTarget, "..") {
		return ""
	}
	return filepath.Join(root, sub, cleanTarget)
}

// LoadSettings reads the editor settings file. The format follows the file
// extension: .yml/.yaml, .toml or .json. An empty path yields zero settings.
func LoadSettings(path string) (models.Settings, error) {
	var s models.Settings
	if path == "" {
		return s, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := DecodeSettings(content, filepath.Ext(path), &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// DecodeSettings decodes content in the format named by ext.
func DecodeSettings(content []byte, ext string, s *models.Settings) error {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yml", "yaml":
		return yaml.Unmarshal(content, s)
	case "toml":
		return toml.Unmarshal(content, s)
	case "json":
		dec := json.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		return dec.Decode(s)
	default:
		return fmt.Errorf("unsupported format: %s", ext)
	}
}

// BlockTypesFor returns the "Block Types" hint of a category.
func BlockTypesFor(s models.Settings, category string) []string {
	if types, ok := s.CategoryBlockTypes[category]; ok {
		return types
	}
	return DefaultCategoryBlockTypes[category]
}

// DefaultCategoryBlockTypes are the block-type hints written for known categories.
var DefaultCategoryBlockTypes = map[string][]string{
	"page":   {"core/post-content"},
	"header": {"core/template-part/header"},
	"footer": {"core/template-part/footer"},
}

// Replacements returns the configured block replacements, falling back to the defaults.
func Replacements(s models.Settings) []models.Replacement {
	if len(s.BlockReplacements) == 0 {
		return DefaultBlockReplacements
	}
	return append(append([]models.Replacement{}, DefaultBlockReplacements...), s.BlockReplacements...)
}
