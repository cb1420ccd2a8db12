package models

// Settings is the optional editor settings file.
type Settings struct {
	// CategoryBlockTypes maps a pattern category to its "Block Types" header hint.
	CategoryBlockTypes map[string][]string `yaml:"category_block_types" toml:"category_block_types" json:"category_block_types"`
	BlockReplacements  []Replacement       `yaml:"block_replacements" toml:"block_replacements" json:"block_replacements"`
	AssetTypes         []string            `yaml:"asset_types" toml:"asset_types" json:"asset_types"`
	PatternDir         string              `yaml:"pattern_dir" toml:"pattern_dir" json:"pattern_dir"`
	AssetDir           string              `yaml:"asset_dir" toml:"asset_dir" json:"asset_dir"`
}

// Replacement is a literal markup substitution applied on export.
type Replacement struct {
	From string `yaml:"from" toml:"from" json:"from"`
	To   string `yaml:"to" toml:"to" json:"to"`
}
