package config

import "time"

// Config represents the complete styx command configuration
type Config struct {
	BaseDir string       `yaml:"-"` // Directory containing config file, for resolving relative paths
	Parse   ParseConfig  `yaml:"parse"`
	Output  OutputConfig `yaml:"output"`
	Watch   WatchConfig  `yaml:"watch"`
}

// ParseConfig holds parser limits
type ParseConfig struct {
	MaxDepth int `yaml:"max_depth"` // maximum value nesting depth
}

// OutputConfig controls how `styx tree` prints documents
type OutputConfig struct {
	Format string `yaml:"format"` // sexp, json, or yaml
	Indent int    `yaml:"indent"` // spaces per level for json and yaml
}

// WatchConfig holds settings for `styx watch`
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // quiet period before re-parsing
	LogFile  string        `yaml:"log_file"` // empty logs to stderr
}

// Output formats
const (
	FormatSexp = "sexp"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Parse: ParseConfig{
			MaxDepth: 128,
		},
		Output: OutputConfig{
			Format: FormatSexp,
			Indent: 2,
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
	}
}
