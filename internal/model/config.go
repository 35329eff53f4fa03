package model

import "time"

// Config holds tool-level settings. Per-repository policy (hierarchy,
// tolerance, ignore lists) lives in the alignment map itself.
type Config struct {
	MapFile   string       `yaml:"map_file" mapstructure:"map_file" validate:"required"`
	FixesFile string       `yaml:"fixes_file" mapstructure:"fixes_file" validate:"required"`
	Output    OutputConfig `yaml:"output" mapstructure:"output"`
	Locate    LocateConfig `yaml:"locate" mapstructure:"locate"`
	Cache     CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Watch     WatchConfig  `yaml:"watch" mapstructure:"watch"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Color   string `yaml:"color" mapstructure:"color" validate:"omitempty,oneof=auto always never"`
	JSON    bool   `yaml:"json" mapstructure:"json"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LocateConfig controls structural parsing
type LocateConfig struct {
	Workers     int   `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=256"`
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size" validate:"gte=0"`
}

// CacheConfig controls span caching across runs
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// WatchConfig controls lint --watch
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce" validate:"gte=0"`
}

// DefaultMapFile is the map file name looked up from the working directory upward
const DefaultMapFile = ".alignment-map.yaml"

// DefaultFixesFile is the reviewable fix proposal written by lint
const DefaultFixesFile = ".alignment-map.fixes"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		MapFile:   DefaultMapFile,
		FixesFile: DefaultFixesFile,
		Output: OutputConfig{
			Color: "auto",
		},
		Locate: LocateConfig{
			Workers:     4,
			MaxFileSize: 2 * 1024 * 1024,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}
