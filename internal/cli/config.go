package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/alignmap/internal/model"
)

var envKeys = strings.NewReplacer(".", "_")

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage alignment-map configuration",
	Long: `Manage tool configuration. Per-repository policy (hierarchy, tolerance,
ignore lists) lives in the alignment map, not here.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (ALIGNMENT_MAP_*)
3. Config file (~/.alignment-map/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", f)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".alignment-map")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'alignment-map config show' to view it, or delete it first to recreate", configPath)
		}
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		data, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		header := "# alignment-map configuration\n" +
			"#\n" +
			"# Configuration hierarchy (highest to lowest priority):\n" +
			"#   1. CLI flags\n" +
			"#   2. Environment variables (ALIGNMENT_MAP_*)\n" +
			"#   3. This config file\n" +
			"#   4. Built-in defaults\n\n"
		if err := model.WriteFileAtomic(configPath, append([]byte(header), data...), 0o644); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n  alignment-map config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// setDefaults registers every key of cfg so env lookups and Unmarshal see them
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("map_file", cfg.MapFile)
	v.SetDefault("fixes_file", cfg.FixesFile)
	v.SetDefault("output.color", cfg.Output.Color)
	v.SetDefault("output.json", cfg.Output.JSON)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("locate.workers", cfg.Locate.Workers)
	v.SetDefault("locate.max_file_size", cfg.Locate.MaxFileSize)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)
	v.SetDefault("watch.debounce", cfg.Watch.Debounce)
}

// loadConfig merges every configuration source and validates the result
func loadConfig() (*model.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Output.Color == "" {
		cfg.Output.Color = "auto"
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
