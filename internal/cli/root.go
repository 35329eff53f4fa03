package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/alignmap/internal/model"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile  string
	verbose  bool
	mapFile  string
	jsonOut  bool
	colorOpt string
)

// ExitError carries a process exit code without an extra message
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// errFailed signals that a command found problems it already reported
var errFailed = &ExitError{Code: 1}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "alignment-map",
	Short: "Keep code and its design documents in step",
	Long: `alignment-map links line ranges of source files to the documents that
explain them, and checks at commit time that every code change was matched
by a review of its documentation.

Documents listed under requires_human in the map's hierarchy can only be
signed off by a person; the tool never marks them reviewed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 2
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "alignment-map %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.alignment-map/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&mapFile, "mapfile", "", "alignment map file (default: nearest "+model.DefaultMapFile+")")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&colorOpt, "color", "", "colour output: auto, always or never")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("output.color", rootCmd.PersistentFlags().Lookup("color"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".alignment-map"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// ALIGNMENT_MAP_OUTPUT_COLOR and friends
	viper.SetEnvPrefix("ALIGNMENT_MAP")
	viper.SetEnvKeyReplacer(envKeys)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// newLogger writes structured logs to w; debug level when verbose
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
