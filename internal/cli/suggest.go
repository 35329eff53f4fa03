package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/alignmap/internal/suggest"
	"github.com/ppiankov/alignmap/internal/worker"
)

var suggestFilesFrom string

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest [FILE...]",
	Short: "Propose blocks for unmapped code",
	Long: `Suggest finds classes, functions and methods not yet covered by any block
and prints the update commands that would map them. Without arguments it scans
the project for source files less than 80% covered.

Suggest never guesses which document code aligns with.

Example:
  alignment-map suggest
  alignment-map suggest src/store.py
  git diff --name-only | alignment-map suggest --files-from /dev/stdin`,
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringVar(&suggestFilesFrom, "files-from", "", "read file paths from this file, one per line")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	sg := suggest.New(s.locator, s.ignore, s.cfg.Locate.Workers, s.logger)

	paths := append([]string(nil), args...)
	if suggestFilesFrom != "" {
		listed, err := worker.ReadPathsFromFile(suggestFilesFrom)
		if err != nil {
			return err
		}
		paths = append(paths, listed...)
	}

	var files []string
	if len(paths) == 0 {
		files, err = sg.UnmappedFiles(s.m, s.root)
		if err != nil {
			return err
		}
		s.logger.Debug("candidate files", "count", len(files))
	} else {
		for _, p := range paths {
			rel, err := s.rel(p)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
	}

	results := sg.Suggest(ctx, s.m, s.root, files)
	return s.render(results, func() { s.printer.Suggestions(results) })
}
