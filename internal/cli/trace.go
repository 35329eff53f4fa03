package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alignmap/internal/trace"
)

// traceCmd represents the trace command
var traceCmd = &cobra.Command{
	Use:   "trace FILE[:LINE]",
	Short: "Show the documents behind a file or line",
	Long: `Trace lists the blocks covering FILE (or one LINE of it), their aligned
documents with the relevant sections, whether each document is stale, and the
chain of documents above them up to identity level.

Example:
  alignment-map trace src/store.py:42`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review FILE",
	Short: "Preview the documentation review a change to FILE needs",
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	path, line, err := splitLocation(args[0])
	if err != nil {
		return err
	}
	file, err := s.rel(path)
	if err != nil {
		return err
	}

	t, err := trace.Locate(s.m, s.docs, file, line)
	if err != nil {
		return err
	}
	return s.render(t, func() { s.printer.Trace(t) })
}

func runReview(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	file, err := s.rel(args[0])
	if err != nil {
		return err
	}

	r, err := trace.ReviewFile(s.m, s.docs, file)
	if err != nil {
		return err
	}
	return s.render(r, func() { s.printer.Review(r) })
}

// splitLocation parses FILE or FILE:LINE; line is zero when absent
func splitLocation(arg string) (string, int, error) {
	i := strings.LastIndex(arg, ":")
	if i < 0 {
		return arg, 0, nil
	}
	line, err := strconv.Atoi(arg[i+1:])
	if err != nil {
		// a colon that is part of the path
		return arg, 0, nil
	}
	if line < 1 {
		return "", 0, fmt.Errorf("invalid line %d in %q", line, arg)
	}
	return arg[:i], line, nil
}
