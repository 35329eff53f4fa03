package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alignmap/internal/drift"
	"github.com/ppiankov/alignmap/internal/edit"
	"github.com/ppiankov/alignmap/internal/model"
)

var (
	updBlock     string
	updID        string
	updLines     string
	updAligned   []string
	updComment   string
	updExtend    bool
	updSplit     bool
	updReplace   bool
	touchBlock   string
	touchComment string
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update FILE",
	Short: "Add or change a mapped block",
	Long: `Update adds a block to FILE's mapping, or moves an existing block of the
same name. A new block that overlaps existing ones needs a strategy:

  --extend    grow the existing block to cover the new lines
  --split     cut the existing block around the new one
  --replace   drop the overlapped blocks in favour of the new one

Without a strategy the overlap is explained and nothing is written.

Example:
  alignment-map update src/store.py --block "Store class" --lines 10-80 \
      --aligned-with docs/DESIGN.md#storage --comment "initial mapping"`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

// touchCmd represents the touch command
var touchCmd = &cobra.Command{
	Use:   "touch FILE",
	Short: "Mark a block as updated after its documents were reviewed",
	Long: `Touch bumps a block's last_updated. When the block's code has moved and
can be found unambiguously, its line range follows it.

Example:
  alignment-map touch src/store.py --block "Store class" --comment "reviewed DESIGN.md"`,
	Args: cobra.ExactArgs(1),
	RunE: runTouch,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(touchCmd)

	updateCmd.Flags().StringVar(&updBlock, "block", "", "block name")
	updateCmd.Flags().StringVar(&updID, "id", "", "stable block id for code references")
	updateCmd.Flags().StringVar(&updLines, "lines", "", "line range START-END")
	updateCmd.Flags().StringSliceVar(&updAligned, "aligned-with", nil, "aligned document or code reference (repeatable)")
	updateCmd.Flags().StringVar(&updComment, "comment", "", "last update comment")
	updateCmd.Flags().BoolVar(&updExtend, "extend", false, "extend the overlapping block")
	updateCmd.Flags().BoolVar(&updSplit, "split", false, "split the overlapping block")
	updateCmd.Flags().BoolVar(&updReplace, "replace", false, "replace the overlapping blocks")
	_ = updateCmd.MarkFlagRequired("block")
	_ = updateCmd.MarkFlagRequired("lines")
	updateCmd.MarkFlagsMutuallyExclusive("extend", "split", "replace")

	touchCmd.Flags().StringVar(&touchBlock, "block", "", "block name")
	touchCmd.Flags().StringVar(&touchComment, "comment", "", "last update comment")
	_ = touchCmd.MarkFlagRequired("block")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	file, err := s.rel(args[0])
	if err != nil {
		return err
	}
	lines, err := model.ParseLineRange(updLines)
	if err != nil {
		return err
	}

	req := edit.UpdateRequest{
		File:        file,
		Block:       updBlock,
		ID:          updID,
		Lines:       lines,
		AlignedWith: model.ParseRefs(updAligned),
		Comment:     optional(cmd, "comment", updComment),
		Strategy:    chosenStrategy(),
	}
	if src, err := os.ReadFile(args[0]); err == nil {
		req.LineCount = countLines(src)
	} else {
		s.logger.Warn("cannot read file; line range not checked", "file", file, "error", err)
	}

	res, err := edit.Update(s.m, req)
	var needStrategy *edit.StrategyRequiredError
	if errors.As(err, &needStrategy) {
		if rerr := s.render(needStrategy, func() { s.printer.StrategyRequired(needStrategy) }); rerr != nil {
			return rerr
		}
		return errFailed
	}
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	return s.render(res, func() { s.printer.Updated(file, res) })
}

func runTouch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	file, err := s.rel(args[0])
	if err != nil {
		return err
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	resolver := drift.NewResolver(s.locator, s.m.Settings)
	res, err := edit.Touch(ctx, s.m, resolver, src, file, touchBlock, optional(cmd, "comment", touchComment))
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	return s.render(res, func() { s.printer.Touched(file, res) })
}

func chosenStrategy() edit.Strategy {
	switch {
	case updExtend:
		return edit.StrategyExtend
	case updSplit:
		return edit.StrategySplit
	case updReplace:
		return edit.StrategyReplace
	}
	return edit.StrategyNone
}

// optional returns a pointer to value only when the flag was given
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte("\n"))
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}
