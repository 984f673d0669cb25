package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// syncCmd runs detection and applies the safe changes.
var syncCmd = &cobra.Command{
	Use:     "sync [spec...]",
	Aliases: []string{"merge"},
	Short:   "Apply safe changes from the collection to the specification",
	Long: `Sync runs change detection, applies the changes classified safe
plus any extracted test scripts, writes the specification back, and
records the merged result as the new baseline.

Structural changes are never applied; conflicted descriptive fields
follow the configured strategy. Changes needing review are printed so a
human can resolve them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	specs, err := expandSpecs(args)
	if err != nil {
		return err
	}

	syncer, err := newSyncer()
	if err != nil {
		return err
	}

	col, err := requiredCollection()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, spec := range specs {
		result, err := syncer.Sync(cmd.Context(), spec, col, viper.GetString("remote"))
		if err != nil {
			return err
		}

		if err := renderChangeSet(out, spec, result.Changes, viper.GetString("output")); err != nil {
			return err
		}
		if viper.GetString("output") == "json" {
			continue
		}

		fmt.Fprintf(out, "%s: %s\n", spec, result.Merge)
		for _, skip := range result.Merge.Skipped {
			fmt.Fprintf(out, "  skipped %s: %s\n", skip.Record.Path, skip.Reason)
		}
		if n := len(result.Changes.NeedsReview); n > 0 {
			fmt.Fprintf(out, "  %d change(s) need review before they can be applied\n", n)
		}
		if n := len(result.Changes.Blocked); n > 0 {
			fmt.Fprintf(out, "  %d structural change(s) require editing the specification directly\n", n)
		}
	}
	return nil
}
