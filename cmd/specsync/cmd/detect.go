package cmd

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	specsync "github.com/apiweave/specsync"
)

// detectCmd runs change detection without writing anything.
var detectCmd = &cobra.Command{
	Use:   "detect [spec...]",
	Short: "Detect changes between specification and collection",
	Long: `Detect loads the specification, the request collection, and the
re-derived specification, then runs the three-way diff against the
last-synced baseline. Nothing is written; the classified change set is
printed in the selected output format.

Specification arguments may be glob patterns (including ** wildcards).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
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

	for _, spec := range specs {
		cs, err := syncer.Detect(cmd.Context(), spec, col, viper.GetString("remote"))
		if err != nil {
			return err
		}
		if err := renderChangeSet(cmd.OutOrStdout(), spec, cs, viper.GetString("output")); err != nil {
			return err
		}
	}
	return nil
}

// newSyncer assembles a Syncer from the global flags and config.
func newSyncer() (specsync.Syncer, error) {
	opts := []specsync.Option{
		specsync.WithStrategyName(viper.GetString("strategy")),
	}
	if dir := viper.GetString("baseline-dir"); dir != "" {
		opts = append(opts, specsync.WithBaselineDir(dir))
	}
	if key := viper.GetString("extension-key"); key != "" {
		opts = append(opts, specsync.WithExtensionKey(key))
	}
	return specsync.New(opts...)
}

// requiredCollection returns the collection path, erroring when the flag
// was not provided.
func requiredCollection() (string, error) {
	col := viper.GetString("collection")
	if col == "" {
		return "", fmt.Errorf("a request collection is required (use --collection)")
	}
	return col, nil
}

// expandSpecs resolves specification arguments, expanding glob patterns.
func expandSpecs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			out = append(out, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no specifications match %q", arg)
		}
		out = append(out, matches...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no specification files given")
	}
	return out, nil
}
