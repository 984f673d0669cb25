package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// testsCmd applies only the collection's test scripts.
var testsCmd = &cobra.Command{
	Use:   "tests [spec...]",
	Short: "Attach collection test scripts to specification operations",
	Long: `Tests extracts test-listener scripts from the request collection and
writes them onto the matching operations under the vendor extension
field. Detection and the baseline are untouched; existing scripts under
the extension field are replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(testsCmd)
}

func runTests(cmd *cobra.Command, args []string) error {
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
		n, err := syncer.ApplyTests(cmd.Context(), spec, col)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d operation(s) updated with test scripts\n", spec, n)
	}
	return nil
}
