package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apiweave/specsync/pkg/logging"
)

// debounce coalesces editor write bursts into one detection run.
const debounce = 300 * time.Millisecond

var watchApply bool

// watchCmd re-runs detection whenever the watched files change.
var watchCmd = &cobra.Command{
	Use:   "watch [spec...]",
	Short: "Re-run detection when the specification or collection changes",
	Long: `Watch monitors the specification files and the request collection and
re-runs change detection whenever one of them is written. With --apply,
safe changes are synced instead of only reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchApply, "apply", false, "sync safe changes instead of only reporting them")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	specs, err := expandSpecs(args)
	if err != nil {
		return err
	}

	col, err := requiredCollection()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories, not files: editors often replace files on save,
	// which drops a file-level watch.
	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, spec := range specs {
		watched[filepath.Clean(spec)] = true
		dirs[filepath.Dir(spec)] = true
	}
	watched[filepath.Clean(col)] = true
	dirs[filepath.Dir(col)] = true

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	run := func() {
		if err := runOnce(cmd, specs, col); err != nil {
			logging.Err(err).Msg("Watch run failed")
		}
	}
	run()

	watchLoop(cmd.Context(), watcher.Events, watcher.Errors, watched, debounce, run)
	return nil
}

// watchLoop dispatches filesystem events to the run callback. Timer
// firings are funneled back into the select loop, so runs never overlap:
// a sync against a spec and its baseline must not race another.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, watched map[string]bool, wait time.Duration, run func()) {
	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			run()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			logging.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Change observed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(wait, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-errs:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// runOnce executes one detection (or sync) pass over all watched specs.
func runOnce(cmd *cobra.Command, specs []string, col string) error {
	syncer, err := newSyncer()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, spec := range specs {
		if watchApply {
			result, err := syncer.Sync(cmd.Context(), spec, col, viper.GetString("remote"))
			if err != nil {
				return err
			}
			if err := renderChangeSet(out, spec, result.Changes, viper.GetString("output")); err != nil {
				return err
			}
			continue
		}

		cs, err := syncer.Detect(cmd.Context(), spec, col, viper.GetString("remote"))
		if err != nil {
			return err
		}
		if err := renderChangeSet(out, spec, cs, viper.GetString("output")); err != nil {
			return err
		}
	}
	return nil
}
