// Package specsync reconciles an authored API specification with a
// request collection. It re-derives a specification from the collection,
// runs a three-way diff against the last-synced baseline, and applies
// only the changes classified safe: descriptive metadata flows both ways,
// structural changes are reported but never auto-applied, and collection
// test scripts are attached to operations as a vendor extension.
package specsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apiweave/specsync/pkg/baseline"
	"github.com/apiweave/specsync/pkg/collection"
	"github.com/apiweave/specsync/pkg/differ"
	"github.com/apiweave/specsync/pkg/document"
	"github.com/apiweave/specsync/pkg/errors"
	"github.com/apiweave/specsync/pkg/extensions"
	"github.com/apiweave/specsync/pkg/logging"
	"github.com/apiweave/specsync/pkg/merge"
)

// Syncer detects and reconciles changes between a specification and a
// request collection.
type Syncer interface {
	// Detect loads the inputs and runs change detection without writing
	// anything. An empty remotePath selects degraded mode: descriptions
	// and tests are extracted directly from the collection.
	Detect(ctx context.Context, specPath, collectionPath, remotePath string) (*differ.ChangeSet, error)

	// Sync runs Detect, applies the safe changes and test scripts to the
	// specification, writes it back, and records the merged result as the
	// new baseline. The baseline is saved only after the specification is
	// durably written.
	Sync(ctx context.Context, specPath, collectionPath, remotePath string) (*SyncResult, error)

	// ApplyTests applies only the collection's test scripts to the
	// specification and writes it back, leaving detection and the
	// baseline untouched.
	ApplyTests(ctx context.Context, specPath, collectionPath string) (int, error)
}

// SyncResult is the outcome of a full sync run.
type SyncResult struct {
	Changes  *differ.ChangeSet
	Merge    *merge.Result
	SpecPath string

	// BaselineSaved reports whether a new baseline snapshot was written.
	// It is false when nothing changed and the spec was left untouched.
	BaselineSaved bool
}

// syncer is the internal implementation of the Syncer interface
type syncer struct {
	config    *config
	differ    *differ.Differ
	baselines *baseline.Manager
}

// New creates a new Syncer instance with the given options
func New(opts ...Option) (Syncer, error) {
	c := &config{
		strategy:     differ.SpecWins(),
		baselineDir:  baseline.DefaultDir,
		extensionKey: extensions.DefaultKey,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	return &syncer{
		config: c,
		differ: differ.New(
			differ.WithStrategy(c.strategy),
			differ.WithExtensionKey(c.extensionKey),
		),
		baselines: baseline.NewManager(baseline.WithDir(c.baselineDir)),
	}, nil
}

// Detect loads the inputs and runs change detection without writing
// anything.
func (s *syncer) Detect(ctx context.Context, specPath, collectionPath, remotePath string) (*differ.ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = logging.WithSpec(logging.WithLogger(ctx, s.config.logger), specPath)
	logger := logging.Ctx(ctx)

	local, err := loadDocument(specPath)
	if err != nil {
		return nil, err
	}

	col, err := loadCollection(collectionPath)
	if err != nil {
		return nil, err
	}

	remote, err := s.loadRemote(remotePath)
	if err != nil {
		if !errors.IsRemoteUnavailable(err) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("Remote specification unavailable, degrading to collection extraction")
		return s.differ.DetectFromCollection(local, col), nil
	}
	if remote == nil {
		logger.Warn().Msg("No remote specification offered, degrading to collection extraction")
		return s.differ.DetectFromCollection(local, col), nil
	}

	base, err := s.baselines.Load(specPath)
	if err != nil {
		return nil, err
	}

	cs := s.differ.DetectWithCollection(base, local, remote, col)
	logger.Debug().
		Str("summary", cs.String()).
		Msg("Change detection complete")
	return cs, nil
}

// Sync runs detection, applies safe changes and test scripts, writes the
// specification, and saves the new baseline.
func (s *syncer) Sync(ctx context.Context, specPath, collectionPath, remotePath string) (*SyncResult, error) {
	cs, err := s.Detect(ctx, specPath, collectionPath, remotePath)
	if err != nil {
		return nil, err
	}

	local, err := loadDocument(specPath)
	if err != nil {
		return nil, err
	}

	merged, err := merge.Apply(local, cs)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Changes:  cs,
		Merge:    merged,
		SpecPath: specPath,
	}

	if len(merged.Applied) == 0 && s.baselines.Exists(specPath) {
		s.config.logger.Info().Str("spec", specPath).Msg("Nothing to apply")
		return result, nil
	}

	if err := writeDocument(specPath, merged.Spec); err != nil {
		return nil, err
	}

	// Baseline only after the spec is durably written: a baseline ahead
	// of its spec would mask real changes on the next run.
	if err := s.baselines.Save(specPath, merged.Spec); err != nil {
		return nil, err
	}
	result.BaselineSaved = true

	s.config.logger.Info().
		Str("spec", specPath).
		Int("applied", len(merged.Applied)).
		Int("skipped", len(merged.Skipped)).
		Msg("Sync complete")
	return result, nil
}

// ApplyTests applies only the collection's test scripts to the
// specification. The returned count is operations updated, not scripts
// written: several requests resolving to the same operation count once.
func (s *syncer) ApplyTests(ctx context.Context, specPath, collectionPath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	local, err := loadDocument(specPath)
	if err != nil {
		return 0, err
	}
	col, err := loadCollection(collectionPath)
	if err != nil {
		return 0, err
	}

	store := extensions.NewStore(extensions.WithKey(s.config.extensionKey))
	n, err := store.Apply(local, col)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if err := writeDocument(specPath, local); err != nil {
		return 0, err
	}
	return n, nil
}

// loadRemote parses the re-derived specification. An empty path means no
// remote was offered; a named remote that cannot be read or parsed is
// reported as a transform failure, which callers recover from by
// degrading to collection extraction.
func (s *syncer) loadRemote(remotePath string) (*document.Document, error) {
	if remotePath == "" {
		return nil, nil
	}
	doc, err := loadDocument(remotePath)
	if err != nil {
		return nil, errors.NewTransformError(remotePath, "cannot load re-derived specification", err)
	}
	return doc, nil
}

// loadDocument reads and parses a specification file.
func loadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapIO("read specification", path, errors.ErrNotFound)
		}
		return nil, errors.WrapIO("read specification", path, err)
	}
	return document.Parse(data)
}

// loadCollection reads and parses a request collection file.
func loadCollection(path string) (*collection.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapIO("read collection", path, errors.ErrNotFound)
		}
		return nil, errors.WrapIO("read collection", path, err)
	}
	return collection.Parse(data)
}

// writeDocument serializes a document and writes it via a temp file and
// rename, preserving the previous content on a crashed write.
func writeDocument(path string, doc *document.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return errors.WrapIO("marshal specification", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create temp file", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write specification", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close specification", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename specification", path, err)
	}
	return nil
}
