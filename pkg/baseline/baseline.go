// Package baseline persists the last-synced snapshot of a specification
// in a sibling directory, keyed by the specification's file name.
//
// The baseline is an optimization, not a source of truth: a missing or
// unreadable snapshot degrades change detection to local-as-baseline
// instead of failing the run.
package baseline

import (
	"os"
	"path/filepath"

	"github.com/apiweave/specsync/pkg/document"
	"github.com/apiweave/specsync/pkg/errors"
	"github.com/apiweave/specsync/pkg/logging"
)

// DefaultDir is the sibling directory name holding baseline snapshots.
const DefaultDir = ".specsync"

// Manager reads and writes baseline snapshots next to specification
// files.
type Manager struct {
	dir string
}

// Option configures a Manager.
type Option func(*Manager)

// WithDir overrides the sibling directory name.
func WithDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.dir = dir
		}
	}
}

// NewManager creates a Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{dir: DefaultDir}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the baseline snapshot path for a specification file.
func (m *Manager) Path(specPath string) string {
	return filepath.Join(filepath.Dir(specPath), m.dir, filepath.Base(specPath))
}

// Exists reports whether a baseline snapshot exists for the
// specification.
func (m *Manager) Exists(specPath string) bool {
	_, err := os.Stat(m.Path(specPath))
	return err == nil
}

// Load reads the baseline snapshot for a specification. An absent or
// unparseable snapshot returns (nil, nil) with a warning, so detection
// degrades to treating the local document as its own baseline.
func (m *Manager) Load(specPath string) (*document.Document, error) {
	path := m.Path(specPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		logging.Warn().Err(err).Str("path", path).Msg("Baseline unreadable, proceeding without it")
		return nil, nil
	}

	doc, err := document.Parse(data)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Baseline corrupt, proceeding without it")
		return nil, nil
	}
	return doc, nil
}

// Save writes the baseline snapshot for a specification. The snapshot is
// written to a temporary file and renamed into place, so a crashed write
// leaves the previous snapshot intact. Callers must persist the
// specification itself before saving its baseline; a baseline newer than
// its specification would mask real changes on the next run.
func (m *Manager) Save(specPath string, doc *document.Document) error {
	if doc == nil {
		return errors.NewValidationError("document", nil, "is required")
	}

	data, err := doc.Marshal()
	if err != nil {
		return errors.WrapIO("marshal baseline", specPath, err)
	}

	path := m.Path(specPath)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("create baseline directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create baseline temp file", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write baseline", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close baseline", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename baseline", path, err)
	}

	logging.Debug().Str("path", path).Msg("Baseline saved")
	return nil
}

// Remove deletes the baseline snapshot for a specification, if present.
func (m *Manager) Remove(specPath string) error {
	err := os.Remove(m.Path(specPath))
	if err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("remove baseline", m.Path(specPath), err)
	}
	return nil
}
