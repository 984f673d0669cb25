// Package extensions applies collection test scripts to a specification
// document as a reserved vendor extension field on each operation.
package extensions

import (
	"github.com/goccy/go-yaml"

	"github.com/apiweave/specsync/pkg/collection"
	"github.com/apiweave/specsync/pkg/document"
	"github.com/apiweave/specsync/pkg/errors"
	"github.com/apiweave/specsync/pkg/logging"
	"github.com/apiweave/specsync/pkg/pathmatch"
)

// DefaultKey is the reserved vendor extension field holding test scripts.
// It is excluded from change detection and owned entirely by the
// collection side: writes are last-write-wins.
const DefaultKey = "x-postman-tests"

// TestScript is one test-listener script attached to an operation.
type TestScript struct {
	Name   string   `yaml:"name"`
	Script []string `yaml:"script"`
	Type   string   `yaml:"type,omitempty"`
}

// Store writes test scripts onto specification operations under a
// configurable vendor extension key.
type Store struct {
	key string
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the vendor extension field name.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore creates a Store with the given options.
func NewStore(opts ...Option) *Store {
	s := &Store{key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the vendor extension field name in use.
func (s *Store) Key() string { return s.key }

// Apply extracts test scripts from the collection and writes them onto
// the matching operations in the document, replacing any existing value
// under the extension key. Requests with no matching operation are
// skipped. Returns the number of operations updated.
func (s *Store) Apply(doc *document.Document, col *collection.Collection) (int, error) {
	if doc == nil {
		return 0, errors.NewValidationError("document", nil, "is required")
	}
	if col == nil {
		return 0, errors.NewValidationError("collection", nil, "is required")
	}

	updated := make(map[string]bool)
	for _, item := range col.Requests() {
		scripts := item.TestScripts()
		if len(scripts) == 0 {
			continue
		}

		opPath, ok := pathmatch.FindOperation(doc, item.Request.URL.PathString(), item.Request.Method)
		if !ok {
			logging.Debug().
				Str("item", item.Name).
				Str("path", item.Request.URL.PathString()).
				Str("method", item.Request.Method).
				Msg("No matching operation for test scripts")
			continue
		}

		fieldPath := opPath.Child(s.key)
		if !doc.Set(fieldPath, FromScripts(item.Name, scripts)) {
			continue
		}
		updated[opPath.String()] = true
	}
	return len(updated), nil
}

// Read returns the test scripts stored on an operation, or nil when the
// extension field is absent or malformed.
func (s *Store) Read(doc *document.Document, opPath document.FieldPath) []TestScript {
	v, ok := doc.Get(opPath.Child(s.key)...)
	if !ok {
		return nil
	}

	// Round-trip through YAML to decode the ordered tree form.
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil
	}
	var out []TestScript
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// FromScripts converts collection scripts to the tree value stored under
// the extension key. Values are built as ordered mappings so the document
// tree stays homogeneous for diffing and serialization.
func FromScripts(name string, scripts []collection.Script) []any {
	out := make([]any, 0, len(scripts))
	for _, sc := range scripts {
		exec := make([]any, 0, len(sc.Exec))
		for _, line := range sc.Exec {
			exec = append(exec, line)
		}

		entry := yaml.MapSlice{
			{Key: "name", Value: name},
			{Key: "script", Value: exec},
		}
		if sc.Type != "" {
			entry = append(entry, yaml.MapItem{Key: "type", Value: sc.Type})
		}
		out = append(out, entry)
	}
	return out
}
