package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiweave/specsync/pkg/differ"
	"github.com/apiweave/specsync/pkg/document"
)

const localSpec = `openapi: 3.0.0
paths:
  /test:
    get:
      summary: Get test
      description: Old description
`

func mustParse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestApply(t *testing.T) {
	t.Run("applies safe changes", func(t *testing.T) {
		local := mustParse(t, localSpec)
		cs := &differ.ChangeSet{
			SafeToSync: []differ.ChangeRecord{{
				Path:     document.FieldPath{"paths", "/test", "get", "description"},
				Kind:     differ.KindModified,
				OldValue: "Old description",
				NewValue: "New description",
			}},
		}

		result, err := Apply(local, cs)
		require.NoError(t, err)
		require.Len(t, result.Applied, 1)
		assert.Empty(t, result.Skipped)

		v, _ := result.Spec.Get("paths", "/test", "get", "description")
		assert.Equal(t, "New description", v)
	})

	t.Run("input document is never mutated", func(t *testing.T) {
		local := mustParse(t, localSpec)
		cs := &differ.ChangeSet{
			SafeToSync: []differ.ChangeRecord{{
				Path:     document.FieldPath{"paths", "/test", "get", "description"},
				Kind:     differ.KindModified,
				NewValue: "New description",
			}},
		}

		_, err := Apply(local, cs)
		require.NoError(t, err)

		v, _ := local.Get("paths", "/test", "get", "description")
		assert.Equal(t, "Old description", v)
	})

	t.Run("applies deletions", func(t *testing.T) {
		local := mustParse(t, localSpec)
		cs := &differ.ChangeSet{
			SafeToSync: []differ.ChangeRecord{{
				Path: document.FieldPath{"paths", "/test", "get", "description"},
				Kind: differ.KindDeleted,
			}},
		}

		result, err := Apply(local, cs)
		require.NoError(t, err)
		require.Len(t, result.Applied, 1)
		assert.False(t, result.Spec.Has("paths", "/test", "get", "description"))
	})

	t.Run("stale path is skipped, not fabricated", func(t *testing.T) {
		local := mustParse(t, localSpec)
		cs := &differ.ChangeSet{
			SafeToSync: []differ.ChangeRecord{{
				Path:     document.FieldPath{"paths", "/removed", "get", "description"},
				Kind:     differ.KindModified,
				NewValue: "stale",
			}},
		}

		result, err := Apply(local, cs)
		require.NoError(t, err)
		assert.Empty(t, result.Applied)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, "path no longer present", result.Skipped[0].Reason)
		assert.False(t, result.Spec.Has("paths", "/removed"))
	})

	t.Run("stale deletion is skipped", func(t *testing.T) {
		local := mustParse(t, localSpec)
		cs := &differ.ChangeSet{
			SafeToSync: []differ.ChangeRecord{{
				Path: document.FieldPath{"paths", "/removed"},
				Kind: differ.KindDeleted,
			}},
		}

		result, err := Apply(local, cs)
		require.NoError(t, err)
		require.Len(t, result.Skipped, 1)
	})

	t.Run("test records are applied last-write-wins", func(t *testing.T) {
		local := mustParse(t, localSpec)
		path := document.FieldPath{"paths", "/test", "get", "x-postman-tests"}
		require.True(t, local.Set(path, []any{"previous"}))

		cs := &differ.ChangeSet{
			Tests: []differ.ChangeRecord{{
				Path:     path,
				Kind:     differ.KindModified,
				NewValue: []any{"replacement"},
			}},
		}

		result, err := Apply(local, cs)
		require.NoError(t, err)
		v, _ := result.Spec.Get(path...)
		assert.Equal(t, []any{"replacement"}, v)
	})

	t.Run("reapplying is idempotent", func(t *testing.T) {
		local := mustParse(t, localSpec)
		cs := &differ.ChangeSet{
			SafeToSync: []differ.ChangeRecord{{
				Path:     document.FieldPath{"paths", "/test", "get", "description"},
				Kind:     differ.KindModified,
				NewValue: "New description",
			}},
		}

		first, err := Apply(local, cs)
		require.NoError(t, err)
		second, err := Apply(first.Spec, cs)
		require.NoError(t, err)

		a, _ := first.Spec.Marshal()
		b, _ := second.Spec.Marshal()
		assert.Equal(t, string(a), string(b))
	})

	t.Run("nil inputs are rejected", func(t *testing.T) {
		_, err := Apply(nil, &differ.ChangeSet{})
		assert.Error(t, err)

		_, err = Apply(mustParse(t, localSpec), nil)
		assert.Error(t, err)
	})
}
