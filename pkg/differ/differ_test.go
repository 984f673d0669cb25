package differ

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiweave/specsync/pkg/collection"
	"github.com/apiweave/specsync/pkg/document"
)

const baseSpec = `openapi: 3.0.0
info:
  title: Test API
  version: 1.0.0
paths:
  /test:
    get:
      summary: Get test
      description: Old description
      responses:
        "200":
          description: OK
`

func mustParse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

// edited returns the base spec with one string substituted.
func edited(t *testing.T, old, new string) *document.Document {
	t.Helper()
	return mustParse(t, strings.Replace(baseSpec, old, new, 1))
}

func TestDetectDescriptive(t *testing.T) {
	base := mustParse(t, baseSpec)

	t.Run("remote-only change is safe to sync", func(t *testing.T) {
		local := mustParse(t, baseSpec)
		remote := edited(t, "Old description", "New description")

		cs := New().Detect(base, local, remote)
		require.Len(t, cs.SafeToSync, 1)
		assert.Empty(t, cs.NeedsReview)
		assert.Empty(t, cs.Blocked)

		rec := cs.SafeToSync[0]
		assert.Equal(t, "paths./test.get.description", rec.Path.String())
		assert.Equal(t, KindModified, rec.Kind)
		assert.Equal(t, "Old description", rec.OldValue)
		assert.Equal(t, "New description", rec.NewValue)
		assert.Equal(t, DirectionBidirectional, rec.Direction)
		assert.False(t, rec.HasConflict)
	})

	t.Run("local-only change produces no record", func(t *testing.T) {
		local := edited(t, "Old description", "Local edit")
		remote := mustParse(t, baseSpec)

		cs := New().Detect(base, local, remote)
		assert.True(t, cs.IsEmpty(), "the author's edit is authoritative")
	})

	t.Run("converged edits are safe", func(t *testing.T) {
		local := edited(t, "Old description", "Same new text")
		remote := edited(t, "Old description", "Same new text")

		cs := New().Detect(base, local, remote)
		require.Len(t, cs.SafeToSync, 1)
		assert.False(t, cs.SafeToSync[0].HasConflict)
	})

	t.Run("nothing changed", func(t *testing.T) {
		cs := New().Detect(base, mustParse(t, baseSpec), mustParse(t, baseSpec))
		assert.True(t, cs.IsEmpty())
	})
}

func TestDetectConflicts(t *testing.T) {
	base := mustParse(t, baseSpec)
	local := edited(t, "Old description", "Local edit")
	remote := edited(t, "Old description", "Remote edit")

	t.Run("spec-wins routes to needs review", func(t *testing.T) {
		cs := New().Detect(base, local, remote)
		assert.Empty(t, cs.SafeToSync)
		require.Len(t, cs.NeedsReview, 1)

		rec := cs.NeedsReview[0]
		assert.True(t, rec.HasConflict)
		assert.Equal(t, "Local edit", rec.OldValue)
		assert.Equal(t, "Remote edit", rec.NewValue)
		assert.True(t, cs.Summary().HasConflicts)
	})

	t.Run("collection-wins applies but keeps the conflict flag", func(t *testing.T) {
		cs := New(WithStrategy(CollectionWins())).Detect(base, local, remote)
		assert.Empty(t, cs.NeedsReview)
		require.Len(t, cs.SafeToSync, 1)

		rec := cs.SafeToSync[0]
		assert.True(t, rec.HasConflict, "conflicts are reported even when auto-resolved")
		assert.Equal(t, "Remote edit", rec.NewValue)
	})
}

func TestDetectStructural(t *testing.T) {
	base := mustParse(t, baseSpec)
	local := mustParse(t, baseSpec)

	t.Run("new endpoint is blocked", func(t *testing.T) {
		remote := mustParse(t, baseSpec+`  /test2:
    get:
      summary: Another endpoint
`)
		cs := New().Detect(base, local, remote)
		assert.Empty(t, cs.SafeToSync)
		require.Len(t, cs.Blocked, 1)

		rec := cs.Blocked[0]
		assert.Equal(t, "paths./test2", rec.Path.String())
		assert.Equal(t, KindAdded, rec.Kind)
		assert.Equal(t, DirectionStructuralOnly, rec.Direction)
		assert.Equal(t, "new endpoint added", rec.Reason)
	})

	t.Run("removed operation is blocked", func(t *testing.T) {
		remote := mustParse(t, `openapi: 3.0.0
info:
  title: Test API
  version: 1.0.0
paths:
  /test: {}
`)
		cs := New().Detect(base, local, remote)
		require.Len(t, cs.Blocked, 1)
		assert.Equal(t, "paths./test.get", cs.Blocked[0].Path.String())
		assert.Equal(t, KindDeleted, cs.Blocked[0].Kind)
		assert.Equal(t, "operation removed", cs.Blocked[0].Reason)
	})

	t.Run("parameter rename is blocked with a named reason", func(t *testing.T) {
		withParam := strings.Replace(baseSpec, "      responses:", `      parameters:
        - name: id
          in: query
          required: true
      responses:`, 1)
		pbase := mustParse(t, withParam)
		plocal := mustParse(t, withParam)
		premote := mustParse(t, strings.Replace(withParam, "name: id", "name: identifier", 1))

		cs := New().Detect(pbase, plocal, premote)
		require.Len(t, cs.Blocked, 1)
		assert.Equal(t, "parameter name changed", cs.Blocked[0].Reason)
	})

	t.Run("structural conflict stays blocked under collection-wins", func(t *testing.T) {
		remote := mustParse(t, baseSpec+`  /test2:
    get:
      summary: Another endpoint
`)
		locallyGrown := mustParse(t, baseSpec+`  /test2:
    post:
      summary: Conflicting shape
`)
		cs := New(WithStrategy(CollectionWins())).Detect(base, locallyGrown, remote)
		assert.Empty(t, cs.SafeToSync)
		require.Len(t, cs.Blocked, 1)
		assert.True(t, cs.Blocked[0].HasConflict)
	})
}

func TestDetectWithCollection(t *testing.T) {
	base := mustParse(t, baseSpec)
	local := mustParse(t, baseSpec)
	remote := mustParse(t, baseSpec)

	col, err := collection.Parse([]byte(`{
  "item": [{
    "name": "Get test",
    "request": {"url": "https://api.example.com/test?verbose=1", "method": "GET"},
    "event": [{"listen": "test", "script": {"exec": ["pm.test('ok', function () {", "});"]}}]
  }]
}`))
	require.NoError(t, err)

	t.Run("test scripts land in the tests bucket", func(t *testing.T) {
		cs := New().DetectWithCollection(base, local, remote, col)
		require.Len(t, cs.Tests, 1)

		rec := cs.Tests[0]
		assert.Equal(t, "paths./test.get.x-postman-tests", rec.Path.String())
		assert.Equal(t, KindAdded, rec.Kind)
		assert.Equal(t, DirectionCollectionOnly, rec.Direction)
	})

	t.Run("extension field is excluded from diffing", func(t *testing.T) {
		withExt := mustParse(t, baseSpec)
		require.True(t, withExt.Set(document.FieldPath{"paths", "/test", "get", "x-postman-tests"}, []any{"stale"}))

		cs := New().DetectWithCollection(base, withExt, remote, nil)
		assert.True(t, cs.IsEmpty())
	})

	t.Run("unmatched request is skipped", func(t *testing.T) {
		orphan, err := collection.Parse([]byte(`{
  "item": [{
    "name": "Orphan",
    "request": {"url": "/nowhere", "method": "GET"},
    "event": [{"listen": "test", "script": {"exec": ["pm.test('x');"]}}]
  }]
}`))
		require.NoError(t, err)

		cs := New().DetectWithCollection(base, local, remote, orphan)
		assert.Empty(t, cs.Tests)
	})
}

func TestDetectFromCollection(t *testing.T) {
	local := mustParse(t, baseSpec)

	col, err := collection.Parse([]byte(`{
  "item": [{
    "name": "Get test",
    "request": {"url": "/test", "method": "GET", "description": "Fresh from the collection"},
    "event": [{"listen": "test", "script": {"exec": ["pm.test('ok');"]}}]
  }]
}`))
	require.NoError(t, err)

	cs := New().DetectFromCollection(local, col)
	assert.True(t, cs.Degraded)

	require.Len(t, cs.SafeToSync, 1)
	rec := cs.SafeToSync[0]
	assert.Equal(t, "paths./test.get.description", rec.Path.String())
	assert.Equal(t, "Old description", rec.OldValue)
	assert.Equal(t, "Fresh from the collection", rec.NewValue)

	require.Len(t, cs.Tests, 1)
	assert.Contains(t, cs.String(), "degraded")
}

func TestDetectNilBaseline(t *testing.T) {
	// Without a baseline the local document stands in for it, so only
	// remote-vs-local divergence is reported.
	local := mustParse(t, baseSpec)
	remote := edited(t, "Old description", "New description")

	cs := New().Detect(nil, local, remote)
	require.Len(t, cs.SafeToSync, 1)
	assert.Equal(t, "New description", cs.SafeToSync[0].NewValue)
}

func TestChangeSetSummary(t *testing.T) {
	cs := &ChangeSet{
		SafeToSync: []ChangeRecord{{Path: document.FieldPath{"a"}}},
		Blocked:    []ChangeRecord{{Path: document.FieldPath{"b"}}, {Path: document.FieldPath{"c"}}},
	}

	s := cs.Summary()
	assert.Equal(t, 1, s.SafeToSync)
	assert.Equal(t, 2, s.Blocked)
	assert.False(t, s.HasConflicts)
	assert.True(t, cs.HasChanges())
	assert.Contains(t, cs.String(), "1 safe to sync")
	assert.Contains(t, cs.String(), "2 blocked")
}
