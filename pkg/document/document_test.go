package document

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `openapi: 3.0.0
info:
  title: Test API
  version: 1.0.0
paths:
  /users/{id}:
    get:
      summary: Get user
      description: Returns a user
  /users/me:
    get:
      summary: Get current user
  /health:
    get:
      summary: Health check
`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestParse(t *testing.T) {
	t.Run("preserves stored key order", func(t *testing.T) {
		doc := mustParse(t, sampleSpec)
		assert.Equal(t, []string{"/users/{id}", "/users/me", "/health"}, doc.PathKeys())
	})

	t.Run("accepts JSON input", func(t *testing.T) {
		doc := mustParse(t, `{"info": {"title": "From JSON"}, "paths": {"/a": {}}}`)
		v, ok := doc.Get("info", "title")
		require.True(t, ok)
		assert.Equal(t, "From JSON", v)
	})

	t.Run("empty input yields empty document", func(t *testing.T) {
		doc := mustParse(t, "")
		assert.Empty(t, doc.PathKeys())
	})

	t.Run("rejects non-mapping root", func(t *testing.T) {
		_, err := Parse([]byte("- a\n- b\n"))
		assert.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	doc := mustParse(t, sampleSpec)

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested scalar", []string{"paths", "/users/{id}", "get", "summary"}, "Get user", true},
		{"mapping node", []string{"info", "title"}, "Test API", true},
		{"missing key", []string{"paths", "/missing"}, nil, false},
		{"path through scalar", []string{"info", "title", "deeper"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := doc.Get(tt.path...)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestSet(t *testing.T) {
	t.Run("updates existing value", func(t *testing.T) {
		doc := mustParse(t, sampleSpec)
		path := FieldPath{"paths", "/health", "get", "summary"}
		require.True(t, doc.Set(path, "Liveness check"))

		v, ok := doc.Get(path...)
		require.True(t, ok)
		assert.Equal(t, "Liveness check", v)
	})

	t.Run("creates final key on existing container", func(t *testing.T) {
		doc := mustParse(t, sampleSpec)
		path := FieldPath{"paths", "/health", "get", "description"}
		require.True(t, doc.Set(path, "Returns service health"))
		assert.True(t, doc.Has(path...))
	})

	t.Run("never creates intermediate containers", func(t *testing.T) {
		doc := mustParse(t, sampleSpec)
		path := FieldPath{"paths", "/gone", "get", "description"}
		assert.False(t, doc.Set(path, "stale"))
		assert.False(t, doc.Has("paths", "/gone"))
	})

	t.Run("indexes into sequences", func(t *testing.T) {
		doc := mustParse(t, `items:
  - name: first
  - name: second
`)
		require.True(t, doc.Set(FieldPath{"items", "1", "name"}, "renamed"))
		v, _ := doc.Get("items", "1", "name")
		assert.Equal(t, "renamed", v)

		assert.False(t, doc.Set(FieldPath{"items", "5", "name"}, "oob"))
	})
}

func TestDelete(t *testing.T) {
	doc := mustParse(t, sampleSpec)

	require.True(t, doc.Delete(FieldPath{"paths", "/users/me"}))
	assert.Equal(t, []string{"/users/{id}", "/health"}, doc.PathKeys())

	assert.False(t, doc.Delete(FieldPath{"paths", "/users/me"}))
}

func TestClone(t *testing.T) {
	doc := mustParse(t, sampleSpec)
	clone := doc.Clone()

	require.True(t, clone.Set(FieldPath{"info", "title"}, "Mutated"))

	v, _ := doc.Get("info", "title")
	assert.Equal(t, "Test API", v, "clone writes must not reach the original")

	v, _ = clone.Get("info", "title")
	assert.Equal(t, "Mutated", v)
}

func TestLeaves(t *testing.T) {
	doc := mustParse(t, `paths:
  /a:
    get:
      summary: A
      responses:
        "200":
          description: OK
  /b:
    empty: {}
`)

	t.Run("stored order", func(t *testing.T) {
		leaves := doc.Leaves("paths", "/a", "get")
		var got []string
		for _, leaf := range leaves {
			got = append(got, leaf.Path.String())
		}
		assert.Equal(t, []string{
			"paths./a.get.summary",
			"paths./a.get.responses.200.description",
		}, got)
	})

	t.Run("empty containers are leaves", func(t *testing.T) {
		leaves := doc.Leaves("paths", "/b")
		require.Len(t, leaves, 1)
		assert.Equal(t, "paths./b.empty", leaves[0].Path.String())
	})

	t.Run("missing prefix", func(t *testing.T) {
		assert.Nil(t, doc.Leaves("paths", "/missing"))
	})
}

// nested builds a mapping tree of the given depth with a scalar at the
// bottom.
func nested(depth int, leaf any) yaml.MapSlice {
	v := leaf
	for i := 0; i < depth; i++ {
		v = yaml.MapSlice{{Key: "child", Value: v}}
	}
	return yaml.MapSlice{{Key: "root", Value: v}}
}

func TestCloneDeepTree(t *testing.T) {
	doc := FromRoot(nested(5000, "bottom"))
	clone := doc.Clone()

	// Mutate the deepest node of the clone; the original must not see it.
	node := clone.Root()[0].Value.(yaml.MapSlice)
	for {
		child, ok := node[0].Value.(yaml.MapSlice)
		if !ok {
			break
		}
		node = child
	}
	node[0].Value = "mutated"

	v, ok := doc.Get(append(FieldPath{"root"}, repeat("child", 5000)...)...)
	require.True(t, ok)
	assert.Equal(t, "bottom", v)
}

func TestEqualDepthBound(t *testing.T) {
	shallow := nested(10, "leaf")
	assert.True(t, Equal(shallow, nested(10, "leaf")))

	deep := nested(2000, "leaf")
	assert.False(t, Equal(deep, nested(2000, "leaf")), "past the depth bound values compare unequal")
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := mustParse(t, sampleSpec)
	require.True(t, doc.Set(FieldPath{"paths", "/health", "get", "x-postman-tests"}, []any{
		yaml.MapSlice{
			{Key: "name", Value: "health ok"},
			{Key: "script", Value: []any{"pm.test('ok');"}},
		},
	}))

	data, err := doc.Marshal()
	require.NoError(t, err)

	again := mustParse(t, string(data))
	assert.Equal(t, doc.PathKeys(), again.PathKeys(), "key order must survive serialization")
	assert.True(t, again.Has("paths", "/health", "get", "x-postman-tests", "0", "script", "0"))
}
