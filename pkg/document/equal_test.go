package document

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a    any
		b    any
		want bool
	}{
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"nil both", nil, nil, true},
		{"nil one side", nil, "a", false},
		{"int vs uint64", int(3), uint64(3), true},
		{"int vs float", int64(3), float64(3), true},
		{"different numbers", uint64(3), uint64(4), false},
		{"number vs string", uint64(3), "3", false},
		{
			"mapping key order ignored",
			yaml.MapSlice{{Key: "a", Value: 1}, {Key: "b", Value: 2}},
			yaml.MapSlice{{Key: "b", Value: 2}, {Key: "a", Value: 1}},
			true,
		},
		{
			"mapping value differs",
			yaml.MapSlice{{Key: "a", Value: 1}},
			yaml.MapSlice{{Key: "a", Value: 2}},
			false,
		},
		{
			"mapping key missing",
			yaml.MapSlice{{Key: "a", Value: 1}, {Key: "b", Value: 2}},
			yaml.MapSlice{{Key: "a", Value: 1}},
			false,
		},
		{
			"sequence order matters",
			[]any{"a", "b"},
			[]any{"b", "a"},
			false,
		},
		{
			"nested equal",
			yaml.MapSlice{{Key: "items", Value: []any{yaml.MapSlice{{Key: "n", Value: uint64(1)}}}}},
			yaml.MapSlice{{Key: "items", Value: []any{yaml.MapSlice{{Key: "n", Value: int(1)}}}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal must be symmetric")
		})
	}
}

func TestFieldPath(t *testing.T) {
	p := FieldPath{"paths", "/users/{id}", "get", "description"}

	assert.Equal(t, "paths./users/{id}.get.description", p.String())
	assert.Equal(t, "description", p.Last())
	assert.True(t, p.HasPrefix(FieldPath{"paths", "/users/{id}"}))
	assert.False(t, p.HasPrefix(FieldPath{"paths", "/other"}))
	assert.True(t, p.Contains("get"))
	assert.False(t, p.Contains("post"))

	child := p[:2].Child("post")
	assert.Equal(t, FieldPath{"paths", "/users/{id}", "post"}, child)
	assert.Equal(t, "description", p.Last(), "Child must not alias the parent's backing array")
}
