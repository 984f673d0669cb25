// Package document provides a generic ordered tree representation of an API
// specification document, addressed by segmented field paths.
//
// Documents are parsed with ordered mappings so that iteration order matches
// the stored order of the source file. Stored order matters: templated path
// resolution is first-match, and serialization must round-trip vendor
// extension fields without reordering keys.
package document

import (
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/apiweave/specsync/pkg/errors"
)

// Document is a specification document held as an ordered tree of mappings,
// sequences, and scalars. Mapping nodes are yaml.MapSlice, sequence nodes
// are []any. The zero value is not usable; construct via New or Parse.
type Document struct {
	root yaml.MapSlice
}

// New returns an empty document.
func New() *Document {
	return &Document{root: yaml.MapSlice{}}
}

// FromRoot wraps an existing ordered mapping as a document.
// The mapping is not copied; use Clone if the caller retains it.
func FromRoot(root yaml.MapSlice) *Document {
	if root == nil {
		root = yaml.MapSlice{}
	}
	return &Document{root: root}
}

// Parse decodes YAML or JSON data into a document. JSON is accepted because
// it is a subset of YAML; ordered mappings preserve key order either way.
func Parse(data []byte) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return New(), nil
	}

	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}

	root, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, errors.NewParseError("yaml", "", "document root must be a mapping", nil)
	}
	return &Document{root: root}, nil
}

// Marshal serializes the document as YAML, preserving stored key order.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d.root)
}

// Root returns the underlying ordered mapping. Callers must not mutate it.
func (d *Document) Root() yaml.MapSlice {
	return d.root
}

// Clone returns a deep copy of the document. The detector and merge engine
// never mutate their inputs; all writes go through a clone.
func (d *Document) Clone() *Document {
	return &Document{root: cloneValue(d.root).(yaml.MapSlice)}
}

// cloneValue deep-copies mapping and sequence nodes with an explicit work
// stack, so adversarially deep trees cannot exhaust the call stack.
// Scalars are immutable and shared.
func cloneValue(v any) any {
	root, container := cloneShallow(v)
	if !container {
		return v
	}

	stack := []any{root}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := top.(type) {
		case yaml.MapSlice:
			for i := range node {
				if child, ok := cloneShallow(node[i].Value); ok {
					node[i].Value = child
					stack = append(stack, child)
				}
			}
		case []any:
			for i := range node {
				if child, ok := cloneShallow(node[i]); ok {
					node[i] = child
					stack = append(stack, child)
				}
			}
		}
	}
	return root
}

// cloneShallow copies one container level, reporting whether the value was
// a container at all.
func cloneShallow(v any) (any, bool) {
	switch node := v.(type) {
	case yaml.MapSlice:
		out := make(yaml.MapSlice, len(node))
		copy(out, node)
		return out, true
	case []any:
		out := make([]any, len(node))
		copy(out, node)
		return out, true
	default:
		return v, false
	}
}

// Get resolves a field path and returns the value at it.
func (d *Document) Get(path ...string) (any, bool) {
	var current any = d.root
	for _, seg := range path {
		child, ok := childValue(current, seg)
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// Has reports whether a field path resolves.
func (d *Document) Has(path ...string) bool {
	_, ok := d.Get(path...)
	return ok
}

// Set writes a value at a field path. Every segment except the last must
// already resolve to a container: missing intermediate containers are never
// created, so a write against a structurally removed subtree reports false
// instead of resurrecting it. The final mapping key is created if absent.
func (d *Document) Set(path FieldPath, value any) bool {
	if len(path) == 0 {
		return false
	}
	updated, ok := setValue(d.root, path, value)
	if !ok {
		return false
	}
	d.root = updated.(yaml.MapSlice)
	return true
}

// Delete removes the value at a field path. Reports false when the path
// does not resolve.
func (d *Document) Delete(path FieldPath) bool {
	if len(path) == 0 {
		return false
	}
	updated, ok := deleteValue(d.root, path)
	if !ok {
		return false
	}
	d.root = updated.(yaml.MapSlice)
	return true
}

// Keys returns the ordered mapping keys at a field path, or nil when the
// path does not resolve to a mapping.
func (d *Document) Keys(path ...string) []string {
	v, ok := d.Get(path...)
	if !ok {
		return nil
	}
	node, ok := v.(yaml.MapSlice)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(node))
	for _, item := range node {
		keys = append(keys, keyString(item.Key))
	}
	return keys
}

// PathKeys returns the path templates under "paths" in stored order.
func (d *Document) PathKeys() []string {
	return d.Keys("paths")
}

// Operation returns the operation node for a path template and HTTP method.
// The method is lowercased to match the stored form.
func (d *Document) Operation(pathTemplate, method string) (any, bool) {
	return d.Get("paths", pathTemplate, strings.ToLower(method))
}

// Leaf is one addressable leaf field of a document.
type Leaf struct {
	Path  FieldPath
	Value any
}

// Leaves enumerates every leaf field under the given prefix in stored
// order. Empty containers count as leaves so that presence changes of empty
// subtrees are still observable. Traversal uses an explicit work stack to
// stay safe against adversarially deep trees.
func (d *Document) Leaves(prefix ...string) []Leaf {
	start, ok := d.Get(prefix...)
	if !ok {
		return nil
	}

	type frame struct {
		path  FieldPath
		value any
	}

	var leaves []Leaf
	stack := []frame{{path: FieldPath(prefix), value: start}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := top.value.(type) {
		case yaml.MapSlice:
			if len(node) == 0 {
				leaves = append(leaves, Leaf{Path: top.path, Value: node})
				continue
			}
			// Push in reverse so stored order pops first.
			for i := len(node) - 1; i >= 0; i-- {
				stack = append(stack, frame{
					path:  top.path.Child(keyString(node[i].Key)),
					value: node[i].Value,
				})
			}
		case []any:
			if len(node) == 0 {
				leaves = append(leaves, Leaf{Path: top.path, Value: node})
				continue
			}
			for i := len(node) - 1; i >= 0; i-- {
				stack = append(stack, frame{
					path:  top.path.Child(strconv.Itoa(i)),
					value: node[i],
				})
			}
		default:
			leaves = append(leaves, Leaf{Path: top.path, Value: top.value})
		}
	}

	return leaves
}

// childValue resolves one path segment against a node.
func childValue(v any, seg string) (any, bool) {
	switch node := v.(type) {
	case yaml.MapSlice:
		for _, item := range node {
			if keyString(item.Key) == seg {
				return item.Value, true
			}
		}
		return nil, false
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return node[idx], true
	default:
		return nil, false
	}
}

// setValue writes a value along a path, returning the updated node.
func setValue(v any, path FieldPath, value any) (any, bool) {
	if len(path) == 0 {
		return value, true
	}

	switch node := v.(type) {
	case yaml.MapSlice:
		for i, item := range node {
			if keyString(item.Key) == path[0] {
				child, ok := setValue(item.Value, path[1:], value)
				if !ok {
					return v, false
				}
				node[i].Value = child
				return node, true
			}
		}
		if len(path) == 1 {
			return append(node, yaml.MapItem{Key: path[0], Value: value}), true
		}
		return v, false
	case []any:
		idx, err := strconv.Atoi(path[0])
		if err != nil || idx < 0 || idx >= len(node) {
			return v, false
		}
		child, ok := setValue(node[idx], path[1:], value)
		if !ok {
			return v, false
		}
		node[idx] = child
		return node, true
	default:
		return v, false
	}
}

// deleteValue removes the value at a path, returning the updated node.
func deleteValue(v any, path FieldPath) (any, bool) {
	switch node := v.(type) {
	case yaml.MapSlice:
		for i, item := range node {
			if keyString(item.Key) != path[0] {
				continue
			}
			if len(path) == 1 {
				out := make(yaml.MapSlice, 0, len(node)-1)
				out = append(out, node[:i]...)
				out = append(out, node[i+1:]...)
				return out, true
			}
			child, ok := deleteValue(item.Value, path[1:])
			if !ok {
				return v, false
			}
			node[i].Value = child
			return node, true
		}
		return v, false
	case []any:
		idx, err := strconv.Atoi(path[0])
		if err != nil || idx < 0 || idx >= len(node) {
			return v, false
		}
		if len(path) == 1 {
			out := make([]any, 0, len(node)-1)
			out = append(out, node[:idx]...)
			out = append(out, node[idx+1:]...)
			return out, true
		}
		child, ok := deleteValue(node[idx], path[1:])
		if !ok {
			return v, false
		}
		node[idx] = child
		return node, true
	default:
		return v, false
	}
}

// keyString renders a mapping key as its string form. YAML permits
// non-string keys; dotted locators address them by rendered form.
func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	b, err := yaml.Marshal(k)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
