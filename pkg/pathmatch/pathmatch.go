// Package pathmatch maps a collection's concrete request paths to a
// specification's templated paths.
//
// Resolution against a document is first-match in the stored order of the
// specification's paths. Overlapping templates (e.g. /users/{id} and
// /users/me) therefore resolve by declaration order, not by specificity;
// callers that need specificity must order their templates accordingly.
package pathmatch

import (
	"strings"

	"github.com/apiweave/specsync/pkg/document"
)

// Match reports whether a templated specification path matches a concrete
// request path. Both are split on "/"; segment counts must match exactly, a
// {name} template segment matches any single concrete segment, and all
// other segments must be literally equal.
func Match(template, concrete string) bool {
	ts := segments(template)
	cs := segments(concrete)
	if len(ts) != len(cs) {
		return false
	}
	for i, t := range ts {
		if isParam(t) {
			continue
		}
		if t != cs[i] {
			return false
		}
	}
	return true
}

// FindOperation locates the operation a concrete path and HTTP method
// document, iterating the specification's path templates in stored order
// and returning the field path of the first operation whose template
// matches and whose lowercased method is present.
func FindOperation(doc *document.Document, concretePath, method string) (document.FieldPath, bool) {
	m := strings.ToLower(method)
	for _, template := range doc.PathKeys() {
		if !Match(template, concretePath) {
			continue
		}
		if doc.Has("paths", template, m) {
			return document.FieldPath{"paths", template, m}, true
		}
	}
	return nil, false
}

// segments splits a path on "/", ignoring leading/trailing slashes and
// empty segments from doubled slashes.
func segments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// isParam reports whether a template segment is of the form {name}.
func isParam(seg string) bool {
	return len(seg) >= 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}
