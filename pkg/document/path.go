package document

import "strings"

// FieldPath locates one leaf or subtree in a document as an ordered list of
// segments, e.g. ["paths", "/users/{id}", "get", "description"]. Segments
// are the canonical form; the dotted string rendering is for display and
// audit trails. Path templates containing literal dots cannot be round-
// tripped through the dotted form, so consumers that already hold segments
// should never re-parse.
type FieldPath []string

// String renders the path in dotted form.
func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path with an additional trailing segment.
// The receiver is not modified.
func (p FieldPath) Child(segment string) FieldPath {
	child := make(FieldPath, len(p), len(p)+1)
	copy(child, p)
	return append(child, segment)
}

// HasPrefix reports whether p starts with the given prefix path.
func (p FieldPath) HasPrefix(prefix FieldPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, seg := range prefix {
		if p[i] != seg {
			return false
		}
	}
	return true
}

// Last returns the final segment, or "" for an empty path.
func (p FieldPath) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Contains reports whether any segment equals the given value.
func (p FieldPath) Contains(segment string) bool {
	for _, seg := range p {
		if seg == segment {
			return true
		}
	}
	return false
}

// ParseFieldPath splits a dotted locator into segments. It is the inverse
// of String only for paths whose segments contain no literal dots.
func ParseFieldPath(s string) FieldPath {
	if s == "" {
		return nil
	}
	return FieldPath(strings.Split(s, "."))
}
