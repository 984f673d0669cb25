package document

import "github.com/goccy/go-yaml"

// maxEqualDepth bounds Equal's recursion. Specification documents are a
// few dozen levels deep at most; anything past the bound is adversarial
// input and compares unequal.
const maxEqualDepth = 1024

// Equal reports deep equality of two document values. Mapping key order is
// insignificant: two mappings with the same key/value pairs compare equal
// regardless of stored order, so a reordered file does not read as changed.
// Numeric scalars compare by value across integer and float decodings.
// Trees nested deeper than maxEqualDepth compare unequal.
func Equal(a, b any) bool {
	return equalAtDepth(a, b, 0)
}

func equalAtDepth(a, b any, depth int) bool {
	if depth >= maxEqualDepth {
		return false
	}

	switch av := a.(type) {
	case yaml.MapSlice:
		bv, ok := b.(yaml.MapSlice)
		if !ok || len(av) != len(bv) {
			return false
		}
		for _, item := range av {
			other, found := lookup(bv, keyString(item.Key))
			if !found || !equalAtDepth(item.Value, other, depth+1) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalAtDepth(av[i], bv[i], depth+1) {
				return false
			}
		}
		return true
	default:
		if af, aok := numeric(a); aok {
			if bf, bok := numeric(b); bok {
				return af == bf
			}
			return false
		}
		return a == b
	}
}

// lookup finds a key in an ordered mapping by rendered form.
func lookup(node yaml.MapSlice, key string) (any, bool) {
	for _, item := range node {
		if keyString(item.Key) == key {
			return item.Value, true
		}
	}
	return nil, false
}

// numeric converts integer and float scalar decodings to a comparable form.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
