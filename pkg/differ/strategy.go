package differ

import (
	"fmt"
	"strings"
)

// Strategy decides how conflicted descriptive fields are classified.
// Structural changes are blocked regardless of strategy, so a Strategy is
// consulted only for descriptive fields where baseline, local, and remote
// all hold distinct values.
type Strategy interface {
	// Name returns the strategy name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Resolve decides whether a conflicted descriptive change may be
	// applied automatically. When apply is false the record lands in
	// NeedsReview; when true it lands in SafeToSync with its conflict
	// flag retained, so the conflict is reported either way.
	Resolve(rec ChangeRecord) (apply bool, reason string)
}

// specWins retains the local value and reports the conflict for review.
type specWins struct{}

// Name returns the strategy name.
func (specWins) Name() string { return "spec-wins" }

// Description returns a human-readable description.
func (specWins) Description() string {
	return "Local specification value is retained; conflicts are reported, never applied"
}

// Resolve never applies: the author's edit is authoritative.
func (specWins) Resolve(_ ChangeRecord) (bool, string) {
	return false, "conflicting edits, spec-wins retains the local value"
}

// collectionWins applies the remote value for conflicted descriptive
// fields while still reporting the conflict.
type collectionWins struct{}

// Name returns the strategy name.
func (collectionWins) Name() string { return "collection-wins" }

// Description returns a human-readable description.
func (collectionWins) Description() string {
	return "Collection value is applied for conflicted descriptive fields; structural conflicts stay blocked"
}

// Resolve applies the remote value.
func (collectionWins) Resolve(_ ChangeRecord) (bool, string) {
	return true, "conflicting edits, collection-wins applies the collection value"
}

// SpecWins returns the default conflict strategy: local wins, conflicts
// are reported but never applied.
func SpecWins() Strategy { return specWins{} }

// CollectionWins returns the strategy that applies the collection's value
// for conflicted descriptive fields only.
func CollectionWins() Strategy { return collectionWins{} }

// StrategyByName resolves a strategy from its configured name.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "spec-wins":
		return SpecWins(), nil
	case "collection-wins":
		return CollectionWins(), nil
	default:
		return nil, fmt.Errorf("unknown conflict strategy %q", name)
	}
}
