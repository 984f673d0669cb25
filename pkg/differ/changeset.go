// Package differ provides three-way change detection between a baseline,
// a local specification, and a remote specification re-derived from a
// collection, producing a change set classified by safety and direction.
package differ

import (
	"fmt"
	"strings"

	"github.com/apiweave/specsync/pkg/document"
)

// Kind represents the kind of change at a field.
type Kind string

const (
	// KindAdded indicates a field appeared.
	KindAdded Kind = "added"
	// KindModified indicates a field value changed.
	KindModified Kind = "modified"
	// KindDeleted indicates a field disappeared.
	KindDeleted Kind = "deleted"
)

// Direction describes which way a change may safely flow.
type Direction string

const (
	// DirectionBidirectional marks descriptive metadata safe to flow
	// either way.
	DirectionBidirectional Direction = "bidirectional"
	// DirectionCollectionOnly marks data only meaningful when sourced
	// from the collection, such as test scripts.
	DirectionCollectionOnly Direction = "collection-only"
	// DirectionStructuralOnly marks schema-shape changes that are never
	// auto-applied.
	DirectionStructuralOnly Direction = "structural-only"
)

// ChangeRecord is one detected divergence at a field path.
type ChangeRecord struct {
	Path        document.FieldPath
	Kind        Kind
	OldValue    any
	NewValue    any
	Direction   Direction
	Reason      string
	HasConflict bool
}

// ChangeSet is the classified outcome of change detection: four disjoint
// ordered buckets plus a degraded-mode flag.
type ChangeSet struct {
	// SafeToSync holds descriptive changes that may be applied
	// automatically.
	SafeToSync []ChangeRecord

	// NeedsReview holds descriptive conflicts awaiting a human decision.
	NeedsReview []ChangeRecord

	// Blocked holds structural changes, never auto-applied.
	Blocked []ChangeRecord

	// Tests holds test scripts extracted from the collection.
	Tests []ChangeRecord

	// Degraded is set when the remote specification was unavailable and
	// only collection extraction ran instead of the full three-way diff.
	Degraded bool
}

// Summary provides counts per bucket and an overall conflict flag.
type Summary struct {
	SafeToSync   int  `json:"safeToSync"`
	NeedsReview  int  `json:"needsReview"`
	Blocked      int  `json:"blocked"`
	Tests        int  `json:"tests"`
	HasConflicts bool `json:"hasConflicts"`
}

// Summary computes the derived summary for the change set.
func (c *ChangeSet) Summary() Summary {
	s := Summary{
		SafeToSync:  len(c.SafeToSync),
		NeedsReview: len(c.NeedsReview),
		Blocked:     len(c.Blocked),
		Tests:       len(c.Tests),
	}
	for _, rec := range c.records() {
		if rec.HasConflict {
			s.HasConflicts = true
			break
		}
	}
	return s
}

// HasChanges returns true if any bucket is non-empty.
func (c *ChangeSet) HasChanges() bool {
	return len(c.SafeToSync)+len(c.NeedsReview)+len(c.Blocked)+len(c.Tests) > 0
}

// IsEmpty returns true if every bucket is empty.
func (c *ChangeSet) IsEmpty() bool {
	return !c.HasChanges()
}

// records returns all records across buckets.
func (c *ChangeSet) records() []ChangeRecord {
	out := make([]ChangeRecord, 0, len(c.SafeToSync)+len(c.NeedsReview)+len(c.Blocked)+len(c.Tests))
	out = append(out, c.SafeToSync...)
	out = append(out, c.NeedsReview...)
	out = append(out, c.Blocked...)
	out = append(out, c.Tests...)
	return out
}

// String returns a human-readable summary of the change set.
func (c *ChangeSet) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	s := c.Summary()
	var parts []string
	if s.SafeToSync > 0 {
		parts = append(parts, fmt.Sprintf("%d safe to sync", s.SafeToSync))
	}
	if s.NeedsReview > 0 {
		parts = append(parts, fmt.Sprintf("%d need review", s.NeedsReview))
	}
	if s.Blocked > 0 {
		parts = append(parts, fmt.Sprintf("%d blocked", s.Blocked))
	}
	if s.Tests > 0 {
		parts = append(parts, fmt.Sprintf("%d test scripts", s.Tests))
	}

	out := fmt.Sprintf("Changes: %s", strings.Join(parts, ", "))
	if c.Degraded {
		out += " (degraded: collection extraction only)"
	}
	return out
}
