// Package merge applies the safe bucket of a change set to a local
// specification document, producing a new document and an account of what
// was applied and what was skipped.
package merge

import (
	"fmt"
	"strings"

	"github.com/apiweave/specsync/pkg/differ"
	"github.com/apiweave/specsync/pkg/document"
	"github.com/apiweave/specsync/pkg/errors"
	"github.com/apiweave/specsync/pkg/logging"
)

// Skip records one change that could not be applied, with the reason.
type Skip struct {
	Record differ.ChangeRecord
	Reason string
}

// Result is the outcome of a merge: the merged specification plus the
// applied and skipped records. The input document is never mutated.
type Result struct {
	Spec    *document.Document
	Applied []differ.ChangeRecord
	Skipped []Skip
}

// String returns a human-readable summary of the merge result.
func (r *Result) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d applied", len(r.Applied)))
	if len(r.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", len(r.Skipped)))
	}
	return "Merge: " + strings.Join(parts, ", ")
}

// Apply applies safe changes to a clone of the local document. Records
// whose path no longer resolves in the document are skipped, never
// fabricated: intermediate containers are not created, so a stale record
// cannot reshape the specification. Test records are applied last-write-
// wins under their extension field.
//
// Apply is total over its records: an individual stale record is reported
// in Skipped rather than aborting the run.
func Apply(local *document.Document, cs *differ.ChangeSet) (*Result, error) {
	if local == nil {
		return nil, errors.NewValidationError("local", nil, "is required")
	}
	if cs == nil {
		return nil, errors.NewValidationError("changeset", nil, "is required")
	}

	result := &Result{Spec: local.Clone()}
	for _, rec := range cs.SafeToSync {
		applyRecord(result, rec)
	}
	for _, rec := range cs.Tests {
		applyRecord(result, rec)
	}

	logging.Debug().
		Int("applied", len(result.Applied)).
		Int("skipped", len(result.Skipped)).
		Msg("Merge complete")
	return result, nil
}

// applyRecord applies a single change to the result's document, recording
// the outcome.
func applyRecord(result *Result, rec differ.ChangeRecord) {
	if rec.Kind == differ.KindDeleted {
		if !result.Spec.Delete(rec.Path) {
			result.Skipped = append(result.Skipped, Skip{
				Record: rec,
				Reason: "path no longer present",
			})
			return
		}
		result.Applied = append(result.Applied, rec)
		return
	}

	if !result.Spec.Set(rec.Path, rec.NewValue) {
		result.Skipped = append(result.Skipped, Skip{
			Record: rec,
			Reason: "path no longer present",
		})
		return
	}
	result.Applied = append(result.Applied, rec)
}
