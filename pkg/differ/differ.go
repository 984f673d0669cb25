package differ

import (
	"fmt"

	"github.com/apiweave/specsync/pkg/collection"
	"github.com/apiweave/specsync/pkg/document"
	"github.com/apiweave/specsync/pkg/extensions"
	"github.com/apiweave/specsync/pkg/logging"
	"github.com/apiweave/specsync/pkg/pathmatch"
)

// descriptiveFields are leaf names that carry free-text documentation.
// Everything outside this set is treated as structural.
var descriptiveFields = map[string]bool{
	"description": true,
	"summary":     true,
	"title":       true,
	"example":     true,
	"examples":    true,
}

// httpMethods are the operation keys recognized under a path item.
var httpMethods = map[string]bool{
	"get":     true,
	"put":     true,
	"post":    true,
	"delete":  true,
	"options": true,
	"head":    true,
	"patch":   true,
	"trace":   true,
}

// Differ performs three-way change detection. It never mutates its input
// documents and carries no state between runs beyond its configuration.
type Differ struct {
	strategy     Strategy
	extensionKey string
}

// Option configures a Differ.
type Option func(*Differ)

// WithStrategy sets the conflict strategy consulted for descriptive
// conflicts. Defaults to SpecWins.
func WithStrategy(s Strategy) Option {
	return func(d *Differ) {
		if s != nil {
			d.strategy = s
		}
	}
}

// WithExtensionKey overrides the reserved vendor extension field excluded
// from leaf diffing and used for test script records.
func WithExtensionKey(key string) Option {
	return func(d *Differ) {
		if key != "" {
			d.extensionKey = key
		}
	}
}

// New creates a Differ with the given options.
func New(opts ...Option) *Differ {
	d := &Differ{
		strategy:     SpecWins(),
		extensionKey: extensions.DefaultKey,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs the three-way diff over baseline, local, and remote
// specifications. A nil baseline defaults to local, so a first run
// surfaces only remote-vs-local divergence.
func (d *Differ) Detect(baseline, local, remote *document.Document) *ChangeSet {
	return d.DetectWithCollection(baseline, local, remote, nil)
}

// DetectWithCollection runs the three-way diff and additionally extracts
// operation-level test scripts from the raw collection. Test scripts have
// no counterpart in the baseline or local document, so they bypass the
// equality table and always land in the Tests bucket.
func (d *Differ) DetectWithCollection(baseline, local, remote *document.Document, col *collection.Collection) *ChangeSet {
	if local == nil {
		local = document.New()
	}
	if remote == nil {
		remote = document.New()
	}
	if baseline == nil {
		baseline = local
	}

	cs := &ChangeSet{}

	templates := orderedUnion(baseline.PathKeys(), local.PathKeys(), remote.PathKeys())
	for _, template := range templates {
		b := valueAt(baseline, "paths", template)
		l := valueAt(local, "paths", template)
		r := valueAt(remote, "paths", template)

		if b.ok && l.ok && r.ok {
			d.diffPathItem(cs, template, baseline, local, remote)
			continue
		}
		d.classify(cs, document.FieldPath{"paths", template}, b, l, r, true)
	}

	d.extractTests(cs, local, col, false)
	return cs
}

// DetectFromCollection is the degraded mode used when the remote
// specification is unavailable: it extracts request descriptions and test
// scripts directly from the collection, skipping the three-way diff. All
// extracted descriptions are classified safe; precision is traded for
// availability and the result is flagged Degraded.
func (d *Differ) DetectFromCollection(local *document.Document, col *collection.Collection) *ChangeSet {
	if local == nil {
		local = document.New()
	}

	cs := &ChangeSet{Degraded: true}
	if col == nil {
		return cs
	}

	for _, item := range col.Requests() {
		req := item.Request
		desc := req.Description
		if desc == "" {
			desc = item.Description
		}
		if desc == "" {
			continue
		}

		opPath, ok := pathmatch.FindOperation(local, req.URL.PathString(), req.Method)
		if !ok {
			logging.Debug().
				Str("path", req.URL.PathString()).
				Str("method", req.Method).
				Msg("No matching operation for collection request")
			continue
		}

		fieldPath := opPath.Child("description")
		current, has := local.Get(fieldPath...)
		if has && document.Equal(current, desc) {
			continue
		}

		rec := ChangeRecord{
			Path:      fieldPath,
			Kind:      KindModified,
			OldValue:  current,
			NewValue:  desc,
			Direction: DirectionBidirectional,
			Reason:    "degraded extraction: request description from collection",
		}
		if !has {
			rec.Kind = KindAdded
		}
		cs.SafeToSync = append(cs.SafeToSync, rec)
	}

	d.extractTests(cs, local, col, true)
	return cs
}

// diffPathItem compares a path item present in all three documents,
// walking operation presence before descending into leaf fields.
func (d *Differ) diffPathItem(cs *ChangeSet, template string, baseline, local, remote *document.Document) {
	keys := orderedUnion(
		baseline.Keys("paths", template),
		local.Keys("paths", template),
		remote.Keys("paths", template),
	)

	for _, key := range keys {
		path := document.FieldPath{"paths", template, key}
		b := valueAt(baseline, path...)
		l := valueAt(local, path...)
		r := valueAt(remote, path...)

		if b.ok && l.ok && r.ok {
			d.diffSubtree(cs, path, baseline, local, remote)
			continue
		}
		d.classify(cs, path, b, l, r, !descriptivePath(path))
	}
}

// diffSubtree compares a subtree present in all three documents by
// enumerating the union of its leaf fields.
func (d *Differ) diffSubtree(cs *ChangeSet, prefix document.FieldPath, baseline, local, remote *document.Document) {
	paths := orderedLeafUnion(
		baseline.Leaves(prefix...),
		local.Leaves(prefix...),
		remote.Leaves(prefix...),
	)

	for _, path := range paths {
		if path.Contains(d.extensionKey) {
			continue
		}
		b := valueAt(baseline, path...)
		l := valueAt(local, path...)
		r := valueAt(remote, path...)
		d.classify(cs, path, b, l, r, !descriptivePath(path))
	}
}

// classify applies the three-way equality table to one field and appends
// the resulting record, if any, to the change set.
func (d *Differ) classify(cs *ChangeSet, path document.FieldPath, b, l, r presence, structural bool) {
	baseEqLocal := b.equals(l)
	baseEqRemote := b.equals(r)

	if baseEqLocal && baseEqRemote {
		return // no change
	}
	if !baseEqLocal && baseEqRemote {
		return // local changed only: the author's edit is authoritative
	}

	rec := ChangeRecord{
		Path:     path,
		Kind:     changeKind(l, r),
		OldValue: l.value,
		NewValue: r.value,
	}

	if baseEqLocal {
		// Remote changed only: a candidate for syncing.
		if structural {
			rec.Direction = DirectionStructuralOnly
			rec.Reason = structuralReason(path, rec.Kind)
			cs.Blocked = append(cs.Blocked, rec)
			return
		}
		rec.Direction = DirectionBidirectional
		rec.Reason = "collection changed only"
		cs.SafeToSync = append(cs.SafeToSync, rec)
		return
	}

	// Both sides changed.
	if l.equals(r) {
		// Converged independently: applying is an idempotent no-op.
		rec.Direction = DirectionBidirectional
		rec.Reason = "local and collection converged"
		cs.SafeToSync = append(cs.SafeToSync, rec)
		return
	}

	// True divergence.
	rec.HasConflict = true
	if structural {
		rec.Direction = DirectionStructuralOnly
		rec.Reason = structuralReason(path, rec.Kind) + " (conflicting edits)"
		cs.Blocked = append(cs.Blocked, rec)
		return
	}

	rec.Direction = DirectionBidirectional
	apply, reason := d.strategy.Resolve(rec)
	rec.Reason = reason
	if apply {
		cs.SafeToSync = append(cs.SafeToSync, rec)
		return
	}
	cs.NeedsReview = append(cs.NeedsReview, rec)
}

// extractTests pulls test-listener scripts off collection requests and
// records them against the matching operations.
func (d *Differ) extractTests(cs *ChangeSet, local *document.Document, col *collection.Collection, degraded bool) {
	if col == nil {
		return
	}

	for _, item := range col.Requests() {
		scripts := item.TestScripts()
		if len(scripts) == 0 {
			continue
		}

		opPath, ok := pathmatch.FindOperation(local, item.Request.URL.PathString(), item.Request.Method)
		if !ok {
			logging.Debug().
				Str("item", item.Name).
				Str("path", item.Request.URL.PathString()).
				Msg("No matching operation for test scripts")
			continue
		}

		fieldPath := opPath.Child(d.extensionKey)
		current, has := local.Get(fieldPath...)
		value := extensions.FromScripts(item.Name, scripts)
		if has && document.Equal(current, value) {
			continue
		}

		rec := ChangeRecord{
			Path:      fieldPath,
			Kind:      KindAdded,
			NewValue:  value,
			Direction: DirectionCollectionOnly,
			Reason:    "test scripts extracted from collection",
		}
		if has {
			rec.Kind = KindModified
			rec.OldValue = current
		}
		if degraded {
			rec.Reason = "degraded extraction: " + rec.Reason
		}
		cs.Tests = append(cs.Tests, rec)
	}
}

// presence is a field value together with whether the field resolved.
// Missing fields are present-with-undefined for the equality table.
type presence struct {
	value any
	ok    bool
}

// equals compares two presences; two absent fields are equal.
func (p presence) equals(other presence) bool {
	if p.ok != other.ok {
		return false
	}
	return !p.ok || document.Equal(p.value, other.value)
}

// valueAt resolves a field path against a document.
func valueAt(doc *document.Document, path ...string) presence {
	v, ok := doc.Get(path...)
	return presence{value: v, ok: ok}
}

// changeKind derives the change kind from local and remote presence.
func changeKind(l, r presence) Kind {
	switch {
	case !l.ok && r.ok:
		return KindAdded
	case l.ok && !r.ok:
		return KindDeleted
	default:
		return KindModified
	}
}

// descriptivePath reports whether a field path addresses free-text
// documentation rather than contract shape.
func descriptivePath(path document.FieldPath) bool {
	if descriptiveFields[path.Last()] {
		return true
	}
	// Anything nested under an example block is documentation.
	return path.Contains("examples") || path.Contains("example")
}

// structuralReason names the structural dimension a blocked change
// touches.
func structuralReason(path document.FieldPath, kind Kind) string {
	if len(path) == 2 && path[0] == "paths" {
		switch kind {
		case KindAdded:
			return "new endpoint added"
		case KindDeleted:
			return "endpoint removed"
		default:
			return "endpoint changed"
		}
	}

	if len(path) == 3 && path[0] == "paths" && httpMethods[path.Last()] {
		switch kind {
		case KindAdded:
			return "operation added"
		case KindDeleted:
			return "operation removed"
		default:
			return "operation changed"
		}
	}

	last := path.Last()
	if path.Contains("parameters") {
		switch last {
		case "name", "in", "required", "type":
			return fmt.Sprintf("parameter %s changed", last)
		}
		return "parameter shape changed"
	}
	if path.Contains("responses") {
		if last == "type" {
			return "response schema type changed"
		}
		return "response shape changed"
	}
	return "structural field changed"
}

// orderedUnion merges string slices preserving first-appearance order.
func orderedUnion(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// orderedLeafUnion merges leaf enumerations preserving first-appearance
// order of their field paths.
func orderedLeafUnion(lists ...[]document.Leaf) []document.FieldPath {
	var out []document.FieldPath
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, leaf := range list {
			key := leaf.Path.String()
			if !seen[key] {
				seen[key] = true
				out = append(out, leaf.Path)
			}
		}
	}
	return out
}
