package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/apiweave/specsync/pkg/differ"
)

// titleCaser renders bucket names as headings.
var titleCaser = cases.Title(language.English)

// kindSymbols prefix each rendered change record.
var kindSymbols = map[differ.Kind]string{
	differ.KindAdded:    "+",
	differ.KindModified: "~",
	differ.KindDeleted:  "-",
}

// jsonRecord is the JSON serialization of a change record.
type jsonRecord struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	OldValue    any    `json:"oldValue,omitempty"`
	NewValue    any    `json:"newValue,omitempty"`
	Direction   string `json:"direction"`
	Reason      string `json:"reason,omitempty"`
	HasConflict bool   `json:"hasConflict,omitempty"`
}

// jsonChangeSet is the JSON serialization of a detection run.
type jsonChangeSet struct {
	Spec        string         `json:"spec"`
	Summary     differ.Summary `json:"summary"`
	SafeToSync  []jsonRecord   `json:"safeToSync,omitempty"`
	NeedsReview []jsonRecord   `json:"needsReview,omitempty"`
	Blocked     []jsonRecord   `json:"blocked,omitempty"`
	Tests       []jsonRecord   `json:"tests,omitempty"`
	Degraded    bool           `json:"degraded,omitempty"`
}

// renderChangeSet writes a change set in the requested output format.
func renderChangeSet(w io.Writer, specPath string, cs *differ.ChangeSet, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonChangeSet{
			Spec:        specPath,
			Summary:     cs.Summary(),
			SafeToSync:  jsonRecords(cs.SafeToSync),
			NeedsReview: jsonRecords(cs.NeedsReview),
			Blocked:     jsonRecords(cs.Blocked),
			Tests:       jsonRecords(cs.Tests),
			Degraded:    cs.Degraded,
		})
	}

	fmt.Fprintf(w, "%s: %s\n", specPath, cs)
	renderBucket(w, "safe to sync", cs.SafeToSync)
	renderBucket(w, "needs review", cs.NeedsReview)
	renderBucket(w, "blocked", cs.Blocked)
	renderBucket(w, "tests", cs.Tests)
	return nil
}

// renderBucket writes one bucket of change records as indented text.
func renderBucket(w io.Writer, name string, records []differ.ChangeRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", titleCaser.String(name))
	for _, rec := range records {
		line := fmt.Sprintf("    %s %s", kindSymbols[rec.Kind], rec.Path)
		if rec.Kind == differ.KindModified && isScalar(rec.OldValue) && isScalar(rec.NewValue) {
			line += fmt.Sprintf(": %v -> %v", rec.OldValue, rec.NewValue)
		}
		if rec.Reason != "" {
			line += fmt.Sprintf(" (%s)", rec.Reason)
		}
		if rec.HasConflict {
			line += " [conflict]"
		}
		fmt.Fprintln(w, line)
	}
}

// jsonRecords converts change records for JSON output.
func jsonRecords(records []differ.ChangeRecord) []jsonRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]jsonRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, jsonRecord{
			Path:        rec.Path.String(),
			Kind:        string(rec.Kind),
			OldValue:    plain(rec.OldValue),
			NewValue:    plain(rec.NewValue),
			Direction:   string(rec.Direction),
			Reason:      rec.Reason,
			HasConflict: rec.HasConflict,
		})
	}
	return out
}

// plain converts ordered-mapping tree values into generic maps and slices
// so they serialize as JSON objects rather than key/value pair lists.
func plain(v any) any {
	switch val := v.(type) {
	case yaml.MapSlice:
		out := make(map[string]any, len(val))
		for _, item := range val {
			out[fmt.Sprintf("%v", item.Key)] = plain(item.Value)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, plain(item))
		}
		return out
	default:
		return v
	}
}

// isScalar reports whether a value renders usefully on one line.
func isScalar(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return !strings.Contains(val, "\n")
	case bool, int, int64, uint64, float32, float64:
		return true
	default:
		return false
	}
}
