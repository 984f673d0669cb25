// Package collection models a request collection: a tree of folders and
// request items, each request optionally carrying a description and
// test-listener scripts.
//
// Collections arrive as JSON exports; parsing goes through YAML decoding,
// of which JSON is a subset, so both serializations are accepted.
package collection

import (
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/apiweave/specsync/pkg/errors"
)

// ListenTest is the event listener name for test scripts.
const ListenTest = "test"

// Collection is the root of a request collection.
type Collection struct {
	Info  Info   `yaml:"info"`
	Items []Item `yaml:"item"`
}

// Info describes a collection.
type Info struct {
	Name   string `yaml:"name"`
	Schema string `yaml:"schema"`
}

// Item is either a folder (non-empty Items) or a request.
type Item struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Request     *Request `yaml:"request"`
	Events      []Event  `yaml:"event"`
	Items       []Item   `yaml:"item"`
}

// Request is an executable request within a collection item.
type Request struct {
	URL         URL    `yaml:"url"`
	Method      string `yaml:"method"`
	Description string `yaml:"description"`
}

// Event attaches a script to a listener (e.g. "test", "prerequest").
type Event struct {
	Listen string  `yaml:"listen"`
	Script *Script `yaml:"script"`
}

// Script holds script source as an ordered sequence of lines.
type Script struct {
	Type string   `yaml:"type"`
	Exec []string `yaml:"exec"`
}

// URL is a request URL, serialized either as a plain string or as an
// object with raw and path fields.
type URL struct {
	Raw  string
	Path []string
}

// UnmarshalYAML accepts both the string and the object form of a URL.
func (u *URL) UnmarshalYAML(data []byte) error {
	var s string
	if err := yaml.Unmarshal(data, &s); err == nil {
		u.Raw = s
		return nil
	}

	var obj struct {
		Raw  string   `yaml:"raw"`
		Path []string `yaml:"path"`
	}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return err
	}
	u.Raw = obj.Raw
	u.Path = obj.Path
	return nil
}

// MarshalYAML serializes the URL in its raw string form when available.
func (u URL) MarshalYAML() ([]byte, error) {
	if u.Raw != "" || len(u.Path) == 0 {
		return yaml.Marshal(u.Raw)
	}
	return yaml.Marshal(map[string][]string{"path": u.Path})
}

// PathString extracts the concrete request path, stripping scheme, host,
// query, and fragment from the raw URL. Falls back to the path segment
// list when no raw form is present.
func (u URL) PathString() string {
	raw := u.Raw
	if raw == "" {
		if len(u.Path) == 0 {
			return ""
		}
		return "/" + strings.Join(u.Path, "/")
	}

	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
		if j := strings.IndexByte(raw, '/'); j >= 0 {
			raw = raw[j:]
		} else {
			raw = "/"
		}
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return raw
}

// Parse decodes a collection from JSON or YAML data.
func Parse(data []byte) (*Collection, error) {
	var col Collection
	if err := yaml.Unmarshal(data, &col); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	return &col, nil
}

// Walk visits every item depth-first in stored order, folders before their
// children. The visitor returns false to stop the walk. Traversal uses an
// explicit work stack to stay safe against adversarially deep trees.
func (c *Collection) Walk(visit func(item *Item) bool) {
	stack := make([]*Item, 0, len(c.Items))
	for i := len(c.Items) - 1; i >= 0; i-- {
		stack = append(stack, &c.Items[i])
	}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visit(item) {
			return
		}

		for i := len(item.Items) - 1; i >= 0; i-- {
			stack = append(stack, &item.Items[i])
		}
	}
}

// Requests returns every well-formed request item depth-first in stored
// order. Items with no request or no resolvable URL path are skipped so
// one malformed item cannot abort discovery of the others.
func (c *Collection) Requests() []*Item {
	var out []*Item
	c.Walk(func(item *Item) bool {
		if item.Request == nil {
			return true
		}
		if item.Request.URL.PathString() == "" || item.Request.Method == "" {
			return true
		}
		out = append(out, item)
		return true
	})
	return out
}

// TestScripts returns the item's test-listener scripts in stored order.
// Events with a different listener or no script body are ignored.
func (i *Item) TestScripts() []Script {
	var out []Script
	for _, ev := range i.Events {
		if ev.Listen != ListenTest || ev.Script == nil {
			continue
		}
		if len(ev.Script.Exec) == 0 {
			continue
		}
		out = append(out, *ev.Script)
	}
	return out
}
