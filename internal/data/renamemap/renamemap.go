// Package renamemap holds the ordered original→final path mapping produced by
// the asset renaming step.
package renamemap

import (
	"fmt"
	"os"

	"relink/internal/core/errors"
	"relink/internal/shared/util"

	"gopkg.in/yaml.v3"
)

// Entry is a single rename, both sides root-relative with forward slashes.
type Entry struct {
	Original string
	Final    string
}

// Map is immutable after construction and safe for concurrent reads. A nil
// *Map behaves as an empty map.
type Map struct {
	entries []Entry
	forward map[string]string
	reverse map[string]string
}

// New validates and indexes entries. Keys must be unique and finals must be
// unique; paths are normalized to the root-relative slash form.
func New(entries []Entry) (*Map, error) {
	m := &Map{
		entries: make([]Entry, 0, len(entries)),
		forward: make(map[string]string, len(entries)),
		reverse: make(map[string]string, len(entries)),
	}
	for i, e := range entries {
		original := util.NormalizeRelPath(e.Original)
		final := util.NormalizeRelPath(e.Final)
		if original == "" || final == "" {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("rename entry %d has an empty path", i))
		}
		if util.EscapesRoot(original) || util.EscapesRoot(final) {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("rename entry %q → %q escapes the project root", e.Original, e.Final))
		}
		if _, dup := m.forward[original]; dup {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("duplicate rename key %q", original))
		}
		if prev, dup := m.reverse[final]; dup {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("rename targets collide: %q and %q both map to %q", prev, original, final))
		}
		m.forward[original] = final
		m.reverse[final] = original
		m.entries = append(m.entries, Entry{Original: original, Final: final})
	}
	return m, nil
}

// Identity maps every path to itself.
func Identity(paths []string) *Map {
	m := &Map{
		forward: make(map[string]string, len(paths)),
		reverse: make(map[string]string, len(paths)),
	}
	for _, p := range paths {
		p = util.NormalizeRelPath(p)
		if p == "" {
			continue
		}
		if _, dup := m.forward[p]; dup {
			continue
		}
		m.forward[p] = p
		m.reverse[p] = p
		m.entries = append(m.entries, Entry{Original: p, Final: p})
	}
	return m
}

// Load reads a YAML or JSON mapping file. Declaration order is preserved.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "rename map not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "read rename map"), errors.CtxPath, path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return m, nil
}

// Parse decodes a single top-level mapping of original: final strings.
func Parse(data []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode rename map")
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return New(nil)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("rename map must be a mapping, found node kind %d at line %d", root.Kind, root.Line))
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("rename map line %d: keys and values must be strings", key.Line))
		}
		entries = append(entries, Entry{Original: key.Value, Final: value.Value})
	}
	return New(entries)
}

// Lookup returns the final path for an original path.
func (m *Map) Lookup(original string) (string, bool) {
	if m == nil {
		return "", false
	}
	final, ok := m.forward[original]
	return final, ok
}

// Reverse returns the original path that was renamed to final.
func (m *Map) Reverse(final string) (string, bool) {
	if m == nil {
		return "", false
	}
	original, ok := m.reverse[final]
	return original, ok
}

// Entries returns a copy of the entries in declaration order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Finals returns the final paths in declaration order.
func (m *Map) Finals() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Final)
	}
	return out
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
