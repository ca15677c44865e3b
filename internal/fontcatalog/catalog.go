// Package fontcatalog scans font directories, builds per-face codepoint
// coverage, and exposes a registry of canonically-named font sources for the
// glyph range builder (spec.md §4.2).
//
// Adapted from the teacher's font/book.go (FontBook's RWMutex-guarded map
// and Add/Len/Fonts accessor shape) and font/loader.go (TTC/TTF face
// iteration), generalized from font-matching by family/variant to
// codepoint-coverage lookup by exact source ID, per
// original_source/martin/src/fonts/mod.rs.
package fontcatalog

import (
	"sort"
	"sync"

	"github.com/nyurik/martin-go/internal/bitset"
)

// Source is a single registered font face: its file location, face index
// within the file (0 for a TTF/OTF file and for the first member of a TTC),
// and the codepoints it covers.
type Source struct {
	Path      string
	FaceIndex int
	Codepoints *bitset.Set
}

// Entry is the minimal public description of a registered font, as exposed by
// the /catalog-adjacent font introspection (spec.md §3 FontCatalog).
type Entry struct {
	Family      string
	Style       string // empty when the face has no distinct style name
	TotalGlyphs int
	Start       uint32
	End         uint32
}

// Catalog is the immutable-after-build registry of font sources, keyed by
// canonical name (spec.md §3: family[+" "+style]).
type Catalog struct {
	mu      sync.RWMutex
	sources map[string]*Source
	entries map[string]Entry
}

// New returns an empty Catalog ready to be populated by Build.
func New() *Catalog {
	return &Catalog{
		sources: make(map[string]*Source),
		entries: make(map[string]Entry),
	}
}

// Lookup returns the registered font source for id, or nil if id is not
// registered.
func (c *Catalog) Lookup(id string) *Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sources[id]
}

// Len returns the number of registered font sources.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// Entries returns the public FontEntry map for introspection, keyed by
// canonical name.
func (c *Catalog) Entries() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Names returns the registered canonical names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register inserts src/entry under name if the name is unoccupied. Returns
// false (first-wins, caller should warn) if name was already registered.
func (c *Catalog) Register(name string, src *Source, entry Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.sources[name]; exists {
		return false
	}
	c.sources[name] = src
	c.entries[name] = entry
	return true
}
