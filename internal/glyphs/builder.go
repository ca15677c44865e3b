// Package glyphs builds SDF glyph ranges for one or more font IDs and
// serializes them to the Mapbox glyphs PBF wire format, ported from
// FontSources::get_font_range.
package glyphs

import (
	"fmt"
	"strings"

	"github.com/nyurik/martin-go/internal/bitset"
	"github.com/nyurik/martin-go/internal/fontcatalog"
	"github.com/nyurik/martin-go/internal/martinerr"
)

// glyphRenderer renders a single codepoint to an SDF glyph. faceHandle is
// the production implementation; tests substitute a fake to exercise the
// range-resolution logic without real font files.
type glyphRenderer interface {
	render(cp rune) (Glyph, error)
}

// FaceLoader opens the face for a registered font source on demand, keeping
// this package decoupled from how fontcatalog.Source paths get turned back
// into renderable faces (file I/O, possible in-memory embedding, etc.).
type FaceLoader func(src *fontcatalog.Source) (glyphRenderer, error)

// GetFontRange resolves ids (a comma-separated list of font IDs, most to
// least preferred) against cat, renders every codepoint covered by range
// [start, end] across those fonts, and returns the serialized Glyphs PBF
// message. Font IDs that contribute no codepoints in range are silently
// skipped; an unregistered font ID is an error. Returns an empty slice (not
// an error) when no requested font covers anything in the range, matching
// get_font_range's empty-Vec result.
func GetFontRange(cat *fontcatalog.Catalog, load FaceLoader, ids string, start, end uint32) ([]byte, error) {
	if err := bitset.ValidateRange(start, end); err != nil {
		return nil, err
	}

	needed := bitset.MaskForStart(start)

	type contribution struct {
		id  string
		src *fontcatalog.Source
		cps *bitset.Set
	}
	var contributions []contribution

	for _, id := range strings.Split(ids, ",") {
		src := cat.Lookup(id)
		if src == nil {
			return nil, martinerr.FontNotFound(id)
		}
		ds := needed.Intersection(src.Codepoints)
		if !ds.Any() {
			continue
		}
		needed = needed.Difference(src.Codepoints)
		contributions = append(contributions, contribution{id: id, src: src, cps: ds})
	}

	if len(contributions) == 0 {
		return []byte{}, nil
	}

	stack := Fontstack{Range: fmt.Sprintf("%d-%d", start, end)}
	for _, c := range contributions {
		if stack.Name == "" {
			stack.Name = c.id
		} else {
			stack.Name += ", " + c.id
		}

		face, err := load(c.src)
		if err != nil {
			return nil, martinerr.Internal(fmt.Sprintf("loading font source %s", c.id), err)
		}

		for _, cp := range c.cps.All() {
			g, err := face.render(rune(cp))
			if err != nil {
				return nil, martinerr.Internal(fmt.Sprintf("rendering glyph U+%04X from %s", cp, c.id), err)
			}
			stack.Glyphs = append(stack.Glyphs, g)
		}
	}

	return encodeGlyphs(stack), nil
}
