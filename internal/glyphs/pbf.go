package glyphs

import "google.golang.org/protobuf/encoding/protowire"

// Wire field numbers from the MapLibre/Mapbox glyphs.proto schema
// (glyphs.fontstack.glyph, glyphs.fontstack, glyphs), reproduced by hand
// since no .proto/protoc step is available in this module.
const (
	fieldGlyphsStacks = 1

	fieldFontstackName   = 1
	fieldFontstackRange  = 2
	fieldFontstackGlyphs = 3

	fieldGlyphID      = 1
	fieldGlyphBitmap  = 2
	fieldGlyphWidth   = 3
	fieldGlyphHeight  = 4
	fieldGlyphLeft    = 5
	fieldGlyphTop     = 6
	fieldGlyphAdvance = 7
)

// Fontstack is one resolved, rendered font range, ready for PBF encoding.
type Fontstack struct {
	Name   string
	Range  string
	Glyphs []Glyph
}

// encodeGlyphs serializes a top-level Glyphs message containing a single
// fontstack, matching the shape FontSources::get_font_range produces.
func encodeGlyphs(stack Fontstack) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldGlyphsStacks, protowire.BytesType)
	buf = protowire.AppendBytes(buf, encodeFontstack(stack))
	return buf
}

func encodeFontstack(stack Fontstack) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldFontstackName, protowire.BytesType)
	buf = protowire.AppendString(buf, stack.Name)
	buf = protowire.AppendTag(buf, fieldFontstackRange, protowire.BytesType)
	buf = protowire.AppendString(buf, stack.Range)
	for _, g := range stack.Glyphs {
		buf = protowire.AppendTag(buf, fieldFontstackGlyphs, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeGlyph(g))
	}
	return buf
}

func encodeGlyph(g Glyph) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldGlyphID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(g.ID))
	if len(g.Bitmap) > 0 {
		buf = protowire.AppendTag(buf, fieldGlyphBitmap, protowire.BytesType)
		buf = protowire.AppendBytes(buf, g.Bitmap)
	}
	buf = protowire.AppendTag(buf, fieldGlyphWidth, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(g.Width))
	buf = protowire.AppendTag(buf, fieldGlyphHeight, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(g.Height))
	buf = protowire.AppendTag(buf, fieldGlyphLeft, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(protowire.EncodeZigZag(int64(g.Left))))
	buf = protowire.AppendTag(buf, fieldGlyphTop, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(protowire.EncodeZigZag(int64(g.Top))))
	buf = protowire.AppendTag(buf, fieldGlyphAdvance, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(g.Advance))
	return buf
}
