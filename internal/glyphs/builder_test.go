package glyphs

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nyurik/martin-go/internal/bitset"
	"github.com/nyurik/martin-go/internal/fontcatalog"
	"github.com/nyurik/martin-go/internal/martinerr"
)

// fakeRenderer renders a placeholder glyph for whatever codepoint it is asked
// for (GetFontRange only asks for codepoints in covers), so tests can
// exercise range resolution and PBF encoding without real font files.
type fakeRenderer struct {
	name   string
	covers *bitset.Set
}

func (f *fakeRenderer) render(cp rune) (Glyph, error) {
	return Glyph{ID: uint32(cp), Width: 1, Height: 1, Advance: 10}, nil
}

func fakeCatalogAndLoader(t *testing.T, sources map[string]*bitset.Set) (*fontcatalog.Catalog, FaceLoader) {
	t.Helper()
	cat := fontcatalog.New()
	renderers := map[string]*fakeRenderer{}
	for id, covers := range sources {
		src := &fontcatalog.Source{Path: id, Codepoints: covers}
		if !cat.Register(id, src, fontcatalog.Entry{Family: id}) {
			t.Fatalf("failed to register fake source %s", id)
		}
		renderers[id] = &fakeRenderer{name: id, covers: covers}
	}
	loader := func(src *fontcatalog.Source) (glyphRenderer, error) {
		return renderers[src.Path], nil
	}
	return cat, loader
}

func digitsCoverage() *bitset.Set {
	set := bitset.New()
	for cp := uint32('0'); cp <= uint32('9'); cp++ {
		set.Add(cp)
	}
	return set
}

func TestGetFontRangeSingleFontPartialCoverage(t *testing.T) {
	cat, loader := fakeCatalogAndLoader(t, map[string]*bitset.Set{
		"Noto Regular": digitsCoverage(),
	})

	data, err := GetFontRange(cat, loader, "Noto Regular", 0, 255)
	if err != nil {
		t.Fatalf("GetFontRange: %v", err)
	}

	stack := decodeSingleFontstack(t, data)
	if stack.name != "Noto Regular" {
		t.Errorf("name = %q, want %q", stack.name, "Noto Regular")
	}
	if stack.rng != "0-255" {
		t.Errorf("range = %q, want %q", stack.rng, "0-255")
	}
	if stack.glyphCount != 10 {
		t.Errorf("glyph count = %d, want 10", stack.glyphCount)
	}
}

func TestGetFontRangeFontNotFound(t *testing.T) {
	cat, loader := fakeCatalogAndLoader(t, map[string]*bitset.Set{
		"Noto Regular": digitsCoverage(),
	})

	_, err := GetFontRange(cat, loader, "Missing Font", 0, 255)
	if !martinerr.IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestGetFontRangeNoCoverageReturnsEmpty(t *testing.T) {
	cat, loader := fakeCatalogAndLoader(t, map[string]*bitset.Set{
		"Noto Regular": digitsCoverage(),
	})

	data, err := GetFontRange(cat, loader, "Noto Regular", 256, 511)
	if err != nil {
		t.Fatalf("GetFontRange: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty result, got %d bytes", len(data))
	}
}

func TestGetFontRangeInvalidRange(t *testing.T) {
	cat, loader := fakeCatalogAndLoader(t, nil)
	_, err := GetFontRange(cat, loader, "x", 10, 5)
	if !errors.Is(err, martinerr.ErrInvalidFontRangeStartEnd) {
		t.Errorf("got %v, want ErrInvalidFontRangeStartEnd", err)
	}
}

func TestGetFontRangeFallsThroughToSecondFont(t *testing.T) {
	primary := bitset.New()
	primary.Add('A') // covers only one codepoint in range
	secondary := digitsCoverage()

	cat, loader := fakeCatalogAndLoader(t, map[string]*bitset.Set{
		"Primary":   primary,
		"Secondary": secondary,
	})

	data, err := GetFontRange(cat, loader, "Primary,Secondary", 0, 255)
	if err != nil {
		t.Fatalf("GetFontRange: %v", err)
	}
	stack := decodeSingleFontstack(t, data)
	if stack.name != "Primary, Secondary" {
		t.Errorf("name = %q, want %q", stack.name, "Primary, Secondary")
	}
	if stack.glyphCount != 11 {
		t.Errorf("glyph count = %d, want 11 (1 from Primary + 10 from Secondary)", stack.glyphCount)
	}
}

// decodeSingleFontstack parses just enough of the Glyphs PBF message to
// verify encodeGlyphs/encodeFontstack/encodeGlyph produced a well-formed
// wire message, without depending on a generated .pb.go.
type decodedStack struct {
	name       string
	rng        string
	glyphCount int
}

func decodeSingleFontstack(t *testing.T, data []byte) decodedStack {
	t.Helper()
	num, typ, n := protowire.ConsumeTag(data)
	if n < 0 || num != fieldGlyphsStacks || typ != protowire.BytesType {
		t.Fatalf("expected stacks field, got num=%d typ=%d n=%d", num, typ, n)
	}
	data = data[n:]
	stackBytes, n := protowire.ConsumeBytes(data)
	if n < 0 {
		t.Fatalf("failed to consume fontstack bytes")
	}

	var out decodedStack
	rest := stackBytes
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			t.Fatalf("failed to consume fontstack tag")
		}
		rest = rest[n:]
		switch {
		case num == fieldFontstackName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(rest)
			if n < 0 {
				t.Fatalf("failed to consume name")
			}
			out.name = s
			rest = rest[n:]
		case num == fieldFontstackRange && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(rest)
			if n < 0 {
				t.Fatalf("failed to consume range")
			}
			out.rng = s
			rest = rest[n:]
		case num == fieldFontstackGlyphs && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(rest)
			if n < 0 {
				t.Fatalf("failed to consume glyph bytes")
			}
			out.glyphCount++
			rest = rest[n:]
			_ = b
		default:
			n := protowire.ConsumeFieldValue(num, typ, rest)
			if n < 0 {
				t.Fatalf("failed to skip unknown field")
			}
			rest = rest[n:]
		}
	}
	return out
}
