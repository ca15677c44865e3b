package glyphs

import (
	"math"
	"sort"

	"github.com/go-text/typesetting/font"
)

// SDF rendering parameters, taken verbatim from the original Rust
// implementation's fonts/mod.rs constants.
const (
	fontSize   = 24
	charHeight = fontSize << 6 // 26.6 fixed-point, matches FreeType's FT_Set_Char_Size units
	bufferSize = 3
	radius     = 8
	cutoff     = 0.25
)

// Glyph is a single rendered SDF glyph, matching the fields of the Mapbox
// glyphs.proto glyph message.
type Glyph struct {
	ID      uint32
	Bitmap  []byte // row-major grayscale SDF bitmap, (width)*(height) bytes
	Width   uint32
	Height  uint32
	Left    int32
	Top     int32
	Advance uint32
}

// renderGlyph rasterizes the outline for codepoint cp at fontSize ppem and
// wraps it in an 8-bit signed distance field with the buffer/radius/cutoff
// from the original implementation. Glyphs with an empty outline (e.g. space)
// still produce a zero-size bitmap with correct advance, matching
// pbf_font_tools' render_sdf_glyph behavior for whitespace.
func renderGlyph(face *font.Face, cp rune) (Glyph, error) {
	gid, _ := face.NominalGlyph(cp)

	upem := float64(face.Upem())
	if upem == 0 {
		upem = 1000
	}
	scale := float64(fontSize) / upem

	outline := face.GlyphData(gid, 0, 0)
	segs, advanceUnits := outlineSegments(face, outline, gid)

	advance := uint32(math.Round(advanceUnits * scale))

	bounds, hasInk := boundsOf(segs, scale)
	if !hasInk {
		return Glyph{ID: uint32(cp), Advance: advance}, nil
	}

	pad := bufferSize + radius
	left := int32(math.Floor(bounds.minX)) - int32(pad)
	top := int32(math.Ceil(bounds.maxY)) + int32(pad)
	width := int32(math.Ceil(bounds.maxX)) - left + int32(pad)
	height := top - int32(math.Floor(bounds.minY)) + int32(pad)
	if width <= 0 || height <= 0 {
		return Glyph{ID: uint32(cp), Advance: advance}, nil
	}

	coverage := rasterize(segs, scale, int(width), int(height), left, top)
	sdf := distanceField(coverage, int(width), int(height), radius, cutoff)

	return Glyph{
		ID:      uint32(cp),
		Bitmap:  sdf,
		Width:   uint32(width),
		Height:  uint32(height),
		Left:    left,
		Top:     top,
		Advance: advance,
	}, nil
}

type bbox struct{ minX, minY, maxX, maxY float64 }

type lineSeg struct{ x0, y0, x1, y1 float64 }

// outlineSegments flattens the face's glyph outline (quadratic/cubic curves
// included) into straight line segments in unscaled font-design units (callers
// apply the fontSize ppem scale), plus the glyph's horizontal advance in font
// units.
func outlineSegments(face *font.Face, outline font.GlyphOutline, gid font.GID) ([]lineSeg, float64) {
	var segs []lineSeg
	var cur, start struct{ x, y float64 }

	flattenQuad := func(x0, y0, cx, cy, x1, y1 float64, out *[]lineSeg) {
		const steps = 8
		px, py := x0, y0
		for i := 1; i <= steps; i++ {
			t := float64(i) / steps
			mt := 1 - t
			x := mt*mt*x0 + 2*mt*t*cx + t*t*x1
			y := mt*mt*y0 + 2*mt*t*cy + t*t*y1
			*out = append(*out, lineSeg{px, py, x, y})
			px, py = x, y
		}
	}
	flattenCube := func(x0, y0, c1x, c1y, c2x, c2y, x1, y1 float64, out *[]lineSeg) {
		const steps = 10
		px, py := x0, y0
		for i := 1; i <= steps; i++ {
			t := float64(i) / steps
			mt := 1 - t
			x := mt*mt*mt*x0 + 3*mt*mt*t*c1x + 3*mt*t*t*c2x + t*t*t*x1
			y := mt*mt*mt*y0 + 3*mt*mt*t*c1y + 3*mt*t*t*c2y + t*t*t*y1
			*out = append(*out, lineSeg{px, py, x, y})
			px, py = x, y
		}
	}

	for _, s := range outline.Segments {
		switch s.Op {
		case font.SegmentOpMoveTo:
			cur.x, cur.y = float64(s.Args[0].X), float64(s.Args[0].Y)
			start = cur
		case font.SegmentOpLineTo:
			x, y := float64(s.Args[0].X), float64(s.Args[0].Y)
			segs = append(segs, lineSeg{cur.x, cur.y, x, y})
			cur.x, cur.y = x, y
		case font.SegmentOpQuadTo:
			cx, cy := float64(s.Args[0].X), float64(s.Args[0].Y)
			x, y := float64(s.Args[1].X), float64(s.Args[1].Y)
			flattenQuad(cur.x, cur.y, cx, cy, x, y, &segs)
			cur.x, cur.y = x, y
		case font.SegmentOpCubeTo:
			c1x, c1y := float64(s.Args[0].X), float64(s.Args[0].Y)
			c2x, c2y := float64(s.Args[1].X), float64(s.Args[1].Y)
			x, y := float64(s.Args[2].X), float64(s.Args[2].Y)
			flattenCube(cur.x, cur.y, c1x, c1y, c2x, c2y, x, y, &segs)
			cur.x, cur.y = x, y
		case font.SegmentOpClose:
			if cur != start {
				segs = append(segs, lineSeg{cur.x, cur.y, start.x, start.y})
			}
			cur = start
		}
	}

	advance := float64(face.HorizontalAdvance(gid))
	return segs, advance
}

func boundsOf(segs []lineSeg, scale float64) (bbox, bool) {
	if len(segs) == 0 {
		return bbox{}, false
	}
	b := bbox{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	for _, s := range segs {
		for _, p := range [][2]float64{{s.x0, s.y0}, {s.x1, s.y1}} {
			x, y := p[0]*scale, p[1]*scale
			b.minX = math.Min(b.minX, x)
			b.maxX = math.Max(b.maxX, x)
			b.minY = math.Min(b.minY, y)
			b.maxY = math.Max(b.maxY, y)
		}
	}
	return b, true
}

// rasterize scan-converts the scaled outline into a 0/1 coverage mask of the
// given pixel dimensions, using a nonzero-winding scanline fill (crossings
// sorted by x, each edge counted by its direction). origin is
// the glyph-space point (left, top) mapped to pixel (0,0).
func rasterize(segs []lineSeg, scale float64, width, height int, left, top int32) []bool {
	cov := make([]bool, width*height)
	if width == 0 || height == 0 {
		return cov
	}

	type edge struct{ x0, y0, x1, y1 float64 }
	edges := make([]edge, 0, len(segs))
	for _, s := range segs {
		edges = append(edges, edge{
			x0: s.x0*scale - float64(left),
			y0: float64(top) - s.y0*scale,
			x1: s.x1*scale - float64(left),
			y1: float64(top) - s.y1*scale,
		})
	}

	type crossing struct {
		x   float64
		dir int
	}
	for row := 0; row < height; row++ {
		y := float64(row) + 0.5
		var xs []crossing
		for _, e := range edges {
			y0, y1 := e.y0, e.y1
			if y0 == y1 {
				continue
			}
			if (y >= y0 && y < y1) || (y >= y1 && y < y0) {
				t := (y - e.y0) / (e.y1 - e.y0)
				dir := 1
				if y1 < y0 {
					dir = -1
				}
				xs = append(xs, crossing{e.x0 + t*(e.x1-e.x0), dir})
			}
		}
		if len(xs) < 2 {
			continue
		}
		sort.Slice(xs, func(i, j int) bool { return xs[i].x < xs[j].x })
		winding := 0
		for i := 0; i+1 < len(xs); i++ {
			winding += xs[i].dir
			if winding == 0 {
				continue
			}
			start := int(math.Max(0, math.Floor(xs[i].x)))
			end := int(math.Min(float64(width), math.Ceil(xs[i+1].x)))
			for col := start; col < end; col++ {
				cov[row*width+col] = true
			}
		}
	}
	return cov
}

// distanceField turns a coverage mask into an 8-bit signed distance field
// the way pbf_font_tools/sdf renders it: for every pixel, the distance
// (clamped to radius) to the nearest opposite-coverage pixel, signed
// positive inside the glyph, mapped to [0,255] around cutoff.
func distanceField(cov []bool, width, height, radius int, cutoff float64) []byte {
	out := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := nearestOppositeDistance(cov, width, height, x, y, radius)
			signed := d
			if !cov[y*width+x] {
				signed = -d
			}
			v := cutoff + signed/float64(radius)*(1-cutoff)
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			out[y*width+x] = byte(math.Round(v * 255))
		}
	}
	return out
}

func nearestOppositeDistance(cov []bool, width, height, x, y, radius int) float64 {
	self := cov[y*width+x]
	best := math.Inf(1)
	for dy := -radius; dy <= radius; dy++ {
		ny := y + dy
		if ny < 0 || ny >= height {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := x + dx
			if nx < 0 || nx >= width {
				continue
			}
			if cov[ny*width+nx] == self {
				continue
			}
			d := math.Hypot(float64(dx), float64(dy))
			if d < best {
				best = d
			}
		}
	}
	if math.IsInf(best, 1) {
		return float64(radius)
	}
	if best > float64(radius) {
		return float64(radius)
	}
	return best
}
