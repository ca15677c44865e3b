// Package bitset implements the codepoint bitset and precomputed 256-wide
// range masks used by the font catalog and glyph range builder (spec.md
// §4.1). It wraps github.com/bits-and-blooms/bitset rather than hand-rolling
// a word-packed set.
package bitset

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/nyurik/martin-go/internal/martinerr"
)

// MaxCodepoint is the highest codepoint the catalog tracks (spec.md §4.1).
const MaxCodepoint = 0xFFFF

// RangeSize is the width of a single requested glyph range.
const RangeSize = 256

// numRanges is the number of distinct 256-wide ranges covering 0..=0xFFFF.
const numRanges = (MaxCodepoint + 1) / RangeSize

// Set is a bitset over [0, MaxCodepoint].
type Set struct {
	bits *bitset.BitSet
}

// New returns an empty Set sized to cover every valid codepoint.
func New() *Set {
	return &Set{bits: bitset.New(MaxCodepoint + 1)}
}

// Add marks cp as present.
func (s *Set) Add(cp uint32) { s.bits.Set(uint(cp)) }

// Contains reports whether cp is present.
func (s *Set) Contains(cp uint32) bool { return s.bits.Test(uint(cp)) }

// Count returns the number of set bits.
func (s *Set) Count() uint { return s.bits.Count() }

// Any reports whether at least one bit is set.
func (s *Set) Any() bool { return s.bits.Any() }

// Intersection returns a new Set containing bits present in both s and other.
func (s *Set) Intersection(other *Set) *Set {
	return &Set{bits: s.bits.Intersection(other.bits)}
}

// Difference returns a new Set containing bits present in s but not other.
func (s *Set) Difference(other *Set) *Set {
	return &Set{bits: s.bits.Difference(other.bits)}
}

// All returns every set codepoint in ascending order.
func (s *Set) All() []uint32 {
	out := make([]uint32, 0, s.bits.Count())
	for cp, ok := s.bits.NextSet(0); ok; cp, ok = s.bits.NextSet(cp + 1) {
		out = append(out, uint32(cp))
	}
	return out
}

// Spans returns the contiguous covered codepoint ranges [start, end], in
// ascending order, for diagnostic logging (spec.md §4.2 step 3).
func (s *Set) Spans() [][2]uint32 {
	var spans [][2]uint32
	var start uint32
	inSpan := false
	for cp := uint32(0); cp <= MaxCodepoint; cp++ {
		if s.Contains(cp) {
			if !inSpan {
				start = cp
				inSpan = true
			}
		} else if inSpan {
			spans = append(spans, [2]uint32{start, cp - 1})
			inSpan = false
		}
	}
	if inSpan {
		spans = append(spans, [2]uint32{start, MaxCodepoint})
	}
	return spans
}

// RangeMasks holds the 256 precomputed per-range masks (spec.md §4.1):
// masks[i] contains exactly the codepoints [i*256, i*256+255].
var RangeMasks = buildRangeMasks()

func buildRangeMasks() [numRanges]*Set {
	var masks [numRanges]*Set
	for i := range masks {
		m := New()
		base := uint32(i * RangeSize)
		for cp := base; cp < base+RangeSize; cp++ {
			m.Add(cp)
		}
		masks[i] = m
	}
	return masks
}

// ValidateRange checks a requested [start, end] glyph range against the
// constraints in spec.md §4.1 and returns the matching typed error.
func ValidateRange(start, end uint32) error {
	if start > end {
		return martinerr.ErrInvalidFontRangeStartEnd
	}
	if start%RangeSize != 0 {
		return martinerr.ErrInvalidFontRangeStart
	}
	if end%RangeSize != RangeSize-1 {
		return martinerr.ErrInvalidFontRangeEnd
	}
	if end-start != RangeSize-1 {
		return martinerr.ErrInvalidFontRange
	}
	return nil
}

// MaskForStart returns the precomputed mask for the range beginning at start.
// Callers must validate the range first.
func MaskForStart(start uint32) *Set {
	return RangeMasks[start/RangeSize]
}
