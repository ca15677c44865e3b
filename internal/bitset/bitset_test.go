package bitset

import (
	"errors"
	"testing"

	"github.com/nyurik/martin-go/internal/martinerr"
)

func TestRangeMasksPartitionCodepoints(t *testing.T) {
	for i, mask := range RangeMasks {
		if got := mask.Count(); got != RangeSize {
			t.Errorf("mask[%d] has %d bits set, want %d", i, got, RangeSize)
		}
	}

	for i := range RangeMasks {
		for j := range RangeMasks {
			if i == j {
				continue
			}
			if RangeMasks[i].Intersection(RangeMasks[j]).Any() {
				t.Errorf("mask[%d] and mask[%d] overlap", i, j)
			}
		}
	}
}

func TestMaskForStartContainsExactRange(t *testing.T) {
	mask := MaskForStart(512)
	if mask.Contains(511) {
		t.Error("mask for start=512 should not contain 511")
	}
	if !mask.Contains(512) || !mask.Contains(767) {
		t.Error("mask for start=512 should contain 512 and 767")
	}
	if mask.Contains(768) {
		t.Error("mask for start=512 should not contain 768")
	}
}

func TestValidateRange(t *testing.T) {
	cases := []struct {
		name       string
		start, end uint32
		wantErr    error
	}{
		{"first range", 0, 255, nil},
		{"second range", 256, 511, nil},
		{"last range", 65280, 65535, nil},
		{"start after end", 10, 5, martinerr.ErrInvalidFontRangeStartEnd},
		{"start not aligned", 10, 265, martinerr.ErrInvalidFontRangeStart},
		{"end not aligned", 0, 254, martinerr.ErrInvalidFontRangeEnd},
		{"end not aligned to end", 0, 256, martinerr.ErrInvalidFontRangeEnd},
		{"aligned but wrong width", 0, 511, martinerr.ErrInvalidFontRange},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateRange(c.start, c.end)
			if c.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRange(%d,%d) = %v, want nil", c.start, c.end, err)
				}
				return
			}
			if !errors.Is(err, c.wantErr) {
				t.Errorf("ValidateRange(%d,%d) = %v, want %v", c.start, c.end, err, c.wantErr)
			}
		})
	}
}
