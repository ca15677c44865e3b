package fontcatalog

import (
	"strings"
	"testing"

	"github.com/nyurik/martin-go/internal/bitset"
)

func TestCanonicalName(t *testing.T) {
	cases := []struct{ family, style, want string }{
		{"Noto Sans", "", "Noto Sans"},
		{"Noto Sans", "Bold", "Noto Sans Bold"},
		{"Noto/Sans", "Bold,Italic", "Noto Sans Bold Italic"},
		{"Weird   Spacing", "", "Weird Spacing"},
	}
	for _, c := range cases {
		got := CanonicalName(c.family, c.style)
		if got != c.want {
			t.Errorf("CanonicalName(%q,%q) = %q, want %q", c.family, c.style, got, c.want)
		}
		if strings.ContainsAny(got, "/,") {
			t.Errorf("CanonicalName(%q,%q) = %q contains / or ,", c.family, c.style, got)
		}
		if strings.Contains(got, "  ") {
			t.Errorf("CanonicalName(%q,%q) = %q contains consecutive spaces", c.family, c.style, got)
		}
	}
}

func TestCatalogRegisterFirstWins(t *testing.T) {
	cat := New()
	cp := bitset.New()
	cp.Add(65)

	first := &Source{Path: "/fonts/a.ttf", Codepoints: cp}
	second := &Source{Path: "/fonts/b.ttf", Codepoints: cp}

	if !cat.Register("Test Regular", first, Entry{Family: "Test", TotalGlyphs: 1}) {
		t.Fatal("first registration should succeed")
	}
	if cat.Register("Test Regular", second, Entry{Family: "Test", TotalGlyphs: 1}) {
		t.Fatal("second registration of the same name should be rejected")
	}

	got := cat.Lookup("Test Regular")
	if got.Path != first.Path {
		t.Errorf("Lookup returned %s, want first-registered %s", got.Path, first.Path)
	}
	if cat.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cat.Len())
	}
}

func TestCatalogNamesSorted(t *testing.T) {
	cat := New()
	cp := bitset.New()
	cat.Register("Zeta", &Source{Codepoints: cp}, Entry{})
	cat.Register("Alpha", &Source{Codepoints: cp}, Entry{})

	names := cat.Names()
	if len(names) != 2 || names[0] != "Alpha" || names[1] != "Zeta" {
		t.Errorf("Names() = %v, want [Alpha Zeta]", names)
	}
}
