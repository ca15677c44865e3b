package fontcatalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-text/typesetting/font"
	"github.com/google/logger"

	"github.com/nyurik/martin-go/internal/bitset"
	"github.com/nyurik/martin-go/internal/martinerr"
)

var fontExtensions = map[string]bool{
	".otf": true,
	".ttf": true,
	".ttc": true,
}

// isFontFile reports whether path has a recognized font extension, mirroring
// the teacher's font.IsFontFile but restricted to the extensions spec.md
// §4.2 names (no .otc).
func isFontFile(path string) bool {
	return fontExtensions[strings.ToLower(filepath.Ext(path))]
}

// Build walks each root directory recursively, registers every covering face
// it finds, and returns the populated Catalog. Non-existent roots and
// unreadable files are skipped with a warning, matching spec.md §4.2 /
// §7's "startup errors" leniency -- except a face with no family name, which
// is fatal (spec.md §4.2 step 1).
func Build(roots []string) (*Catalog, error) {
	cat := New()
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			logger.Warningf("ignoring non-existent font directory %s", root)
			continue
		}
		if err := walkDir(cat, root); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func walkDir(cat *Catalog, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.Warningf("skipping %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !isFontFile(path) {
			return nil
		}
		return registerFile(cat, path)
	})
}

func registerFile(cat *Catalog, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warningf("unable to read font file %s: %v", path, err)
		return nil
	}

	faces, err := parseFaces(data)
	if err != nil {
		logger.Warningf("unable to parse font file %s: %v", path, err)
		return nil
	}

	for i, face := range faces {
		if err := registerFace(cat, path, i, face); err != nil {
			return err
		}
	}
	return nil
}

// parseFaces loads every face in a font file, dispatching to ParseTTC for
// collections as the teacher's font/loader.go does via its isTTC sniff.
func parseFaces(data []byte) ([]*font.Face, error) {
	if len(data) >= 4 && string(data[:4]) == "ttcf" {
		return font.ParseTTC(bytes.NewReader(data))
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return []*font.Face{face}, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CanonicalName composes the canonical font name family[+" "+style], ported
// from original_source/martin/src/fonts/mod.rs's recurse_dirs: any '/' or ','
// is replaced with a space and runs of whitespace collapse to one space
// (spec.md §3).
func CanonicalName(family, style string) string {
	name := family
	if style != "" {
		name = family + " " + style
	}
	name = strings.NewReplacer("/", " ", ",", " ").Replace(name)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
}

func registerFace(cat *Catalog, path string, index int, face *font.Face) error {
	if face.Font == nil {
		return &martinerr.MissingFamilyName{Path: path}
	}
	desc := face.Font.Describe()
	family := desc.Family
	if family == "" {
		return &martinerr.MissingFamilyName{Path: path}
	}

	style := styleName(desc.Aspect)
	name := CanonicalName(family, style)

	codepoints, total, spans := coverage(face)
	if total == 0 {
		logger.Warningf("ignoring font source %s from %s because it has no available glyphs", name, path)
		return nil
	}

	entry := Entry{
		Family:      family,
		Style:       style,
		TotalGlyphs: total,
		Start:       spans[0][0],
		End:         spans[len(spans)-1][1],
	}
	src := &Source{Path: path, FaceIndex: index, Codepoints: codepoints}

	if !cat.Register(name, src, entry) {
		existing := cat.Lookup(name)
		existingPath := ""
		if existing != nil {
			existingPath = existing.Path
		}
		logger.Warningf("ignoring duplicate font source %s from %s because it was already configured for %s",
			name, path, existingPath)
		return nil
	}

	logger.Infof("configured font source %s with %d glyphs (%04X-%04X) from %s",
		name, total, entry.Start, entry.End, path)
	return nil
}

// styleName extracts a style descriptor distinct from "normal 400", matching
// the teacher's font.go style/weight vocabulary but collapsed to a single
// display string the way original_source's face.style_name() works.
func styleName(aspect font.Aspect) string {
	var parts []string
	switch aspect.Style {
	case font.StyleItalic:
		parts = append(parts, "Italic")
	case font.StyleOblique:
		parts = append(parts, "Oblique")
	}
	if weight := float32(aspect.Weight); weight != 0 && weight != 400 {
		parts = append(parts, fmt.Sprintf("%v", aspect.Weight))
	}
	return strings.Join(parts, " ")
}

// coverage probes every codepoint in [0, bitset.MaxCodepoint] for a glyph,
// mirroring original_source/martin/src/fonts/mod.rs's
// get_available_codepoints: face.get_char_index(cp) != 0 becomes
// face.NominalGlyph(rune(cp)) returning ok.
func coverage(face *font.Face) (*bitset.Set, int, [][2]uint32) {
	set := bitset.New()
	count := 0
	var spans [][2]uint32
	var start uint32
	inSpan := false

	for cp := uint32(0); cp <= bitset.MaxCodepoint; cp++ {
		if _, ok := face.NominalGlyph(rune(cp)); ok {
			set.Add(cp)
			count++
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
		spans = append(spans, [2]uint32{start, bitset.MaxCodepoint})
	}
	return set, count, spans
}
