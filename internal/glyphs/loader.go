package glyphs

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-text/typesetting/font"

	"github.com/nyurik/martin-go/internal/fontcatalog"
)

// faceHandle is the minimal wrapper GetFontRange needs around a parsed face;
// kept separate from *font.Face so FaceLoader implementations can cache or
// swap in embedded fonts without the builder caring.
type faceHandle struct {
	face *font.Face
}

func (h *faceHandle) render(cp rune) (Glyph, error) {
	return renderGlyph(h.face, cp)
}

// OSFaceLoader opens fontcatalog.Source.Path from disk and parses the face
// at the recorded face index, mirroring the teacher's font/loader.go
// TTC-vs-TTF dispatch.
func OSFaceLoader(src *fontcatalog.Source) (glyphRenderer, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path, err)
	}

	if len(data) >= 4 && string(data[:4]) == "ttcf" {
		faces, err := font.ParseTTC(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse TTC %s: %w", src.Path, err)
		}
		if src.FaceIndex < 0 || src.FaceIndex >= len(faces) {
			return nil, fmt.Errorf("face index %d out of range in %s", src.FaceIndex, src.Path)
		}
		return &faceHandle{face: faces[src.FaceIndex]}, nil
	}

	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", src.Path, err)
	}
	return &faceHandle{face: face}, nil
}
