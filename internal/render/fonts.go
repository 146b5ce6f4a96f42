package render

import (
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	boldTTF    = gobold.TTF
	regularTTF = goregular.TTF
)

// loadFace tries the configured font file, then the embedded Go font, then the
// fixed bitmap face. It never fails; the second return names what was loaded.
func loadFace(path string, fallback []byte, size float64) (font.Face, string) {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if face, err := parseFace(data, size); err == nil {
				return face, path
			}
		}
	}
	if face, err := parseFace(fallback, size); err == nil {
		return face, "go-font"
	}
	return basicfont.Face7x13, "basic"
}

func parseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func closeFace(face font.Face) {
	if face == nil || face == font.Face(basicfont.Face7x13) {
		return
	}
	_ = face.Close()
}
