package slides

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// faceKey identifies a cached face by weight and size.
type faceKey struct {
	bold bool
	size float64
}

// fontCache parses the bundled Go fonts once and caches faces per size.
type fontCache struct {
	mu      sync.Mutex
	regular *truetype.Font
	bold    *truetype.Font
	faces   map[faceKey]font.Face
}

func newFontCache() (*fontCache, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &fontCache{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// face returns a face for the given weight and point size.
// Faces are not safe for concurrent use; slides render one at a time.
func (fc *fontCache) face(bold bool, size float64) font.Face {
	if size <= 0 {
		size = defaultFontSize
	}
	key := faceKey{bold: bold, size: size}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if f, ok := fc.faces[key]; ok {
		return f
	}
	src := fc.regular
	if bold {
		src = fc.bold
	}
	f := truetype.NewFace(src, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	fc.faces[key] = f
	return f
}
