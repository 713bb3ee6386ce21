package snescolor

import (
	"fmt"

	"github.com/retroenv/snespatch/internal/errs"
)

const (
	// PaletteColors is the number of colors of a palette, excluding the
	// background color.
	PaletteColors = 256

	// PALFileSize is the size of a palette file holding 256 RGB24 colors.
	PALFileSize = PaletteColors * 3

	// BinarySize is the size of the packed background color and palette.
	BinarySize = (PaletteColors + 1) * 2
)

// ErrShortPalette is returned for palette files with less than 256 colors.
var ErrShortPalette = fmt.Errorf("%w: palette file too short", errs.ErrFormat)

// Palette is a full custom palette with a separate background color.
type Palette struct {
	Background Color
	Colors     [PaletteColors]Color
}

// ParsePAL parses a palette file of 256 RGB24 colors. The first color of the
// file becomes the background color and the first color of each row of 16 is
// transparent and left black.
func ParsePAL(data []byte) (*Palette, error) {
	if len(data) < PALFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPalette, len(data))
	}

	p := &Palette{
		Background: FromRGB24(data[0], data[1], data[2]),
	}
	for i := range p.Colors {
		if i&0x0f == 0 {
			continue
		}
		rgb := data[i*3 : i*3+3]
		p.Colors[i] = FromRGB24(rgb[0], rgb[1], rgb[2])
	}
	return p, nil
}

// Words returns the packed background color followed by all palette colors.
func (p *Palette) Words() []uint16 {
	words := make([]uint16, 0, PaletteColors+1)
	words = append(words, p.Background.SNES())
	for _, c := range p.Colors {
		words = append(words, c.SNES())
	}
	return words
}

// Bytes returns the palette as little endian color words, background first.
func (p *Palette) Bytes() []byte {
	b := make([]byte, 0, BinarySize)
	for _, w := range p.Words() {
		b = append(b, byte(w), byte(w>>8))
	}
	return b
}
