package level

import (
	"fmt"

	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/snescolor"
)

// ErrInvalidHeader is returned for header fields that do not fit into their
// bit fields.
var ErrInvalidHeader = fmt.Errorf("%w: invalid level header", errs.ErrValidation)

// Palette is either a SharedPalette or a CustomPalette.
type Palette interface {
	isPalette()
}

// SharedPalette references the shared palette slots of the game.
type SharedPalette struct {
	FG  uint8
	BG  uint8
	SP  uint8
	Sky uint8
}

// CustomPalette is a full palette stored with the level.
type CustomPalette struct {
	Colors *snescolor.Palette
}

func (SharedPalette) isPalette() {}
func (CustomPalette) isPalette() {}

// Header contains the level settings.
type Header struct {
	Palette    Palette
	Mode       uint8
	Audio      uint8
	TilesetFG  uint8
	TilesetSP  uint8
	Time       uint8
	Scroll     uint8
	L3Image    uint8
	L3Priority bool
}

// DefaultHeader returns the settings of vanilla level 0x105.
func DefaultHeader() Header {
	return Header{
		Palette:   SharedPalette{FG: 0, BG: 1, SP: 0, Sky: 2},
		Mode:      0,
		Audio:     0x02,
		TilesetFG: 7,
		TilesetSP: 8,
		Time:      3,
		Scroll:    2,
	}
}

type headerField struct {
	name  string
	value uint8
	limit uint8
}

// Validate checks that every field fits into its bit field.
func (h Header) Validate() error {
	fields := []headerField{
		{"mode", h.Mode, 0x20},
		{"layer 3 image", h.L3Image, 0x08},
		{"foreground tileset", h.TilesetFG, 0x10},
		{"sprite tileset", h.TilesetSP, 0x10},
		{"time", h.Time, 0x10},
		{"scroll", h.Scroll, 0x08},
	}

	switch p := h.Palette.(type) {
	case SharedPalette:
		fields = append(fields,
			headerField{"foreground palette", p.FG, 0x20},
			headerField{"background palette", p.BG, 0x08},
			headerField{"sprite palette", p.SP, 0x08},
			headerField{"sky palette", p.Sky, 0x20},
		)
	case CustomPalette:
		if p.Colors == nil {
			return fmt.Errorf("%w: custom palette without colors", ErrInvalidHeader)
		}
	default:
		return fmt.Errorf("%w: missing palette", ErrInvalidHeader)
	}

	for _, f := range fields {
		if f.value >= f.limit {
			return fmt.Errorf("%w: %s value 0x%x exceeds 0x%x", ErrInvalidHeader, f.name, f.value, f.limit-1)
		}
	}
	return nil
}
