// Package level contains the in-memory level model: screens of tiles with
// their sprites and exits, the foreground and background grids, entrances,
// the level header and the deduplicated screen catalogue.
package level

import (
	"fmt"
	"slices"

	"github.com/retroenv/snespatch/internal/errs"
)

// ErrInvalidLevel is returned for levels that violate the level invariants.
var ErrInvalidLevel = fmt.Errorf("%w: invalid level", errs.ErrValidation)

const (
	// Side is the width and height of a level in screens.
	Side = 32

	// MaxPrimaryEntrances is the maximum number of primary entrances.
	MaxPrimaryEntrances = 2
	// MaxSecondaryEntrances is the maximum number of secondary entrances.
	MaxSecondaryEntrances = 32

	levelPrimarySubs = 2
)

// Level is a validated level ready to be encoded.
type Level struct {
	fg           *Grid
	bg           *Grid
	scrollFilter []bool
	entrances    []Entrance
	header       Header
}

// New returns a level after validating that both grids are 32x32 screens,
// the scroll filter has one flag per screen, the entrances and sprites fit
// their records and the header fields fit.
func New(fg, bg *Grid, scrollFilter []bool, entrances []Entrance, header Header) (*Level, error) {
	if fg == nil || bg == nil {
		return nil, fmt.Errorf("%w: missing layer", ErrInvalidLevel)
	}
	if fg.Width() != bg.Width() || fg.Height() != bg.Height() {
		return nil, fmt.Errorf("%w: mismatched foreground %dx%d and background %dx%d size",
			ErrInvalidLevel, fg.Width(), fg.Height(), bg.Width(), bg.Height())
	}
	if fg.Width() != Side || fg.Height() != Side {
		return nil, fmt.Errorf("%w: unsupported level size %dx%d", ErrInvalidLevel, fg.Width(), fg.Height())
	}
	if len(scrollFilter) != fg.Len() {
		return nil, fmt.Errorf("%w: scroll filter has %d entries for %d screens",
			ErrInvalidLevel, len(scrollFilter), fg.Len())
	}

	if err := validateEntrances(entrances); err != nil {
		return nil, err
	}
	if err := validateSprites(fg, bg); err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	return &Level{
		fg:           fg,
		bg:           bg,
		scrollFilter: slices.Clone(scrollFilter),
		entrances:    slices.Clone(entrances),
		header:       header,
	}, nil
}

func validateEntrances(entrances []Entrance) error {
	var primaries, secondaries int
	for _, en := range entrances {
		if err := en.validate(); err != nil {
			return err
		}

		if en.ID.Secondary {
			secondaries++
			continue
		}
		primaries++
		if en.ID.Sub >= levelPrimarySubs {
			return fmt.Errorf("%w: primary entrance number 0x%x too high", ErrInvalidLevel, en.ID.Sub)
		}
	}

	if primaries > MaxPrimaryEntrances {
		return fmt.Errorf("%w: %d primary entrances, maximum is %d", ErrInvalidLevel, primaries, MaxPrimaryEntrances)
	}
	if secondaries > MaxSecondaryEntrances {
		return fmt.Errorf("%w: %d secondary entrances, maximum is %d", ErrInvalidLevel, secondaries, MaxSecondaryEntrances)
	}
	return nil
}

// validateSprites checks every sprite of the grids.
func validateSprites(grids ...*Grid) error {
	for _, g := range grids {
		for _, scr := range g.Screens() {
			for _, sprite := range scr.Sprites() {
				if err := sprite.validate(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Foreground returns the foreground layer.
func (l *Level) Foreground() *Grid {
	return l.fg
}

// Background returns the background layer.
func (l *Level) Background() *Grid {
	return l.bg
}

// ScrollFilter returns the scroll filter flag of every screen.
func (l *Level) ScrollFilter() []bool {
	return l.scrollFilter
}

// Entrances returns the entrances in sorted order.
func (l *Level) Entrances() []Entrance {
	entrances := slices.Clone(l.entrances)
	slices.SortFunc(entrances, CompareEntrances)
	return entrances
}

// Header returns the level header.
func (l *Level) Header() Header {
	return l.header
}

// Width returns the level width in screens.
func (l *Level) Width() int {
	return l.fg.Width()
}

// Height returns the level height in screens.
func (l *Level) Height() int {
	return l.fg.Height()
}

// screens returns the foreground screens followed by the background screens.
func (l *Level) screens() []*Screen {
	return slices.Concat(l.fg.Screens(), l.bg.Screens())
}

// TileBytes returns the planar tile data of all foreground and background
// screens.
func (l *Level) TileBytes() []byte {
	return tileBytes(l.screens())
}

// tileBytes returns the low bytes of all 256 tiles of each screen followed
// by the high bytes.
func tileBytes(screens []*Screen) []byte {
	b := make([]byte, 0, len(screens)*ScreenTiles*2)
	for _, scr := range screens {
		for _, tile := range scr.Tiles {
			b = append(b, byte(tile))
		}
		for _, tile := range scr.Tiles {
			b = append(b, byte(tile>>8))
		}
	}
	return b
}
