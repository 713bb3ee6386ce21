package level

import (
	"fmt"

	"github.com/retroenv/snespatch/internal/errs"
)

// ErrTooManyScreens is returned when a level has more distinct screens than
// the 7 bit screen index can address.
var ErrTooManyScreens = fmt.Errorf("%w: level has too many distinct screens", errs.ErrValidation)

// MaxDistinctScreens is the maximum number of catalogue entries.
const MaxDistinctScreens = 128

const scrollFilterBit = 0x80

// ScreenDex is the catalogue of distinct screens of a level, with the
// catalogue index and scroll filter flag of every grid position.
type ScreenDex struct {
	screens []*Screen
	index   []uint8
	filter  []bool
	width   int
	height  int
}

// NewScreenDex builds the catalogue of the foreground screens followed by
// the background screens of a level, both in row-major order.
func NewScreenDex(lvl *Level) (*ScreenDex, error) {
	all := lvl.screens()
	dex := &ScreenDex{
		screens: make([]*Screen, 0, MaxDistinctScreens),
		index:   make([]uint8, 0, len(all)),
		filter:  lvl.ScrollFilter(),
		width:   lvl.Width(),
		height:  lvl.Height(),
	}

	for pos, scr := range all {
		idx, ok := dex.find(scr)
		if !ok {
			if len(dex.screens) == MaxDistinctScreens {
				return nil, fmt.Errorf("%w: screen at position %d exceeds %d entries",
					ErrTooManyScreens, pos, MaxDistinctScreens)
			}
			idx = len(dex.screens)
			dex.screens = append(dex.screens, scr)
		}
		dex.index = append(dex.index, uint8(idx))
	}

	return dex, nil
}

func (d *ScreenDex) find(scr *Screen) (int, bool) {
	for i, known := range d.screens {
		if ScreensEqual(known, scr) {
			return i, true
		}
	}
	return 0, false
}

// Screens returns the distinct screens in catalogue order.
func (d *ScreenDex) Screens() []*Screen {
	return d.screens
}

// Len returns the number of distinct screens.
func (d *ScreenDex) Len() int {
	return len(d.screens)
}

// Index returns the catalogue index of every grid position.
func (d *ScreenDex) Index() []uint8 {
	return d.index
}

// ScreenAt returns the foreground screen at the given column and row.
// It panics if the position is outside of the level.
func (d *ScreenDex) ScreenAt(x, y int) *Screen {
	if x < 0 || x >= d.width || y < 0 || y >= d.height {
		panic(fmt.Sprintf("screen index %d,%d out of bounds", x, y))
	}
	return d.screens[d.index[y*d.width+x]]
}

// DexBytes returns the catalogue index of every grid position with the
// scroll filter flag in bit 7.
func (d *ScreenDex) DexBytes() []byte {
	b := make([]byte, len(d.index))
	copy(b, d.index)
	for i := range b {
		if i < len(d.filter) && d.filter[i] {
			b[i] |= scrollFilterBit
		}
	}
	return b
}

// TileBytes returns the planar tile data of all catalogue screens.
func (d *ScreenDex) TileBytes() []byte {
	return tileBytes(d.screens)
}
