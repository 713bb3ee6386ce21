package level

import (
	"fmt"

	"github.com/retroenv/snespatch/internal/errs"
)

// ErrInvalidGrid is returned for grids with unsupported dimensions and for
// content that does not fit into a grid.
var ErrInvalidGrid = fmt.Errorf("%w: invalid screen grid", errs.ErrValidation)

const (
	maxGridSide    = 128
	maxGridScreens = 1024
)

// ScreenPos is the column and row of a screen in a grid.
type ScreenPos struct {
	X int
	Y int
}

// Grid is a layer of a level made of screens in row-major order.
type Grid struct {
	screens []*Screen
	width   int
	height  int
}

// NewGrid returns a grid of screens filled with the default tile.
func NewGrid(width, height int) (*Grid, error) {
	if width < 1 || height < 1 || width >= maxGridSide || height >= maxGridSide {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGrid, width, height)
	}
	if width*height > maxGridScreens {
		return nil, fmt.Errorf("%w: %d screens exceed the maximum of %d", ErrInvalidGrid, width*height, maxGridScreens)
	}

	g := &Grid{
		screens: make([]*Screen, width*height),
		width:   width,
		height:  height,
	}
	for i := range g.screens {
		g.screens[i] = NewScreen()
	}
	return g, nil
}

// GridFromTiles returns a grid filled from a row-major tile map covering
// the whole grid width. Tiles not covered by the map keep the default tile.
func GridFromTiles(tiles []uint16, width, height int) (*Grid, error) {
	g, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}

	rowWidth := width * ScreenSize
	if len(tiles) > rowWidth*height*ScreenSize {
		return nil, fmt.Errorf("%w: %d tiles do not fit", ErrInvalidGrid, len(tiles))
	}

	for i, tile := range tiles {
		x, y := i%rowWidth, i/rowWidth
		g.ScreenAt(x/ScreenSize, y/ScreenSize).SetTile(x%ScreenSize, y%ScreenSize, tile)
	}
	return g, nil
}

// Width returns the number of screen columns.
func (g *Grid) Width() int {
	return g.width
}

// Height returns the number of screen rows.
func (g *Grid) Height() int {
	return g.height
}

// Len returns the number of screens.
func (g *Grid) Len() int {
	return len(g.screens)
}

// ScreenAt returns the screen at the given column and row.
// It panics if the position is outside of the grid.
func (g *Grid) ScreenAt(x, y int) *Screen {
	if !g.contains(x, y) {
		panic(fmt.Sprintf("screen index %d,%d out of bounds", x, y))
	}
	return g.screens[y*g.width+x]
}

// Screens returns all screens in row-major order.
func (g *Grid) Screens() []*Screen {
	return g.screens
}

// PlaceSprites adds every sprite to the screen containing it.
func (g *Grid) PlaceSprites(sprites []Sprite) error {
	for _, sprite := range sprites {
		if err := sprite.validate(); err != nil {
			return err
		}
		if !g.contains(sprite.ScreenX(), sprite.ScreenY()) {
			return fmt.Errorf("%w: sprite 0x%x at %d,%d is outside of the grid",
				ErrInvalidGrid, sprite.ID, sprite.X, sprite.Y)
		}
		g.ScreenAt(sprite.ScreenX(), sprite.ScreenY()).AddSprite(sprite)
	}
	return nil
}

// PlaceExits sets the exit of every listed screen.
func (g *Grid) PlaceExits(exits map[ScreenPos]EntranceID) error {
	for pos, exit := range exits {
		if !g.contains(pos.X, pos.Y) {
			return fmt.Errorf("%w: exit at screen %d,%d is outside of the grid", ErrInvalidGrid, pos.X, pos.Y)
		}
		g.ScreenAt(pos.X, pos.Y).Exit = exit
	}
	return nil
}

func (g *Grid) contains(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}
