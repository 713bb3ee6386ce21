package level

import (
	"fmt"
	"slices"
)

const (
	// ScreenSize is the width and height of a screen in tiles.
	ScreenSize = 16
	// ScreenTiles is the number of tiles of a screen.
	ScreenTiles = ScreenSize * ScreenSize

	// DefaultTile fills the screens of a new grid.
	DefaultTile uint16 = 0x0025
)

// Screen is a 16x16 tile part of a level layer with its sprites and the
// entrance that its exit leads to.
type Screen struct {
	Tiles   [ScreenTiles]uint16
	Exit    EntranceID
	sprites []Sprite
}

// NewScreen returns a screen filled with the default tile.
func NewScreen() *Screen {
	s := &Screen{}
	for i := range s.Tiles {
		s.Tiles[i] = DefaultTile
	}
	return s
}

// Tile returns the tile at the given column and row.
// It panics if the position is outside of the screen.
func (s *Screen) Tile(x, y int) uint16 {
	return s.Tiles[tileIndex(x, y)]
}

// SetTile sets the tile at the given column and row.
// It panics if the position is outside of the screen.
func (s *Screen) SetTile(x, y int, tile uint16) {
	s.Tiles[tileIndex(x, y)] = tile
}

// AddSprite adds the sprite to the sorted sprite set of the screen.
// Adding a sprite that is already part of the set has no effect.
func (s *Screen) AddSprite(sprite Sprite) {
	i, found := slices.BinarySearchFunc(s.sprites, sprite, CompareSprites)
	if found {
		return
	}
	s.sprites = slices.Insert(s.sprites, i, sprite)
}

// Sprites returns the sprites of the screen in sorted order.
func (s *Screen) Sprites() []Sprite {
	return slices.Clone(s.sprites)
}

// SpriteCount returns the number of sprites on the screen.
func (s *Screen) SpriteCount() int {
	return len(s.sprites)
}

// ScreensEqual returns whether two screens can share a catalogue entry.
// Screens carrying sprites are never equal to any screen, including an
// otherwise identical one.
func ScreensEqual(a, b *Screen) bool {
	if len(a.sprites) != 0 || len(b.sprites) != 0 {
		return false
	}
	return a.Tiles == b.Tiles && a.Exit == b.Exit
}

func tileIndex(x, y int) int {
	if x < 0 || x >= ScreenSize || y < 0 || y >= ScreenSize {
		panic(fmt.Sprintf("tile index %d,%d out of bounds", x, y))
	}
	return y*ScreenSize + x
}
