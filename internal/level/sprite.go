package level

import (
	"bytes"
	"cmp"
	"fmt"
)

// MaxSpriteID is the first sprite id that does not fit a sprite record.
const MaxSpriteID = 0x400

// SpriteTerminator ends every sprite list.
var SpriteTerminator = [4]byte{0x80, 0, 0, 0}

// Sprite is a sprite placed in a level. The position is given in tiles
// relative to the top left corner of the level.
type Sprite struct {
	ID     uint16
	X      uint16
	Y      uint16
	ExtBit bool
	Ext    [4]uint8
}

// ScreenX returns the column of the screen containing the sprite.
func (s Sprite) ScreenX() int {
	return int(s.X) / ScreenSize
}

// ScreenY returns the row of the screen containing the sprite.
func (s Sprite) ScreenY() int {
	return int(s.Y) / ScreenSize
}

// LocalX returns the tile column of the sprite inside its screen.
func (s Sprite) LocalX() int {
	return int(s.X) % ScreenSize
}

// LocalY returns the tile row of the sprite inside its screen.
func (s Sprite) LocalY() int {
	return int(s.Y) % ScreenSize
}

// Long returns whether the sprite needs the 8 byte record form.
func (s Sprite) Long() bool {
	return s.Ext[1] != 0 || s.Ext[2] != 0 || s.Ext[3] != 0
}

func (s Sprite) validate() error {
	if s.ID >= MaxSpriteID {
		return fmt.Errorf("%w: sprite id 0x%x, maximum is 0x%x", ErrFieldRange, s.ID, MaxSpriteID-1)
	}
	return nil
}

// AppendBinary appends the 4 or 8 byte sprite record to b.
func (s Sprite) AppendBinary(b []byte) []byte {
	flags := byte(s.ID>>5) & 0x18
	if s.Long() {
		flags |= 0x02
	}
	if s.ExtBit {
		flags |= 0x04
	}

	b = append(b,
		flags,
		byte(s.ID),
		byte(s.Y)<<4|s.Ext[0]&0x0f,
		byte(s.X)<<4|s.Ext[0]>>4,
	)
	if s.Long() {
		b = append(b, s.Ext[1], s.Ext[2], s.Ext[3], 0)
	}
	return b
}

// CompareSprites orders sprites by their screen in row-major order, then by
// their position inside the screen in column-major order, then by the
// remaining fields.
func CompareSprites(a, b Sprite) int {
	if c := cmp.Compare(a.ScreenY(), b.ScreenY()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ScreenX(), b.ScreenX()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.LocalX(), b.LocalX()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.LocalY(), b.LocalY()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	if c := compareBool(a.ExtBit, b.ExtBit); c != 0 {
		return c
	}
	return bytes.Compare(a.Ext[:], b.Ext[:])
}
