// Package binlevel serializes a level into the binary level record format
// that the game loads.
package binlevel

import (
	"fmt"
	"io"

	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/level"
)

// ErrSpriteOverflow is returned when the sprite data of a level does not fit
// into the byte sized fields of the sprite table.
var ErrSpriteOverflow = fmt.Errorf("%w: sprite data does not fit the sprite table", errs.ErrCapacity)

const (
	placeholderSize = 8
	spriteTableSize = 2 * level.MaxDistinctScreens

	maxSpriteTableOffset = 0x7f
	maxSpriteIndex       = 0xff

	customPaletteFlag = 0x01
)

// Fixed entrance record fields.
const (
	entranceBGOffset = 0
	entranceScroll   = 0
	entranceThree    = 3
	entranceIntro    = false
)

// Layout contains the bus address of every section of a written record.
type Layout struct {
	Base      uint32
	Screens   uint32
	Dex       uint32
	Sprites   uint32
	Palette   uint32 // zero for levels using a shared palette
	Entrances uint32
	Exits     uint32
	Header    uint32
	End       uint32
}

// Length returns the total number of bytes of the record.
func (l Layout) Length() uint32 {
	return l.End - l.Base
}

// WriteBody writes the level record for lvl at the current position of w.
// base is the bus address that the current position will be loaded from.
// The returned length covers every written byte and w is left positioned
// at the end of the record.
func WriteBody(w io.WriteSeeker, lvl *level.Level, base uint32) (uint32, error) {
	layout, err := WriteLayout(w, lvl, base)
	if err != nil {
		return 0, err
	}
	return layout.Length(), nil
}

// WriteLayout writes the level record like WriteBody and returns the bus
// address of every section.
func WriteLayout(w io.WriteSeeker, lvl *level.Level, base uint32) (Layout, error) {
	dex, err := level.NewScreenDex(lvl)
	if err != nil {
		return Layout{}, fmt.Errorf("building screen catalogue: %w", err)
	}
	sprites, err := spriteBlock(dex)
	if err != nil {
		return Layout{}, err
	}

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return Layout{}, fmt.Errorf("getting record start: %w", err)
	}

	e := &encoder{w: w, addr: base}
	layout := Layout{Base: base}

	e.write(make([]byte, placeholderSize))

	layout.Screens = e.addr
	e.write(appendRuns(nil, dex.TileBytes()))

	layout.Dex = e.addr
	e.write(dex.DexBytes())

	layout.Sprites = e.addr
	e.write(sprites)

	header := lvl.Header()
	if custom, ok := header.Palette.(level.CustomPalette); ok {
		if e.addr&1 == 1 {
			e.write([]byte{0})
		}
		layout.Palette = e.addr
		e.write(custom.Colors.Bytes())
	}

	layout.Entrances = e.addr
	e.write(entranceTable(lvl.Entrances()))

	layout.Exits = e.addr
	for _, scr := range dex.Screens() {
		exit := scr.Exit.Bytes()
		e.write(exit[:])
	}

	layout.Header = e.addr
	e.write(headerRecord(header, layout))

	layout.End = e.addr
	if e.err != nil {
		return Layout{}, fmt.Errorf("writing level record: %w", e.err)
	}

	end := start + int64(layout.Length())
	if _, err := w.Seek(start, io.SeekStart); err != nil {
		return Layout{}, fmt.Errorf("seeking to record pointers: %w", err)
	}
	e.write(appendLong(appendLong(nil, layout.Sprites), layout.Header))
	if e.err != nil {
		return Layout{}, fmt.Errorf("writing record pointers: %w", e.err)
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return Layout{}, fmt.Errorf("seeking to record end: %w", err)
	}

	return layout, nil
}

// encoder writes to w and tracks the bus address of the next byte.
// The first write error is kept and all following writes are skipped.
type encoder struct {
	w    io.Writer
	addr uint32
	err  error
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(b)
	e.addr += uint32(n)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	e.err = err
}

// spriteBlock returns a reserved byte, the offset table with one entry per
// catalogue screen and the sprite lists of all screens that have sprites.
func spriteBlock(dex *level.ScreenDex) ([]byte, error) {
	table := make([]byte, spriteTableSize)
	lists := append([]byte(nil), level.SpriteTerminator[:]...)

	var index int
	for i, scr := range dex.Screens() {
		if scr.SpriteCount() == 0 {
			continue
		}

		offset := len(lists) / 4
		if offset > maxSpriteTableOffset || index > maxSpriteIndex {
			return nil, fmt.Errorf("%w: screen %d starts at sprite %d, list offset %d",
				ErrSpriteOverflow, i, index, offset)
		}
		table[2*i] = byte(offset) << 1
		table[2*i+1] = byte(index)

		for _, sprite := range scr.Sprites() {
			lists = sprite.AppendBinary(lists)
			index++
		}
		lists = append(lists, level.SpriteTerminator[:]...)
	}

	block := make([]byte, 0, 1+len(table)+len(lists))
	block = append(block, 0)
	block = append(block, table...)
	return append(block, lists...), nil
}

// entranceTable returns the number of primary entrances followed by the
// records of all entrances, which have to be sorted.
func entranceTable(entrances []level.Entrance) []byte {
	var primaries byte
	for _, en := range entrances {
		if !en.ID.Secondary {
			primaries++
		}
	}

	b := make([]byte, 0, 1+6*len(entrances))
	b = append(b, primaries)
	for _, en := range entrances {
		b = appendEntrance(b, en, entranceBGOffset, entranceScroll, entranceThree, entranceIntro)
	}
	return b
}

func appendEntrance(b []byte, en level.Entrance, bgOffset uint16, scroll, three uint8, intro bool) []byte {
	lvl, x, y := en.ID.Level, en.X, en.Y
	return append(b,
		byte(lvl),
		byte(lvl>>8)|en.Anim<<1|byte(x<<4),
		byte(x>>4)|byte(bgOffset<<5),
		byte(bgOffset>>3&0x0f)|byte(y<<4),
		byte(y>>4)|boolBit(intro)<<5|three<<6,
		scroll|byte(bgOffset>>3&0x30)|boolBit(en.Water)<<6|boolBit(en.Slippery)<<7,
	)
}

func headerRecord(h level.Header, layout Layout) []byte {
	b := make([]byte, 0, 18)
	b = appendLong(b, layout.Dex)
	b = appendLong(b, layout.Exits)
	b = append(b, level.Side, level.Side, h.L3Image<<5|h.Mode)

	switch p := h.Palette.(type) {
	case level.SharedPalette:
		b = append(b, 0, p.SP|p.Sky<<3, p.BG|p.FG<<3)
	case level.CustomPalette:
		b = appendLong(b, layout.Palette|customPaletteFlag)
	}

	b = append(b,
		h.Audio,
		h.TilesetSP<<4|h.TilesetFG,
		h.Time<<4|boolBit(h.L3Priority)<<3|h.Scroll,
	)
	return appendLong(b, layout.Entrances)
}

func appendLong(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16))
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}
