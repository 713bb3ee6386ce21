package level

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/snescolor"
)

func TestNewValidation(t *testing.T) {
	fg, err := NewGrid(Side, Side)
	assert.NoError(t, err)
	bg, err := NewGrid(Side, Side)
	assert.NoError(t, err)
	small, err := NewGrid(16, 16)
	assert.NoError(t, err)

	filter := make([]bool, Side*Side)
	secondaries := make([]Entrance, MaxSecondaryEntrances+1)
	for i := range secondaries {
		secondaries[i] = Entrance{ID: EntranceID{Secondary: true, Level: 0x105, Sub: uint8(i % 0x20)}}
	}

	tests := []struct {
		name      string
		fg, bg    *Grid
		filter    []bool
		entrances []Entrance
		header    Header
		wantErr   error
	}{
		{name: "valid", fg: fg, bg: bg, filter: filter, header: DefaultHeader()},
		{name: "mismatched layers", fg: fg, bg: small, filter: filter, header: DefaultHeader(), wantErr: ErrInvalidLevel},
		{name: "unsupported size", fg: small, bg: small, filter: make([]bool, 256), header: DefaultHeader(), wantErr: ErrInvalidLevel},
		{name: "short scroll filter", fg: fg, bg: bg, filter: filter[:10], header: DefaultHeader(), wantErr: ErrInvalidLevel},
		{
			name: "too many primaries", fg: fg, bg: bg, filter: filter, header: DefaultHeader(),
			entrances: []Entrance{{ID: EntranceID{Sub: 0}}, {ID: EntranceID{Sub: 1}}, {ID: EntranceID{Sub: 0}}},
			wantErr:   ErrInvalidLevel,
		},
		{
			name: "primary sub out of range", fg: fg, bg: bg, filter: filter, header: DefaultHeader(),
			entrances: []Entrance{{ID: EntranceID{Sub: 2}}},
			wantErr:   ErrInvalidLevel,
		},
		{
			name: "secondary sub out of range", fg: fg, bg: bg, filter: filter, header: DefaultHeader(),
			entrances: []Entrance{{ID: EntranceID{Secondary: true, Sub: 0x20}}},
			wantErr:   ErrInvalidEntrance,
		},
		{
			name: "too many secondaries", fg: fg, bg: bg, filter: filter, header: DefaultHeader(),
			entrances: secondaries,
			wantErr:   ErrInvalidLevel,
		},
		{
			name: "header field overflow", fg: fg, bg: bg, filter: filter,
			header:  Header{Palette: SharedPalette{}, Time: 0x10},
			wantErr: ErrInvalidHeader,
		},
		{
			name: "missing palette", fg: fg, bg: bg, filter: filter,
			header:  Header{},
			wantErr: ErrInvalidHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lvl, err := New(tt.fg, tt.bg, tt.filter, tt.entrances, tt.header)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, errors.Is(err, errs.ErrValidation))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, Side, lvl.Width())
			assert.Equal(t, Side, lvl.Height())
		})
	}
}

func TestHeaderCustomPalette(t *testing.T) {
	h := DefaultHeader()
	h.Palette = CustomPalette{Colors: &snescolor.Palette{}}
	assert.NoError(t, h.Validate())

	h.Palette = CustomPalette{}
	assert.True(t, errors.Is(h.Validate(), ErrInvalidHeader))
}

func TestLevelEntrancesSorted(t *testing.T) {
	fg, err := NewGrid(Side, Side)
	assert.NoError(t, err)
	bg, err := NewGrid(Side, Side)
	assert.NoError(t, err)

	entrances := []Entrance{
		{ID: EntranceID{Secondary: true, Level: 0x105, Sub: 3}},
		{ID: EntranceID{Level: 0x105, Sub: 1}},
		{ID: EntranceID{Level: 0x105, Sub: 0}},
	}
	lvl, err := New(fg, bg, make([]bool, Side*Side), entrances, DefaultHeader())
	assert.NoError(t, err)

	got := lvl.Entrances()
	assert.Equal(t, uint8(0), got[0].ID.Sub)
	assert.Equal(t, uint8(1), got[1].ID.Sub)
	assert.True(t, got[2].ID.Secondary)
}

func TestLevelTileBytes(t *testing.T) {
	lvl := newTestLevel(t, func(fg, _ *Grid) {
		fg.ScreenAt(0, 0).SetTile(0, 0, 0x1234)
	})

	b := lvl.TileBytes()
	assert.Len(t, b, 2*Side*Side*ScreenTiles*2)
	assert.Equal(t, byte(0x34), b[0])
	assert.Equal(t, byte(0x25), b[1])
	assert.Equal(t, byte(0x12), b[ScreenTiles])
	assert.Equal(t, byte(0x00), b[ScreenTiles+1])
}

func TestNewFieldRange(t *testing.T) {
	tests := []struct {
		name      string
		entrances []Entrance
		sprite    *Sprite
	}{
		{
			name:      "entrance animation",
			entrances: []Entrance{{Anim: MaxEntranceAnim}},
		},
		{
			name:      "entrance x",
			entrances: []Entrance{{X: MaxEntrancePos}},
		},
		{
			name:      "entrance y",
			entrances: []Entrance{{Y: MaxEntrancePos}},
		},
		{
			name:   "sprite id",
			sprite: &Sprite{ID: MaxSpriteID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg, err := NewGrid(Side, Side)
			assert.NoError(t, err)
			bg, err := NewGrid(Side, Side)
			assert.NoError(t, err)
			if tt.sprite != nil {
				fg.ScreenAt(0, 0).AddSprite(*tt.sprite)
			}

			lvl, err := New(fg, bg, make([]bool, Side*Side), tt.entrances, DefaultHeader())
			assert.True(t, lvl == nil)
			assert.True(t, errors.Is(err, ErrFieldRange))
			assert.True(t, errors.Is(err, errs.ErrRange))
		})
	}
}

func TestNewFieldLimits(t *testing.T) {
	fg, err := NewGrid(Side, Side)
	assert.NoError(t, err)
	bg, err := NewGrid(Side, Side)
	assert.NoError(t, err)
	fg.ScreenAt(0, 0).AddSprite(Sprite{ID: MaxSpriteID - 1})

	entrances := []Entrance{{Anim: MaxEntranceAnim - 1, X: MaxEntrancePos - 1, Y: MaxEntrancePos - 1}}
	_, err = New(fg, bg, make([]bool, Side*Side), entrances, DefaultHeader())
	assert.NoError(t, err)
}
