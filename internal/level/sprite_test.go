package level

import (
	"slices"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestSpritePosition(t *testing.T) {
	s := Sprite{X: 0x25, Y: 0x3f}
	assert.Equal(t, 2, s.ScreenX())
	assert.Equal(t, 3, s.ScreenY())
	assert.Equal(t, 5, s.LocalX())
	assert.Equal(t, 15, s.LocalY())
}

func TestSpriteAppendBinary(t *testing.T) {
	tests := []struct {
		name   string
		sprite Sprite
		want   []byte
	}{
		{
			name:   "short",
			sprite: Sprite{ID: 0x12, X: 0x13, Y: 0x24, Ext: [4]uint8{0xab}},
			want:   []byte{0x00, 0x12, 0x4b, 0x3a},
		},
		{
			name:   "high id and extension bit",
			sprite: Sprite{ID: 0x1c5, X: 1, Y: 2, ExtBit: true},
			want:   []byte{0x0c, 0xc5, 0x20, 0x10},
		},
		{
			name:   "long",
			sprite: Sprite{ID: 0x01, Ext: [4]uint8{0x00, 0x11, 0x22, 0x33}},
			want:   []byte{0x02, 0x01, 0x00, 0x00, 0x11, 0x22, 0x33, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sprite.AppendBinary(nil))
		})
	}
}

func TestCompareSprites(t *testing.T) {
	sprites := []Sprite{
		{ID: 1, X: 0x12, Y: 0x00}, // screen 1,0
		{ID: 2, X: 0x05, Y: 0x10}, // screen 0,1
		{ID: 3, X: 0x01, Y: 0x09}, // screen 0,0 column 1
		{ID: 4, X: 0x00, Y: 0x0f}, // screen 0,0 column 0 row 15
		{ID: 5, X: 0x00, Y: 0x01}, // screen 0,0 column 0 row 1
	}
	slices.SortFunc(sprites, CompareSprites)

	var ids []uint16
	for _, s := range sprites {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []uint16{5, 4, 3, 1, 2}, ids)
}
