package snescolor

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/snespatch/internal/errs"
)

func TestParsePAL(t *testing.T) {
	data := make([]byte, PALFileSize)
	for i := 0; i < PaletteColors; i++ {
		data[i*3] = 0xff
	}
	data[1] = 0xff

	p, err := ParsePAL(data)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x03ff), p.Background.SNES())

	words := p.Words()
	assert.Len(t, words, PaletteColors+1)
	assert.Equal(t, uint16(0x03ff), words[0])
	for i, c := range p.Colors {
		if i%16 == 0 {
			assert.Equal(t, uint16(0), c.SNES(), "color %d", i)
			continue
		}
		assert.Equal(t, uint16(0x001f), c.SNES(), "color %d", i)
	}

	b := p.Bytes()
	assert.Len(t, b, BinarySize)
	assert.Equal(t, []byte{0xff, 0x03, 0x00, 0x00, 0x1f, 0x00}, b[:6])
}

func TestParsePALTooShort(t *testing.T) {
	_, err := ParsePAL(make([]byte, PALFileSize-1))
	assert.True(t, errors.Is(err, ErrShortPalette))
	assert.True(t, errors.Is(err, errs.ErrFormat))
}
