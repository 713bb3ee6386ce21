package patcher

import (
	"bytes"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/level"
	"github.com/retroenv/snespatch/internal/leveltable"
	"github.com/retroenv/snespatch/internal/rats"
	"github.com/retroenv/snespatch/internal/snescolor"
	"github.com/retroenv/snespatch/internal/verification"
)

const (
	testImageSize   = 0x100000
	testLevel       = 0x105
	testPointer     = 0x2e000 + testLevel*3
	defaultBodySize = 0x92b
)

func newTestLevel(t *testing.T, header level.Header, setup func(fg *level.Grid)) *level.Level {
	t.Helper()
	fg, err := level.NewGrid(level.Side, level.Side)
	assert.NoError(t, err)
	bg, err := level.NewGrid(level.Side, level.Side)
	assert.NoError(t, err)
	if setup != nil {
		setup(fg)
	}

	lvl, err := level.New(fg, bg, make([]bool, level.Side*level.Side), nil, header)
	assert.NoError(t, err)
	return lvl
}

func newTestPatcher(t *testing.T, opts Options) *Patcher {
	t.Helper()
	return New(log.NewTestLogger(t), address.LoROM{}, opts)
}

func TestInsertLevel(t *testing.T) {
	image := make([]byte, testImageSize)
	original := bytes.Clone(image)
	p := newTestPatcher(t, Options{})

	res, err := p.InsertLevel(image, testLevel, newTestLevel(t, level.DefaultHeader(), nil))
	assert.NoError(t, err)

	assert.Equal(t, 0x80000, res.Record.PC())
	assert.Equal(t, rats.RecordHeaderSize+defaultBodySize, res.Size)
	assert.Equal(t, uint32(0x90800c), res.Layout.Base)
	assert.Equal(t, 0, res.Removed.Len())

	size, ok := rats.TagLen(image[0x80000:])
	assert.True(t, ok)
	assert.Equal(t, res.Size, size)
	assert.Equal(t, []byte("CLNP"), image[0x80008:0x8000c])
	assert.Equal(t, []byte{0x0c, 0x80, 0x90}, image[testPointer:testPointer+3])

	// backfilled sprite pointer of the record body
	assert.Equal(t, []byte{0x1c, 0x88, 0x90}, image[0x8000c:0x8000f])

	assert.NoError(t, verification.VerifyPatch(log.NewTestLogger(t), original, image, res.Touched))
}

func TestInsertLevelReplacesRecord(t *testing.T) {
	image := make([]byte, testImageSize)
	p := newTestPatcher(t, Options{})
	lvl := newTestLevel(t, level.DefaultHeader(), nil)

	first, err := p.InsertLevel(image, testLevel, lvl)
	assert.NoError(t, err)
	original := bytes.Clone(image)

	second, err := p.InsertLevel(image, testLevel, lvl)
	assert.NoError(t, err)
	assert.Equal(t, verification.Range{Start: 0x80000, End: 0x80000 + first.Size}, second.Removed)
	assert.Equal(t, first.Record, second.Record)
	assert.True(t, bytes.Equal(original, image))

	assert.NoError(t, verification.VerifyPatch(log.NewTestLogger(t), original, image, second.Touched))
}

func TestInsertThenRemoveRestoresImage(t *testing.T) {
	image := make([]byte, testImageSize)
	p := newTestPatcher(t, Options{})

	res, err := p.InsertLevel(image, testLevel, newTestLevel(t, level.DefaultHeader(), nil))
	assert.NoError(t, err)

	freed, err := p.RemoveLevel(image, testLevel)
	assert.NoError(t, err)
	assert.Equal(t, verification.Range{Start: res.Record.PC(), End: res.Record.PC() + res.Size}, freed)
	assert.True(t, bytes.Equal(make([]byte, testImageSize), image))
}

func TestInsertLevelAlignment(t *testing.T) {
	image := make([]byte, testImageSize)
	_, err := rats.InsertFree(image, address.LoROM{}, make([]byte, 0x10))
	assert.NoError(t, err)

	p := newTestPatcher(t, Options{Alignment: 8})
	res, err := p.InsertLevel(image, testLevel, newTestLevel(t, level.DefaultHeader(), nil))
	assert.NoError(t, err)
	assert.Equal(t, 0x80100, res.Record.PC())
}

func TestInsertLevelCustomPalette(t *testing.T) {
	header := level.DefaultHeader()
	header.Palette = level.CustomPalette{Colors: &snescolor.Palette{}}
	lvl := newTestLevel(t, header, nil)

	// an odd record start needs the palette padding byte
	image := make([]byte, testImageSize)
	_, err := rats.InsertFree(image, address.LoROM{}, make([]byte, 1))
	assert.NoError(t, err)

	p := newTestPatcher(t, Options{})
	res, err := p.InsertLevel(image, testLevel, lvl)
	assert.NoError(t, err)
	assert.Equal(t, 0x80009, res.Record.PC())
	assert.Equal(t, uint32(0), res.Layout.Palette&1)
}

func TestInsertLevelStampsVersion(t *testing.T) {
	image := make([]byte, testImageSize)
	original := bytes.Clone(image)
	p := newTestPatcher(t, Options{StampVersion: true, Version: leveltable.Version{1, 2, 3}})

	res, err := p.InsertLevel(image, testLevel, newTestLevel(t, level.DefaultHeader(), nil))
	assert.NoError(t, err)

	v, ok, err := leveltable.New(address.LoROM{}).Version(image, testLevel)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, leveltable.Version{1, 2, 3}, v)

	assert.NoError(t, verification.VerifyPatch(log.NewTestLogger(t), original, image, res.Touched))
}

func TestInsertLevelErrors(t *testing.T) {
	lvl := newTestLevel(t, level.DefaultHeader(), nil)

	t.Run("invalid level number", func(t *testing.T) {
		image := make([]byte, testImageSize)
		_, err := newTestPatcher(t, Options{}).InsertLevel(image, level.MaxLevels, lvl)
		assert.True(t, errors.Is(err, ErrInvalidLevelNumber))
		assert.True(t, errors.Is(err, errs.ErrValidation))
	})

	t.Run("no free space", func(t *testing.T) {
		image := make([]byte, 0x80000+0x100)
		_, err := newTestPatcher(t, Options{}).InsertLevel(image, testLevel, lvl)
		assert.True(t, errors.Is(err, rats.ErrNoSpace))
		assert.True(t, bytes.Equal(make([]byte, len(image)), image))
	})

	t.Run("record larger than a bank", func(t *testing.T) {
		large := newTestLevel(t, level.DefaultHeader(), func(fg *level.Grid) {
			for i := range 100 {
				scr := fg.ScreenAt(i%level.Side, i/level.Side)
				for y := range level.ScreenSize {
					for x := range level.ScreenSize {
						scr.SetTile(x, y, uint16(i)<<8|uint16(y*level.ScreenSize+x))
					}
				}
			}
		})

		image := make([]byte, testImageSize)
		_, err := newTestPatcher(t, Options{}).InsertLevel(image, testLevel, large)
		assert.True(t, errors.Is(err, ErrRecordTooLarge))
		assert.True(t, errors.Is(err, errs.ErrCapacity))
	})
}

func TestRemoveLevelWithoutRecord(t *testing.T) {
	image := make([]byte, testImageSize)
	p := newTestPatcher(t, Options{})

	_, err := p.RemoveLevel(image, testLevel)
	assert.True(t, errors.Is(err, leveltable.ErrNoRecord))

	_, err = p.RemoveLevel(image, 0x200)
	assert.True(t, errors.Is(err, ErrInvalidLevelNumber))
}

func TestFreeSpace(t *testing.T) {
	image := make([]byte, testImageSize)
	p := newTestPatcher(t, Options{})

	a, err := p.FreeSpace(image, 0x100, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0x80000, a.PC())

	_, err = p.FreeSpace(image, 0, 0)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = p.FreeSpace(image, 0x8001, 0)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = p.FreeSpace(image, 0x10, 17)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestPointerRange(t *testing.T) {
	image := make([]byte, testImageSize)
	p := newTestPatcher(t, Options{})

	r, err := p.PointerRange(image, testLevel)
	assert.NoError(t, err)
	assert.Equal(t, verification.Range{Start: 0x2e000 + int(testLevel)*3, End: 0x2e000 + int(testLevel)*3 + 3}, r)

	_, err = p.PointerRange(image, 0x200)
	assert.True(t, errors.Is(err, ErrInvalidLevelNumber))
}
