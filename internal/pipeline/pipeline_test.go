package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/config"
	"github.com/retroenv/snespatch/internal/leveltable"
	"github.com/retroenv/snespatch/internal/options"
)

const (
	testImageSize = 0x100000
	testLevel     = 0x105
)

const testDocument = `
header:
  mode: 0x01
foreground:
  fill: 0x100
sprites:
  - id: 0x0d
    x: 20
    y: 5
`

// writeTestImage writes a LoROM image with a valid internal header.
func writeTestImage(t *testing.T, dir string) (string, []byte) {
	t.Helper()

	image := make([]byte, testImageSize)
	copy(image[0x7fc0:], "SUPER MARIOWORLD     ")
	image[0x7fd5] = 0x20
	image[0x7fdc], image[0x7fdd] = 0x5a, 0x12
	image[0x7fde], image[0x7fdf] = 0xa5, 0xed

	path := filepath.Join(dir, "smw.sfc")
	assert.NoError(t, os.WriteFile(path, image, 0o644))
	return path, image
}

func writeTestDocument(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "level.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(testDocument), 0o644))
	return path
}

func TestNew(t *testing.T) {
	p := New(log.NewTestLogger(t), config.Default())

	assert.NotNil(t, p)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.detector)
	assert.NotNil(t, p.loader)
	assert.NotNil(t, p.importer)
}

func TestInsertAndRestore(t *testing.T) {
	dir := t.TempDir()
	romPath, original := writeTestImage(t, dir)
	global := options.Global{ROM: romPath}

	p := New(log.NewTestLogger(t), config.Default())
	res, err := p.Insert(context.Background(), global, options.Insert{
		Level: testLevel,
		File:  writeTestDocument(t, dir),
	})
	assert.NoError(t, err)
	assert.Equal(t, 0x80000, res.Record.PC())

	patched, err := os.ReadFile(romPath)
	assert.NoError(t, err)
	assert.False(t, bytes.Equal(original, patched))
	assert.Equal(t, []byte{0x0c, 0x80, 0x90}, patched[0x2e000+testLevel*3:0x2e000+testLevel*3+3])

	backups, err := filepath.Glob(romPath + ".*.bak.zst")
	assert.NoError(t, err)
	assert.Len(t, backups, 1)

	target, err := p.Restore(options.Restore{Backup: backups[0]})
	assert.NoError(t, err)
	assert.Equal(t, romPath, target)

	restored, err := os.ReadFile(romPath)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(original, restored))
}

func TestInsertDryRun(t *testing.T) {
	dir := t.TempDir()
	romPath, original := writeTestImage(t, dir)

	p := New(log.NewTestLogger(t), config.Default())
	_, err := p.Insert(context.Background(), options.Global{ROM: romPath}, options.Insert{
		Level:  testLevel,
		File:   writeTestDocument(t, dir),
		DryRun: true,
	})
	assert.NoError(t, err)

	data, err := os.ReadFile(romPath)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(original, data))

	backups, err := filepath.Glob(romPath + ".*.bak*")
	assert.NoError(t, err)
	assert.Empty(t, backups)
}

func TestInsertCancelled(t *testing.T) {
	dir := t.TempDir()
	romPath, original := writeTestImage(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(log.NewTestLogger(t), config.Default())
	_, err := p.Insert(ctx, options.Global{ROM: romPath}, options.Insert{
		Level: testLevel,
		File:  writeTestDocument(t, dir),
	})
	assert.True(t, errors.Is(err, context.Canceled))

	data, err := os.ReadFile(romPath)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(original, data))
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	romPath, original := writeTestImage(t, dir)
	global := options.Global{ROM: romPath}

	cfg := config.Default()
	cfg.Backup.Enabled = false
	cfg.Versions.Enabled = false
	p := New(log.NewTestLogger(t), cfg)

	res, err := p.Insert(context.Background(), global, options.Insert{
		Level: testLevel,
		File:  writeTestDocument(t, dir),
	})
	assert.NoError(t, err)

	freed, err := p.Remove(context.Background(), global, options.Remove{Level: testLevel})
	assert.NoError(t, err)
	assert.Equal(t, res.Record.PC(), freed.Start)
	assert.Equal(t, res.Record.PC()+res.Size, freed.End)

	data, err := os.ReadFile(romPath)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(original, data))

	_, err = p.Remove(context.Background(), global, options.Remove{Level: testLevel})
	assert.True(t, errors.Is(err, leveltable.ErrNoRecord))
}

func TestFree(t *testing.T) {
	dir := t.TempDir()
	romPath, _ := writeTestImage(t, dir)

	p := New(log.NewTestLogger(t), config.Default())
	a, err := p.Free(options.Global{ROM: romPath}, options.Free{Size: 0x100})
	assert.NoError(t, err)
	assert.Equal(t, 0x80000, a.PC())

	_, err = p.Free(options.Global{ROM: romPath}, options.Free{Size: 0})
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	romPath, image := writeTestImage(t, dir)
	copy(image[0x90000:], []byte{0x21, 9, 0xff})
	assert.NoError(t, os.WriteFile(romPath, image, 0o644))

	out := filepath.Join(dir, "out")
	p := New(log.NewTestLogger(t), config.Default())
	files, err := p.Extract(context.Background(), options.Global{ROM: romPath}, options.Extract{
		Format:  "lz2",
		Output:  out,
		Offsets: []int{0x90000},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "090000.lz2.bin")}, files)

	data, err := os.ReadFile(files[0])
	assert.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, data)

	_, err = p.Extract(context.Background(), options.Global{ROM: romPath}, options.Extract{Format: "lz9"})
	assert.Error(t, err)
}

func TestMissingImage(t *testing.T) {
	p := New(log.NewTestLogger(t), config.Default())
	_, err := p.Free(options.Global{ROM: filepath.Join(t.TempDir(), "missing.sfc")}, options.Free{Size: 1})
	assert.ErrorContains(t, err, "loading image")
}
