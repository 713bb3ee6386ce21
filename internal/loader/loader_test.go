package loader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestLoad(t *testing.T) {
	t.Run("headerless image", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xaa}, 2*bankSize)
		path := createTempFile(t, data)

		img, err := New(log.NewTestLogger(t)).Load(path)
		assert.NoError(t, err)
		assert.Len(t, img.Data, 2*bankSize)
		assert.True(t, img.CopierHeader == nil)
	})

	t.Run("image with copier header", func(t *testing.T) {
		data := make([]byte, CopierHeaderSize+bankSize)
		data[0] = 0x40
		data[CopierHeaderSize] = 0x78
		path := createTempFile(t, data)

		img, err := New(log.NewTestLogger(t)).Load(path)
		assert.NoError(t, err)
		assert.Len(t, img.Data, bankSize)
		assert.Len(t, img.CopierHeader, CopierHeaderSize)
		assert.Equal(t, byte(0x78), img.Data[0])
		assert.Equal(t, byte(0x40), img.CopierHeader[0])
	})

	t.Run("empty file", func(t *testing.T) {
		path := createTempFile(t, nil)
		_, err := New(log.NewTestLogger(t)).Load(path)
		assert.True(t, errors.Is(err, ErrEmptyImage))
	})

	t.Run("error on non-existent file", func(t *testing.T) {
		_, err := New(log.NewTestLogger(t)).Load("/nonexistent/file.sfc")
		assert.Error(t, err)
	})
}

func TestSaveKeepsCopierHeader(t *testing.T) {
	data := make([]byte, CopierHeaderSize+bankSize)
	for i := range data {
		data[i] = byte(i)
	}
	path := createTempFile(t, data)
	l := New(log.NewTestLogger(t))

	img, err := l.Load(path)
	assert.NoError(t, err)
	img.Data[0] = 0xff

	assert.NoError(t, l.Save(path, img))

	saved, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Len(t, saved, len(data))
	assert.True(t, bytes.Equal(data[:CopierHeaderSize], saved[:CopierHeaderSize]))
	assert.Equal(t, byte(0xff), saved[CopierHeaderSize])

	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveMissingDirectory(t *testing.T) {
	l := New(log.NewTestLogger(t))
	err := l.Save(filepath.Join(t.TempDir(), "missing", "game.sfc"), &Image{Data: []byte{1}})
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantHeader bool
	}{
		{name: "exact banks", size: 4 * bankSize},
		{name: "copier header", size: 4*bankSize + CopierHeaderSize, wantHeader: true},
		{name: "header only", size: CopierHeaderSize, wantHeader: true},
		{name: "odd trailing data", size: 4*bankSize + 0x10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := Split(make([]byte, tt.size))
			assert.Equal(t, tt.wantHeader, img.CopierHeader != nil)
			assert.Len(t, img.Bytes(), tt.size)
		})
	}
}

func createTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sfc")
	err := os.WriteFile(path, data, 0600)
	assert.NoError(t, err)
	return path
}
