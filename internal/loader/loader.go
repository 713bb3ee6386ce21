// Package loader handles cartridge image loading and saving.
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/errs"
)

const (
	// CopierHeaderSize is the size of the header some copier devices put in
	// front of the image.
	CopierHeaderSize = 0x200

	bankSize = 0x8000
)

// ErrEmptyImage is returned for a file that contains no image data.
var ErrEmptyImage = fmt.Errorf("%w: empty image", errs.ErrFormat)

// Image is a loaded cartridge image.
type Image struct {
	// Data is the image without a copier header, PC offsets index into it.
	Data []byte
	// CopierHeader is the stripped copier header or nil.
	CopierHeader []byte
}

// Loader handles loading and saving cartridge files.
type Loader struct {
	logger *log.Logger
}

// New creates a new cartridge loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// Load reads a cartridge image file. A copier header is detected by the file
// size not being a multiple of the bank size and is kept separately.
func (l *Loader) Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	img := Split(data)
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("loading %s: %w", path, ErrEmptyImage)
	}

	if img.CopierHeader != nil {
		l.logger.Debug("Copier header stripped", log.String("file", path))
	}
	l.logger.Debug("Image loaded",
		log.String("file", path),
		log.Hex("size", len(img.Data)))
	return img, nil
}

// Split separates a copier header from the image data.
func Split(data []byte) *Image {
	if len(data)%bankSize != CopierHeaderSize {
		return &Image{Data: data}
	}
	return &Image{
		Data:         data[CopierHeaderSize:],
		CopierHeader: data[:CopierHeaderSize],
	}
}

// Bytes returns the file content of the image including its copier header.
func (img *Image) Bytes() []byte {
	b := make([]byte, 0, len(img.CopierHeader)+len(img.Data))
	b = append(b, img.CopierHeader...)
	return append(b, img.Data...)
}

// Save writes the image including its copier header. The content is written
// to a temporary file in the same directory first and renamed over path.
func (l *Loader) Save(path string, img *Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(img.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}

	l.logger.Debug("Image saved",
		log.String("file", path),
		log.Hex("size", len(img.Data)))
	return nil
}
