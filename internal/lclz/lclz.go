// Package lclz decodes the LC_LZ2 and LC_LZ3 command stream compression
// formats.
package lclz

import (
	"fmt"

	"github.com/retroenv/snespatch/internal/errs"
)

var (
	// ErrPrematureEnd is returned when the stream ends before a command head
	// or a command argument byte.
	ErrPrematureEnd = fmt.Errorf("%w: premature end of stream", errs.ErrFormat)
	// ErrInputOverrun is returned when a direct copy requests more bytes than remain.
	ErrInputOverrun = fmt.Errorf("%w: command reads past end of stream", errs.ErrFormat)
	// ErrInvalidHeader is returned for a long command head that encodes another long head.
	ErrInvalidHeader = fmt.Errorf("%w: invalid double-long command header", errs.ErrFormat)
	// ErrUndefinedCommand is returned for commands the format variant does not define.
	ErrUndefinedCommand = fmt.Errorf("%w: undefined command", errs.ErrFormat)
	// ErrOutOfRangeCopy is returned for back references outside of the decoded output.
	ErrOutOfRangeCopy = fmt.Errorf("%w: copy source out of range", errs.ErrRange)
	// ErrOverlongOutput is returned when the decoded output exceeds MaxOutput bytes.
	ErrOverlongOutput = fmt.Errorf("%w: decoded output too long", errs.ErrCapacity)
)

// Format selects the command stream variant.
type Format int

// Supported formats.
const (
	LZ2 Format = iota + 2
	LZ3
)

const (
	// MaxOutput is the largest number of bytes a stream may decode to.
	MaxOutput = 0xffff

	defaultSizeHint = 4 * 1024

	endOfStream = 0xff
	longCommand = 7
)

// ParseFormat returns the format for the given name.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "lz2", "LZ2":
		return LZ2, nil
	case "lz3", "LZ3":
		return LZ3, nil
	default:
		return 0, fmt.Errorf("unsupported compression format '%s'", name)
	}
}

func (f Format) String() string {
	switch f {
	case LZ2:
		return "lz2"
	case LZ3:
		return "lz3"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Decompress decodes a stream of the given format.
func Decompress(format Format, data []byte) ([]byte, error) {
	return DecompressWithHint(format, data, defaultSizeHint)
}

// DecompressWithHint decodes a stream of the given format, preallocating
// sizeHint bytes for the output.
func DecompressWithHint(format Format, data []byte, sizeHint int) ([]byte, error) {
	switch format {
	case LZ2:
		return lz2.decode(data, sizeHint)
	case LZ3:
		return lz3.decode(data, sizeHint)
	default:
		return nil, fmt.Errorf("unsupported compression format %s", format)
	}
}

// DecompressLZ2 decodes an LC_LZ2 stream.
func DecompressLZ2(data []byte) ([]byte, error) {
	return lz2.decode(data, defaultSizeHint)
}

// DecompressLZ3 decodes an LC_LZ3 stream.
func DecompressLZ3(data []byte) ([]byte, error) {
	return lz3.decode(data, defaultSizeHint)
}
