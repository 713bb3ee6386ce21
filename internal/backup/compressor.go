package backup

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/retroenv/snespatch/internal/errs"
)

// ErrUnknownCompression is returned for a compression name or backup file
// extension that no compressor handles.
var ErrUnknownCompression = fmt.Errorf("%w: unknown compression", errs.ErrValidation)

// maxDecodedSize limits the memory a zstd decoder may allocate, twice the
// largest addressable image.
const maxDecodedSize = 16 << 20

// Compressor compresses whole images for backup files.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	// Name is the configuration name of the compressor.
	Name() string
	// Extension is appended to the backup file name.
	Extension() string
}

// extensions maps backup file extensions to compressor names.
var extensions = map[string]string{
	"":     "none",
	".zst": "zstd",
	".lz4": "lz4",
	".sz":  "snappy",
}

// sharedZstd is created on first use, its encoder and decoder are safe for
// concurrent use.
var sharedZstd = sync.OnceValues(NewZstdCompressor)

var (
	_ Compressor = NoCompressor{}
	_ Compressor = (*ZstdCompressor)(nil)
	_ Compressor = LZ4Compressor{}
	_ Compressor = SnappyCompressor{}
)

// ForName returns the compressor for a configuration name.
func ForName(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return NoCompressor{}, nil
	case "zstd":
		c, err := sharedZstd()
		if err != nil {
			return nil, err
		}
		return c, nil
	case "lz4":
		return LZ4Compressor{}, nil
	case "snappy":
		return SnappyCompressor{}, nil
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnknownCompression, name)
	}
}

// forExtension returns the compressor that writes files with the given
// extension.
func forExtension(ext string) (Compressor, error) {
	name, ok := extensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: extension '%s'", ErrUnknownCompression, ext)
	}
	return ForName(name)
}

// NoCompressor stores the image as is.
type NoCompressor struct{}

func (NoCompressor) Compress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

func (NoCompressor) Decompress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

func (NoCompressor) Name() string      { return "none" }
func (NoCompressor) Extension() string { return "" }

// ZstdCompressor compresses using zstd with a reusable encoder and decoder.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCompressor returns a zstd compressor using the default encoder level.
func NewZstdCompressor() (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &ZstdCompressor{
		encoder: enc,
		decoder: dec,
	}, nil
}

func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.encoder.EncodeAll(data, nil), nil
}

func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress error: %w", err)
	}
	return out, nil
}

func (c *ZstdCompressor) Name() string      { return "zstd" }
func (c *ZstdCompressor) Extension() string { return ".zst" }

// LZ4Compressor uses the lz4 frame format, which records the content size
// and a checksum.
type LZ4Compressor struct{}

func (LZ4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("lz4 compress write error: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress close error: %w", err)
	}
	return buf.Bytes(), nil
}

func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress error: %w", err)
	}
	return out, nil
}

func (LZ4Compressor) Name() string      { return "lz4" }
func (LZ4Compressor) Extension() string { return ".lz4" }

// SnappyCompressor uses the snappy block format.
type SnappyCompressor struct{}

func (SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress error: %w", err)
	}
	return out, nil
}

func (SnappyCompressor) Name() string      { return "snappy" }
func (SnappyCompressor) Extension() string { return ".sz" }
