// Package rom provides an in-memory byte buffer with a seekable write cursor,
// used to stage records before they are committed into a cartridge image.
package rom

import (
	"errors"
	"fmt"
	"io"
)

var errNegativePosition = errors.New("negative position")

// Cursor writes into a byte buffer at a seekable position. Writing past the
// end grows the buffer, gaps created by seeking past the end are zero filled.
type Cursor struct {
	buf []byte
	pos int64
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Write writes p at the current position and advances it.
func (c *Cursor) Write(p []byte) (int, error) {
	end := c.pos + int64(len(p))
	if end > int64(len(c.buf)) {
		if end > int64(cap(c.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(c.buf))))
			copy(grown, c.buf)
			c.buf = grown
		} else {
			oldLen := len(c.buf)
			c.buf = c.buf[:end]
			clear(c.buf[oldLen:])
		}
	}
	n := copy(c.buf[c.pos:], p)
	c.pos += int64(n)
	return n, nil
}

// Seek sets the position for the next write.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = c.pos + offset
	case io.SeekEnd:
		pos = int64(len(c.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("seeking to %d: %w", pos, errNegativePosition)
	}
	c.pos = pos
	return pos, nil
}

// Bytes returns the buffer content.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

// Len returns the buffer length.
func (c *Cursor) Len() int {
	return len(c.buf)
}
