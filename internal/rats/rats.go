// Package rats implements the RATS tag convention used to mark occupied
// regions of a cartridge image and to find free space between them.
package rats

import (
	"fmt"
	"io"

	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/errs"
)

var (
	// ErrNoSpace is returned when no free region of the requested size exists.
	ErrNoSpace = fmt.Errorf("%w: no free space found", errs.ErrCapacity)
	// ErrNotFound is returned when no valid tag precedes a pointer to be removed.
	ErrNotFound = fmt.Errorf("%w: no valid tag at location", errs.ErrNotFound)
)

const (
	// TagSize is the size of a tag header.
	TagSize = 8
	// RecordHeaderSize is the size of a tag header followed by the cleanup marker.
	RecordHeaderSize = TagSize + len(cleanupMarker)

	// MaxPayload is the largest payload a single tag can describe.
	MaxPayload = 0x10000
	// MaxFreeRun is the longest free run that can be searched for, runs never
	// cross a bank boundary.
	MaxFreeRun = bankSize

	scanStart = 0x10 * bankSize
	bankSize  = 0x8000

	tagMagic      = "STAR"
	cleanupMarker = "CLNP"
)

// TagLen returns the total size of the tagged block starting at the
// beginning of b, including the tag itself. The second return value is
// false if b does not start with a valid tag.
func TagLen(b []byte) (int, bool) {
	if len(b) < TagSize || string(b[:len(tagMagic)]) != tagMagic {
		return 0, false
	}
	length := uint16(b[4]) | uint16(b[5])<<8
	complement := uint16(b[6]) | uint16(b[7])<<8
	if length != ^complement {
		return 0, false
	}
	return int(length) + 1 + TagSize, true
}

// FindFree returns the start of the first free region of at least n bytes.
func FindFree(image []byte, m address.Mapper, n int) (address.Address, error) {
	return FindAligned(image, m, n, 0)
}

// FindAligned returns the start of the first free region of at least minLen
// bytes whose lowest align bits are zero. The scan skips the reserved area
// at the start of the image and every valid tagged block. Free regions never
// cross a 0x8000 byte bank boundary.
func FindAligned(image []byte, m address.Mapper, minLen int, align uint) (address.Address, error) {
	if minLen < 1 || minLen > MaxFreeRun {
		panic(fmt.Sprintf("invalid free space length %d", minLen))
	}
	if align >= 17 {
		panic(fmt.Sprintf("too high alignment %d for free space search", align))
	}

	mask := 1<<align - 1
	runStart := scanStart

	for i := scanStart; i < len(image); {
		if i&(bankSize-1) == 0 {
			runStart = i
		}

		if size, ok := TagLen(image[i:]); ok {
			i += size
			runStart = i
			continue
		}

		start := (runStart + mask) &^ mask
		if i+1-start >= minLen {
			return address.FromPC(start, m)
		}
		i++
	}

	return address.Address{}, fmt.Errorf("%w: %d bytes aligned to %d bits", ErrNoSpace, minLen, align)
}

// Insert writes a tag for the payload followed by the payload itself.
// It panics unless the payload holds between 1 and 65536 bytes.
func Insert(w io.Writer, payload []byte) error {
	checkPayload(len(payload))
	if _, err := w.Write(tag(len(payload))); err != nil {
		return fmt.Errorf("writing tag: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return nil
}

// InsertRecord writes a tag followed by the cleanup marker and the payload.
// The tag length covers the marker and the payload.
func InsertRecord(w io.Writer, payload []byte) error {
	checkPayload(len(payload) + len(cleanupMarker))
	if _, err := w.Write(tag(len(payload) + len(cleanupMarker))); err != nil {
		return fmt.Errorf("writing tag: %w", err)
	}
	if _, err := io.WriteString(w, cleanupMarker); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return nil
}

// InsertFree writes the tagged payload into the first free region large
// enough to hold it and returns the address of the payload.
func InsertFree(image []byte, m address.Mapper, payload []byte) (address.Address, error) {
	return insertFree(image, m, payload, TagSize, Insert)
}

// InsertFreeRecord writes the payload as a record with cleanup marker into
// the first free region large enough to hold it and returns the address of
// the payload, which is what Remove expects.
func InsertFreeRecord(image []byte, m address.Mapper, payload []byte) (address.Address, error) {
	return insertFree(image, m, payload, RecordHeaderSize, InsertRecord)
}

func insertFree(image []byte, m address.Mapper, payload []byte, header int,
	insert func(io.Writer, []byte) error) (address.Address, error) {

	block := len(payload) + header
	if block > MaxFreeRun {
		return address.Address{}, fmt.Errorf("%w: %d byte block exceeds a bank", ErrNoSpace, block)
	}

	start, err := FindFree(image, m, block)
	if err != nil {
		return address.Address{}, err
	}

	w := sliceWriter{buf: image[start.PC() : start.PC()+block]}
	if err := insert(&w, payload); err != nil {
		return address.Address{}, err
	}
	return start.Add(header)
}

// Remove frees the tagged block that the pointer refers to. The pointer is
// expected to point right behind a tag and cleanup marker, or right behind a
// plain tag. The whole tagged block is zeroed and its start and the number
// of zeroed bytes are returned. The image is not modified if no valid tag is
// found.
func Remove(image []byte, ptr address.Address) (address.Address, int, error) {
	pc := ptr.PC()
	if pc > len(image) {
		return address.Address{}, 0, fmt.Errorf("%w: pointer %s is outside of the image", ErrNotFound, ptr)
	}

	switch {
	case isRecord(image, pc-RecordHeaderSize):
		return zeroBlock(image, ptr, pc-RecordHeaderSize)
	case isTag(image, pc-TagSize):
		return zeroBlock(image, ptr, pc-TagSize)
	default:
		return address.Address{}, 0, fmt.Errorf("%w: pointer %s", ErrNotFound, ptr)
	}
}

// RemoveRecord frees the tagged block that the pointer refers to, only if
// the pointer is right behind a tag and cleanup marker. Blocks with a plain
// tag belong to other tools and are left untouched.
func RemoveRecord(image []byte, ptr address.Address) (address.Address, int, error) {
	pc := ptr.PC()
	if pc > len(image) {
		return address.Address{}, 0, fmt.Errorf("%w: pointer %s is outside of the image", ErrNotFound, ptr)
	}
	if !isRecord(image, pc-RecordHeaderSize) {
		return address.Address{}, 0, fmt.Errorf("%w: no cleanup record before pointer %s", ErrNotFound, ptr)
	}
	return zeroBlock(image, ptr, pc-RecordHeaderSize)
}

// zeroBlock zeroes the tagged block at tagStart, clamped to the image.
func zeroBlock(image []byte, ptr address.Address, tagStart int) (address.Address, int, error) {
	start, err := address.FromPC(tagStart, ptr.Mapper())
	if err != nil {
		return address.Address{}, 0, err
	}

	size, _ := TagLen(image[tagStart:])
	end := min(tagStart+size, len(image))
	for i := tagStart; i < end; i++ {
		image[i] = 0
	}
	return start, end - tagStart, nil
}

func isTag(image []byte, pc int) bool {
	if pc < 0 || pc+TagSize > len(image) {
		return false
	}
	_, ok := TagLen(image[pc:])
	return ok
}

func isRecord(image []byte, pc int) bool {
	if !isTag(image, pc) || pc+RecordHeaderSize > len(image) {
		return false
	}
	return string(image[pc+TagSize:pc+RecordHeaderSize]) == cleanupMarker
}

func tag(payloadLen int) []byte {
	length := uint16(payloadLen - 1)
	return []byte{
		tagMagic[0], tagMagic[1], tagMagic[2], tagMagic[3],
		byte(length), byte(length >> 8),
		byte(^length), byte(^length >> 8),
	}
}

func checkPayload(n int) {
	if n == 0 {
		panic("tried to insert zero-length object")
	}
	if n > MaxPayload {
		panic(fmt.Sprintf("tried to insert too large object of %d bytes", n))
	}
}

// sliceWriter writes into a fixed slice and fails once it is full.
type sliceWriter struct {
	buf []byte
	pos int
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
