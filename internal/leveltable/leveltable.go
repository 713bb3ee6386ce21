// Package leveltable reads and updates the level pointer table and the
// optional level version table of a cartridge image.
package leveltable

import (
	"errors"
	"fmt"

	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/level"
	"github.com/retroenv/snespatch/internal/rats"
)

var (
	// ErrNoRecord is returned when a level pointer does not refer to a
	// removable level record.
	ErrNoRecord = fmt.Errorf("%w: no level record", errs.ErrNotFound)
	// ErrImageTooSmall is returned when a table lies outside of the image.
	ErrImageTooSmall = fmt.Errorf("%w: image too small for table", errs.ErrRange)
)

const (
	pointerTableBus = 0x05e000
	pointerSize     = 3
)

// Table accesses the level tables of an image using the given mapper.
type Table struct {
	mapper address.Mapper
}

// New returns a table accessor for images of the given mapper.
func New(m address.Mapper) *Table {
	return &Table{mapper: m}
}

// Pointer returns the bus address stored for the level.
// It panics if lvl is not a valid level number.
func (t *Table) Pointer(image []byte, lvl uint16) (uint32, error) {
	pc, err := t.pointerLocation(image, lvl)
	if err != nil {
		return 0, err
	}
	return readLong(image[pc:]), nil
}

// SetPointer stores the bus address for the level.
// It panics if lvl is not a valid level number.
func (t *Table) SetPointer(image []byte, lvl uint16, bus uint32) error {
	pc, err := t.pointerLocation(image, lvl)
	if err != nil {
		return err
	}
	writeLong(image[pc:], bus)
	return nil
}

// Record returns the image address that the level pointer refers to.
func (t *Table) Record(image []byte, lvl uint16) (address.Address, error) {
	bus, err := t.Pointer(image, lvl)
	if err != nil {
		return address.Address{}, err
	}
	if bus == 0 {
		return address.Address{}, fmt.Errorf("%w: level 0x%x has no pointer", ErrNoRecord, lvl)
	}

	a, err := address.FromBus(bus, t.mapper)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: level 0x%x pointer 0x%06x: %w", ErrNoRecord, lvl, bus, err)
	}
	return a, nil
}

// RemoveLevel frees the tagged record with cleanup marker that the level
// pointer refers to and clears the pointer. The image is not modified if the
// pointer does not refer to such a record.
func (t *Table) RemoveLevel(image []byte, lvl uint16) (address.Address, int, error) {
	ptr, err := t.Record(image, lvl)
	if err != nil {
		return address.Address{}, 0, err
	}

	start, length, err := rats.RemoveRecord(image, ptr)
	if err != nil {
		if errors.Is(err, rats.ErrNotFound) {
			return address.Address{}, 0, fmt.Errorf("%w: level 0x%x: %w", ErrNoRecord, lvl, err)
		}
		return address.Address{}, 0, fmt.Errorf("removing record of level 0x%x: %w", lvl, err)
	}

	if err := t.SetPointer(image, lvl, 0); err != nil {
		return address.Address{}, 0, err
	}
	return start, length, nil
}

// PointerOffset returns the PC offset of the pointer table entry of the level.
// It panics if lvl is not a valid level number.
func (t *Table) PointerOffset(image []byte, lvl uint16) (int, error) {
	return t.pointerLocation(image, lvl)
}

func (t *Table) pointerLocation(image []byte, lvl uint16) (int, error) {
	if lvl >= level.MaxLevels {
		panic(fmt.Sprintf("level number 0x%x too high", lvl))
	}

	table, err := address.FromBus(pointerTableBus, t.mapper)
	if err != nil {
		return 0, fmt.Errorf("locating level pointer table: %w", err)
	}
	pc := table.PC() + int(lvl)*pointerSize
	if pc+pointerSize > len(image) {
		return 0, fmt.Errorf("%w: level pointer at 0x%x", ErrImageTooSmall, pc)
	}
	return pc, nil
}

func readLong(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func writeLong(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
