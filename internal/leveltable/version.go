package leveltable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/level"
	"github.com/retroenv/snespatch/internal/rats"
)

// ErrInvalidVersion is returned for malformed version stamps.
var ErrInvalidVersion = fmt.Errorf("%w: invalid version stamp", errs.ErrValidation)

const (
	// VersionPointerOffset is the PC offset of the version table pointer.
	VersionPointerOffset = 0x7f080

	versionAbsent = 0xffffff

	// VersionTableSize is the size of the version table payload.
	VersionTableSize = level.MaxLevels * pointerSize
)

// Version is a 3 part version stamp of an inserted level.
type Version [3]uint8

// ParseVersion parses a version of the form "major.minor.patch".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != len(Version{}) {
		return Version{}, fmt.Errorf("%w: '%s'", ErrInvalidVersion, s)
	}

	var v Version
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("%w: '%s': %w", ErrInvalidVersion, s, err)
		}
		v[i] = uint8(n)
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// Version returns the version stamp of the level. The second return value
// is false if the image has no version table.
func (t *Table) Version(image []byte, lvl uint16) (Version, bool, error) {
	table, ok, err := t.VersionTable(image)
	if err != nil || !ok {
		return Version{}, false, err
	}

	pc, err := versionLocation(image, table, lvl)
	if err != nil {
		return Version{}, false, err
	}
	return Version{image[pc], image[pc+1], image[pc+2]}, true, nil
}

// SetVersion stores the version stamp of the level. The version table is
// allocated in free space on first use.
func (t *Table) SetVersion(image []byte, lvl uint16, v Version) error {
	table, ok, err := t.VersionTable(image)
	if err != nil {
		return err
	}
	if !ok {
		if table, err = t.initVersionTable(image); err != nil {
			return err
		}
	}

	pc, err := versionLocation(image, table, lvl)
	if err != nil {
		return err
	}
	copy(image[pc:pc+pointerSize], v[:])
	return nil
}

// VersionTable returns the address of the version table payload. A pointer
// that is all set or all clear marks a missing table.
func (t *Table) VersionTable(image []byte) (address.Address, bool, error) {
	if VersionPointerOffset+pointerSize > len(image) {
		return address.Address{}, false, fmt.Errorf("%w: version pointer at 0x%x", ErrImageTooSmall, VersionPointerOffset)
	}

	bus := readLong(image[VersionPointerOffset:])
	if bus == versionAbsent || bus == 0 {
		return address.Address{}, false, nil
	}

	a, err := address.FromBus(bus, t.mapper)
	if err != nil {
		return address.Address{}, false, fmt.Errorf("reading version table pointer 0x%06x: %w", bus, err)
	}
	return a, true, nil
}

func (t *Table) initVersionTable(image []byte) (address.Address, error) {
	if VersionPointerOffset+pointerSize > len(image) {
		return address.Address{}, fmt.Errorf("%w: version pointer at 0x%x", ErrImageTooSmall, VersionPointerOffset)
	}

	table, err := rats.InsertFree(image, t.mapper, make([]byte, VersionTableSize))
	if err != nil {
		return address.Address{}, fmt.Errorf("allocating version table: %w", err)
	}
	bus, err := table.Bus()
	if err != nil {
		return address.Address{}, fmt.Errorf("getting version table bus address: %w", err)
	}
	writeLong(image[VersionPointerOffset:], bus)
	return table, nil
}

func versionLocation(image []byte, table address.Address, lvl uint16) (int, error) {
	if lvl >= level.MaxLevels {
		panic(fmt.Sprintf("level number 0x%x too high", lvl))
	}
	pc := table.PC() + int(lvl)*pointerSize
	if pc+pointerSize > len(image) {
		return 0, fmt.Errorf("%w: version entry at 0x%x", ErrImageTooSmall, pc)
	}
	return pc, nil
}
