// Package patcher inserts and removes level records in a cartridge image.
// Records are staged in a scratch buffer and copied into the image only
// once they are fully encoded.
package patcher

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/binlevel"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/level"
	"github.com/retroenv/snespatch/internal/leveltable"
	"github.com/retroenv/snespatch/internal/rats"
	"github.com/retroenv/snespatch/internal/rom"
	"github.com/retroenv/snespatch/internal/verification"
)

var (
	// ErrInvalidLevelNumber is returned for level numbers outside the table.
	ErrInvalidLevelNumber = fmt.Errorf("%w: invalid level number", errs.ErrValidation)
	// ErrRecordTooLarge is returned for records that do not fit into a bank.
	ErrRecordTooLarge = fmt.Errorf("%w: level record too large", errs.ErrCapacity)
	// ErrSizeMismatch is returned when the final encoding is larger than
	// the measured size.
	ErrSizeMismatch = errors.New("level record size changed between passes")
)

// Options control record placement and version stamping.
type Options struct {
	// Alignment is the number of low address bits that must be zero at the
	// start of a new record.
	Alignment uint
	// StampVersion enables writing Version to the version table.
	StampVersion bool
	Version      leveltable.Version
}

// Result describes an inserted level record.
type Result struct {
	// Record is the start of the tag of the new record.
	Record address.Address
	// Size is the size of the record including tag and cleanup marker.
	Size int
	// Layout holds the bus addresses of the record sections.
	Layout binlevel.Layout
	// Removed is the freed range of a replaced record, empty if the level
	// had no record.
	Removed verification.Range
	// Touched lists every range of the image that the insertion may change.
	Touched []verification.Range
}

// Patcher modifies images of a single mapper.
type Patcher struct {
	logger *log.Logger
	mapper address.Mapper
	table  *leveltable.Table
	opts   Options
}

// New creates a patcher for images using the mapper m.
func New(logger *log.Logger, m address.Mapper, opts Options) *Patcher {
	return &Patcher{
		logger: logger,
		mapper: m,
		table:  leveltable.New(m),
		opts:   opts,
	}
}

// InsertLevel writes the level as a tagged record into free space of the
// image and points the level table entry lvlnum at it. A record the entry
// pointed to before is freed first. The image is not modified if encoding
// or allocation fails, except for the freed previous record.
func (p *Patcher) InsertLevel(image []byte, lvlnum uint16, lvl *level.Level) (Result, error) {
	if err := checkLevelNumber(lvlnum); err != nil {
		return Result{}, err
	}

	var res Result
	removed, err := p.removeExisting(image, lvlnum)
	if err != nil {
		return Result{}, err
	}
	res.Removed = removed

	length, err := measure(lvl)
	if err != nil {
		return Result{}, err
	}
	reserved := rats.RecordHeaderSize + int(length)
	if reserved > rats.MaxFreeRun {
		return Result{}, fmt.Errorf("%w: %d bytes, at most 0x%x fit a bank", ErrRecordTooLarge, reserved, rats.MaxFreeRun)
	}

	start, err := rats.FindAligned(image, p.mapper, reserved, p.opts.Alignment)
	if err != nil {
		return Result{}, fmt.Errorf("allocating %d bytes: %w", reserved, err)
	}
	payload, err := start.Add(rats.RecordHeaderSize)
	if err != nil {
		return Result{}, fmt.Errorf("locating record payload: %w", err)
	}
	base, err := payload.Bus()
	if err != nil {
		return Result{}, fmt.Errorf("getting record bus address: %w", err)
	}

	body := rom.NewCursor(make([]byte, 0, length))
	layout, err := binlevel.WriteLayout(body, lvl, base)
	if err != nil {
		return Result{}, fmt.Errorf("encoding level record: %w", err)
	}
	if layout.Length() > length {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrSizeMismatch, layout.Length(), length)
	}
	size := rats.RecordHeaderSize + int(layout.Length())

	record := rom.NewCursor(make([]byte, 0, size))
	if err := rats.InsertRecord(record, body.Bytes()); err != nil {
		return Result{}, fmt.Errorf("staging level record: %w", err)
	}
	copy(image[start.PC():], record.Bytes())

	res.Record = start
	res.Size = size
	res.Layout = layout
	res.Touched = append(res.Touched, verification.Range{Start: start.PC(), End: start.PC() + size})
	if removed.Len() > 0 {
		res.Touched = append(res.Touched, removed)
	}

	touched, err := p.updateTables(image, lvlnum, base)
	if err != nil {
		return Result{}, err
	}
	res.Touched = append(res.Touched, touched...)

	p.logger.Debug("Level record written",
		log.Hex("level", lvlnum),
		log.String("record", start.String()),
		log.Hex("size", size),
		log.Hex("screens", layout.Screens),
		log.Hex("dex", layout.Dex),
		log.Hex("sprites", layout.Sprites),
		log.Hex("palette", layout.Palette),
		log.Hex("entrances", layout.Entrances),
		log.Hex("exits", layout.Exits),
		log.Hex("header", layout.Header))
	return res, nil
}

// measure returns the largest encoded size of the level. The size depends
// on the parity of the record address when a custom palette is padded, so
// both parities are measured.
func measure(lvl *level.Level) (uint32, error) {
	var length uint32
	for _, base := range []uint32{0, 1} {
		n, err := binlevel.WriteBody(rom.NewCursor(nil), lvl, base)
		if err != nil {
			return 0, fmt.Errorf("measuring level record: %w", err)
		}
		length = max(length, n)
	}
	return length, nil
}

// RemoveLevel frees the record of the level and clears its pointer. The
// returned range is the freed block.
func (p *Patcher) RemoveLevel(image []byte, lvlnum uint16) (verification.Range, error) {
	if err := checkLevelNumber(lvlnum); err != nil {
		return verification.Range{}, err
	}

	start, length, err := p.table.RemoveLevel(image, lvlnum)
	if err != nil {
		return verification.Range{}, fmt.Errorf("removing level 0x%x: %w", lvlnum, err)
	}

	p.logger.Debug("Level record removed",
		log.Hex("level", lvlnum),
		log.String("record", start.String()),
		log.Hex("size", length))
	return verification.Range{Start: start.PC(), End: start.PC() + length}, nil
}

// FreeSpace returns the first free region of at least size bytes aligned to
// align bits.
func (p *Patcher) FreeSpace(image []byte, size int, align uint) (address.Address, error) {
	if size < 1 || size > rats.MaxFreeRun {
		return address.Address{}, fmt.Errorf("%w: size %d out of range 1..0x%x", errs.ErrValidation, size, rats.MaxFreeRun)
	}
	if align > 16 {
		return address.Address{}, fmt.Errorf("%w: alignment %d exceeds 16", errs.ErrValidation, align)
	}
	return rats.FindAligned(image, p.mapper, size, align)
}

// removeExisting frees a previous record of the level. A level without a
// removable record is not an error.
func (p *Patcher) removeExisting(image []byte, lvlnum uint16) (verification.Range, error) {
	start, length, err := p.table.RemoveLevel(image, lvlnum)
	if err != nil {
		if errors.Is(err, leveltable.ErrNoRecord) {
			p.logger.Debug("No previous level record to remove",
				log.Hex("level", lvlnum),
				log.Err(err))
			return verification.Range{}, nil
		}
		return verification.Range{}, fmt.Errorf("removing previous record of level 0x%x: %w", lvlnum, err)
	}

	p.logger.Info("Previous level record removed",
		log.Hex("level", lvlnum),
		log.String("record", start.String()),
		log.Hex("size", length))
	return verification.Range{Start: start.PC(), End: start.PC() + length}, nil
}

// updateTables stores the record pointer and the version stamp and returns
// the ranges that were changed.
func (p *Patcher) updateTables(image []byte, lvlnum uint16, base uint32) ([]verification.Range, error) {
	pointer, err := p.table.PointerOffset(image, lvlnum)
	if err != nil {
		return nil, fmt.Errorf("locating level pointer: %w", err)
	}
	if err := p.table.SetPointer(image, lvlnum, base); err != nil {
		return nil, fmt.Errorf("setting level pointer: %w", err)
	}
	touched := []verification.Range{{Start: pointer, End: pointer + 3}}

	if !p.opts.StampVersion {
		return touched, nil
	}

	if err := p.table.SetVersion(image, lvlnum, p.opts.Version); err != nil {
		return nil, fmt.Errorf("stamping version: %w", err)
	}
	table, _, err := p.table.VersionTable(image)
	if err != nil {
		return nil, fmt.Errorf("locating version table: %w", err)
	}
	touched = append(touched,
		verification.Range{Start: leveltable.VersionPointerOffset, End: leveltable.VersionPointerOffset + 3},
		verification.Range{Start: table.PC() - rats.TagSize, End: table.PC() + leveltable.VersionTableSize},
	)

	p.logger.Debug("Level version stamped",
		log.Hex("level", lvlnum),
		log.String("version", p.opts.Version.String()))
	return touched, nil
}

func checkLevelNumber(lvlnum uint16) error {
	if lvlnum >= level.MaxLevels {
		return fmt.Errorf("%w: 0x%x, must be below 0x%x", ErrInvalidLevelNumber, lvlnum, level.MaxLevels)
	}
	return nil
}

// PointerRange returns the image range of the pointer table entry of a level.
func (p *Patcher) PointerRange(image []byte, lvlnum uint16) (verification.Range, error) {
	if err := checkLevelNumber(lvlnum); err != nil {
		return verification.Range{}, err
	}
	pc, err := p.table.PointerOffset(image, lvlnum)
	if err != nil {
		return verification.Range{}, err
	}
	return verification.Range{Start: pc, End: pc + 3}, nil
}
