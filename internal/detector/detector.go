// Package detector handles mapping mode detection from the internal
// cartridge header.
package detector

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/errs"
)

// ErrUnknownMapping is returned when no internal header location holds a
// plausible header.
var ErrUnknownMapping = fmt.Errorf("%w: no internal cartridge header found", errs.ErrNotFound)

// offsets relative to the start of the internal header
const (
	titleOffset      = 0x00
	titleSize        = 21
	mapModeOffset    = 0x15
	chipOffset       = 0x16
	complementOffset = 0x1c
	checksumOffset   = 0x1e
	headerSize       = 0x20

	fastROMBit = 0x10
)

// location is a possible internal header position and the mapper it implies.
type location struct {
	pc     int
	mapper address.Mapper
	mode   byte
}

var locations = []location{
	{pc: 0x007fc0, mapper: address.LoROM{}, mode: 0x20},
	{pc: 0x00ffc0, mapper: address.HiROM{}, mode: 0x21},
	{pc: 0x407fc0, mapper: address.ExLoROM{}, mode: 0x22},
	{pc: 0x40ffc0, mapper: address.ExHiROM{}, mode: 0x25},
}

// Detector determines the mapping mode of an image.
type Detector struct {
	logger *log.Logger
}

// New creates a new mapper detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect returns the forced mapper if it is not nil, otherwise the mapper
// described by the best scoring internal header of the image.
func (d *Detector) Detect(image []byte, forced address.Mapper) (address.Mapper, error) {
	if forced != nil {
		d.logger.Debug("Using configured mapper", log.Stringer("mapper", forced))
		return forced, nil
	}

	var (
		best      location
		bestScore int
	)
	for _, loc := range locations {
		score := scoreHeader(image, loc)
		if score > bestScore {
			best, bestScore = loc, score
		}
	}
	if bestScore == 0 {
		return nil, ErrUnknownMapping
	}

	header := image[best.pc : best.pc+headerSize]
	m := mapperFor(header, best.mapper)
	d.logger.Debug("Auto-detected mapper",
		log.Stringer("mapper", m),
		log.Hex("header", best.pc),
		log.Hex("map_mode", header[mapModeOffset]),
		log.String("title", title(header)))
	return m, nil
}

// scoreHeader rates how likely the header at the location is genuine, 0
// means it is not a header.
func scoreHeader(image []byte, loc location) int {
	if loc.pc+headerSize > len(image) {
		return 0
	}
	header := image[loc.pc : loc.pc+headerSize]

	mode := header[mapModeOffset] &^ fastROMBit
	if mode&0xe0 != 0x20 || mode > 0x25 {
		return 0
	}

	score := 1
	if mode == loc.mode || (loc.mode == 0x20 && mode == 0x23) {
		score += 2
	}
	complement := binary.LittleEndian.Uint16(header[complementOffset:])
	checksum := binary.LittleEndian.Uint16(header[checksumOffset:])
	if complement^checksum == 0xffff {
		score += 4
	}
	return score
}

// mapperFor returns the mapper a header describes, falling back to the
// mapper implied by the header location.
func mapperFor(header []byte, fallback address.Mapper) address.Mapper {
	chip := header[chipOffset]
	switch header[mapModeOffset] &^ fastROMBit {
	case 0x20:
		if isSuperFX(chip) {
			return address.SuperFX{}
		}
		return address.LoROM{}
	case 0x21:
		return address.HiROM{}
	case 0x22:
		if chip == 0x43 || chip == 0x45 {
			return address.BootSDD1
		}
		return address.ExLoROM{}
	case 0x23:
		return address.BootSA1
	case 0x25:
		return address.ExHiROM{}
	default:
		return fallback
	}
}

func isSuperFX(chip byte) bool {
	switch chip {
	case 0x13, 0x14, 0x15, 0x1a:
		return true
	default:
		return false
	}
}

func title(header []byte) string {
	return strings.TrimSpace(string(header[titleOffset : titleOffset+titleSize]))
}
