// Package address translates between PC file offsets and SNES bus addresses.
package address

import (
	"errors"
	"fmt"

	"github.com/retroenv/snespatch/internal/errs"
)

var (
	// ErrOutOfRange is returned for offsets or bus addresses the mapper can not reach.
	ErrOutOfRange = fmt.Errorf("%w: address out of range", errs.ErrRange)
	// ErrUnsupported is returned for bus translations a mapper does not implement.
	ErrUnsupported = errors.New("unsupported operation for mapper")
)

const (
	wramStart = 0x7e0000
	wramEnd   = 0x800000

	segmentSize = 0x100000
)

// Address is a location inside a cartridge image under a given mapper.
// It is immutable and comparable.
type Address struct {
	pc     int
	mapper Mapper
}

// FromPC returns the address of the given PC offset.
func FromPC(pc int, m Mapper) (Address, error) {
	if pc < 0 || pc >= m.ceiling() {
		return Address{}, fmt.Errorf("%w: pc 0x%06x for %s", ErrOutOfRange, pc, m)
	}
	return Address{pc: pc, mapper: m}, nil
}

// FromBus returns the address of the given bus address.
func FromBus(addr uint32, m Mapper) (Address, error) {
	if addr >= wramStart && addr < wramEnd {
		return Address{}, fmt.Errorf("%w: bus address $%06x is work RAM", ErrOutOfRange, addr)
	}

	var pc uint32
	switch m.(type) {
	case LoROM:
		if addr&0x008000 == 0 {
			return Address{}, fmt.Errorf("%w: bus address $%06x is not ROM", ErrOutOfRange, addr)
		}
		pc = (addr&0x7f0000)>>1 | addr&0x007fff

	case ExLoROM:
		if addr&0x008000 == 0 {
			return Address{}, fmt.Errorf("%w: bus address $%06x is not ROM", ErrOutOfRange, addr)
		}
		pc = (addr&0xff0000)>>1 | addr&0x007fff

	case HiROM:
		if addr&0x400000 == 0 && addr&0x008000 == 0 {
			return Address{}, fmt.Errorf("%w: bus address $%06x is not ROM", ErrOutOfRange, addr)
		}
		pc = addr & 0x3fffff

	case ExHiROM:
		if addr&0x400000 == 0 && addr&0x008000 == 0 {
			return Address{}, fmt.Errorf("%w: bus address $%06x is not ROM", ErrOutOfRange, addr)
		}
		pc = (addr&0x800000)>>1 | addr&0x3fffff

	default:
		return Address{}, fmt.Errorf("%w %s", ErrUnsupported, m)
	}

	return FromPC(int(pc), m)
}

// FromBusBytes returns the address of a little-endian 3 byte bus pointer.
// It panics if b holds less than 3 bytes.
func FromBusBytes(b []byte, m Mapper) (Address, error) {
	if len(b) < 3 {
		panic("less than a pointer's worth of bytes")
	}
	return FromBus(uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16, m)
}

// PC returns the file offset of the address.
func (a Address) PC() int {
	return a.pc
}

// Mapper returns the mapper the address was created with.
func (a Address) Mapper() Mapper {
	return a.mapper
}

// Bus returns the bus address, the inverse of FromBus.
func (a Address) Bus() (uint32, error) {
	pc := uint32(a.pc)

	var addr uint32
	switch a.mapper.(type) {
	case LoROM:
		addr = (pc&0x3f8000)<<1 | pc&0x007fff | 0x808000

	case ExLoROM:
		addr = (pc&0x7f8000)<<1 | pc&0x007fff | 0x008000

	case HiROM:
		addr = pc | 0xc00000

	case ExHiROM:
		if pc >= 0x400000 {
			addr = pc&0x3fffff | 0xc00000
		} else {
			addr = pc | 0x400000
		}

	default:
		return 0, fmt.Errorf("%w %s", ErrUnsupported, a.mapper)
	}

	if addr >= wramStart && addr < wramEnd {
		return 0, fmt.Errorf("%w: pc 0x%06x maps to work RAM under %s", ErrOutOfRange, a.pc, a.mapper)
	}
	return addr, nil
}

// Segment returns the 1 MiB segment of the address for enhancement chip
// mappers. The second return value is false for all other mappers.
func (a Address) Segment() (uint8, bool) {
	if !IsChip(a.mapper) {
		return 0, false
	}
	return uint8(a.pc / segmentSize), true
}

// Add returns the address n bytes further into the image.
func (a Address) Add(n int) (Address, error) {
	return FromPC(a.pc+n, a.mapper)
}

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	if bus, err := a.Bus(); err == nil {
		return fmt.Sprintf("$%06x (pc 0x%06x)", bus, a.pc)
	}
	return fmt.Sprintf("pc 0x%06x", a.pc)
}
