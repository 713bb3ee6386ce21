package address

import (
	"fmt"
	"strings"
)

// Mapper is one of the fixed schemes translating between PC offsets and
// bus addresses. The set of mappers is closed, only the types of this
// package implement it.
type Mapper interface {
	fmt.Stringer

	// ceiling returns the first PC offset the mapper can not address.
	ceiling() int
}

// LoROM maps 32 KiB of ROM into the upper half of every bank.
type LoROM struct{}

// HiROM maps 64 KiB of ROM into every bank.
type HiROM struct{}

// ExLoROM is LoROM extended to 8 MiB.
type ExLoROM struct{}

// ExHiROM is HiROM extended to 8 MiB.
type ExHiROM struct{}

// SuperFX is the mapping used by cartridges with a GSU coprocessor.
type SuperFX struct{}

// SA1 is the mapping of SA-1 cartridges. Banks holds the super MMC bank
// selection for the four 1 MiB segments.
type SA1 struct {
	Banks [4]uint8
}

// SDD1 is the mapping of S-DD1 cartridges. Banks holds the bank selection
// for the four 1 MiB segments.
type SDD1 struct {
	Banks [4]uint8
}

// Boot time bank selections of the enhancement chip mappers.
var (
	BootSA1  = SA1{Banks: [4]uint8{0, 1, 2, 3}}
	BootSDD1 = SDD1{Banks: [4]uint8{0, 1, 2, 3}}
)

func (LoROM) ceiling() int   { return 0x400000 }
func (HiROM) ceiling() int   { return 0x400000 }
func (ExLoROM) ceiling() int { return 0x800000 }
func (ExHiROM) ceiling() int { return 0x800000 }
func (SuperFX) ceiling() int { return 0x200000 }
func (SA1) ceiling() int     { return 0x800000 }
func (SDD1) ceiling() int    { return 0x800000 }

func (LoROM) String() string   { return "lorom" }
func (HiROM) String() string   { return "hirom" }
func (ExLoROM) String() string { return "exlorom" }
func (ExHiROM) String() string { return "exhirom" }
func (SuperFX) String() string { return "sfxrom" }
func (SA1) String() string     { return "sa1rom" }
func (SDD1) String() string    { return "sddrom" }

// ParseMapper returns the mapper for the given name. Chip mappers are
// returned with their boot time bank selection.
func ParseMapper(name string) (Mapper, error) {
	switch strings.ToLower(name) {
	case "lorom":
		return LoROM{}, nil
	case "hirom":
		return HiROM{}, nil
	case "exlorom":
		return ExLoROM{}, nil
	case "exhirom":
		return ExHiROM{}, nil
	case "sfxrom", "superfx":
		return SuperFX{}, nil
	case "sa1rom", "sa1":
		return BootSA1, nil
	case "sddrom", "sdd1":
		return BootSDD1, nil
	default:
		return nil, fmt.Errorf("unsupported mapper '%s'", name)
	}
}

// IsChip returns whether the mapper belongs to an enhancement chip and
// supports segment queries.
func IsChip(m Mapper) bool {
	switch m.(type) {
	case SA1, SDD1:
		return true
	default:
		return false
	}
}

// RegionBase returns the bus address of the given 1 MiB region of an
// enhancement chip mapper. It panics for n >= 4 or for any other mapper.
func RegionBase(m Mapper, n uint8) uint32 {
	if n >= 4 {
		panic("region number too high")
	}
	if !IsChip(m) {
		panic(fmt.Sprintf("mapper %s has no regions", m))
	}
	return 0xc00000 + uint32(n)*0x100000
}
