package level

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/snespatch/internal/errs"
)

var (
	// ErrInvalidEntrance is returned for entrance ids outside of their ranges.
	ErrInvalidEntrance = fmt.Errorf("%w: invalid entrance", errs.ErrValidation)
	// ErrFieldRange is returned for entrance and sprite fields that do not fit
	// their bit fields of the binary records.
	ErrFieldRange = fmt.Errorf("%w: field does not fit its record", errs.ErrRange)
)

const (
	// MaxLevels is the number of levels of the level pointer table.
	MaxLevels = 0x200

	maxPrimarySub   = 0x10
	maxSecondarySub = 0x20

	// MaxEntranceAnim is the first entrance animation that does not fit.
	MaxEntranceAnim = 8
	// MaxEntrancePos is the first entrance tile coordinate that does not fit.
	MaxEntrancePos = 0x200
)

// EntranceID identifies a primary or secondary entrance of a level.
// The zero value is primary entrance 0 of level 0.
type EntranceID struct {
	Secondary bool
	Level     uint16
	Sub       uint8
}

// NewEntranceID returns a validated entrance id.
func NewEntranceID(level uint16, sub uint8, secondary bool) (EntranceID, error) {
	id := EntranceID{Secondary: secondary, Level: level, Sub: sub}
	if err := id.validate(); err != nil {
		return EntranceID{}, err
	}
	return id, nil
}

// ParseEntranceID parses the text form of an entrance id like "105#m00" for
// primary entrance 0 of level 0x105 or "105#s1f" for secondary entrance 0x1f.
func ParseEntranceID(s string) (EntranceID, error) {
	levelPart, fragment, ok := strings.Cut(s, "#")
	if !ok || len(fragment) < 2 {
		return EntranceID{}, fmt.Errorf("%w: malformed entrance name '%s'", ErrInvalidEntrance, s)
	}

	level, err := strconv.ParseUint(levelPart, 16, 16)
	if err != nil {
		return EntranceID{}, fmt.Errorf("%w: level number of '%s': %w", ErrInvalidEntrance, s, err)
	}

	var secondary bool
	switch fragment[0] {
	case 'm':
	case 's':
		secondary = true
	default:
		return EntranceID{}, fmt.Errorf("%w: unknown entrance kind '%c' in '%s'", ErrInvalidEntrance, fragment[0], s)
	}

	sub, err := strconv.ParseUint(fragment[1:], 16, 8)
	if err != nil {
		return EntranceID{}, fmt.Errorf("%w: entrance number of '%s': %w", ErrInvalidEntrance, s, err)
	}

	return NewEntranceID(uint16(level), uint8(sub), secondary)
}

func (id EntranceID) validate() error {
	if id.Level >= MaxLevels {
		return fmt.Errorf("%w: level number 0x%x too high", ErrInvalidEntrance, id.Level)
	}
	limit := uint8(maxPrimarySub)
	if id.Secondary {
		limit = maxSecondarySub
	}
	if id.Sub >= limit {
		return fmt.Errorf("%w: entrance number 0x%x of %s too high", ErrInvalidEntrance, id.Sub, id)
	}
	return nil
}

// String returns the text form of the id that ParseEntranceID accepts.
func (id EntranceID) String() string {
	kind := 'm'
	if id.Secondary {
		kind = 's'
	}
	return fmt.Sprintf("%03x#%c%02x", id.Level, kind, id.Sub)
}

// Bytes returns the 3 byte exit record that refers to this entrance.
func (id EntranceID) Bytes() [3]byte {
	sub := id.Sub
	if id.Secondary {
		sub |= 0x80
	}
	return [3]byte{byte(id.Level), byte(id.Level >> 8), sub}
}

// Compare orders primary entrances before secondary ones, then by level
// number and entrance number.
func (id EntranceID) Compare(other EntranceID) int {
	if id.Secondary != other.Secondary {
		if id.Secondary {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(id.Level, other.Level); c != 0 {
		return c
	}
	return cmp.Compare(id.Sub, other.Sub)
}

// Entrance is an entrance placed in a level.
type Entrance struct {
	ID       EntranceID
	X        uint16
	Y        uint16
	Anim     uint8
	Water    bool
	Slippery bool
}

func (en Entrance) validate() error {
	if err := en.ID.validate(); err != nil {
		return err
	}
	if en.Anim >= MaxEntranceAnim {
		return fmt.Errorf("%w: animation %d of entrance %s, maximum is %d",
			ErrFieldRange, en.Anim, en.ID, MaxEntranceAnim-1)
	}
	if en.X >= MaxEntrancePos || en.Y >= MaxEntrancePos {
		return fmt.Errorf("%w: position %d,%d of entrance %s, maximum is %d",
			ErrFieldRange, en.X, en.Y, en.ID, MaxEntrancePos-1)
	}
	return nil
}

// CompareEntrances orders entrances by id, then by position and the
// remaining fields.
func CompareEntrances(a, b Entrance) int {
	if c := a.ID.Compare(b.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Anim, b.Anim); c != 0 {
		return c
	}
	if c := compareBool(a.Water, b.Water); c != 0 {
		return c
	}
	return compareBool(a.Slippery, b.Slippery)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}
