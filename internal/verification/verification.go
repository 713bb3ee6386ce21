// Package verification verifies that a patched image only differs from the
// original inside the ranges a patch was expected to touch.
package verification

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/errs"
)

// maxLoggedMismatches limits the number of unexpected changes logged.
const maxLoggedMismatches = 10

var (
	ErrLengthMismatch   = fmt.Errorf("%w: image length changed", errs.ErrValidation)
	ErrUnexpectedChange = fmt.Errorf("%w: image changed outside the patched ranges", errs.ErrValidation)
)

// Range is a half open range [Start, End) of PC offsets.
type Range struct {
	Start int
	End   int
}

// Len returns the number of offsets in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("0x%06x-0x%06x", r.Start, r.End)
}

// Changes returns the offsets at which the two images differ.
func Changes(original, patched []byte) (*roaring.Bitmap, error) {
	if len(original) != len(patched) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(original), len(patched))
	}

	changed := roaring.New()
	for i := range original {
		if original[i] != patched[i] {
			changed.Add(uint32(i))
		}
	}
	return changed, nil
}

// Ranges collapses a set of offsets into sorted contiguous ranges.
func Ranges(offsets *roaring.Bitmap) []Range {
	var ranges []Range
	it := offsets.Iterator()
	for it.HasNext() {
		offset := int(it.Next())
		if n := len(ranges); n > 0 && ranges[n-1].End == offset {
			ranges[n-1].End++
			continue
		}
		ranges = append(ranges, Range{Start: offset, End: offset + 1})
	}
	return ranges
}

// VerifyPatch checks that every byte that differs between the original and
// the patched image lies inside one of the expected ranges.
func VerifyPatch(logger *log.Logger, original, patched []byte, expected []Range) error {
	changed, err := Changes(original, patched)
	if err != nil {
		return err
	}

	for _, r := range Ranges(changed) {
		logger.Debug("Changed range",
			log.String("range", r.String()),
			log.Int("size", r.Len()))
	}

	allowed := roaring.New()
	for _, r := range expected {
		if r.Len() > 0 {
			allowed.AddRange(uint64(r.Start), uint64(r.End))
		}
	}

	unexpected := roaring.AndNot(changed, allowed)
	if unexpected.IsEmpty() {
		return nil
	}

	var logged int
	it := unexpected.Iterator()
	for it.HasNext() && logged < maxLoggedMismatches {
		offset := int(it.Next())
		logger.Warn("Unexpected change",
			log.Hex("offset", offset),
			log.Hex("expected", original[offset]),
			log.Hex("got", patched[offset]))
		logged++
	}
	return fmt.Errorf("%w: %d bytes", ErrUnexpectedChange, unexpected.GetCardinality())
}
