package verification

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestRanges(t *testing.T) {
	original := make([]byte, 32)
	patched := make([]byte, 32)
	for _, i := range []int{1, 2, 3, 7, 9, 10, 31} {
		patched[i] = 0xff
	}

	changed, err := Changes(original, patched)
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), changed.GetCardinality())

	want := []Range{{1, 4}, {7, 8}, {9, 11}, {31, 32}}
	assert.Equal(t, want, Ranges(changed))
}

func TestVerifyPatch(t *testing.T) {
	original := make([]byte, 0x100)

	tests := []struct {
		name     string
		changes  []int
		expected []Range
		wantErr  error
	}{
		{
			name: "identical images",
		},
		{
			name:     "changes inside expected ranges",
			changes:  []int{0x10, 0x11, 0x80},
			expected: []Range{{0x10, 0x20}, {0x80, 0x81}},
		},
		{
			name:     "change next to a range",
			changes:  []int{0x10, 0x20},
			expected: []Range{{0x10, 0x20}},
			wantErr:  ErrUnexpectedChange,
		},
		{
			name:     "more mismatches than are logged",
			changes:  []int{0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2a, 0x2b},
			expected: []Range{{0x10, 0x20}},
			wantErr:  ErrUnexpectedChange,
		},
		{
			name:     "empty range allows nothing",
			changes:  []int{0x40},
			expected: []Range{{0x40, 0x40}},
			wantErr:  ErrUnexpectedChange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patched := make([]byte, len(original))
			for _, i := range tt.changes {
				patched[i] = 1
			}

			err := VerifyPatch(log.NewTestLogger(t), original, patched, tt.expected)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestVerifyPatchLengthMismatch(t *testing.T) {
	err := VerifyPatch(log.NewTestLogger(t), make([]byte, 4), make([]byte, 5), nil)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestVerifyPatchReportsCount(t *testing.T) {
	original := make([]byte, 64)
	patched := make([]byte, 64)
	for i := range 20 {
		patched[i] = 1
	}

	err := VerifyPatch(log.NewTestLogger(t), original, patched, []Range{{0, 5}})
	assert.ErrorContains(t, err, "15 bytes")
}
