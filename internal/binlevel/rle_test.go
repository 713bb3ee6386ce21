package binlevel

import (
	"slices"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestRuns(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []Run
	}{
		{name: "empty", input: nil, want: nil},
		{name: "single", input: []byte{7}, want: []Run{{Value: 7, Length: 1}}},
		{
			name:  "mixed",
			input: []byte{1, 1, 2, 3, 3, 3, 1},
			want: []Run{
				{Value: 1, Length: 2},
				{Value: 2, Length: 1},
				{Value: 3, Length: 3},
				{Value: 1, Length: 1},
			},
		},
		{
			name:  "split at length field limit",
			input: make([]byte, 0x10000),
			want: []Run{
				{Value: 0, Length: 0xffff},
				{Value: 0, Length: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slices.Collect(Runs(tt.input)))
		})
	}
}

func TestRunsStopsEarly(t *testing.T) {
	var count int
	for range Runs([]byte{1, 2, 3, 4}) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestAppendRuns(t *testing.T) {
	got := appendRuns(nil, []byte{5, 5, 5, 9})
	assert.Equal(t, []byte{0x03, 0x00, 0x05, 0x01, 0x00, 0x09, 0x00, 0x00}, got)

	got = appendRuns(nil, nil)
	assert.Equal(t, []byte{0x00, 0x00}, got)
}
