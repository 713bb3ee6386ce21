package binlevel

import "iter"

// maxRunLength keeps a run length from colliding with the end sentinel.
const maxRunLength = 0xffff

// Run is a sequence of identical bytes.
type Run struct {
	Value  byte
	Length int
}

// Runs returns the runs of identical consecutive bytes of data. Runs are
// split when they exceed the 16 bit length field.
func Runs(data []byte) iter.Seq[Run] {
	return func(yield func(Run) bool) {
		for i := 0; i < len(data); {
			run := Run{Value: data[i], Length: 1}
			for i+run.Length < len(data) && data[i+run.Length] == run.Value && run.Length < maxRunLength {
				run.Length++
			}
			if !yield(run) {
				return
			}
			i += run.Length
		}
	}
}

// appendRuns appends the (length low, length high, value) encoding of every
// run of data followed by the zero length sentinel.
func appendRuns(b, data []byte) []byte {
	for run := range Runs(data) {
		b = append(b, byte(run.Length), byte(run.Length>>8), run.Value)
	}
	return append(b, 0, 0)
}
