package lclz

import "fmt"

// command decodes the arguments of one command and appends its output.
type command func(s *stream, length int) error

// variant is a format specific dispatch table, nil entries are undefined
// commands.
type variant struct {
	name     string
	commands [longCommand]command
}

var lz2 = variant{
	name: "lz2",
	commands: [longCommand]command{
		directCopy,
		byteFill,
		wordFill,
		increasingFill,
		backReference,
	},
}

var lz3 = variant{
	name: "lz3",
	commands: [longCommand]command{
		directCopy,
		byteFill,
		wordFill,
		zeroFill,
		backReference,
		backReferenceBitReversed,
		backReferenceBackward,
	},
}

// stream holds the decoding state of a single call.
type stream struct {
	in  []byte
	pos int
	out []byte
}

func (v variant) decode(data []byte, sizeHint int) ([]byte, error) {
	s := &stream{
		in:  data,
		out: make([]byte, 0, sizeHint),
	}

	for {
		op, length, ok, err := s.head()
		if err != nil {
			return nil, fmt.Errorf("%s at input offset %d: %w", v.name, s.pos, err)
		}
		if !ok {
			break
		}

		cmd := v.commands[op]
		if cmd == nil {
			return nil, fmt.Errorf("%s command %d at input offset %d: %w", v.name, op, s.pos, ErrUndefinedCommand)
		}
		if err := cmd(s, length); err != nil {
			return nil, fmt.Errorf("%s command %d at input offset %d: %w", v.name, op, s.pos, err)
		}

		if len(s.out) > MaxOutput {
			return nil, fmt.Errorf("%s: %w", v.name, ErrOverlongOutput)
		}
	}

	return s.out, nil
}

// head reads the next command head and returns its opcode and length.
// The third return value is false once the end of stream marker is read.
func (s *stream) head() (byte, int, bool, error) {
	if s.remaining() < 1 {
		return 0, 0, false, ErrPrematureEnd
	}

	b0 := s.in[s.pos]
	if b0 == endOfStream {
		s.pos++
		return 0, 0, false, nil
	}

	op := b0 >> 5
	if op != longCommand {
		s.pos++
		return op, int(b0&0x1f) + 1, true, nil
	}

	if s.remaining() < 2 {
		return 0, 0, false, ErrPrematureEnd
	}
	op = b0 >> 2 & 0x07
	if op == longCommand {
		return 0, 0, false, ErrInvalidHeader
	}
	length := int(b0&0x02)<<8 | int(s.in[s.pos+1])
	s.pos += 2
	return op, length + 1, true, nil
}

func (s *stream) remaining() int {
	return len(s.in) - s.pos
}

// need returns the next n argument bytes and advances past them.
func (s *stream) need(n int) ([]byte, error) {
	if s.remaining() < n {
		return nil, ErrPrematureEnd
	}
	b := s.in[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// sourceOffset reads a back reference offset and checks that it points
// into the output decoded so far.
func (s *stream) sourceOffset() (int, error) {
	b, err := s.need(2)
	if err != nil {
		return 0, err
	}
	offset := int(b[0]) | int(b[1])<<1
	if offset >= len(s.out) {
		return 0, fmt.Errorf("%w: offset %d, output length %d", ErrOutOfRangeCopy, offset, len(s.out))
	}
	return offset, nil
}

func directCopy(s *stream, length int) error {
	if length > s.remaining() {
		return fmt.Errorf("%w: %d bytes requested, %d remaining", ErrInputOverrun, length, s.remaining())
	}
	s.out = append(s.out, s.in[s.pos:s.pos+length]...)
	s.pos += length
	return nil
}

func byteFill(s *stream, length int) error {
	b, err := s.need(1)
	if err != nil {
		return err
	}
	for i := 0; i < length; i++ {
		s.out = append(s.out, b[0])
	}
	return nil
}

func wordFill(s *stream, length int) error {
	b, err := s.need(2)
	if err != nil {
		return err
	}
	for i := 0; i < length; i++ {
		s.out = append(s.out, b[i&1])
	}
	return nil
}

func increasingFill(s *stream, length int) error {
	b, err := s.need(1)
	if err != nil {
		return err
	}
	value := b[0]
	for i := 0; i < length; i++ {
		s.out = append(s.out, value)
		value++
	}
	return nil
}

func zeroFill(s *stream, length int) error {
	for i := 0; i < length; i++ {
		s.out = append(s.out, 0)
	}
	return nil
}

// the source may overlap the bytes being appended, so copy byte by byte.
func backReference(s *stream, length int) error {
	offset, err := s.sourceOffset()
	if err != nil {
		return err
	}
	for i := offset; i < offset+length; i++ {
		s.out = append(s.out, s.out[i])
	}
	return nil
}

var reversedNibbles = [16]byte{
	0b0000, 0b1000, 0b0100, 0b1100,
	0b0010, 0b1010, 0b0110, 0b1110,
	0b0001, 0b1001, 0b0101, 0b1101,
	0b0011, 0b1011, 0b0111, 0b1111,
}

func backReferenceBitReversed(s *stream, length int) error {
	offset, err := s.sourceOffset()
	if err != nil {
		return err
	}
	for i := offset; i < offset+length; i++ {
		b := s.out[i]
		s.out = append(s.out, reversedNibbles[b>>4]|reversedNibbles[b&0x0f]<<4)
	}
	return nil
}

func backReferenceBackward(s *stream, length int) error {
	offset, err := s.sourceOffset()
	if err != nil {
		return err
	}
	if length > offset {
		return fmt.Errorf("%w: backward copy of %d bytes from offset %d", ErrOutOfRangeCopy, length, offset)
	}
	for i := offset; i > offset-length; i-- {
		s.out = append(s.out, s.out[i])
	}
	return nil
}
