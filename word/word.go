// Package word implements the fixed-width two's-complement value that every
// register and bus of the datapath carries.
package word

import (
	"fmt"
)

const (
	WIDTH = 32 // Default width of a Word, in bits.
)

// Word is an immutable fixed-width two's-complement binary value.
//
// Words compare (and hash, as map keys) by bit pattern and width. The zero
// value is the 32-bit zero.
type Word struct {
	value  uint32 // Bit pattern, always masked to the width.
	narrow uint8  // WIDTH minus the width, so the zero value is 32 bits wide.
}

// mask returns the bit mask for a width.
func mask(width int) uint32 {
	if width == WIDTH {
		return ^uint32(0)
	}
	return (uint32(1) << width) - 1
}

func checkWidth(width int) {
	if width < 1 || width > WIDTH {
		panic(fmt.Sprintf("word: invalid width %d", width))
	}
}

// New creates a 32-bit Word from an integer, wrapping it to 32 bits.
func New(value int64) Word {
	return Word{value: uint32(value)}
}

// NewWidth creates a Word of the given width from an integer, wrapping it to
// that width. Widths outside 1..32 are a programming error and panic.
func NewWidth(width int, value int64) Word {
	checkWidth(width)
	return Word{value: uint32(value) & mask(width), narrow: uint8(WIDTH - width)}
}

// FromUint creates a 32-bit Word from its raw bit pattern.
func FromUint(value uint32) Word {
	return Word{value: value}
}

// FromUintWidth creates a Word of the given width from a raw bit pattern,
// discarding bits above the width.
func FromUintWidth(width int, value uint32) Word {
	checkWidth(width)
	return Word{value: value & mask(width), narrow: uint8(WIDTH - width)}
}

// Parse creates a 32-bit Word from a string of exactly 32 '0' or '1'
// characters, most significant bit first.
func Parse(bits string) (Word, error) {
	return ParseWidth(WIDTH, bits)
}

// ParseWidth creates a Word from a string of exactly width '0' or '1'
// characters, most significant bit first.
func ParseWidth(width int, bits string) (w Word, err error) {
	checkWidth(width)

	if len(bits) != width {
		err = &FormatError{Bits: bits, Width: width}
		return
	}

	var value uint32
	for _, c := range bits {
		value <<= 1
		switch c {
		case '0':
		case '1':
			value |= 1
		default:
			err = &FormatError{Bits: bits, Width: width}
			return
		}
	}

	w = Word{value: value, narrow: uint8(WIDTH - width)}
	return
}

// with returns a new Word of the same width holding value.
func (w Word) with(value uint32) Word {
	return Word{value: value & mask(w.Width()), narrow: w.narrow}
}

// Width returns the number of bits in the Word.
func (w Word) Width() int {
	return WIDTH - int(w.narrow)
}

// Uint returns the raw bit pattern.
func (w Word) Uint() uint32 {
	return w.value
}

// Int returns the signed (two's-complement) value.
func (w Word) Int() int64 {
	shift := 64 - w.Width()
	return int64(uint64(w.value)<<shift) >> shift
}

// Bit returns bit n, counting from the least significant bit.
func (w Word) Bit(n int) bool {
	if n < 0 || n >= w.Width() {
		return false
	}
	return (w.value>>n)&1 != 0
}

// Bits returns the bit pattern as exactly Width() '0'/'1' characters, most
// significant bit first.
func (w Word) Bits() string {
	return fmt.Sprintf("%0*b", w.Width(), w.value)
}

// Hex returns the bit pattern as a zero padded hexadecimal string.
func (w Word) Hex() string {
	return fmt.Sprintf("0x%0*x", (w.Width()+3)/4, w.value)
}

// String returns the bit pattern.
func (w Word) String() string {
	return w.Bits()
}

// Equal returns true if both Words have the same width and bit pattern.
func (w Word) Equal(other Word) bool {
	return w == other
}

// IsZero returns true if all bits are clear.
func (w Word) IsZero() bool {
	return w.value == 0
}

// Negative returns true if the sign bit is set.
func (w Word) Negative() bool {
	return w.Bit(w.Width() - 1)
}

// Add returns w + other, wrapping silently at the width of w.
func (w Word) Add(other Word) Word {
	return w.with(w.value + other.value)
}

// Sub returns w - other, wrapping silently at the width of w.
func (w Word) Sub(other Word) Word {
	return w.with(w.value - other.value)
}

// Neg returns the two's-complement negation of w.
func (w Word) Neg() Word {
	return w.with(-w.value)
}
