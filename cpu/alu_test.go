package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/datapath/word"
)

func bits(t *testing.T, width int, text string) word.Word {
	w, err := word.ParseWidth(width, text)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestAluXor(t *testing.T) {
	assert := assert.New(t)

	alu := &ALU{}

	a := bits(t, 4, "1010")
	b := bits(t, 4, "0110")

	result, err := alu.Xor(a, b)
	assert.NoError(err)
	assert.Equal("1100", result.Bits())

	result, err = alu.Xor(word.NewWidth(4, 5), word.NewWidth(4, 3))
	assert.NoError(err)
	assert.True(result.Equal(word.NewWidth(4, 6)))
	assert.Equal("0110", result.Bits())

	result, err = alu.Xor(a, word.NewWidth(4, 0))
	assert.NoError(err)
	assert.True(result.Equal(a))

	result, err = alu.Xor(a, a)
	assert.NoError(err)
	assert.True(result.IsZero())

	_, err = alu.Xor(a, word.New(0))
	assert.True(errors.Is(err, ErrLengthMismatch))

	var le *LengthError
	assert.True(errors.As(err, &le))
	assert.Equal(4, le.A)
	assert.Equal(32, le.B)
}

func TestAluLogic(t *testing.T) {
	assert := assert.New(t)

	alu := &ALU{}

	a := word.FromUint(0xf0f0_1234)
	b := word.FromUint(0x0ff0_ff00)

	result, err := alu.And(a, b)
	assert.NoError(err)
	assert.Equal(uint32(0x00f0_1200), result.Uint())

	result, err = alu.Or(a, b)
	assert.NoError(err)
	assert.Equal(uint32(0xfff0_ff34), result.Uint())

	result, err = alu.Apply(ALU_OP_NOR, a, b)
	assert.NoError(err)
	assert.Equal(uint32(0x000f_00cb), result.Uint())

	assert.Equal(uint32(0x0f0f_edcb), alu.Not(a).Uint())
	assert.True(alu.Not(alu.Not(a)).Equal(a))

	_, err = alu.And(word.NewWidth(8, 1), a)
	assert.True(errors.Is(err, ErrLengthMismatch))
	_, err = alu.Or(word.NewWidth(8, 1), a)
	assert.True(errors.Is(err, ErrLengthMismatch))

	_, err = alu.Apply(AluOp(99), a, b)
	assert.True(errors.Is(err, ErrAluOp))
}

func TestAluShift(t *testing.T) {
	assert := assert.New(t)

	alu := &ALU{}

	value := word.FromUint(0x8000_0001)

	table := [](struct {
		amount   int64
		expected uint32
	}){
		{0, 0x8000_0001},
		{1, 0x0000_0002},
		{4, 0x0000_0010},
		{31, 0x8000_0000},
		{32, 0},
		{33, 0},
		{-1, 0x4000_0000},
		{-31, 0x0000_0001},
		{-32, 0},
		{-1000, 0},
	}

	for _, entry := range table {
		result := alu.Shift(value, word.New(entry.amount))
		assert.Equal(entry.expected, result.Uint(), "shift %d", entry.amount)
	}

	// Right shifts fill with zero, even for negative values.
	result := alu.Shift(word.New(-1), word.New(-4))
	assert.Equal(uint32(0x0fff_ffff), result.Uint())

	// Width is kept.
	result = alu.Shift(bits(t, 4, "0011"), word.New(2))
	assert.Equal("1100", result.Bits())
	result = alu.Shift(bits(t, 4, "0011"), word.New(4))
	assert.Equal("0000", result.Bits())
}

func TestAluArithmetic(t *testing.T) {
	assert := assert.New(t)

	alu := &ALU{}

	result, err := alu.Add(word.FromUint(0xffff_ffff), word.New(2))
	assert.NoError(err)
	assert.Equal(uint32(1), result.Uint())

	result, err = alu.Sub(word.New(3), word.New(5))
	assert.NoError(err)
	assert.Equal(int64(-2), result.Int())

	result, err = alu.Slt(word.New(-1), word.New(1))
	assert.NoError(err)
	assert.Equal(uint32(1), result.Uint())

	result, err = alu.Slt(word.New(1), word.New(-1))
	assert.NoError(err)
	assert.Equal(uint32(0), result.Uint())

	result, err = alu.Apply(ALU_OP_SLLV, word.New(1), word.New(33))
	assert.NoError(err)
	assert.Equal(uint32(2), result.Uint())

	result, err = alu.Apply(ALU_OP_SRLV, word.FromUint(0x8000_0000), word.New(31))
	assert.NoError(err)
	assert.Equal(uint32(1), result.Uint())
}

func TestAluExecute(t *testing.T) {
	assert := assert.New(t)

	var events Events
	var changes []Change
	events.Subscribe(func(c Change) { changes = append(changes, c) })

	alu := &ALU{Events: &events}

	alu.SetData(word.New(40))
	alu.Hold()
	assert.Equal(int64(40), alu.Held().Int())

	alu.SetData(word.New(2))
	err := alu.Execute(ALU_OP_ADD)
	assert.NoError(err)
	assert.Equal(int64(42), alu.GetData().Int())

	assert.Equal([]Change{{COMPONENT_ALU}, {COMPONENT_ALU}}, changes)

	alu.Reset()
	assert.True(alu.GetData().IsZero())
	assert.True(alu.Held().IsZero())

	assert.Equal("shift", ALU_OP_SHIFT.String())
}

func FuzzAlu(f *testing.F) {
	f.Add(uint32(0), uint32(0), int8(0))
	f.Add(uint32(0xffff_ffff), uint32(0x1234_5678), int8(-1))
	f.Add(uint32(0x8000_0000), uint32(1), int8(31))

	f.Fuzz(func(t *testing.T, a uint32, b uint32, n int8) {
		assert := assert.New(t)

		alu := &ALU{}
		wa := word.FromUint(a)
		wb := word.FromUint(b)
		zero := word.New(0)

		result, err := alu.Xor(wa, zero)
		assert.NoError(err)
		assert.True(result.Equal(wa))

		result, err = alu.Xor(wa, wa)
		assert.NoError(err)
		assert.True(result.IsZero())

		assert.True(alu.Not(alu.Not(wa)).Equal(wa))
		assert.True(alu.Shift(wa, zero).Equal(wa))

		result, err = alu.Xor(wa, wb)
		assert.NoError(err)
		assert.Equal(a^b, result.Uint())

		// xor(a, b) == or(a, b) AND NOT and(a, b)
		or, err := alu.Or(wa, wb)
		assert.NoError(err)
		and, err := alu.And(wa, wb)
		assert.NoError(err)
		composed, err := alu.And(or, alu.Not(and))
		assert.NoError(err)
		assert.True(composed.Equal(result))

		var expected uint32
		switch {
		case n >= 32 || n <= -32:
			expected = 0
		case n < 0:
			expected = a >> -n
		default:
			expected = a << n
		}
		assert.Equal(expected, alu.Shift(wa, word.New(int64(n))).Uint())

		sum, err := alu.Add(wa, wb)
		assert.NoError(err)
		diff, err := alu.Sub(sum, wb)
		assert.NoError(err)
		assert.True(diff.Equal(wa))
	})
}
