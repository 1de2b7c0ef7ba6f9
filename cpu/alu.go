package cpu

import (
	"github.com/ezrec/datapath/word"
)

// AluOp is an ALU operation selected by the decoder.
type AluOp int

const (
	ALU_OP_ADD   = AluOp(0)  // add
	ALU_OP_SUB   = AluOp(1)  // sub
	ALU_OP_AND   = AluOp(2)  // and
	ALU_OP_OR    = AluOp(3)  // or
	ALU_OP_XOR   = AluOp(4)  // xor
	ALU_OP_NOR   = AluOp(5)  // nor
	ALU_OP_NOT   = AluOp(6)  // not
	ALU_OP_SHIFT = AluOp(7)  // shift
	ALU_OP_SLLV  = AluOp(8)  // sllv
	ALU_OP_SRLV  = AluOp(9)  // srlv
	ALU_OP_SLT   = AluOp(10) // slt
	alu_op_count = 11
)

var aluOpNames = [alu_op_count]string{
	"add", "sub", "and", "or", "xor", "nor", "not", "shift", "sllv", "srlv", "slt",
}

func (op AluOp) String() string {
	if op < 0 || op >= alu_op_count {
		return f("aluop(%d)", int(op))
	}
	return aluOpNames[op]
}

// ALU is the arithmetic and logic unit.
//
// The operations themselves are pure functions of their operands. For bus
// wiring the ALU also has a data slot, written and read by the control unit,
// and a held operand latched from the slot by Hold. Execute replaces the
// slot with op(held, slot).
type ALU struct {
	Events *Events

	data Register
	held Register
}

var _ Port = (*ALU)(nil)

// GetData returns the ALU's data slot.
func (alu *ALU) GetData() word.Word {
	return alu.data.GetData()
}

// SetData sets the ALU's data slot.
func (alu *ALU) SetData(value word.Word) {
	alu.data.SetData(value)
}

// Held returns the held operand.
func (alu *ALU) Held() word.Word {
	return alu.held.GetData()
}

// Hold latches the data slot as the first operand of the next Execute.
func (alu *ALU) Hold() {
	alu.held.SetData(alu.data.GetData())
	notify(alu.Events, COMPONENT_ALU)
}

// Reset clears the data slot and held operand.
func (alu *ALU) Reset() {
	alu.data.SetData(word.Word{})
	alu.held.SetData(word.Word{})
}

// Execute computes op(held, slot) into the data slot. Unary operations
// use only the slot.
func (alu *ALU) Execute(op AluOp) (err error) {
	result, err := alu.Apply(op, alu.held.GetData(), alu.data.GetData())
	if err != nil {
		return
	}

	alu.data.SetData(result)
	notify(alu.Events, COMPONENT_ALU)
	return
}

// Apply computes op(a, b). Unary operations use only b.
func (alu *ALU) Apply(op AluOp, a, b word.Word) (result word.Word, err error) {
	switch op {
	case ALU_OP_ADD:
		result, err = alu.Add(a, b)
	case ALU_OP_SUB:
		result, err = alu.Sub(a, b)
	case ALU_OP_AND:
		result, err = alu.And(a, b)
	case ALU_OP_OR:
		result, err = alu.Or(a, b)
	case ALU_OP_XOR:
		result, err = alu.Xor(a, b)
	case ALU_OP_NOR:
		result, err = alu.Or(a, b)
		if err == nil {
			result = alu.Not(result)
		}
	case ALU_OP_NOT:
		result = alu.Not(b)
	case ALU_OP_SHIFT:
		result = alu.Shift(a, b)
	case ALU_OP_SLLV:
		result = alu.Shift(a, word.New(int64(b.Uint()&0x1f)))
	case ALU_OP_SRLV:
		result = alu.Shift(a, word.New(-int64(b.Uint()&0x1f)))
	case ALU_OP_SLT:
		result, err = alu.Slt(a, b)
	default:
		err = ErrAluOp
	}

	return
}

func sameWidth(a, b word.Word) (err error) {
	if a.Width() != b.Width() {
		err = &LengthError{A: a.Width(), B: b.Width()}
	}
	return
}

// Xor returns the bitwise exclusive or of two equal width Words.
func (alu *ALU) Xor(a, b word.Word) (result word.Word, err error) {
	if err = sameWidth(a, b); err != nil {
		return
	}
	result = word.FromUintWidth(a.Width(), a.Uint()^b.Uint())
	return
}

// Or returns the bitwise inclusive or of two equal width Words.
func (alu *ALU) Or(a, b word.Word) (result word.Word, err error) {
	if err = sameWidth(a, b); err != nil {
		return
	}
	result = word.FromUintWidth(a.Width(), a.Uint()|b.Uint())
	return
}

// And returns the bitwise and of two equal width Words.
func (alu *ALU) And(a, b word.Word) (result word.Word, err error) {
	if err = sameWidth(a, b); err != nil {
		return
	}
	result = word.FromUintWidth(a.Width(), a.Uint()&b.Uint())
	return
}

// Not returns the bitwise complement.
func (alu *ALU) Not(a word.Word) word.Word {
	return word.FromUintWidth(a.Width(), ^a.Uint())
}

// Shift shifts value logically. The direction is selected by the sign of
// amount, read as a signed Word: negative shifts right, otherwise left.
// Both directions fill with zero bits, and a magnitude of at least the width
// of value gives zero.
func (alu *ALU) Shift(value, amount word.Word) word.Word {
	width := value.Width()
	n := amount.Int()

	if n < 0 {
		n = -n
		if n >= int64(width) {
			return word.NewWidth(width, 0)
		}
		return word.FromUintWidth(width, value.Uint()>>n)
	}

	if n >= int64(width) {
		return word.NewWidth(width, 0)
	}
	return word.FromUintWidth(width, value.Uint()<<n)
}

// Add returns a + b, wrapping at the operand width.
func (alu *ALU) Add(a, b word.Word) (result word.Word, err error) {
	if err = sameWidth(a, b); err != nil {
		return
	}
	result = a.Add(b)
	return
}

// Sub returns a - b, wrapping at the operand width.
func (alu *ALU) Sub(a, b word.Word) (result word.Word, err error) {
	if err = sameWidth(a, b); err != nil {
		return
	}
	result = a.Sub(b)
	return
}

// Slt returns one if a < b as signed values, otherwise zero.
func (alu *ALU) Slt(a, b word.Word) (result word.Word, err error) {
	if err = sameWidth(a, b); err != nil {
		return
	}
	var value int64
	if a.Int() < b.Int() {
		value = 1
	}
	result = word.NewWidth(a.Width(), value)
	return
}
