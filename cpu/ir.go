package cpu

import (
	"github.com/ezrec/datapath/word"
)

// InstructionRegister holds the instruction word being executed, and
// exposes its fields to the decoder.
type InstructionRegister struct {
	Register
}

var _ Port = (*InstructionRegister)(nil)

// NewInstructionRegister creates an empty instruction register.
func NewInstructionRegister() (ir *InstructionRegister) {
	ir = &InstructionRegister{}
	ir.Name = "ir"
	return
}

// Opcode returns the primary opcode, bits 31..26.
func (ir *InstructionRegister) Opcode() CodeOp {
	return CodeOp(ir.GetData().Uint() >> 26)
}

// Rs returns the first source register, bits 25..21.
func (ir *InstructionRegister) Rs() int {
	return int(ir.GetData().Uint()>>21) & 0x1f
}

// Rt returns the second source (or I-type target) register, bits 20..16.
func (ir *InstructionRegister) Rt() int {
	return int(ir.GetData().Uint()>>16) & 0x1f
}

// Rd returns the R-type destination register, bits 15..11.
func (ir *InstructionRegister) Rd() int {
	return int(ir.GetData().Uint()>>11) & 0x1f
}

// Shamt returns the shift amount, bits 10..6.
func (ir *InstructionRegister) Shamt() int {
	return int(ir.GetData().Uint()>>6) & 0x1f
}

// Funct returns the R-type function, bits 5..0.
func (ir *InstructionRegister) Funct() CodeFunct {
	return CodeFunct(ir.GetData().Uint() & 0x3f)
}

// Immediate returns the sign-extended 16-bit immediate.
func (ir *InstructionRegister) Immediate() word.Word {
	return word.New(int64(int16(ir.GetData().Uint())))
}

// ImmediateUnsigned returns the zero-extended 16-bit immediate.
func (ir *InstructionRegister) ImmediateUnsigned() word.Word {
	return word.FromUint(ir.GetData().Uint() & 0xffff)
}

// Target returns the 26-bit jump target field.
func (ir *InstructionRegister) Target() uint32 {
	return ir.GetData().Uint() & 0x03ff_ffff
}
