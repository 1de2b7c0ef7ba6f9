package cpu

import (
	"fmt"
)

// CodeOp is the primary opcode field of an instruction.
type CodeOp uint32

const (
	OP_SPECIAL = CodeOp(0x00) // special
	OP_J       = CodeOp(0x02) // j
	OP_JAL     = CodeOp(0x03) // jal
	OP_BEQ     = CodeOp(0x04) // beq
	OP_BNE     = CodeOp(0x05) // bne
	OP_ADDI    = CodeOp(0x08) // addi
	OP_ADDIU   = CodeOp(0x09) // addiu
	OP_SLTI    = CodeOp(0x0a) // slti
	OP_ANDI    = CodeOp(0x0c) // andi
	OP_ORI     = CodeOp(0x0d) // ori
	OP_XORI    = CodeOp(0x0e) // xori
	OP_LUI     = CodeOp(0x0f) // lui
	OP_LW      = CodeOp(0x23) // lw
	OP_SW      = CodeOp(0x2b) // sw
)

var opNames = map[CodeOp]string{
	OP_SPECIAL: "special",
	OP_J:       "j",
	OP_JAL:     "jal",
	OP_BEQ:     "beq",
	OP_BNE:     "bne",
	OP_ADDI:    "addi",
	OP_ADDIU:   "addiu",
	OP_SLTI:    "slti",
	OP_ANDI:    "andi",
	OP_ORI:     "ori",
	OP_XORI:    "xori",
	OP_LUI:     "lui",
	OP_LW:      "lw",
	OP_SW:      "sw",
}

func (op CodeOp) String() string {
	name, ok := opNames[op]
	if !ok {
		return fmt.Sprintf("op(0x%02x)", uint32(op))
	}
	return name
}

// CodeFunct is the function field of an OP_SPECIAL instruction.
type CodeFunct uint32

const (
	FUNCT_SLL     = CodeFunct(0x00) // sll
	FUNCT_SRL     = CodeFunct(0x02) // srl
	FUNCT_SLLV    = CodeFunct(0x04) // sllv
	FUNCT_SRLV    = CodeFunct(0x06) // srlv
	FUNCT_JR      = CodeFunct(0x08) // jr
	FUNCT_SYSCALL = CodeFunct(0x0c) // syscall
	FUNCT_ADD     = CodeFunct(0x20) // add
	FUNCT_ADDU    = CodeFunct(0x21) // addu
	FUNCT_SUB     = CodeFunct(0x22) // sub
	FUNCT_SUBU    = CodeFunct(0x23) // subu
	FUNCT_AND     = CodeFunct(0x24) // and
	FUNCT_OR      = CodeFunct(0x25) // or
	FUNCT_XOR     = CodeFunct(0x26) // xor
	FUNCT_NOR     = CodeFunct(0x27) // nor
	FUNCT_SLT     = CodeFunct(0x2a) // slt
)

var functNames = map[CodeFunct]string{
	FUNCT_SLL:     "sll",
	FUNCT_SRL:     "srl",
	FUNCT_SLLV:    "sllv",
	FUNCT_SRLV:    "srlv",
	FUNCT_JR:      "jr",
	FUNCT_SYSCALL: "syscall",
	FUNCT_ADD:     "add",
	FUNCT_ADDU:    "addu",
	FUNCT_SUB:     "sub",
	FUNCT_SUBU:    "subu",
	FUNCT_AND:     "and",
	FUNCT_OR:      "or",
	FUNCT_XOR:     "xor",
	FUNCT_NOR:     "nor",
	FUNCT_SLT:     "slt",
}

func (fn CodeFunct) String() string {
	name, ok := functNames[fn]
	if !ok {
		return fmt.Sprintf("funct(0x%02x)", uint32(fn))
	}
	return name
}

// MakeCodeR encodes an OP_SPECIAL (register) instruction.
func MakeCodeR(funct CodeFunct, rd, rs, rt, shamt int) uint32 {
	return (uint32(OP_SPECIAL) << 26) |
		(uint32(rs&0x1f) << 21) |
		(uint32(rt&0x1f) << 16) |
		(uint32(rd&0x1f) << 11) |
		(uint32(shamt&0x1f) << 6) |
		uint32(funct&0x3f)
}

// MakeCodeI encodes an immediate instruction.
func MakeCodeI(op CodeOp, rt, rs int, imm uint16) uint32 {
	return (uint32(op&0x3f) << 26) |
		(uint32(rs&0x1f) << 21) |
		(uint32(rt&0x1f) << 16) |
		uint32(imm)
}

// MakeCodeJ encodes a jump instruction to a 26-bit word target.
func MakeCodeJ(op CodeOp, target uint32) uint32 {
	return (uint32(op&0x3f) << 26) | (target & 0x03ff_ffff)
}

func regName(index int) string {
	return "$" + registerNames[index&0x1f]
}

// Disassemble returns the assembly language text of an instruction word.
func Disassemble(code uint32) string {
	op := CodeOp(code >> 26)
	rs := regName(int(code >> 21))
	rt := regName(int(code >> 16))
	rd := regName(int(code >> 11))
	shamt := (code >> 6) & 0x1f
	imm := int16(code)

	switch op {
	case OP_SPECIAL:
		funct := CodeFunct(code & 0x3f)
		switch funct {
		case FUNCT_SLL:
			if code == 0 {
				return "nop"
			}
			fallthrough
		case FUNCT_SRL:
			return fmt.Sprintf("%v %v, %v, %d", funct, rd, rt, shamt)
		case FUNCT_SLLV, FUNCT_SRLV:
			return fmt.Sprintf("%v %v, %v, %v", funct, rd, rt, rs)
		case FUNCT_JR:
			return fmt.Sprintf("%v %v", funct, rs)
		case FUNCT_SYSCALL:
			return funct.String()
		}
		if _, ok := functNames[funct]; ok {
			return fmt.Sprintf("%v %v, %v, %v", funct, rd, rs, rt)
		}
	case OP_J, OP_JAL:
		return fmt.Sprintf("%v 0x%08x", op, (code&0x03ff_ffff)<<2)
	case OP_BEQ, OP_BNE:
		return fmt.Sprintf("%v %v, %v, %d", op, rs, rt, imm)
	case OP_LUI:
		return fmt.Sprintf("%v %v, 0x%04x", op, rt, uint16(imm))
	case OP_ANDI, OP_ORI, OP_XORI:
		return fmt.Sprintf("%v %v, %v, 0x%04x", op, rt, rs, uint16(imm))
	case OP_ADDI, OP_ADDIU, OP_SLTI:
		return fmt.Sprintf("%v %v, %v, %d", op, rt, rs, imm)
	case OP_LW, OP_SW:
		return fmt.Sprintf("%v %v, %d(%v)", op, rt, imm, rs)
	}

	return fmt.Sprintf(".word 0x%08x", code)
}
