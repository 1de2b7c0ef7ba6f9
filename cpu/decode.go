package cpu

import (
	"fmt"

	"github.com/ezrec/datapath/word"
)

// MicroOp is one primitive step of an instruction: a bus transfer, an ALU
// operation, a memory access or a control-flow change.
type MicroOp struct {
	Name string
	Do   func(cpu *Cpu) error
}

func opRead(index int) MicroOp {
	return MicroOp{
		Name: fmt.Sprintf("bus <- $%d", index),
		Do: func(cpu *Cpu) (err error) {
			value, err := cpu.ControlUnit.ReadFromRegister(index)
			if err != nil {
				return
			}
			cpu.ControlUnit.Drive(value)
			return
		},
	}
}

func opWrite(index int) MicroOp {
	return MicroOp{
		Name: fmt.Sprintf("$%d <- bus", index),
		Do: func(cpu *Cpu) error {
			return cpu.ControlUnit.WriteToRegister(index, cpu.ControlUnit.GetData())
		},
	}
}

func opDrive(value word.Word) MicroOp {
	return MicroOp{
		Name: fmt.Sprintf("bus <- %v", value.Hex()),
		Do: func(cpu *Cpu) error {
			cpu.ControlUnit.Drive(value)
			return nil
		},
	}
}

func opSend(c Component) MicroOp {
	return MicroOp{
		Name: fmt.Sprintf("%v <- bus", c),
		Do: func(cpu *Cpu) error {
			return cpu.ControlUnit.Send(c)
		},
	}
}

func opReceive(c Component) MicroOp {
	return MicroOp{
		Name: fmt.Sprintf("bus <- %v", c),
		Do: func(cpu *Cpu) error {
			return cpu.ControlUnit.Receive(c)
		},
	}
}

func opHold() MicroOp {
	return MicroOp{
		Name: "alu hold",
		Do: func(cpu *Cpu) error {
			cpu.ALU.Hold()
			return nil
		},
	}
}

func opExecute(op AluOp) MicroOp {
	return MicroOp{
		Name: fmt.Sprintf("alu %v", op),
		Do: func(cpu *Cpu) error {
			return cpu.ALU.Execute(op)
		},
	}
}

func opLatch() MicroOp {
	return MicroOp{
		Name: "lsu latch",
		Do: func(cpu *Cpu) error {
			cpu.LSUnit.Latch()
			return nil
		},
	}
}

func opLoad() MicroOp {
	return MicroOp{
		Name: "lsu load",
		Do: func(cpu *Cpu) error {
			return cpu.LSUnit.Load()
		},
	}
}

func opStore() MicroOp {
	return MicroOp{
		Name: "lsu store",
		Do: func(cpu *Cpu) error {
			return cpu.LSUnit.Store()
		},
	}
}

// opBranch adds offset to the program counter when the bus is zero (or
// non-zero).
func opBranch(offset word.Word, ifZero bool) MicroOp {
	name := "pc += offset if bus == 0"
	if !ifZero {
		name = "pc += offset if bus != 0"
	}
	return MicroOp{
		Name: name,
		Do: func(cpu *Cpu) error {
			if cpu.ControlUnit.GetData().IsZero() == ifZero {
				cpu.PC.AddOffset(offset)
				cpu.jumped = true
			}
			return nil
		},
	}
}

// opJump moves the bus value into the program counter.
func opJump() MicroOp {
	return MicroOp{
		Name: "pc <- bus",
		Do: func(cpu *Cpu) (err error) {
			err = cpu.ControlUnit.SendProgramCounter()
			if err != nil {
				return
			}
			cpu.jumped = true
			return
		},
	}
}

func opSyscall() MicroOp {
	return MicroOp{
		Name: "syscall",
		Do: func(cpu *Cpu) error {
			return cpu.syscall()
		},
	}
}

// binary routes two operands through the ALU, leaving op(a, b) on the bus.
func binary(op AluOp, a, b MicroOp) []MicroOp {
	return []MicroOp{
		a,
		opSend(COMPONENT_ALU),
		opHold(),
		b,
		opSend(COMPONENT_ALU),
		opExecute(op),
		opReceive(COMPONENT_ALU),
	}
}

var functAlu = map[CodeFunct]AluOp{
	FUNCT_ADD:  ALU_OP_ADD,
	FUNCT_ADDU: ALU_OP_ADD,
	FUNCT_SUB:  ALU_OP_SUB,
	FUNCT_SUBU: ALU_OP_SUB,
	FUNCT_AND:  ALU_OP_AND,
	FUNCT_OR:   ALU_OP_OR,
	FUNCT_XOR:  ALU_OP_XOR,
	FUNCT_NOR:  ALU_OP_NOR,
	FUNCT_SLT:  ALU_OP_SLT,
}

var immAlu = map[CodeOp]AluOp{
	OP_ADDI:  ALU_OP_ADD,
	OP_ADDIU: ALU_OP_ADD,
	OP_SLTI:  ALU_OP_SLT,
	OP_ANDI:  ALU_OP_AND,
	OP_ORI:   ALU_OP_OR,
	OP_XORI:  ALU_OP_XOR,
}

// Decode translates the latched instruction into its micro-operations.
func (cpu *Cpu) Decode() (ops []MicroOp, err error) {
	ir := cpu.IR
	code := ir.GetData().Uint()

	rs, rt, rd := ir.Rs(), ir.Rt(), ir.Rd()

	switch op := ir.Opcode(); op {
	case OP_SPECIAL:
		funct := ir.Funct()
		shamt := int64(ir.Shamt())
		switch funct {
		case FUNCT_SLL:
			ops = append(binary(ALU_OP_SHIFT, opRead(rt), opDrive(word.New(shamt))), opWrite(rd))
		case FUNCT_SRL:
			ops = append(binary(ALU_OP_SHIFT, opRead(rt), opDrive(word.New(-shamt))), opWrite(rd))
		case FUNCT_SLLV:
			ops = append(binary(ALU_OP_SLLV, opRead(rt), opRead(rs)), opWrite(rd))
		case FUNCT_SRLV:
			ops = append(binary(ALU_OP_SRLV, opRead(rt), opRead(rs)), opWrite(rd))
		case FUNCT_JR:
			ops = []MicroOp{opRead(rs), opJump()}
		case FUNCT_SYSCALL:
			ops = []MicroOp{opSyscall()}
		default:
			alu, ok := functAlu[funct]
			if !ok {
				err = ErrOpcode(code)
				return
			}
			ops = append(binary(alu, opRead(rs), opRead(rt)), opWrite(rd))
		}
	case OP_ADDI, OP_ADDIU, OP_SLTI:
		ops = append(binary(immAlu[op], opRead(rs), opDrive(ir.Immediate())), opWrite(rt))
	case OP_ANDI, OP_ORI, OP_XORI:
		ops = append(binary(immAlu[op], opRead(rs), opDrive(ir.ImmediateUnsigned())), opWrite(rt))
	case OP_LUI:
		ops = append(binary(ALU_OP_SHIFT, opDrive(ir.ImmediateUnsigned()), opDrive(word.New(16))), opWrite(rt))
	case OP_LW:
		ops = append(binary(ALU_OP_ADD, opRead(rs), opDrive(ir.Immediate())),
			opSend(COMPONENT_LS_UNIT),
			opLatch(),
			opLoad(),
			opReceive(COMPONENT_LS_UNIT),
			opWrite(rt),
		)
	case OP_SW:
		ops = append(binary(ALU_OP_ADD, opRead(rs), opDrive(ir.Immediate())),
			opSend(COMPONENT_LS_UNIT),
			opLatch(),
			opRead(rt),
			opSend(COMPONENT_LS_UNIT),
			opStore(),
		)
	case OP_BEQ, OP_BNE:
		offset := word.New(ir.Immediate().Int() << 2)
		ops = append(binary(ALU_OP_SUB, opRead(rs), opRead(rt)), opBranch(offset, op == OP_BEQ))
	case OP_J, OP_JAL:
		next := cpu.PC.GetData().Uint() + PC_INCREMENT
		target := word.FromUint((next & 0xf000_0000) | (ir.Target() << 2))
		if op == OP_JAL {
			ops = append(ops,
				opReceive(COMPONENT_PROGRAM_COUNTER),
				opSend(COMPONENT_ALU),
				opHold(),
				opDrive(word.New(PC_INCREMENT)),
				opSend(COMPONENT_ALU),
				opExecute(ALU_OP_ADD),
				opReceive(COMPONENT_ALU),
				opWrite(REG_RA),
			)
		}
		ops = append(ops, opDrive(target), opJump())
	default:
		err = ErrOpcode(code)
		return
	}

	return
}
