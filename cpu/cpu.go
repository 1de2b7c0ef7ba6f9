package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/datapath/io"
	"github.com/ezrec/datapath/memory"
	"github.com/ezrec/datapath/word"
)

// Default memory layout.
const (
	TEXT_BASE      = uint32(0x0040_0000) // Start of program text.
	DATA_BASE      = uint32(0x1001_0000) // Start of static data.
	GLOBAL_POINTER = uint32(0x1000_8000) // Initial $gp.
	STACK_POINTER  = uint32(0x7fff_effc) // Initial $sp.
)

var _cpu_defines = map[string]string{
	"TEXT_BASE":        fmt.Sprintf("0x%08x", TEXT_BASE),
	"DATA_BASE":        fmt.Sprintf("0x%08x", DATA_BASE),
	"SYS_PRINT_INT":    fmt.Sprintf("%d", SYS_PRINT_INT),
	"SYS_PRINT_STRING": fmt.Sprintf("%d", SYS_PRINT_STRING),
	"SYS_READ_INT":     fmt.Sprintf("%d", SYS_READ_INT),
	"SYS_EXIT":         fmt.Sprintf("%d", SYS_EXIT),
	"SYS_PRINT_CHAR":   fmt.Sprintf("%d", SYS_PRINT_CHAR),
	"SYS_READ_CHAR":    fmt.Sprintf("%d", SYS_READ_CHAR),
}

// Config selects the datapath policies that are not fixed by the
// instruction set.
type Config struct {
	Registers     int        // Number of general purpose registers.
	ZeroHardwired bool       // If set, register 0 always reads zero.
	BranchMode    BranchMode // How taken branches move the program counter.
	Entry         uint32     // Program counter after reset.
	StackPointer  uint32     // $sp after reset.
	GlobalPointer uint32     // $gp after reset.
}

// DefaultConfig returns the configuration of a conventional 32 register
// machine with a hard-wired zero register.
func DefaultConfig() Config {
	return Config{
		Registers:     REGISTER_COUNT,
		ZeroHardwired: true,
		BranchMode:    BRANCH_OFFSET_THEN_INCREMENT,
		Entry:         TEXT_BASE,
		StackPointer:  STACK_POINTER,
		GlobalPointer: GLOBAL_POINTER,
	}
}

// Cpu is the simulation context for the datapath. It owns every component
// and wires their links; the components never own each other.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Config  Config
	Events  Events      // Change events from every component.
	Console *io.Console // System call console.

	ALU         *ALU
	LSUnit      *LSUnit
	Registers   *RegisterBlock
	PC          *ProgramCounter
	IR          *InstructionRegister
	ControlUnit *ControlUnit

	Halted   bool // Set once the program exits.
	Ticks    int  // Instructions executed.
	MicroOps int  // Micro-operations executed.

	jumped bool // Set when an instruction moved the program counter.
}

// NewCpu creates a CPU in front of a memory.
func NewCpu(config Config, mem memory.Memory) (cpu *Cpu) {
	if config.Registers <= 0 {
		config.Registers = REGISTER_COUNT
	}

	cpu = &Cpu{
		Config:    config,
		ALU:       &ALU{},
		LSUnit:    NewLSUnit(mem),
		Registers: NewRegisterBlock(config.Registers, config.ZeroHardwired),
		PC:        NewProgramCounter(word.FromUint(config.Entry)),
		IR:        NewInstructionRegister(),
	}
	cpu.ControlUnit = NewControlUnit(cpu.ALU, cpu.LSUnit, cpu.Registers, cpu.PC, cpu.IR)

	cpu.ALU.Events = &cpu.Events
	cpu.LSUnit.Events = &cpu.Events
	cpu.PC.Events = &cpu.Events
	cpu.ControlUnit.Events = &cpu.Events
	cpu.PC.BranchMode = config.BranchMode

	cpu.PC.Connect(LINK_CONTROL_UNIT, cpu.ControlUnit)
	cpu.PC.Connect(LINK_INSTRUCTION_REGISTER, cpu.IR)
	cpu.PC.Connect(LINK_LS_UNIT, cpu.LSUnit)

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Subscribe registers a listener for change events.
func (cpu *Cpu) Subscribe(listener func(Change)) (cancel func()) {
	return cpu.Events.Subscribe(listener)
}

// Reset the CPU state.
// - Clears the registers, bus and component slots.
// - Zeros statistics counters.
// - Sets the program counter, $sp and $gp from the configuration.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.ALU.Reset()
	cpu.LSUnit.Reset()
	cpu.IR.SetData(word.Word{})
	cpu.ControlUnit.SetData(word.Word{})
	cpu.PC.SetData(word.FromUint(cpu.Config.Entry))

	if cpu.Registers.Len() > REG_SP {
		cpu.Registers.Set(REG_SP, word.FromUint(cpu.Config.StackPointer))
	}
	if cpu.Registers.Len() > REG_GP {
		cpu.Registers.Set(REG_GP, word.FromUint(cpu.Config.GlobalPointer))
	}

	cpu.Halted = false
	cpu.Ticks = 0
	cpu.MicroOps = 0
}

// Fetch moves the instruction at the program counter into the instruction
// register: pc -> lsu, memory -> lsu, lsu -> bus -> ir.
func (cpu *Cpu) Fetch() (err error) {
	err = cpu.PC.SendLSUnit()
	if err != nil {
		return
	}

	cpu.LSUnit.Latch()
	err = cpu.LSUnit.Load()
	if err != nil {
		return
	}

	err = cpu.ControlUnit.ReceiveLSUnit()
	if err != nil {
		return
	}

	err = cpu.ControlUnit.SendInstructionRegister()
	return
}

// Tick executes a single instruction cycle: fetch, decode, execute and
// writeback, then advance the program counter unless the instruction
// changed it.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	address := cpu.PC.GetData()
	defer func() {
		if err != nil {
			err = &ErrInstruction{Address: address.Uint(), Err: err}
		}
	}()

	err = cpu.Fetch()
	if err != nil {
		return
	}

	ops, err := cpu.Decode()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %v: %v", address.Hex(), Disassemble(cpu.IR.GetData().Uint()))
	}

	err = cpu.Execute(ops)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// Execute runs a decoded micro-operation list to completion, then advances
// the program counter unless a micro-operation moved it.
func (cpu *Cpu) Execute(ops []MicroOp) (err error) {
	cpu.jumped = false

	for _, op := range ops {
		if cpu.Verbose {
			log.Printf("cpu:   %v", op.Name)
		}
		err = op.Do(cpu)
		if err != nil {
			return
		}
		cpu.MicroOps++
	}

	if !cpu.jumped {
		cpu.PC.Increment()
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	ir := cpu.IR.GetData()

	text += fmt.Sprintf("% 5s: %v\n", "pc", cpu.PC.GetData().Hex())
	text += fmt.Sprintf("% 5s: %v  %v\n", "ir", ir.Hex(), Disassemble(ir.Uint()))
	text += fmt.Sprintf("% 5s: %v\n", "bus", cpu.ControlUnit.GetData().Hex())
	text += fmt.Sprintf("% 5s: %v %v\n", "alu", cpu.ALU.Held().Hex(), cpu.ALU.GetData().Hex())
	text += fmt.Sprintf("% 5s: %v %v\n", "lsu", cpu.LSUnit.Address.GetData().Hex(), cpu.LSUnit.GetData().Hex())

	for n := range cpu.Registers.Register {
		reg := &cpu.Registers.Register[n]
		value, _ := cpu.Registers.Get(n)
		text += fmt.Sprintf("% 5s: %v", reg.Name, value.Hex())
		if n%4 == 3 || n == cpu.Registers.Len()-1 {
			text += "\n"
		} else {
			text += "  "
		}
	}

	return
}
