package cpu

import (
	"github.com/ezrec/datapath/word"
)

const (
	PC_INCREMENT = 4 // Bytes per instruction.
)

// BranchMode selects how AddOffset moves the program counter.
type BranchMode int

const (
	BRANCH_OFFSET_THEN_INCREMENT = BranchMode(0) // pc = pc + offset + 4
	BRANCH_OFFSET_ONLY           = BranchMode(1) // pc = pc + offset
)

func (mode BranchMode) String() string {
	switch mode {
	case BRANCH_OFFSET_THEN_INCREMENT:
		return "offset+increment"
	case BRANCH_OFFSET_ONLY:
		return "offset"
	}
	return f("branchmode(%d)", int(mode))
}

// Link is a handle naming one of the program counter's direct connections.
type Link int

const (
	LINK_CONTROL_UNIT         = Link(0)
	LINK_INSTRUCTION_REGISTER = Link(1)
	LINK_LS_UNIT              = Link(2)
	link_count                = 3
)

// ProgramCounter holds the address of the next instruction.
//
// Besides the control unit's bus, it has direct links to the instruction
// register and to the load/store unit. Links are non-owning and are wired
// by the Cpu through Connect.
type ProgramCounter struct {
	Register
	Events     *Events
	BranchMode BranchMode

	links [link_count]Port
}

var _ Port = (*ProgramCounter)(nil)

// NewProgramCounter creates a program counter starting at an entry point.
func NewProgramCounter(entry word.Word) (pc *ProgramCounter) {
	pc = &ProgramCounter{}
	pc.Name = "pc"
	pc.SetData(entry)
	return
}

// Connect wires a link to a port. A nil port disconnects the link.
func (pc *ProgramCounter) Connect(link Link, port Port) {
	pc.links[link] = port
}

// Increment advances to the next sequential instruction.
func (pc *ProgramCounter) Increment() {
	pc.SetData(pc.GetData().Add(word.New(PC_INCREMENT)))
	notify(pc.Events, COMPONENT_PROGRAM_COUNTER)
}

// AddOffset adds a branch offset. In BRANCH_OFFSET_THEN_INCREMENT mode the
// standard increment is also applied, so the offset is relative to the
// following instruction.
func (pc *ProgramCounter) AddOffset(offset word.Word) {
	pc.SetData(pc.GetData().Add(offset))
	if pc.BranchMode == BRANCH_OFFSET_ONLY {
		notify(pc.Events, COMPONENT_PROGRAM_COUNTER)
		return
	}
	pc.Increment()
}

func (pc *ProgramCounter) port(link Link) (port Port, err error) {
	if link < 0 || link >= link_count || pc.links[link] == nil {
		err = ErrLinkInvalid
		return
	}
	port = pc.links[link]
	return
}

// Send places the current address on a link.
func (pc *ProgramCounter) Send(link Link) (err error) {
	port, err := pc.port(link)
	if err != nil {
		return
	}

	port.SetData(pc.GetData())
	notify(pc.Events, COMPONENT_PROGRAM_COUNTER)
	return
}

// Retrieve replaces the current address with the value on a link.
func (pc *ProgramCounter) Retrieve(link Link) (err error) {
	port, err := pc.port(link)
	if err != nil {
		return
	}

	pc.SetData(port.GetData())
	notify(pc.Events, COMPONENT_PROGRAM_COUNTER)
	return
}

// SendControlUnit places the current address on the control unit's bus.
func (pc *ProgramCounter) SendControlUnit() error {
	return pc.Send(LINK_CONTROL_UNIT)
}

// RetrieveControlUnit loads the address from the control unit's bus.
func (pc *ProgramCounter) RetrieveControlUnit() error {
	return pc.Retrieve(LINK_CONTROL_UNIT)
}

// SendInstructionRegister places the current address in the instruction
// register.
func (pc *ProgramCounter) SendInstructionRegister() error {
	return pc.Send(LINK_INSTRUCTION_REGISTER)
}

// RetrieveInstructionRegister loads the address from the instruction
// register.
func (pc *ProgramCounter) RetrieveInstructionRegister() error {
	return pc.Retrieve(LINK_INSTRUCTION_REGISTER)
}

// SendLSUnit places the current address in the load/store unit.
func (pc *ProgramCounter) SendLSUnit() error {
	return pc.Send(LINK_LS_UNIT)
}

// RetrieveLSUnit loads the address from the load/store unit.
func (pc *ProgramCounter) RetrieveLSUnit() error {
	return pc.Retrieve(LINK_LS_UNIT)
}
