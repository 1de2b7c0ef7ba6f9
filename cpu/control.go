package cpu

import (
	"github.com/ezrec/datapath/word"
)

// ControlUnit is the hub of the single-bus datapath. It holds the one value
// currently on the bus and moves it to and from the other components.
//
// Each transfer completes, and raises one Change, before the next begins.
// A transfer sequence is not atomic: observers may see the bus between a
// Receive and the following Send.
type ControlUnit struct {
	Register
	Events *Events

	registers *RegisterBlock
	ports     [component_count]Port
}

var _ Port = (*ControlUnit)(nil)

// NewControlUnit creates a control unit connected to its peripherals.
func NewControlUnit(alu *ALU, lsu *LSUnit, registers *RegisterBlock, pc *ProgramCounter, ir *InstructionRegister) (cu *ControlUnit) {
	cu = &ControlUnit{
		registers: registers,
	}
	cu.Name = "bus"

	// Missing peripherals stay disconnected.
	if alu != nil {
		cu.ports[COMPONENT_ALU] = alu
	}
	if lsu != nil {
		cu.ports[COMPONENT_LS_UNIT] = lsu
	}
	if pc != nil {
		cu.ports[COMPONENT_PROGRAM_COUNTER] = pc
	}
	if ir != nil {
		cu.ports[COMPONENT_INSTRUCTION_REGISTER] = ir
	}

	return
}

func (cu *ControlUnit) port(c Component) (port Port, err error) {
	if c < 0 || c >= component_count || cu.ports[c] == nil {
		err = ErrComponent
		return
	}
	port = cu.ports[c]
	return
}

// Send pushes the bus value into a component's slot.
func (cu *ControlUnit) Send(c Component) (err error) {
	port, err := cu.port(c)
	if err != nil {
		return
	}

	port.SetData(cu.GetData())
	notify(cu.Events, c)
	return
}

// Receive pulls a component's slot onto the bus.
func (cu *ControlUnit) Receive(c Component) (err error) {
	port, err := cu.port(c)
	if err != nil {
		return
	}

	cu.SetData(port.GetData())
	notify(cu.Events, COMPONENT_CONTROL_UNIT)
	return
}

// Drive places a value, such as a decoded immediate, directly on the bus.
func (cu *ControlUnit) Drive(value word.Word) {
	cu.SetData(value)
	notify(cu.Events, COMPONENT_CONTROL_UNIT)
}

// SendALU pushes the bus value to the ALU.
func (cu *ControlUnit) SendALU() error {
	return cu.Send(COMPONENT_ALU)
}

// ReceiveALU pulls the ALU result onto the bus.
func (cu *ControlUnit) ReceiveALU() error {
	return cu.Receive(COMPONENT_ALU)
}

// SendLSUnit pushes the bus value to the load/store unit.
func (cu *ControlUnit) SendLSUnit() error {
	return cu.Send(COMPONENT_LS_UNIT)
}

// ReceiveLSUnit pulls the load/store unit's data onto the bus.
func (cu *ControlUnit) ReceiveLSUnit() error {
	return cu.Receive(COMPONENT_LS_UNIT)
}

// SendProgramCounter pushes the bus value to the program counter.
func (cu *ControlUnit) SendProgramCounter() error {
	return cu.Send(COMPONENT_PROGRAM_COUNTER)
}

// ReceiveProgramCounter pulls the program counter onto the bus.
func (cu *ControlUnit) ReceiveProgramCounter() error {
	return cu.Receive(COMPONENT_PROGRAM_COUNTER)
}

// SendInstructionRegister pushes the bus value to the instruction register.
func (cu *ControlUnit) SendInstructionRegister() error {
	return cu.Send(COMPONENT_INSTRUCTION_REGISTER)
}

// ReceiveInstructionRegister pulls the instruction register onto the bus.
func (cu *ControlUnit) ReceiveInstructionRegister() error {
	return cu.Receive(COMPONENT_INSTRUCTION_REGISTER)
}

// ReadFromRegister returns a general purpose register. The read is made
// visible to observers even though no bus value changes.
func (cu *ControlUnit) ReadFromRegister(index int) (value word.Word, err error) {
	if cu.registers == nil {
		err = ErrComponent
		return
	}

	value, err = cu.registers.Get(index)
	if err != nil {
		return
	}

	notify(cu.Events, COMPONENT_REGISTERS)
	return
}

// WriteToRegister replaces a general purpose register.
func (cu *ControlUnit) WriteToRegister(index int, value word.Word) (err error) {
	if cu.registers == nil {
		err = ErrComponent
		return
	}

	err = cu.registers.Set(index, value)
	if err != nil {
		return
	}

	notify(cu.Events, COMPONENT_REGISTERS)
	return
}
