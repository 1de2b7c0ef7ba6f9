package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/datapath/memory"
	"github.com/ezrec/datapath/word"
)

func TestControlUnitBus(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(DefaultConfig(), memory.NewRam())
	cu := cpu.ControlUnit

	assert.True(cu.GetData().IsZero())

	for _, value := range []int64{0, 1, -1, 0x1234_5678, -0x8000_0000} {
		w := word.New(value)

		cu.Drive(w)
		assert.NoError(cu.SendALU())
		cu.Drive(word.Word{})
		assert.NoError(cu.ReceiveALU())
		assert.True(cu.GetData().Equal(w), "alu %d", value)

		cu.Drive(w)
		assert.NoError(cu.SendLSUnit())
		cu.Drive(word.Word{})
		assert.NoError(cu.ReceiveLSUnit())
		assert.True(cu.GetData().Equal(w), "lsu %d", value)

		cu.Drive(w)
		assert.NoError(cu.SendInstructionRegister())
		cu.Drive(word.Word{})
		assert.NoError(cu.ReceiveInstructionRegister())
		assert.True(cu.GetData().Equal(w), "ir %d", value)

		cu.Drive(w)
		assert.NoError(cu.SendProgramCounter())
		cu.Drive(word.Word{})
		assert.NoError(cu.ReceiveProgramCounter())
		assert.True(cu.GetData().Equal(w), "pc %d", value)
	}

	assert.True(errors.Is(cu.Send(COMPONENT_REGISTERS), ErrComponent))
	assert.True(errors.Is(cu.Receive(Component(42)), ErrComponent))
}

func TestControlUnitRegisters(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(DefaultConfig(), memory.NewRam())
	cu := cpu.ControlUnit

	var changes []Change
	cancel := cpu.Subscribe(func(c Change) { changes = append(changes, c) })

	assert.NoError(cu.WriteToRegister(8, word.New(17)))
	value, err := cu.ReadFromRegister(8)
	assert.NoError(err)
	assert.Equal(int64(17), value.Int())

	// Reads notify, even though nothing changed.
	assert.Equal([]Change{{COMPONENT_REGISTERS}, {COMPONENT_REGISTERS}}, changes)

	_, err = cu.ReadFromRegister(REGISTER_COUNT)
	assert.True(errors.Is(err, ErrIndexOutOfRange))
	err = cu.WriteToRegister(-1, word.New(1))
	assert.True(errors.Is(err, ErrIndexOutOfRange))
	assert.Equal(2, len(changes))

	cancel()
	cu.Drive(word.New(1))
	assert.Equal(2, len(changes))
}

func TestControlUnitNotify(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(DefaultConfig(), memory.NewRam())
	cu := cpu.ControlUnit

	var changes []Change
	cpu.Subscribe(func(c Change) { changes = append(changes, c) })

	cu.Drive(word.New(5))
	assert.NoError(cu.SendALU())
	assert.NoError(cu.ReceiveALU())
	assert.NoError(cu.SendInstructionRegister())

	assert.Equal([]Change{
		{COMPONENT_CONTROL_UNIT},
		{COMPONENT_ALU},
		{COMPONENT_CONTROL_UNIT},
		{COMPONENT_INSTRUCTION_REGISTER},
	}, changes)
}

func TestControlUnitDisconnected(t *testing.T) {
	assert := assert.New(t)

	var alu *ALU
	var pc *ProgramCounter
	cu := NewControlUnit(alu, NewLSUnit(nil), nil, pc, nil)

	assert.True(errors.Is(cu.SendALU(), ErrComponent))
	assert.True(errors.Is(cu.ReceiveALU(), ErrComponent))
	assert.True(errors.Is(cu.SendProgramCounter(), ErrComponent))
	assert.True(errors.Is(cu.ReceiveInstructionRegister(), ErrComponent))
	assert.NoError(cu.SendLSUnit())

	_, err := cu.ReadFromRegister(0)
	assert.True(errors.Is(err, ErrComponent))
	assert.True(errors.Is(cu.WriteToRegister(0, word.New(1)), ErrComponent))

	// A jump through a missing program counter fails rather than jumping.
	cpu := NewCpu(DefaultConfig(), memory.NewRam())
	cpu.ControlUnit = cu
	assert.True(errors.Is(opJump().Do(cpu), ErrComponent))
	assert.False(cpu.jumped)
}
