package cpu

import (
	"github.com/ezrec/datapath/memory"
	"github.com/ezrec/datapath/word"
)

// LSUnit is the load/store unit, the only component that touches memory.
//
// Its data slot is exchanged with the bus. Latch copies the slot into the
// address register; Load and Store then move a word between the slot and
// memory at that address.
type LSUnit struct {
	Register
	Address Register
	Events  *Events
	Memory  memory.Memory
}

var _ Port = (*LSUnit)(nil)

// NewLSUnit creates a load/store unit in front of a memory.
func NewLSUnit(mem memory.Memory) (lsu *LSUnit) {
	lsu = &LSUnit{Memory: mem}
	lsu.Name = "lsu"
	lsu.Address.Name = "lsu.address"
	return
}

// Latch copies the data slot into the address register.
func (lsu *LSUnit) Latch() {
	lsu.Address.SetData(lsu.GetData())
	notify(lsu.Events, COMPONENT_LS_UNIT)
}

// Load reads the word at the latched address into the data slot.
func (lsu *LSUnit) Load() (err error) {
	if lsu.Memory == nil {
		err = ErrMemoryMissing
		return
	}

	value, err := lsu.Memory.Read(lsu.Address.GetData())
	if err != nil {
		return
	}

	lsu.SetData(value)
	notify(lsu.Events, COMPONENT_LS_UNIT)
	return
}

// Store writes the data slot to the latched address.
func (lsu *LSUnit) Store() (err error) {
	if lsu.Memory == nil {
		err = ErrMemoryMissing
		return
	}

	err = lsu.Memory.Write(lsu.Address.GetData(), lsu.GetData())
	if err != nil {
		return
	}

	notify(lsu.Events, COMPONENT_LS_UNIT)
	return
}

// Reset clears the data slot and address register.
func (lsu *LSUnit) Reset() {
	lsu.SetData(word.Word{})
	lsu.Address.SetData(word.Word{})
}
