package cpu

import (
	"sync"

	"github.com/ezrec/datapath/event"
	"github.com/ezrec/datapath/word"
)

// Component identifies a datapath component in a Change event and in bus
// transfer handles.
type Component int

const (
	COMPONENT_CONTROL_UNIT         = Component(0) // control
	COMPONENT_ALU                  = Component(1) // alu
	COMPONENT_LS_UNIT              = Component(2) // lsu
	COMPONENT_PROGRAM_COUNTER      = Component(3) // pc
	COMPONENT_INSTRUCTION_REGISTER = Component(4) // ir
	COMPONENT_REGISTERS            = Component(5) // registers
	component_count                = 6
)

var componentNames = [component_count]string{
	"control", "alu", "lsu", "pc", "ir", "registers",
}

func (c Component) String() string {
	if c < 0 || c >= component_count {
		return f("component(%d)", int(c))
	}
	return componentNames[c]
}

// Change signals that the state of a component changed. It carries
// no values: observers read the component after the signal.
type Change struct {
	Component Component
}

// Events is the notifier shared by the components of one datapath.
type Events = event.Notifier[Change]

// notify raises a change, if anyone is listening.
func notify(events *Events, c Component) {
	if events != nil {
		events.Notify(Change{Component: c})
	}
}

// Port is a component's bus-facing slot.
type Port interface {
	GetData() word.Word
	SetData(value word.Word)
}

// Register is a cell holding exactly one Word. A write is atomic with
// respect to concurrent readers, which never observe a torn value.
type Register struct {
	Name string

	mutex sync.RWMutex
	value word.Word
}

var _ Port = (*Register)(nil)

// GetData returns the current value.
func (reg *Register) GetData() word.Word {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return reg.value
}

// SetData replaces the current value.
func (reg *Register) SetData(value word.Word) {
	reg.mutex.Lock()
	reg.value = value
	reg.mutex.Unlock()
}
