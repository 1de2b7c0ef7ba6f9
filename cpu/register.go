package cpu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ezrec/datapath/word"
)

const (
	REGISTER_COUNT = 32 // Default number of general purpose registers.

	REG_ZERO = 0  // Hard-wired zero, when enabled.
	REG_V0   = 2  // Syscall service and result.
	REG_A0   = 4  // First argument.
	REG_GP   = 28 // Global pointer.
	REG_SP   = 29 // Stack pointer.
	REG_FP   = 30 // Frame pointer.
	REG_RA   = 31 // Return address.
)

// Conventional register names, by index.
var registerNames = [REGISTER_COUNT]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegisterBlock is the fixed-size block of general purpose registers.
type RegisterBlock struct {
	ZeroHardwired bool // If set, register 0 always reads zero and ignores writes.

	Register []Register
}

// NewRegisterBlock creates a block of count registers.
func NewRegisterBlock(count int, zeroHardwired bool) (rb *RegisterBlock) {
	rb = &RegisterBlock{
		ZeroHardwired: zeroHardwired,
		Register:      make([]Register, count),
	}

	for n := range rb.Register {
		name := fmt.Sprintf("$%d", n)
		if n < len(registerNames) {
			name = "$" + registerNames[n]
		}
		rb.Register[n].Name = name
	}

	return
}

// Len returns the number of registers.
func (rb *RegisterBlock) Len() int {
	return len(rb.Register)
}

func (rb *RegisterBlock) check(index int) (err error) {
	if index < 0 || index >= len(rb.Register) {
		err = &IndexError{Index: index, Count: len(rb.Register)}
	}
	return
}

// Get returns the value of register index.
func (rb *RegisterBlock) Get(index int) (value word.Word, err error) {
	if err = rb.check(index); err != nil {
		return
	}

	if index == REG_ZERO && rb.ZeroHardwired {
		return
	}

	value = rb.Register[index].GetData()
	return
}

// Set replaces the value of register index.
func (rb *RegisterBlock) Set(index int, value word.Word) (err error) {
	if err = rb.check(index); err != nil {
		return
	}

	if index == REG_ZERO && rb.ZeroHardwired {
		return
	}

	rb.Register[index].SetData(value)
	return
}

// Reset zeros all registers.
func (rb *RegisterBlock) Reset() {
	for n := range rb.Register {
		rb.Register[n].SetData(word.Word{})
	}
}

// Lookup finds a register by name: "$t0", "t0", "$8" and "8" are all
// accepted.
func (rb *RegisterBlock) Lookup(name string) (index int, ok bool) {
	return lookupRegister(name, len(rb.Register))
}

func lookupRegister(name string, count int) (index int, ok bool) {
	name = strings.TrimPrefix(name, "$")
	if name == "s8" {
		name = "fp"
	}

	for n, reg := range registerNames {
		if reg == name && n < count {
			return n, true
		}
	}

	index, err := strconv.Atoi(name)
	if err != nil || index < 0 || index >= count {
		return 0, false
	}

	return index, true
}
