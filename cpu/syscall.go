package cpu

import (
	"errors"
	goio "io"

	"github.com/ezrec/datapath/io"
	"github.com/ezrec/datapath/word"
)

// System call service numbers, passed in $v0.
const (
	SYS_PRINT_INT    = 1
	SYS_PRINT_STRING = 4
	SYS_READ_INT     = 5
	SYS_EXIT         = 10
	SYS_PRINT_CHAR   = 11
	SYS_READ_CHAR    = 12

	STRING_LIMIT = 4096 // Longest string printed by SYS_PRINT_STRING.
)

// loadWord reads memory over the bus, through the load/store unit.
func (cpu *Cpu) loadWord(addr word.Word) (value word.Word, err error) {
	cu := cpu.ControlUnit

	cu.Drive(addr)
	err = cu.SendLSUnit()
	if err != nil {
		return
	}

	cpu.LSUnit.Latch()
	err = cpu.LSUnit.Load()
	if err != nil {
		return
	}

	err = cu.ReceiveLSUnit()
	if err != nil {
		return
	}

	value = cu.GetData()
	return
}

// readString reads a NUL terminated string.
func (cpu *Cpu) readString(addr word.Word) (text string, err error) {
	base := addr.Uint()
	var data []byte

	for aligned := base &^ 3; len(data) < STRING_LIMIT; aligned += 4 {
		var value word.Word
		value, err = cpu.loadWord(word.FromUint(aligned))
		if err != nil {
			return
		}
		for n := uint32(0); n < 4; n++ {
			if aligned+n < base {
				continue
			}
			c := byte(value.Uint() >> (8 * n))
			if c == 0 {
				text = string(data)
				return
			}
			data = append(data, c)
		}
	}

	text = string(data)
	return
}

func (cpu *Cpu) syscall() (err error) {
	cu := cpu.ControlUnit

	service, err := cu.ReadFromRegister(REG_V0)
	if err != nil {
		return
	}

	arg, err := cu.ReadFromRegister(REG_A0)
	if err != nil {
		return
	}

	con := cpu.Console
	if con == nil {
		con = &io.Console{}
	}

	var result int64
	switch service.Int() {
	case SYS_PRINT_INT:
		err = con.WriteInt(int32(arg.Int()))
		return
	case SYS_PRINT_STRING:
		var text string
		text, err = cpu.readString(arg)
		if err != nil {
			return
		}
		err = con.WriteString(text)
		return
	case SYS_PRINT_CHAR:
		err = con.WriteByte(byte(arg.Uint()))
		return
	case SYS_EXIT:
		cpu.Halted = true
		return
	case SYS_READ_INT:
		var value int32
		value, err = con.ReadInt()
		if err != nil {
			return
		}
		result = int64(value)
	case SYS_READ_CHAR:
		var c byte
		c, err = con.ReadByte()
		if errors.Is(err, goio.EOF) {
			err = nil
			result = -1
		} else if err != nil {
			return
		} else {
			result = int64(c)
		}
	default:
		err = ErrSyscall(service.Int())
		return
	}

	cu.Drive(word.New(result))
	err = cu.WriteToRegister(REG_V0, cu.GetData())
	return
}
