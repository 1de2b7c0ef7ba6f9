package emulator

import (
	"errors"

	"github.com/ezrec/datapath/translate"
)

var f = translate.From

var (
	ErrRunning   = errors.New(f("simulation already running"))
	ErrTickLimit = errors.New(f("instruction limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Address uint32
	LineNo  int
	Err     error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("0x%08x: %v", err.Address, err.Err)
	}
	return f("line %d (0x%08x): %v", err.LineNo, err.Address, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
