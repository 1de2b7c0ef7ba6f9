package memory

import (
	"errors"

	"github.com/ezrec/datapath/translate"
)

var f = translate.From

var (
	ErrUnaligned = errors.New(f("unaligned access"))
)

// AddressError reports a failed access and the address involved.
type AddressError struct {
	Address uint32
	Err     error
}

func (err *AddressError) Error() string {
	return f("address 0x%08x %v", err.Address, err.Err)
}

func (err *AddressError) Unwrap() error {
	return err.Err
}
