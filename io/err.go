package io

import (
	"github.com/ezrec/datapath/translate"
)

var f = translate.From

// ErrParseInt reports console input that is not an integer.
type ErrParseInt string

func (err ErrParseInt) Error() string {
	return f("'%v' is not an integer", string(err))
}
