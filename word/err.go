package word

import (
	"errors"

	"github.com/ezrec/datapath/translate"
)

var f = translate.From

var (
	ErrFormat = errors.New(f("malformed binary word"))
)

// FormatError reports a bit string that cannot be a Word.
type FormatError struct {
	Bits  string
	Width int
}

func (err *FormatError) Error() string {
	return f("'%v' is not a %d-bit binary word", err.Bits, err.Width)
}

func (err *FormatError) Unwrap() error {
	return ErrFormat
}
