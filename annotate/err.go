package annotate

import (
	"errors"

	"github.com/ezrec/datapath/translate"
)

var f = translate.From

var (
	ErrAssertion  = errors.New(f("assertion failed"))
	ErrCpuMissing = errors.New(f("no cpu attached"))
)

// ErrAnnotation locates a failed annotation.
type ErrAnnotation struct {
	Code string
	Err  error
}

func (err *ErrAnnotation) Error() string {
	return f("annotation '%v': %v", err.Code, err.Err)
}

func (err *ErrAnnotation) Unwrap() error {
	return err.Err
}
