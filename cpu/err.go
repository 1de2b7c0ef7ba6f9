package cpu

import (
	"errors"

	"github.com/ezrec/datapath/translate"
)

var f = translate.From

var (
	// Datapath errors
	ErrLengthMismatch  = errors.New(f("operand length mismatch"))
	ErrIndexOutOfRange = errors.New(f("register index out of range"))
	ErrLinkInvalid     = errors.New(f("link invalid"))
	ErrComponent       = errors.New(f("component invalid"))
	ErrAluOp           = errors.New(f("alu operation invalid"))
	ErrHalted          = errors.New(f("halted"))
	ErrMemoryMissing   = errors.New(f("memory missing"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrDirectiveInvalid   = errors.New(f("directive invalid"))
	ErrDirectiveSegment   = errors.New(f("directive not allowed in this segment"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrBranchRange        = errors.New(f("branch out of range"))
	ErrStringSyntax       = errors.New(f("string syntax"))
)

// IndexError reports a register index outside of the block.
type IndexError struct {
	Index int
	Count int
}

func (err *IndexError) Error() string {
	return f("register %d not in [0, %d)", err.Index, err.Count)
}

func (err *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// LengthError reports ALU operands of different widths.
type LengthError struct {
	A int
	B int
}

func (err *LengthError) Error() string {
	return f("operand widths %d and %d differ", err.A, err.B)
}

func (err *LengthError) Unwrap() error {
	return ErrLengthMismatch
}

// ErrOpcode reports an instruction word the decoder does not know.
type ErrOpcode uint32

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%08x", uint32(eo))
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrSyscall reports an unsupported system call service number.
type ErrSyscall int32

func (es ErrSyscall) Error() string {
	return f("syscall %d unsupported", int32(es))
}

// ErrInstruction locates a failed instruction.
type ErrInstruction struct {
	Address uint32
	Err     error
}

func (err *ErrInstruction) Error() string {
	return f("0x%08x: %v", err.Address, err.Err)
}

func (err *ErrInstruction) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
