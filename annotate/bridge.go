// Package annotate runs the debug annotations attached to assembled
// statements.
//
// Annotations are small starlark programs. They can inspect the datapath
// and log or assert on what they see; they can not change it.
package annotate

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/datapath/cpu"
	"github.com/ezrec/datapath/word"
)

// Bridge exposes a Cpu to annotation code.
type Bridge struct {
	Verbose bool             // If set, logs every annotation run.
	Cpu     *cpu.Cpu         // Datapath under inspection.
	Output  io.Writer        // Destination of log(), or the log package if nil.
	Now     func() time.Time // Clock for current_time(), time.Now if nil.

	state    *starlark.Dict
	failed   bool
	builtins starlark.StringDict
}

// NewBridge creates a bridge to a Cpu.
func NewBridge(c *cpu.Cpu) (br *Bridge) {
	br = &Bridge{
		Cpu:   c,
		state: starlark.NewDict(0),
	}

	br.builtins = starlark.StringDict{
		"log":          starlark.NewBuiltin("log", br.log),
		"hex":          starlark.NewBuiltin("hex", br.hex),
		"current_time": starlark.NewBuiltin("current_time", br.currentTime),
		"assert_true":  starlark.NewBuiltin("assert_true", br.assertTrue),
		"register":     starlark.NewBuiltin("register", br.register),
		"pc":           starlark.NewBuiltin("pc", br.pc),
		"bus":          starlark.NewBuiltin("bus", br.bus),
		"memory":       starlark.NewBuiltin("memory", br.memory),
		"ticks":        starlark.NewBuiltin("ticks", br.ticks),
		"state":        br.state,
	}

	return
}

// Reset forgets the annotation state shared between runs.
func (br *Bridge) Reset() {
	br.state.Clear()
}

// Run executes one annotation.
func (br *Bridge) Run(code string) (err error) {
	defer func() {
		if err != nil {
			err = &ErrAnnotation{Code: code, Err: err}
		}
	}()

	if br.Cpu == nil {
		err = ErrCpuMissing
		return
	}

	if br.Verbose {
		log.Printf("annotate: %v", code)
	}

	thread := &starlark.Thread{
		Name: "annotate",
		Print: func(_ *starlark.Thread, msg string) {
			br.print(msg)
		},
	}
	opts := &syntax.FileOptions{
		TopLevelControl: true,
		While:           true,
		Set:             true,
	}

	br.failed = false
	_, err = starlark.ExecFileOptions(opts, thread, "annotation", code+"\n", br.builtins)
	if br.failed {
		err = ErrAssertion
	}

	return
}

func (br *Bridge) print(msg string) {
	if br.Output == nil {
		log.Printf("annotate> %v", msg)
		return
	}

	fmt.Fprintf(br.Output, "annotate> %v\n", msg)
}

// log(*args) prints its arguments, separated by spaces.
func (br *Bridge) log(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	if len(kwargs) > 0 {
		err = fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
		return
	}

	text := make([]string, len(args))
	for n, arg := range args {
		if s, ok := starlark.AsString(arg); ok {
			text[n] = s
		} else {
			text[n] = arg.String()
		}
	}

	br.print(strings.Join(text, " "))
	value = starlark.None
	return
}

// hex(value, spaces=-1) formats an integer as eight hex digits, or bytes
// as two digits each, with a space every 'spaces' digits.
func (br *Bridge) hex(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	var data starlark.Value
	spaces := -1
	err = starlark.UnpackArgs(fn.Name(), args, kwargs, "value", &data, "spaces?", &spaces)
	if err != nil {
		return
	}

	var digits string
	switch data := data.(type) {
	case starlark.Int:
		v64, ok := data.Int64()
		if !ok {
			err = fmt.Errorf("%s: value out of range", fn.Name())
			return
		}
		digits = fmt.Sprintf("%08X", uint32(v64))
	case starlark.Bytes:
		digits = strings.ToUpper(hex.EncodeToString([]byte(data)))
	case starlark.String:
		digits = strings.ToUpper(hex.EncodeToString([]byte(data)))
	default:
		err = fmt.Errorf("%s: got %s, want int or bytes", fn.Name(), data.Type())
		return
	}

	value = starlark.String(insertEvery(digits, " ", spaces))
	return
}

func insertEvery(text string, sep string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}

	var sb strings.Builder
	for i := 0; i < len(text); i += n {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(text[i:min(i+n, len(text))])
	}
	return sb.String()
}

// current_time() returns milliseconds since the Unix epoch.
func (br *Bridge) currentTime(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	err = starlark.UnpackArgs(fn.Name(), args, kwargs)
	if err != nil {
		return
	}

	now := time.Now
	if br.Now != nil {
		now = br.Now
	}

	value = starlark.MakeInt64(now().UnixMilli())
	return
}

// assert_true(cond) fails the annotation when cond is false.
func (br *Bridge) assertTrue(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	var cond starlark.Value
	err = starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &cond)
	if err != nil {
		return
	}

	if !cond.Truth() {
		br.failed = true
		err = ErrAssertion
		return
	}

	value = starlark.None
	return
}

// register(index or name) returns a register as a signed value.
func (br *Bridge) register(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	var which starlark.Value
	err = starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &which)
	if err != nil {
		return
	}

	var index int
	switch which := which.(type) {
	case starlark.String:
		var ok bool
		index, ok = br.Cpu.Registers.Lookup(string(which))
		if !ok {
			err = fmt.Errorf("%s: no register %v", fn.Name(), which)
			return
		}
	default:
		err = starlark.AsInt(which, &index)
		if err != nil {
			return
		}
	}

	w, err := br.Cpu.Registers.Get(index)
	if err != nil {
		return
	}

	value = signed(w)
	return
}

// pc() returns the program counter.
func (br *Bridge) pc(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	err = starlark.UnpackArgs(fn.Name(), args, kwargs)
	if err != nil {
		return
	}

	value = starlark.MakeUint64(uint64(br.Cpu.PC.GetData().Uint()))
	return
}

// bus() returns the value on the control unit's bus.
func (br *Bridge) bus(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	err = starlark.UnpackArgs(fn.Name(), args, kwargs)
	if err != nil {
		return
	}

	value = signed(br.Cpu.ControlUnit.GetData())
	return
}

// memory(addr) returns the word at a memory address as a signed value.
func (br *Bridge) memory(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	var addr int
	err = starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &addr)
	if err != nil {
		return
	}

	mem := br.Cpu.LSUnit.Memory
	if mem == nil {
		err = cpu.ErrMemoryMissing
		return
	}

	w, err := mem.Read(word.FromUint(uint32(addr)))
	if err != nil {
		return
	}

	value = signed(w)
	return
}

// ticks() returns the number of instructions executed.
func (br *Bridge) ticks(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
	err = starlark.UnpackArgs(fn.Name(), args, kwargs)
	if err != nil {
		return
	}

	value = starlark.MakeInt(br.Cpu.Ticks)
	return
}

func signed(w word.Word) starlark.Value {
	return starlark.MakeInt64(w.Int())
}
