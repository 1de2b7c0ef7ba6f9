package annotate

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/datapath/cpu"
	"github.com/ezrec/datapath/memory"
	"github.com/ezrec/datapath/word"
)

func newBridge(t *testing.T) (br *Bridge, out *bytes.Buffer) {
	ram := memory.NewRam()
	err := ram.Load(cpu.DATA_BASE, []uint32{0xffff_fffe, 42})
	if err != nil {
		t.Fatal(err)
	}

	c := cpu.NewCpu(cpu.DefaultConfig(), ram)
	c.Registers.Set(8, word.New(-5))
	c.Registers.Set(9, word.New(7))
	c.ControlUnit.Drive(word.New(3))

	out = &bytes.Buffer{}
	br = NewBridge(c)
	br.Output = out
	br.Now = func() time.Time { return time.UnixMilli(1234) }
	return
}

func TestBridgeLog(t *testing.T) {
	assert := assert.New(t)

	br, out := newBridge(t)

	assert.NoError(br.Run(`log("pc", hex(pc()), register("$t0"), register(9))`))
	assert.NoError(br.Run(`print(bus(), memory(0x10010000), memory(0x10010004))`))
	assert.NoError(br.Run(`log(current_time(), ticks())`))

	assert.Equal("annotate> pc 00400000 -5 7\n"+
		"annotate> 3 -2 42\n"+
		"annotate> 1234 0\n", out.String())
}

func TestBridgeHex(t *testing.T) {
	assert := assert.New(t)

	br, out := newBridge(t)

	assert.NoError(br.Run(`log(hex(0x1234abcd, spaces=2))`))
	assert.NoError(br.Run(`log(hex(-1, 4))`))
	assert.NoError(br.Run(`log(hex(b"\x01\xfe"))`))
	assert.NoError(br.Run(`log(hex(5, spaces=3))`))

	assert.Equal("annotate> 12 34 AB CD\n"+
		"annotate> FFFF FFFF\n"+
		"annotate> 01FE\n"+
		"annotate> 000 000 05\n", out.String())

	assert.Error(br.Run(`hex([])`))
}

func TestBridgeAssert(t *testing.T) {
	assert := assert.New(t)

	br, _ := newBridge(t)

	assert.NoError(br.Run(`assert_true(register(8) == -5)`))

	err := br.Run(`assert_true(register(9) == 0)`)
	assert.True(errors.Is(err, ErrAssertion))

	var ea *ErrAnnotation
	if assert.True(errors.As(err, &ea)) {
		assert.Equal(`assert_true(register(9) == 0)`, ea.Code)
	}

	// Other failures are not assertions.
	err = br.Run(`register(99)`)
	assert.Error(err)
	assert.False(errors.Is(err, ErrAssertion))
	assert.True(errors.Is(err, cpu.ErrIndexOutOfRange))

	err = br.Run(`this is not starlark`)
	assert.Error(err)
	assert.False(errors.Is(err, ErrAssertion))

	err = br.Run(`memory(0x10010001)`)
	assert.True(errors.Is(err, memory.ErrUnaligned))
}

func TestBridgeState(t *testing.T) {
	assert := assert.New(t)

	br, out := newBridge(t)

	assert.NoError(br.Run(`state["n"] = 1`))
	assert.NoError(br.Run(`state["n"] += 1`))
	assert.NoError(br.Run("if state['n'] == 2:\n  log('two')"))
	assert.Equal("annotate> two\n", out.String())

	br.Reset()
	assert.Error(br.Run(`state["n"]`))

	br.Cpu = nil
	assert.True(errors.Is(br.Run(`pc()`), ErrCpuMissing))
}
