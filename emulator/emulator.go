// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	goio "io"
	"iter"
	"log"
	"maps"
	"sync"
	"time"

	"github.com/ezrec/datapath/annotate"
	"github.com/ezrec/datapath/cpu"
	"github.com/ezrec/datapath/event"
	"github.com/ezrec/datapath/internal"
	"github.com/ezrec/datapath/io"
	"github.com/ezrec/datapath/memory"
)

// Emulator state. CPU + memory + console, and the loaded program.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program.

	CpuConfig cpu.Config       // Configuration of the CPU built by Load.
	Memory    *memory.Ram      // Main memory.
	Console   *io.Console      // System call console.
	Bridge    *annotate.Bridge // Debug annotation runner.

	Delay    time.Duration // Pause between instructions in Run.
	MaxTicks int           // If non-zero, Step fails once this many instructions ran.

	Messages event.Notifier[Message]    // Lifecycle messages.
	Changes  event.Notifier[cpu.Change] // Datapath changes, from every loaded CPU.

	mutex    sync.Mutex
	wake     chan struct{}
	running  bool
	paused   bool
	stop     bool
	finished bool
}

// NewEmulator creates a new emulator, with no program loaded.
func NewEmulator(config cpu.Config) (emu *Emulator) {
	emu = &Emulator{
		CpuConfig: config,
		Memory:    memory.NewRam(),
		Console:   &io.Console{},
		Program:   &cpu.Program{},
		wake:      make(chan struct{}, 1),
	}

	emu.Cpu = emu.newCpu()
	emu.Bridge = annotate.NewBridge(emu.Cpu)

	return
}

func (emu *Emulator) newCpu() (c *cpu.Cpu) {
	c = cpu.NewCpu(emu.CpuConfig, emu.Memory)
	c.Console = emu.Console
	c.Verbose = emu.Verbose
	c.Subscribe(emu.Changes.Notify)
	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"STACK_POINTER":  fmt.Sprintf("0x%08x", emu.CpuConfig.StackPointer),
		"GLOBAL_POINTER": fmt.Sprintf("0x%08x", emu.CpuConfig.GlobalPointer),
	}

	return internal.IterSeq2Concat(maps.All(defines), emu.Cpu.Defines())
}

// Assemble a program for this emulator's CPU configuration.
func (emu *Emulator) Assemble(input goio.Reader) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{
		Verbose:    emu.Verbose,
		BranchMode: emu.CpuConfig.BranchMode,
	}

	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err = asm.Parse(input)
	return
}

// Load a program, rebuilding the datapath around a cleared memory. Pending
// pause and stop requests are discarded.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	emu.mutex.Lock()
	running := emu.running
	if !running {
		emu.paused = false
		emu.stop = false
	}
	emu.mutex.Unlock()
	if running {
		err = ErrRunning
		return
	}

	emu.Memory.Reset()
	err = prog.Load(emu.Memory)
	if err != nil {
		return
	}

	emu.Program = prog
	emu.CpuConfig.Entry = prog.Entry
	emu.Cpu = emu.newCpu()

	emu.Bridge.Cpu = emu.Cpu
	emu.Bridge.Reset()
	emu.finished = false

	if emu.Verbose {
		log.Printf("emulator: loaded %d statements, entry 0x%08x", len(prog.Statements), prog.Entry)
	}

	emu.Messages.Notify(MESSAGE_PROGRAM_LOADED)
	return
}

// Reset the loaded program to its entry point. Memory is not reloaded.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Bridge.Reset()
	emu.finished = false
}

// LineNo returns the source line of the instruction at the program counter.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.PC.GetData().Uint())
	if dbg.Statement == nil {
		return 0
	}
	return dbg.LineNo
}

// done reports whether the program exited or ran off its text.
func (emu *Emulator) done() bool {
	return emu.Cpu.Halted || !emu.Program.Contains(emu.Cpu.PC.GetData().Uint())
}

// finish runs the program's final annotations, once.
func (emu *Emulator) finish() (err error) {
	if emu.finished {
		return
	}
	emu.finished = true

	for _, code := range emu.Program.Final {
		err = emu.Bridge.Run(code)
		if err != nil {
			return
		}
	}

	return
}

// Step executes one instruction, then the annotations of its statement
// once the statement's last instruction ran.
func (emu *Emulator) Step() (done bool, err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Bridge.Verbose = emu.Verbose

	if emu.done() {
		done = true
		err = emu.finish()
		return
	}

	pc := emu.Cpu.PC.GetData().Uint()
	dbg := emu.Program.Debug(pc)

	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: pc, LineNo: dbg.LineNo, Err: err}
		}
	}()

	if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks {
		err = ErrTickLimit
		return
	}

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	if dbg.Index == len(dbg.Codes)-1 {
		for _, code := range dbg.Annotations {
			err = emu.Bridge.Run(code)
			if err != nil {
				return
			}
		}
	}

	if emu.done() {
		done = true
		err = emu.finish()
	}

	return
}

// signal wakes a waiting Run.
func (emu *Emulator) signal() {
	select {
	case emu.wake <- struct{}{}:
	default:
	}
}

// Pause suspends Run at the next instruction boundary.
func (emu *Emulator) Pause() {
	emu.mutex.Lock()
	emu.paused = true
	emu.mutex.Unlock()
}

// Resume continues a paused Run.
func (emu *Emulator) Resume() {
	emu.mutex.Lock()
	emu.paused = false
	emu.mutex.Unlock()
	emu.signal()
}

// Stop ends Run at the next instruction boundary, and cancels any pause.
// A Stop before Run is kept until that Run starts, or a program is loaded.
func (emu *Emulator) Stop() {
	emu.mutex.Lock()
	emu.stop = true
	emu.paused = false
	emu.mutex.Unlock()
	emu.signal()
}

// Running returns true while Run is executing.
func (emu *Emulator) Running() bool {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()
	return emu.running
}

// Paused returns true if Run is, or will be, paused.
func (emu *Emulator) Paused() bool {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()
	return emu.paused
}

// proceed waits while paused, and returns false once stopped.
func (emu *Emulator) proceed(ctx context.Context) bool {
	for {
		emu.mutex.Lock()
		stop, paused := emu.stop, emu.paused
		emu.mutex.Unlock()

		if stop || ctx.Err() != nil {
			return false
		}
		if !paused {
			return true
		}

		select {
		case <-ctx.Done():
		case <-emu.wake:
		}
	}
}

// sleep waits for the inter-instruction delay, or an early wake up.
func (emu *Emulator) sleep(ctx context.Context) {
	if emu.Delay <= 0 {
		return
	}

	timer := time.NewTimer(emu.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-emu.wake:
	case <-timer.C:
	}
}

// Run steps the program on the calling goroutine until it finishes, fails,
// or is stopped by Stop or by cancelling ctx.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	emu.mutex.Lock()
	if emu.running {
		emu.mutex.Unlock()
		err = ErrRunning
		return
	}
	emu.running = true
	emu.mutex.Unlock()

	defer func() {
		emu.mutex.Lock()
		emu.running = false
		emu.stop = false
		emu.mutex.Unlock()
	}()

	if emu.Verbose {
		log.Printf("emulator: run")
	}
	emu.Messages.Notify(MESSAGE_SIMULATION_STARTED)

	for {
		if !emu.proceed(ctx) {
			if emu.Verbose {
				log.Printf("emulator: stopped at 0x%08x", emu.Cpu.PC.GetData().Uint())
			}
			emu.Messages.Notify(MESSAGE_SIMULATION_STOPPED)
			err = context.Cause(ctx)
			return
		}

		var done bool
		done, err = emu.Step()
		if err != nil {
			emu.Messages.Notify(MESSAGE_SIMULATION_INTERRUPTED)
			return
		}
		if done {
			emu.Messages.Notify(MESSAGE_SIMULATION_FINISHED)
			return
		}

		emu.sleep(ctx)
	}
}
