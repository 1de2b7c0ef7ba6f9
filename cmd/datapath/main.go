// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ezrec/datapath/cpu"
	"github.com/ezrec/datapath/emulator"
)

// assemble reads and assembles a source file.
func assemble(emu *emulator.Emulator, path string) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer inf.Close()

	prog, err = emu.Assemble(inf)
	if err != nil {
		return nil, errors.Wrapf(err, "assemble %v", path)
	}

	return
}

func branchMode(name string) (mode cpu.BranchMode, err error) {
	switch name {
	case "increment":
		mode = cpu.BRANCH_OFFSET_THEN_INCREMENT
	case "offset":
		mode = cpu.BRANCH_OFFSET_ONLY
	default:
		err = errors.Errorf("branch mode %q is not 'increment' or 'offset'", name)
	}
	return
}

// watch logs the emulator's lifecycle messages until the channel closes.
func watch(name string, messages <-chan emulator.Message, done chan<- struct{}) {
	for msg := range messages {
		log.Printf("%v: %v", name, msg)
	}
	close(done)
}

func main() {
	var compile string
	var input string
	var output string
	var branch string
	var zero bool
	var delay int
	var maxTicks int
	var dump bool
	var list bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s file to assemble and run")
	flag.StringVar(&input, "i", "-", "Console input")
	flag.StringVar(&output, "o", "-", "Console output")
	flag.StringVar(&branch, "branch", "increment", "Branch mode: 'increment' (pc+offset+4) or 'offset' (pc+offset)")
	flag.BoolVar(&zero, "zero", true, "Hard-wire register $zero")
	flag.IntVar(&delay, "delay", 0, "Delay between instructions, in milliseconds")
	flag.IntVar(&maxTicks, "max-ticks", 0, "Stop after this many instructions (0 for no limit)")
	flag.BoolVar(&dump, "dump", false, "Dump the CPU state when the program ends")
	flag.BoolVar(&list, "l", false, "List the assembled program, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) == 0 {
		log.Fatalf("%v: no program, use -c", os.Args[0])
	}

	config := cpu.DefaultConfig()
	config.ZeroHardwired = zero

	mode, err := branchMode(branch)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
	config.BranchMode = mode

	emu := emulator.NewEmulator(config)
	emu.Verbose = verbose
	emu.Delay = time.Duration(delay) * time.Millisecond
	emu.MaxTicks = maxTicks

	if input == "-" {
		emu.Console.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Console.Input = inf
	}

	if output == "-" {
		emu.Console.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Console.Output = ouf
	}
	emu.Bridge.Output = os.Stderr

	prog, err := assemble(emu, compile)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	if list {
		for _, st := range prog.Statements {
			for n, code := range st.Codes {
				fmt.Printf("%08x: %08x  %-24v # %d: %v\n", st.Address+uint32(4*n), code, cpu.Disassemble(code), st.LineNo, strings.Join(st.Words, " "))
			}
		}
		return
	}

	err = emu.Load(prog)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cancel func()
	var messages chan emulator.Message
	watched := make(chan struct{})
	if verbose {
		messages = make(chan emulator.Message, 4)
		cancel = emu.Messages.Watch(messages)
		go watch(compile, messages, watched)
	}

	err = emu.Run(ctx)

	if verbose {
		cancel()
		close(messages)
		<-watched
	}

	if dump {
		fmt.Fprint(os.Stderr, emu.Cpu.String())
	}

	if errors.Is(err, context.Canceled) {
		log.Printf("%v: interrupted after %d instructions", compile, emu.Ticks)
		return
	}
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
}
