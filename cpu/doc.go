// Package cpu implements the single-bus datapath of a 32-bit MIPS-subset
// processor and its assembler.
//
// The ControlUnit is the hub: it holds the one value currently on the bus
// and moves it to and from the ALU, the load/store unit (LSUnit), the
// ProgramCounter, the InstructionRegister and the general purpose
// RegisterBlock. Every transfer is a discrete step that raises a Change
// event; observers re-read the component state they care about.
//
// The Cpu orchestrates the fetch, decode, execute and writeback cycle by
// composing bus transfers into per-instruction micro-operation lists.
package cpu
