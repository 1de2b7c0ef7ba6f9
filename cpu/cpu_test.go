package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/datapath/io"
	"github.com/ezrec/datapath/memory"
	"github.com/ezrec/datapath/word"
)

const maxTicks = 10000

// runProgram assembles and runs a program until it exits.
func runProgram(t *testing.T, mode BranchMode, input string, program ...string) (cpu *Cpu, output string) {
	asm := &Assembler{BranchMode: mode}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	ram := memory.NewRam()
	err = prog.Load(ram)
	if err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	config.BranchMode = mode
	config.Entry = prog.Entry

	var out bytes.Buffer
	cpu = NewCpu(config, ram)
	cpu.Console = &io.Console{Input: strings.NewReader(input), Output: &out}

	for range maxTicks {
		err = cpu.Tick()
		if errors.Is(err, ErrHalted) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	assert.True(t, cpu.Halted)
	output = out.String()
	return
}

func register(t *testing.T, cpu *Cpu, index int) int64 {
	value, err := cpu.Registers.Get(index)
	if err != nil {
		t.Fatal(err)
	}
	return value.Int()
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(DefaultConfig(), memory.NewRam())

	assert.Equal(TEXT_BASE, cpu.PC.GetData().Uint())
	assert.Equal(int64(STACK_POINTER), register(t, cpu, REG_SP))
	assert.Equal(int64(GLOBAL_POINTER), register(t, cpu, REG_GP))
	assert.Equal(int64(0), register(t, cpu, 8))
	assert.True(cpu.ControlUnit.GetData().IsZero())

	defines := map[string]string{}
	for k, v := range cpu.Defines() {
		defines[k] = v
	}
	assert.Equal("0x00400000", defines["TEXT_BASE"])
	assert.Equal("10", defines["SYS_EXIT"])

	assert.Contains(cpu.String(), "$ra")
}

func TestCpuArithmetic(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := runProgram(t, BRANCH_OFFSET_THEN_INCREMENT, "",
		"main:",
		"  li $t0, 5",
		"  li $t1, -7",
		"  add $t2, $t0, $t1",
		"  sub $t3, $t0, $t1",
		"  and $t4, $t0, $t1",
		"  or $t5, $t0, $t1",
		"  xor $t6, $t0, $t1",
		"  nor $t7, $t0, $t1",
		"  slt $s0, $t1, $t0",
		"  slti $s1, $t0, -1",
		"  sll $s2, $t0, 4",
		"  srl $s3, $t1, 28",
		"  li $s4, 3",
		"  sllv $s5, $t0, $s4",
		"  srlv $s6, $t0, $s4",
		"  lui $s7, 0x1234",
		"  ori $s7, $s7, 0x5678",
		"  andi $t8, $t1, 0xff",
		"  xori $t9, $t0, 0xf",
		"  addi $zero, $zero, 1",
		"  li $v0, SYS_EXIT",
		"  syscall",
	)

	assert.Equal(int64(-2), register(t, cpu, 10))
	assert.Equal(int64(12), register(t, cpu, 11))
	assert.Equal(int64(5&-7), register(t, cpu, 12))
	assert.Equal(int64(5|-7), register(t, cpu, 13))
	assert.Equal(int64(5^-7), register(t, cpu, 14))
	assert.Equal(int64(^(5 | -7)), register(t, cpu, 15))
	assert.Equal(int64(1), register(t, cpu, 16))
	assert.Equal(int64(0), register(t, cpu, 17))
	assert.Equal(int64(80), register(t, cpu, 18))
	assert.Equal(int64(0xf), register(t, cpu, 19))
	assert.Equal(int64(40), register(t, cpu, 21))
	assert.Equal(int64(0), register(t, cpu, 22))
	assert.Equal(int64(0x1234_5678), register(t, cpu, 23))
	assert.Equal(int64(0xf9), register(t, cpu, 24))
	assert.Equal(int64(0xa), register(t, cpu, 25))
	assert.Equal(int64(0), register(t, cpu, REG_ZERO))
	assert.Equal(22, cpu.Ticks)
}

func TestCpuLoop(t *testing.T) {
	program := []string{
		"main:  li $t0, 0",
		"       li $t1, 10",
		"loop:  add $t0, $t0, $t1",
		"       addi $t1, $t1, -1",
		"       bnez $t1, loop",
		"       li $v0, SYS_PRINT_INT",
		"       move $a0, $t0",
		"       syscall",
		"       li $v0, SYS_EXIT",
		"       syscall",
	}

	for _, mode := range []BranchMode{BRANCH_OFFSET_THEN_INCREMENT, BRANCH_OFFSET_ONLY} {
		t.Run(mode.String(), func(t *testing.T) {
			assert := assert.New(t)

			cpu, output := runProgram(t, mode, "", program...)
			assert.Equal("55", output)
			assert.Equal(2+3*10+5, cpu.Ticks)
		})
	}
}

func TestCpuCall(t *testing.T) {
	assert := assert.New(t)

	cpu, output := runProgram(t, BRANCH_OFFSET_THEN_INCREMENT, "",
		"main:   jal func",
		"        li $v0, 11",
		"        li $a0, '!'",
		"        syscall",
		"        li $v0, 10",
		"        syscall",
		"func:   li $v0, 1",
		"        li $a0, 42",
		"        syscall",
		"        jr $ra",
	)

	assert.Equal("42!", output)
	assert.Equal(int64(TEXT_BASE+4), register(t, cpu, REG_RA))
}

func TestCpuMemory(t *testing.T) {
	assert := assert.New(t)

	cpu, output := runProgram(t, BRANCH_OFFSET_THEN_INCREMENT, "",
		".data",
		"val:  .word 0x1234",
		"tmp:  .space 4",
		"msg:  .asciiz \"hello, world\\n\"",
		".text",
		"main: la $t0, val",
		"      lw $t1, 0($t0)",
		"      addi $t1, $t1, 1",
		"      sw $t1, 4($t0)",
		"      lw $a0, 4($t0)",
		"      li $v0, 1",
		"      syscall",
		"      la $a0, msg",
		"      li $v0, 4",
		"      syscall",
		"      li $v0, 10",
		"      syscall",
	)

	assert.Equal("4661hello, world\n", output)
	assert.Equal(int64(0x1235), register(t, cpu, 9))
}

func TestCpuInput(t *testing.T) {
	assert := assert.New(t)

	_, output := runProgram(t, BRANCH_OFFSET_THEN_INCREMENT, "-12\nx",
		"main: li $v0, SYS_READ_INT",
		"      syscall",
		"      add $a0, $v0, $v0",
		"      li $v0, SYS_PRINT_INT",
		"      syscall",
		"      li $v0, SYS_READ_CHAR",
		"      syscall",
		"      move $a0, $v0",
		"      li $v0, SYS_PRINT_CHAR",
		"      syscall",
		"      li $v0, SYS_READ_CHAR",
		"      syscall",
		"      move $a0, $v0",
		"      li $v0, SYS_PRINT_INT",
		"      syscall",
		"      li $v0, SYS_EXIT",
		"      syscall",
	)

	assert.Equal("-24x-1", output)
}

func TestCpuErrors(t *testing.T) {
	assert := assert.New(t)

	ram := memory.NewRam()
	ram.Load(TEXT_BASE, []uint32{
		MakeCodeI(OP_ADDIU, REG_V0, REG_ZERO, 99),
		MakeCodeR(FUNCT_SYSCALL, 0, 0, 0, 0),
		0xfc00_0000,
	})

	cpu := NewCpu(DefaultConfig(), ram)

	assert.NoError(cpu.Tick())

	err := cpu.Tick()
	var es ErrSyscall
	assert.True(errors.As(err, &es))
	assert.Equal(ErrSyscall(99), es)

	var ei *ErrInstruction
	assert.True(errors.As(err, &ei))
	assert.Equal(TEXT_BASE+4, ei.Address)

	cpu.PC.SetData(word.FromUint(TEXT_BASE + 8))
	err = cpu.Tick()
	assert.True(errors.Is(err, ErrOpcode(0)))

	cpu.PC.SetData(word.FromUint(TEXT_BASE + 2))
	err = cpu.Tick()
	assert.True(errors.Is(err, memory.ErrUnaligned))

	cpu.Halted = true
	assert.True(errors.Is(cpu.Tick(), ErrHalted))

	cpu = NewCpu(DefaultConfig(), nil)
	assert.True(errors.Is(cpu.Tick(), ErrMemoryMissing))
}

func TestCpuZeroPolicy(t *testing.T) {
	assert := assert.New(t)

	ram := memory.NewRam()
	ram.Load(TEXT_BASE, []uint32{
		MakeCodeI(OP_ADDIU, REG_ZERO, REG_ZERO, 7),
		MakeCodeR(FUNCT_ADDU, 8, REG_ZERO, REG_ZERO, 0),
	})

	config := DefaultConfig()
	config.ZeroHardwired = false
	cpu := NewCpu(config, ram)

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(int64(7), register(t, cpu, REG_ZERO))
	assert.Equal(int64(14), register(t, cpu, 8))
}

func TestCpuEvents(t *testing.T) {
	assert := assert.New(t)

	ram := memory.NewRam()
	ram.Load(TEXT_BASE, []uint32{
		MakeCodeR(FUNCT_ADDU, 8, 9, 10, 0),
	})

	cpu := NewCpu(DefaultConfig(), ram)

	seen := map[Component]int{}
	cpu.Subscribe(func(c Change) { seen[c.Component]++ })

	assert.NoError(cpu.Tick())

	for _, c := range []Component{
		COMPONENT_CONTROL_UNIT,
		COMPONENT_ALU,
		COMPONENT_LS_UNIT,
		COMPONENT_PROGRAM_COUNTER,
		COMPONENT_INSTRUCTION_REGISTER,
		COMPONENT_REGISTERS,
	} {
		assert.Less(0, seen[c], c.String())
	}

	assert.Equal(uint32(TEXT_BASE+4), cpu.PC.GetData().Uint())
	assert.Equal(1, cpu.Ticks)
	assert.Equal(8, cpu.MicroOps)
}
