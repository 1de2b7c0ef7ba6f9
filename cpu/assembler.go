// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// segment is the assembler's current output section.
type segment int

const (
	SEGMENT_TEXT = segment(0)
	SEGMENT_DATA = segment(1)
)

// dataFixup is a .word that refers to a label.
type dataFixup struct {
	offset int
	label  string
	lineno int
}

// Assembler is a single pass assembler, with a final label link, for the
// MIPS subset executed by the Cpu.
type Assembler struct {
	Verbose    bool       // If set, verbosely logs the assembler actions.
	BranchMode BranchMode // Must match the Cpu that runs the program.
	TextBase   uint32     // Start of text, TEXT_BASE if zero.
	DataBase   uint32     // Start of data, DATA_BASE if zero.

	Statements []Statement       // List of generated statements.
	Label      map[string]uint32 // Map of labels to addresses.
	Equate     map[string]string // Map of equates.
	predefine  map[string]string // Predefines
	segment    segment           // Current section.
	data       []byte            // Data section image.
	fixups     []dataFixup       // Data words to link.
	pending    []string          // Annotations for the next statement.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	equate, ok := asm.Equate[word]
	if ok {
		word = equate
	}

	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}

	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil || v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)
	if invert {
		value = ^value
	}

	return
}

// signed16 returns the value of a word as a signed 16-bit immediate.
func (asm *Assembler) signed16(word string) (imm uint16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	v := int32(value)
	if v < -0x8000 || v > 0x7fff {
		err = ErrImmediateRange
		return
	}

	imm = uint16(v)
	return
}

// unsigned16 returns the value of a word as an unsigned 16-bit immediate.
func (asm *Assembler) unsigned16(word string) (imm uint16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value > 0xffff {
		err = ErrImmediateRange
		return
	}

	imm = uint16(value)
	return
}

// register returns the index of a register operand.
func (asm *Assembler) register(word string) (index int, err error) {
	equate, ok := asm.Equate[word]
	if ok {
		word = equate
	}

	if !strings.HasPrefix(word, "$") {
		err = ErrRegisterInvalid
		return
	}

	index, ok = lookupRegister(word, REGISTER_COUNT)
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

var memoryOperand = regexp.MustCompile(`^([^()]*)\((\$[a-z0-9]+)\)$`)

// memory returns the offset and base register of an "offset($reg)" operand.
func (asm *Assembler) memory(word string) (offset uint16, base int, err error) {
	match := memoryOperand.FindStringSubmatch(word)
	if match == nil {
		err = ErrRegisterInvalid
		return
	}

	if len(match[1]) > 0 {
		offset, err = asm.signed16(match[1])
		if err != nil {
			return
		}
	}

	base, err = asm.register(match[2])
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(key)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	for key, addr := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt64(int64(addr))
		}
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// splitComment separates code from a trailing comment, returning any
// annotation found in it.
func splitComment(text string) (code string, annotation string, annotated bool) {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '"':
			quoted = !quoted
		case '\'':
			// Character literal, such as '#'
			if !quoted && n+2 < len(text) && text[n+2] == '\'' {
				n += 2
			}
		case '#':
			if quoted {
				continue
			}
			comment := text[n:]
			if strings.HasPrefix(comment, "#@") {
				annotation = strings.TrimSpace(comment[2:])
				annotated = true
			}
			code = text[:n]
			return
		}
	}

	code = text
	return
}

// stringStart returns the index of the quote opening a string literal,
// skipping character literals such as '"', or -1 if there is none.
func stringStart(text string) int {
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\'':
			if n+2 < len(text) && text[n+2] == '\'' {
				n += 2
			} else if n+3 < len(text) && text[n+1] == '\\' && text[n+3] == '\'' {
				n += 3
			}
		case '"':
			return n
		}
	}
	return -1
}

var (
	charLiteral  = regexp.MustCompile(`'(\\.|[^'\\])'`)
	parenLiteral = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine splits a line of code into words, evaluating character
// literals and $(...) expressions. A string literal is kept as a single
// quoted word.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	var literal string
	if quote := stringStart(line); quote >= 0 {
		literal = strings.TrimSpace(line[quote:])
		line = line[:quote]
	}

	// Do 'x' evaluations
	line = charLiteral.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "t":
				str = "\t"
			case "0":
				str = "\x00"
			case "'", "\"":
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenLiteral.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(literal) > 0 {
		words = append(words, literal)
	}

	return
}

// currentAddress returns the address of the next text or data item.
func (asm *Assembler) currentAddress() uint32 {
	if asm.segment == SEGMENT_DATA {
		return asm.DataBase + uint32(len(asm.data))
	}

	if len(asm.Statements) == 0 {
		return asm.TextBase
	}

	last := asm.Statements[len(asm.Statements)-1]
	return last.Address + uint32(4*len(last.Codes))
}

// align pads the data section to a word boundary.
func (asm *Assembler) align() {
	for len(asm.data)%4 != 0 {
		asm.data = append(asm.data, 0)
	}
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err == nil {
			return
		}
		if _, ok := err.(*ErrSyntax); !ok {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	if asm.TextBase == 0 {
		asm.TextBase = TEXT_BASE
	}
	if asm.DataBase == 0 {
		asm.DataBase = DATA_BASE
	}

	asm.Label = make(map[string]uint32)
	asm.Statements = asm.Statements[:0]
	asm.segment = SEGMENT_TEXT
	asm.data = nil
	asm.fixups = nil
	asm.pending = nil
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, _cpu_defines)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1
		line = text

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		code, annotation, annotated := splitComment(text)
		if annotated {
			asm.pending = append(asm.pending, annotation)
		}

		var words []string
		words, err = asm.parseLine(strings.TrimSpace(code), lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	asm.align()
	image := make([]uint32, len(asm.data)/4)
	for n := range image {
		for b := range 4 {
			image[n] |= uint32(asm.data[4*n+b]) << (8 * b)
		}
	}

	entry, ok := asm.Label["main"]
	if !ok {
		entry = asm.TextBase
	}

	prog = &Program{
		TextBase:   asm.TextBase,
		DataBase:   asm.DataBase,
		Entry:      entry,
		Statements: append([]Statement(nil), asm.Statements...),
		Data:       image,
		Labels:     maps.Clone(asm.Label),
		Final:      asm.pending,
	}

	return
}

// link resolves label references, once all labels are known.
func (asm *Assembler) link() (err error) {
	for n := range asm.Statements {
		st := &asm.Statements[n]
		if st.Reloc == RELOC_NONE {
			continue
		}

		target, ok := asm.Label[st.LinkLabel]
		if !ok {
			var value uint32
			value, err = asm.valueOf(st.LinkLabel)
			if err != nil {
				err = &ErrSyntax{LineNo: st.LineNo, Line: strings.Join(st.Words, " "), Err: ErrLabelMissing(st.LinkLabel)}
				return
			}
			target = value
		}

		last := len(st.Codes) - 1
		here := st.Address + uint32(4*last)
		switch st.Reloc {
		case RELOC_BRANCH:
			base := here
			if asm.BranchMode == BRANCH_OFFSET_THEN_INCREMENT {
				base += PC_INCREMENT
			}
			delta := int64(target) - int64(base)
			if delta%4 != 0 || delta/4 < -0x8000 || delta/4 > 0x7fff {
				err = &ErrSyntax{LineNo: st.LineNo, Line: strings.Join(st.Words, " "), Err: ErrBranchRange}
				return
			}
			st.Codes[last] |= uint32(uint16(delta / 4))
		case RELOC_JUMP:
			if (target&0xf000_0000) != ((here+PC_INCREMENT)&0xf000_0000) || target&3 != 0 {
				err = &ErrSyntax{LineNo: st.LineNo, Line: strings.Join(st.Words, " "), Err: ErrBranchRange}
				return
			}
			st.Codes[last] |= (target >> 2) & 0x03ff_ffff
		case RELOC_HI_LO:
			st.Codes[last-1] |= target >> 16
			st.Codes[last] |= target & 0xffff
		}
	}

	for _, fix := range asm.fixups {
		target, ok := asm.Label[fix.label]
		if !ok {
			err = &ErrSyntax{LineNo: fix.lineno, Err: ErrLabelMissing(fix.label)}
			return
		}
		for b := range 4 {
			asm.data[fix.offset+b] = byte(target >> (8 * b))
		}
	}

	return
}

// parseDirective handles assembler directives.
func (asm *Assembler) parseDirective(words []string, lineno int) (err error) {
	switch words[0] {
	case ".text":
		asm.segment = SEGMENT_TEXT
	case ".data":
		asm.segment = SEGMENT_DATA
	case ".globl", ".global":
		// Every label is visible.
	case ".equ":
		// .equ CONST VALUE
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
	case ".word":
		if asm.segment != SEGMENT_DATA {
			err = ErrDirectiveSegment
			return
		}
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		asm.align()
		for _, word := range words[1:] {
			value, verr := asm.valueOf(word)
			if verr != nil {
				asm.fixups = append(asm.fixups, dataFixup{offset: len(asm.data), label: word, lineno: lineno})
			}
			asm.data = append(asm.data, byte(value), byte(value>>8), byte(value>>16), byte(value>>24))
		}
	case ".space":
		if asm.segment != SEGMENT_DATA {
			err = ErrDirectiveSegment
			return
		}
		if len(words) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var size uint32
		size, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		asm.data = append(asm.data, make([]byte, size)...)
	case ".ascii", ".asciiz":
		if asm.segment != SEGMENT_DATA {
			err = ErrDirectiveSegment
			return
		}
		if len(words) != 2 {
			err = ErrStringSyntax
			return
		}
		var text string
		text, err = strconv.Unquote(words[1])
		if err != nil {
			err = ErrStringSyntax
			return
		}
		asm.data = append(asm.data, text...)
		if words[0] == ".asciiz" {
			asm.data = append(asm.data, 0)
		}
	default:
		err = ErrDirectiveInvalid
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		// Data labels name the aligned word that follows.
		if asm.segment == SEGMENT_DATA && len(words) > 1 && words[1] == ".word" {
			asm.align()
		}

		asm.Label[label] = asm.currentAddress()
		words = words[1:]
	}

	// no-op
	if len(words) == 0 {
		return
	}

	if strings.HasPrefix(words[0], ".") {
		return asm.parseDirective(words, lineno)
	}

	if asm.segment != SEGMENT_TEXT {
		err = ErrDirectiveSegment
		return
	}

	st := Statement{
		LineNo:  lineno,
		Address: asm.currentAddress(),
		Words:   words,
	}

	st.Codes, st.LinkLabel, st.Reloc, err = asm.parseInstruction(words)
	if err != nil {
		return
	}

	st.Annotations = asm.pending
	asm.pending = nil

	asm.Statements = append(asm.Statements, st)
	return
}

// R-type three register instructions.
var rMap = map[string]CodeFunct{
	"add":  FUNCT_ADD,
	"addu": FUNCT_ADDU,
	"sub":  FUNCT_SUB,
	"subu": FUNCT_SUBU,
	"and":  FUNCT_AND,
	"or":   FUNCT_OR,
	"xor":  FUNCT_XOR,
	"nor":  FUNCT_NOR,
	"slt":  FUNCT_SLT,
}

// I-type register, register, immediate instructions. The flag selects a
// signed immediate.
var iMap = map[string]struct {
	op     CodeOp
	signed bool
}{
	"addi":  {OP_ADDI, true},
	"addiu": {OP_ADDIU, true},
	"slti":  {OP_SLTI, true},
	"andi":  {OP_ANDI, false},
	"ori":   {OP_ORI, false},
	"xori":  {OP_XORI, false},
}

// args checks the operand count of an instruction.
func args(words []string, count int) (err error) {
	switch {
	case len(words)-1 < count:
		err = ErrOpcodeValueMissing
	case len(words)-1 > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// registers parses a list of register operands.
func (asm *Assembler) registers(words ...string) (regs []int, err error) {
	for _, word := range words {
		var reg int
		reg, err = asm.register(word)
		if err != nil {
			return
		}
		regs = append(regs, reg)
	}
	return
}

// parseInstruction encodes one instruction or pseudo-instruction.
func (asm *Assembler) parseInstruction(words []string) (codes []uint32, label string, reloc Reloc, err error) {
	mnemonic := words[0]

	if funct, ok := rMap[mnemonic]; ok {
		if err = args(words, 3); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1:]...)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeR(funct, r[0], r[1], r[2], 0))
		return
	}

	if imm, ok := iMap[mnemonic]; ok {
		if err = args(words, 3); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1:3]...)
		if err != nil {
			return
		}
		var value uint16
		if imm.signed {
			value, err = asm.signed16(words[3])
		} else {
			value, err = asm.unsigned16(words[3])
		}
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeI(imm.op, r[0], r[1], value))
		return
	}

	switch mnemonic {
	case "nop":
		if err = args(words, 0); err != nil {
			return
		}
		codes = append(codes, MakeCodeR(FUNCT_SLL, 0, 0, 0, 0))
	case "syscall":
		if err = args(words, 0); err != nil {
			return
		}
		codes = append(codes, MakeCodeR(FUNCT_SYSCALL, 0, 0, 0, 0))
	case "sll", "srl":
		if err = args(words, 3); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1:3]...)
		if err != nil {
			return
		}
		var shamt uint32
		shamt, err = asm.valueOf(words[3])
		if err != nil {
			return
		}
		if shamt > 31 {
			err = ErrImmediateRange
			return
		}
		funct := FUNCT_SLL
		if mnemonic == "srl" {
			funct = FUNCT_SRL
		}
		codes = append(codes, MakeCodeR(funct, r[0], 0, r[1], int(shamt)))
	case "sllv", "srlv":
		if err = args(words, 3); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1:]...)
		if err != nil {
			return
		}
		funct := FUNCT_SLLV
		if mnemonic == "srlv" {
			funct = FUNCT_SRLV
		}
		codes = append(codes, MakeCodeR(funct, r[0], r[2], r[1], 0))
	case "jr":
		if err = args(words, 1); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeR(FUNCT_JR, 0, r[0], 0, 0))
	case "move":
		// move rd rs => addu rd rs $zero
		if err = args(words, 2); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1:]...)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeR(FUNCT_ADDU, r[0], r[1], REG_ZERO, 0))
	case "lui":
		if err = args(words, 2); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1])
		if err != nil {
			return
		}
		var value uint16
		value, err = asm.unsigned16(words[2])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeI(OP_LUI, r[0], 0, value))
	case "li":
		if err = args(words, 2); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1])
		if err != nil {
			return
		}
		var value uint32
		value, err = asm.valueOf(words[2])
		if err != nil {
			return
		}
		switch v := int32(value); {
		case v >= -0x8000 && v <= 0x7fff:
			codes = append(codes, MakeCodeI(OP_ADDIU, r[0], REG_ZERO, uint16(v)))
		case value <= 0xffff:
			codes = append(codes, MakeCodeI(OP_ORI, r[0], REG_ZERO, uint16(value)))
		default:
			codes = append(codes,
				MakeCodeI(OP_LUI, r[0], 0, uint16(value>>16)),
				MakeCodeI(OP_ORI, r[0], r[0], uint16(value)),
			)
		}
	case "la":
		if err = args(words, 2); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1])
		if err != nil {
			return
		}
		codes = append(codes,
			MakeCodeI(OP_LUI, r[0], 0, 0),
			MakeCodeI(OP_ORI, r[0], r[0], 0),
		)
		label = words[2]
		reloc = RELOC_HI_LO
	case "lw", "sw":
		if err = args(words, 2); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1])
		if err != nil {
			return
		}
		var offset uint16
		var base int
		offset, base, err = asm.memory(words[2])
		if err != nil {
			return
		}
		op := OP_LW
		if mnemonic == "sw" {
			op = OP_SW
		}
		codes = append(codes, MakeCodeI(op, r[0], base, offset))
	case "beq", "bne":
		if err = args(words, 3); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1:3]...)
		if err != nil {
			return
		}
		op := OP_BEQ
		if mnemonic == "bne" {
			op = OP_BNE
		}
		codes = append(codes, MakeCodeI(op, r[1], r[0], 0))
		label = words[3]
		reloc = RELOC_BRANCH
	case "beqz", "bnez":
		// beqz rs label => beq rs $zero label
		if err = args(words, 2); err != nil {
			return
		}
		var r []int
		r, err = asm.registers(words[1])
		if err != nil {
			return
		}
		op := OP_BEQ
		if mnemonic == "bnez" {
			op = OP_BNE
		}
		codes = append(codes, MakeCodeI(op, REG_ZERO, r[0], 0))
		label = words[2]
		reloc = RELOC_BRANCH
	case "b":
		// b label => beq $zero $zero label
		if err = args(words, 1); err != nil {
			return
		}
		codes = append(codes, MakeCodeI(OP_BEQ, REG_ZERO, REG_ZERO, 0))
		label = words[1]
		reloc = RELOC_BRANCH
	case "j", "jal":
		if err = args(words, 1); err != nil {
			return
		}
		op := OP_J
		if mnemonic == "jal" {
			op = OP_JAL
		}
		codes = append(codes, MakeCodeJ(op, 0))
		label = words[1]
		reloc = RELOC_JUMP
	default:
		err = ErrOpcodeInvalid
	}

	return
}
