package cpu

import (
	"iter"
)

// Reloc is the kind of label reference a statement needs resolved.
type Reloc int

const (
	RELOC_NONE   = Reloc(0) // No label.
	RELOC_BRANCH = Reloc(1) // 16-bit branch offset in the last code.
	RELOC_JUMP   = Reloc(2) // 26-bit jump target in the last code.
	RELOC_HI_LO  = Reloc(3) // lui/ori pair loading the label address.
)

// Statement is a line of assembled code with its source location, address
// and generated instruction words.
type Statement struct {
	LineNo      int
	Address     uint32
	Words       []string
	Codes       []uint32
	LinkLabel   string
	Reloc       Reloc
	Annotations []string // Debug annotation code run after the statement.
}

// Program is an assembled text and data image.
type Program struct {
	TextBase   uint32
	DataBase   uint32
	Entry      uint32
	Statements []Statement
	Data       []uint32
	Labels     map[string]uint32
	Final      []string // Annotations run when the program finishes.
}

// Debug locates the statement containing an instruction address.
type Debug struct {
	*Statement
	Index int
}

// Loader receives program images.
type Loader interface {
	Load(base uint32, image []uint32) error
}

// Debug returns the statement assembled at an address, if any.
func (prog *Program) Debug(addr uint32) (dbg Debug) {
	for n, st := range prog.Statements {
		end := st.Address + uint32(4*len(st.Codes))
		if addr >= st.Address && addr < end {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(addr-st.Address) / 4,
			}
			break
		}
	}

	return
}

// Contains returns true if addr is an instruction of the program.
func (prog *Program) Contains(addr uint32) bool {
	return prog.Debug(addr).Statement != nil
}

// Codes iterates over the instruction words by address.
func (prog *Program) Codes() iter.Seq2[uint32, uint32] {
	return func(yield func(addr uint32, code uint32) bool) {
		for _, st := range prog.Statements {
			for n, code := range st.Codes {
				if !yield(st.Address+uint32(4*n), code) {
					return
				}
			}
		}
	}
}

// Text returns the text image, starting at TextBase.
func (prog *Program) Text() (text []uint32) {
	for _, code := range prog.Codes() {
		text = append(text, code)
	}
	return
}

// Load copies the text and data images into memory.
func (prog *Program) Load(mem Loader) (err error) {
	err = mem.Load(prog.TextBase, prog.Text())
	if err != nil {
		return
	}

	err = mem.Load(prog.DataBase, prog.Data)
	return
}
