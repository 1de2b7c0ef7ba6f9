// Package memory implements the main memory behind the load/store unit.
package memory

import (
	"log"
	"sync"

	"github.com/ezrec/datapath/word"
)

const (
	PAGE_SIZE  = 4096          // Bytes per page.
	PAGE_WORDS = PAGE_SIZE / 4 // Words per page.
)

// Memory is the word addressed store behind the load/store unit.
type Memory interface {
	// Read returns the word at a word aligned byte address.
	Read(addr word.Word) (word.Word, error)
	// Write stores a word at a word aligned byte address.
	Write(addr word.Word, value word.Word) error
}

// Ram is a sparse, paged, little-endian 32-bit address space. Pages are
// allocated on first write; unwritten memory reads as zero.
type Ram struct {
	Verbose bool // Set to log every access.

	mutex sync.RWMutex
	pages map[uint32]*[PAGE_WORDS]uint32
}

var _ Memory = (*Ram)(nil)

// NewRam creates an empty address space.
func NewRam() *Ram {
	return &Ram{
		pages: make(map[uint32]*[PAGE_WORDS]uint32),
	}
}

func split(addr uint32) (page uint32, index uint32) {
	return addr / PAGE_SIZE, (addr % PAGE_SIZE) / 4
}

func (ram *Ram) read(addr uint32) uint32 {
	page, index := split(addr)
	data, ok := ram.pages[page]
	if !ok {
		return 0
	}
	return data[index]
}

func (ram *Ram) write(addr uint32, value uint32) {
	if ram.pages == nil {
		ram.pages = make(map[uint32]*[PAGE_WORDS]uint32)
	}
	page, index := split(addr)
	data, ok := ram.pages[page]
	if !ok {
		data = &[PAGE_WORDS]uint32{}
		ram.pages[page] = data
	}
	data[index] = value
}

// Read returns the word at a word aligned address.
func (ram *Ram) Read(addr word.Word) (value word.Word, err error) {
	a := addr.Uint()
	if a&3 != 0 {
		err = &AddressError{Address: a, Err: ErrUnaligned}
		return
	}

	ram.mutex.RLock()
	value = word.FromUint(ram.read(a))
	ram.mutex.RUnlock()

	if ram.Verbose {
		log.Printf("memory: read  %v = %v", addr.Hex(), value.Hex())
	}

	return
}

// Write stores a word at a word aligned address.
func (ram *Ram) Write(addr word.Word, value word.Word) (err error) {
	a := addr.Uint()
	if a&3 != 0 {
		err = &AddressError{Address: a, Err: ErrUnaligned}
		return
	}

	if ram.Verbose {
		log.Printf("memory: write %v = %v", addr.Hex(), value.Hex())
	}

	ram.mutex.Lock()
	ram.write(a, value.Uint())
	ram.mutex.Unlock()

	return
}

// Load copies an image of words into memory starting at a word aligned base.
func (ram *Ram) Load(base uint32, image []uint32) (err error) {
	if base&3 != 0 {
		err = &AddressError{Address: base, Err: ErrUnaligned}
		return
	}

	ram.mutex.Lock()
	defer ram.mutex.Unlock()

	for n, value := range image {
		ram.write(base+uint32(n*4), value)
	}

	return
}

// Reset discards all pages.
func (ram *Ram) Reset() {
	ram.mutex.Lock()
	defer ram.mutex.Unlock()

	clear(ram.pages)
}

// Pages returns the number of allocated pages.
func (ram *Ram) Pages() int {
	ram.mutex.RLock()
	defer ram.mutex.RUnlock()

	return len(ram.pages)
}
