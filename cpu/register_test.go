package cpu

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/datapath/word"
)

func TestRegisterBlock(t *testing.T) {
	assert := assert.New(t)

	rb := NewRegisterBlock(REGISTER_COUNT, false)
	assert.Equal(REGISTER_COUNT, rb.Len())
	assert.Equal("$zero", rb.Register[0].Name)
	assert.Equal("$ra", rb.Register[REG_RA].Name)

	for n := range rb.Len() {
		w := word.New(int64(n*3 - 7))
		assert.NoError(rb.Set(n, w))
		got, err := rb.Get(n)
		assert.NoError(err)
		assert.True(got.Equal(w))
	}

	// Not hard-wired, so register 0 keeps its value.
	got, err := rb.Get(0)
	assert.NoError(err)
	assert.Equal(int64(-7), got.Int())

	rb.Reset()
	for n := range rb.Len() {
		got, err = rb.Get(n)
		assert.NoError(err)
		assert.True(got.IsZero())
	}
}

func TestRegisterBlockRange(t *testing.T) {
	assert := assert.New(t)

	rb := NewRegisterBlock(8, true)

	for _, index := range []int{-1, 8, 32} {
		_, err := rb.Get(index)
		assert.True(errors.Is(err, ErrIndexOutOfRange))

		err = rb.Set(index, word.New(1))
		assert.True(errors.Is(err, ErrIndexOutOfRange))

		var ie *IndexError
		assert.True(errors.As(err, &ie))
		assert.Equal(index, ie.Index)
		assert.Equal(8, ie.Count)
	}
}

func TestRegisterBlockZero(t *testing.T) {
	assert := assert.New(t)

	rb := NewRegisterBlock(REGISTER_COUNT, true)

	assert.NoError(rb.Set(REG_ZERO, word.New(99)))
	got, err := rb.Get(REG_ZERO)
	assert.NoError(err)
	assert.True(got.IsZero())

	assert.NoError(rb.Set(1, word.New(99)))
	got, err = rb.Get(1)
	assert.NoError(err)
	assert.Equal(int64(99), got.Int())
}

func TestRegisterLookup(t *testing.T) {
	assert := assert.New(t)

	rb := NewRegisterBlock(REGISTER_COUNT, true)

	table := map[string]int{
		"$zero": 0,
		"$t0":   8,
		"t0":    8,
		"$8":    8,
		"$sp":   REG_SP,
		"$s8":   REG_FP,
		"$31":   REG_RA,
	}

	for name, expected := range table {
		index, ok := rb.Lookup(name)
		assert.True(ok, name)
		assert.Equal(expected, index, name)
	}

	for _, name := range []string{"$32", "$-1", "$bogus", ""} {
		_, ok := rb.Lookup(name)
		assert.False(ok, name)
	}

	small := NewRegisterBlock(8, true)
	_, ok := small.Lookup("$t0")
	assert.False(ok)
	index, ok := small.Lookup("$7")
	assert.True(ok)
	assert.Equal(7, index)
	assert.Equal("$a3", small.Register[7].Name)
}

func TestRegisterConcurrent(t *testing.T) {
	assert := assert.New(t)

	var reg Register
	a := word.FromUint(0x5555_5555)
	b := word.FromUint(0xaaaa_aaaa)
	reg.SetData(a)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := range 1000 {
			if n%2 == 0 {
				reg.SetData(b)
			} else {
				reg.SetData(a)
			}
		}
	}()

	for range 1000 {
		got := reg.GetData()
		assert.True(got.Equal(a) || got.Equal(b))
	}

	wg.Wait()
}
