// Package io provides the byte-stream console behind the simulator's
// system calls.
package io

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Console provides sequential character I/O for a running program.
// It wraps an io.Reader for input and io.Writer for output; a nil Input
// reads as end of file and a nil Output discards.
type Console struct {
	Input  io.Reader
	Output io.Writer

	reader *bufio.Reader
	source io.Reader
}

func (con *Console) input() (reader *bufio.Reader, err error) {
	if con.Input == nil {
		err = io.EOF
		return
	}

	// Input may be swapped between programs.
	if con.reader == nil || con.source != con.Input {
		con.reader = bufio.NewReader(con.Input)
		con.source = con.Input
	}

	reader = con.reader
	return
}

// WriteString writes text to the output.
func (con *Console) WriteString(text string) (err error) {
	if con.Output == nil {
		return
	}

	_, err = io.WriteString(con.Output, text)
	return
}

// WriteByte writes a single character to the output.
func (con *Console) WriteByte(c byte) (err error) {
	if con.Output == nil {
		return
	}

	_, err = con.Output.Write([]byte{c})
	return
}

// WriteInt writes a signed decimal integer to the output.
func (con *Console) WriteInt(value int32) (err error) {
	return con.WriteString(strconv.FormatInt(int64(value), 10))
}

// ReadByte reads a single character from the input.
func (con *Console) ReadByte() (c byte, err error) {
	reader, err := con.input()
	if err != nil {
		return
	}

	return reader.ReadByte()
}

// ReadInt reads a line from the input and parses it as a signed decimal
// integer.
func (con *Console) ReadInt() (value int32, err error) {
	reader, err := con.input()
	if err != nil {
		return
	}

	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return
	}

	text := strings.TrimSpace(line)
	v64, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		err = ErrParseInt(text)
		return
	}

	value = int32(v64)
	return
}
