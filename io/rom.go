// Package io provides the byte level boundaries of the ISC emulator: the
// binary program image (Rom) and the human readable execution trace (Trace).
package io

import (
	"encoding/binary"
	"io"
)

// WORD_BYTES is the size of a serialized instruction word.
const WORD_BYTES = 4

// Rom is a program image. On disk it is a flat sequence of little-endian
// 32-bit words, with no header.
type Rom struct {
	Data []uint32
}

// WordsToBytes serializes words, least significant byte first.
func WordsToBytes(words []uint32) (data []byte) {
	data = make([]byte, 0, len(words)*WORD_BYTES)
	for _, word := range words {
		data = binary.LittleEndian.AppendUint32(data, word)
	}

	return
}

// BytesToWords deserializes little-endian words. The byte count must be
// a multiple of WORD_BYTES.
func BytesToWords(data []byte) (words []uint32, err error) {
	if len(data)%WORD_BYTES != 0 {
		err = ErrTruncated(len(data))
		return
	}

	words = make([]uint32, len(data)/WORD_BYTES)
	for n := range words {
		words[n] = binary.LittleEndian.Uint32(data[n*WORD_BYTES:])
	}

	return
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (rc *Rom) MarshalBinary() (data []byte, err error) {
	data = WordsToBytes(rc.Data)
	return
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (rc *Rom) UnmarshalBinary(data []byte) (err error) {
	words, err := BytesToWords(data)
	if err != nil {
		return
	}

	rc.Data = words
	return
}

// ReadFrom replaces the image with the entire content of r.
func (rc *Rom) ReadFrom(r io.Reader) (n int64, err error) {
	data, err := io.ReadAll(r)
	n = int64(len(data))
	if err != nil {
		return
	}

	err = rc.UnmarshalBinary(data)
	return
}

// WriteTo writes the serialized image to w.
func (rc *Rom) WriteTo(w io.Writer) (n int64, err error) {
	data, err := rc.MarshalBinary()
	if err != nil {
		return
	}

	wrote, err := w.Write(data)
	n = int64(wrote)
	return
}
