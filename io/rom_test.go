package io

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordsToBytes(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		words []uint32
		data  []byte
	}){
		{[]uint32{}, []byte{}},
		{[]uint32{0x04_0014}, []byte{0x14, 0x00, 0x04, 0x00}},
		{[]uint32{0x3c_0000, 0xdeadbeef}, []byte{0x00, 0x00, 0x3c, 0x00, 0xef, 0xbe, 0xad, 0xde}},
	}

	for _, entry := range table {
		data := WordsToBytes(entry.words)
		assert.Equal(entry.data, data)

		words, err := BytesToWords(data)
		assert.NoError(err)
		assert.Equal(entry.words, words)
	}
}

func TestBytesToWords_Truncated(t *testing.T) {
	assert := assert.New(t)

	for _, size := range []int{1, 2, 3, 5, 7} {
		words, err := BytesToWords(make([]byte, size))
		assert.Nil(words)
		assert.ErrorIs(err, ErrTruncated(0))
		assert.Equal(ErrTruncated(size), err)
	}
}

func TestRom_ReadWrite(t *testing.T) {
	assert := assert.New(t)

	rom := &Rom{Data: []uint32{0x04_0014, 0x04_0011, 0x08_0006, 0x3c_0000}}

	var buf bytes.Buffer
	n, err := rom.WriteTo(&buf)
	assert.NoError(err)
	assert.Equal(int64(16), n)
	assert.Equal([]byte{0x14, 0x00, 0x04, 0x00}, buf.Bytes()[:4])

	other := &Rom{}
	n, err = other.ReadFrom(&buf)
	assert.NoError(err)
	assert.Equal(int64(16), n)
	assert.Equal(rom.Data, other.Data)
}

func TestRom_ReadFrom_Truncated(t *testing.T) {
	assert := assert.New(t)

	rom := &Rom{Data: []uint32{1}}
	_, err := rom.ReadFrom(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}))
	assert.True(errors.Is(err, ErrTruncated(0)))
	assert.Equal([]uint32{1}, rom.Data)
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRom_WriteTo_Error(t *testing.T) {
	assert := assert.New(t)

	rom := &Rom{Data: []uint32{1, 2}}
	n, err := rom.WriteTo(failWriter{})
	assert.Error(err)
	assert.Equal(int64(0), n)
}

func FuzzWords(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3, 4})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		assert := assert.New(t)

		words, err := BytesToWords(data)
		if len(data)%WORD_BYTES != 0 {
			assert.Error(err)
			return
		}
		assert.NoError(err)
		assert.Equal(data, WordsToBytes(words))
	})
}
