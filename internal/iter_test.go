package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	seq := IterSeq2Concat(
		maps.All(map[string]int{"a": 1}),
		maps.All(map[string]int{}),
		maps.All(map[string]int{"b": 2}),
	)

	assert.Equal(map[string]int{"a": 1, "b": 2}, maps.Collect(seq))

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(1, count)
}
