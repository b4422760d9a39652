package io

import (
	"github.com/ezrec/isc/translate"
)

var f = translate.From

// ErrTruncated is a binary image whose length is not a whole number of words.
type ErrTruncated int

func (err ErrTruncated) Error() string {
	return f("image of %d bytes is truncated", int(err))
}

// Is matches any truncation, whatever its length.
func (err ErrTruncated) Is(target error) (ok bool) {
	_, ok = target.(ErrTruncated)
	return
}
