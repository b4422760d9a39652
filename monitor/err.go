package monitor

import (
	"errors"

	"github.com/ezrec/isc/translate"
)

var f = translate.From

var (
	ErrArgumentMissing = errors.New(f("argument missing"))
	ErrArgumentExtra   = errors.New(f("too many arguments"))
)

// ErrCommandUnknown is a command the monitor does not implement.
type ErrCommandUnknown string

func (err ErrCommandUnknown) Error() string {
	return f("unknown command '%v', try 'help'", string(err))
}

// ErrArgument is a command argument that could not be parsed.
type ErrArgument string

func (err ErrArgument) Error() string {
	return f("bad argument '%v'", string(err))
}
