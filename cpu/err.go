package cpu

import (
	"errors"
	"strings"

	"github.com/ezrec/isc/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted            = errors.New(f("halted"))
	ErrMemoryEnd         = errors.New(f("end of memory"))
	ErrAddressOutOfRange = errors.New(f("address out of range"))
	ErrProgramTooLarge   = errors.New(f("program too large"))

	// Assembler errors
	ErrMnemonicUnknown  = errors.New(f("mnemonic unknown"))
	ErrOperandMalformed = errors.New(f("operand malformed"))
	ErrOperandRange     = errors.New(f("operand exceeds field width"))
	ErrOperandMissing   = errors.New(f("operand missing"))
	ErrOperandExtra     = errors.New(f("excessive operands"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrEquateSyntax     = errors.New(f(".equ syntax"))
	ErrEquateDuplicate  = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrLabelInvalid     = errors.New(f("label invalid"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrOpcode identifies the instruction that failed to execute.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("bad opcode %#08x %v", uint32(eo), Code(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrOperand is a malformed operand of an instruction.
// Field is the 1-based operand position.
type ErrOperand struct {
	Field int
	Word  string
	Err   error
}

func (err *ErrOperand) Error() string {
	return f("operand %d '%v' %v", err.Field, err.Word, err.Err)
}

func (err *ErrOperand) Unwrap() error {
	return err.Err
}

// Is reports every operand error as malformed.
func (err *ErrOperand) Is(target error) bool {
	return target == ErrOperandMalformed
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrAssembly collects the errors of every line that failed to assemble.
type ErrAssembly struct {
	Errs []error
}

func (err *ErrAssembly) Error() string {
	lines := make([]string, len(err.Errs))
	for n, e := range err.Errs {
		lines[n] = e.Error()
	}
	return strings.Join(lines, "\n")
}

func (err *ErrAssembly) Unwrap() []error {
	return err.Errs
}

// Syntax returns the per-line errors in source order.
func (err *ErrAssembly) Syntax() (lines []*ErrSyntax) {
	for _, e := range err.Errs {
		var se *ErrSyntax
		if errors.As(e, &se) {
			lines = append(lines, se)
		}
	}
	return
}
