package io

import (
	"fmt"
	"io"
	"strings"

	"github.com/ezrec/isc/cpu"
)

// Trace writes one line per executed instruction to Output. With Verbose
// set it also writes the binary opcode and operand fields, and every
// state change the instruction made.
type Trace struct {
	Output  io.Writer
	Verbose bool
}

var _ cpu.Tracer = (*Trace)(nil)

// Trace implements cpu.Tracer.
func (tc *Trace) Trace(step *cpu.Step) {
	if tc.Output == nil {
		return
	}

	fmt.Fprintf(tc.Output, "[PC -> %02d] %v\n", step.Pc, step.Code.Describe())

	if !tc.Verbose {
		return
	}

	op, operand, _ := strings.Cut(step.Code.Binary(), " ")
	fmt.Fprintf(tc.Output, "    OPCODE:  %v\n", op)
	fmt.Fprintf(tc.Output, "    OPERAND: %v\n", operand)
	for _, change := range step.Changes {
		fmt.Fprintf(tc.Output, "    %v: %v -> %v\n", change.Target, change.Old, change.New)
	}
}
