package cpu

import (
	"iter"
	"strings"
)

// Opcode represents a line of assembled code with its source location and generated instruction.
type Opcode struct {
	LineNo    int
	Pc        int
	Words     []string
	Code      Code
	LinkLabel string
}

// Program is an assembled listing, one opcode per instruction word.
type Program struct {
	Opcodes []Opcode
}

// Disassemble builds a listing from a binary image.
func Disassemble(bins []uint32) (prog *Program) {
	prog = &Program{}

	for pc, data := range bins {
		code := Code(data)
		prog.Opcodes = append(prog.Opcodes, Opcode{
			LineNo: pc + 1,
			Pc:     pc,
			Words:  strings.Fields(code.String()),
			Code:   code,
		})
	}

	return
}

// Debug returns the opcode assembled at pc, or nil.
func (prog *Program) Debug(pc int) (op *Opcode) {
	for n := range prog.Opcodes {
		if prog.Opcodes[n].Pc == pc {
			op = &prog.Opcodes[n]
			break
		}
	}

	return
}

// Binary returns the memory image of the program.
func (prog *Program) Binary() (bins []uint32) {
	for _, code := range prog.Codes() {
		bins = append(bins, uint32(code))
	}

	return
}

// Codes iterates over the instruction words and their addresses.
func (prog *Program) Codes() iter.Seq2[int, Code] {
	return func(yield func(pc int, code Code) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Pc, op.Code) {
				return
			}
		}
	}
}

// Source returns the program as assembly text, one instruction per line.
func (prog *Program) Source() string {
	var sb strings.Builder

	for _, code := range prog.Codes() {
		sb.WriteString(code.String())
		sb.WriteString("\n")
	}

	return sb.String()
}
