// Package cpu implements the processor and assembler for the ISC system.
//
// An instruction is a 32-bit word of which only the low 22 bits are used: a
// 4-bit opcode in bits 18-21 and an 18-bit operand in bits 0-17. The operand
// layout depends on the opcode.
//
// The processor has four 32-bit general-purpose registers (r0-r3), a flag
// register holding the outcome of the last compare, a program counter and 64
// words of memory. Code and data share memory without protection; a store may
// overwrite instructions.
//
// The assembler is a two pass, line oriented translator from mnemonic source
// to instruction words, supporting labels, equates and compile-time
// expression evaluation.
package cpu
