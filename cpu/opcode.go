package cpu

import (
	"fmt"
	"strings"
)

// Instruction word layout.
const (
	OPCODE_SHIFT   = 18       // Opcode position in the word.
	OPCODE_MASK    = 0xf      // Opcode width, after shifting.
	OPERAND_MASK   = 0x3ffff  // 18 bit operand field.
	WORD_MASK      = 0x3fffff // Bits of the word that carry meaning.
	IMMEDIATE_MASK = 0xffff   // 16 bit immediate value.
	REGISTER_MASK  = 0x3      // 2 bit register index.
	TARGET_MASK    = 0x1f     // 5 bit jump target.
	ADDRESS_MASK   = 0x3f     // 6 bit memory address.
)

// CodeOp is the 4-bit operation selector.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_NOP = CodeOp(0)  // nop
	OP_LDI = CodeOp(1)  // ldi
	OP_ADD = CodeOp(2)  // add
	OP_SUB = CodeOp(3)  // sub
	OP_CMP = CodeOp(4)  // cmp
	OP_JMP = CodeOp(5)  // jmp
	OP_JEQ = CodeOp(6)  // jeq
	OP_JGT = CodeOp(7)  // jgt
	OP_JLT = CodeOp(8)  // jlt
	OP_STO = CodeOp(9)  // sto
	OP_LOD = CodeOp(10) // lod
	OP_HLT = CodeOp(15) // hlt
)

var opLong = map[CodeOp]string{
	OP_NOP: "NO-OP",
	OP_LDI: "LOAD IMMEDIATE",
	OP_ADD: "ADD",
	OP_SUB: "SUBTRACT",
	OP_CMP: "COMPARE",
	OP_JMP: "JUMP",
	OP_JEQ: "JUMP IF EQUAL",
	OP_JGT: "JUMP IF GREATER THAN",
	OP_JLT: "JUMP IF LESS THAN",
	OP_STO: "STORE",
	OP_LOD: "LOAD",
	OP_HLT: "HALT",
}

// Long returns the descriptive name of the operation, or "" if the
// opcode is reserved.
func (op CodeOp) Long() string {
	return opLong[op]
}

// Known returns true for opcodes the processor acts upon.
func (op CodeOp) Known() bool {
	_, ok := opLong[op]
	return ok
}

// Cond returns the flag value a conditional jump waits for.
func (op CodeOp) Cond() (flag Flag, ok bool) {
	switch op {
	case OP_JEQ:
		return FLAG_EQ, true
	case OP_JGT:
		return FLAG_GT, true
	case OP_JLT:
		return FLAG_LT, true
	}

	return
}

// CodeReg is a 2-bit register index.
type CodeReg int

//go:generate go tool stringer -linecomment -type=CodeReg
const (
	REG_R0 = CodeReg(0) // r0
	REG_R1 = CodeReg(1) // r1
	REG_R2 = CodeReg(2) // r2
	REG_R3 = CodeReg(3) // r3
)

// Valid returns true if the index names one of the four registers.
func (reg CodeReg) Valid() bool {
	return reg >= REG_R0 && reg <= REG_R3
}

// Flag is the outcome of the last compare.
type Flag int

//go:generate go tool stringer -linecomment -type=Flag
const (
	FLAG_UNSET = Flag(0) // -
	FLAG_GT    = Flag(1) // gt
	FLAG_EQ    = Flag(2) // eq
	FLAG_LT    = Flag(3) // lt
)

// Code is a single encoded instruction word.
type Code uint32

// Encode packs an opcode and an operand into an instruction word.
func Encode(op CodeOp, operand uint32) Code {
	return Code(((uint32(op) & OPCODE_MASK) << OPCODE_SHIFT) | (operand & OPERAND_MASK))
}

// Decode splits an instruction word into its opcode and operand.
func (code Code) Decode() (op CodeOp, operand uint32) {
	word := uint32(code)
	op = CodeOp(word >> OPCODE_SHIFT)
	operand = word & OPERAND_MASK
	return
}

// Op returns the opcode of the instruction word.
func (code Code) Op() CodeOp {
	op, _ := code.Decode()
	return op
}

// Operand returns the 18-bit operand of the instruction word.
func (code Code) Operand() uint32 {
	_, operand := code.Decode()
	return operand
}

// MakeCodeNop creates a no-op instruction.
func MakeCodeNop() Code {
	return Encode(OP_NOP, 0)
}

// MakeCodeHalt creates a halt instruction.
func MakeCodeHalt() Code {
	return Encode(OP_HLT, 0)
}

// MakeCodeLdi creates a load-immediate instruction.
func MakeCodeLdi(imm uint16, dst CodeReg) Code {
	return Encode(OP_LDI, (uint32(imm)<<2)|(uint32(dst)&REGISTER_MASK))
}

// MakeCodeAlu creates an add or sub instruction: c = a (op) b.
func MakeCodeAlu(op CodeOp, a, b, c CodeReg) Code {
	operand := (uint32(a)&REGISTER_MASK)<<4 |
		(uint32(b)&REGISTER_MASK)<<2 |
		(uint32(c) & REGISTER_MASK)
	return Encode(op, operand)
}

// MakeCodeCmp creates a compare of a register against an immediate.
func MakeCodeCmp(imm uint16, reg CodeReg) Code {
	return Encode(OP_CMP, (uint32(imm)<<2)|(uint32(reg)&REGISTER_MASK))
}

// MakeCodeJump creates an unconditional or conditional jump.
func MakeCodeJump(op CodeOp, target uint8) Code {
	return Encode(op, uint32(target)&TARGET_MASK)
}

// MakeCodeMem creates a store or load between a register and memory.
func MakeCodeMem(op CodeOp, addr uint8, reg CodeReg) Code {
	return Encode(op, ((uint32(addr)&ADDRESS_MASK)<<2)|(uint32(reg)&REGISTER_MASK))
}

// The decoders below hand the leftmost field every remaining operand bit,
// so an index that does not fit its field is visible to the caller.

// LdiDecode returns the immediate value and destination register.
func (code Code) LdiDecode() (imm uint32, dst CodeReg) {
	operand := code.Operand()
	imm = operand >> 2
	dst = CodeReg(operand & REGISTER_MASK)
	return
}

// AluDecode returns the source registers a and b, and the destination c.
func (code Code) AluDecode() (a, b, c CodeReg) {
	operand := code.Operand()
	a = CodeReg(operand >> 4)
	b = CodeReg((operand >> 2) & REGISTER_MASK)
	c = CodeReg(operand & REGISTER_MASK)
	return
}

// CmpDecode returns the immediate value and the register compared to it.
func (code Code) CmpDecode() (imm uint32, reg CodeReg) {
	operand := code.Operand()
	imm = operand >> 2
	reg = CodeReg(operand & REGISTER_MASK)
	return
}

// JumpDecode returns the jump target.
func (code Code) JumpDecode() (target uint32) {
	return code.Operand()
}

// MemDecode returns the memory address and register of a store or load.
func (code Code) MemDecode() (addr uint32, reg CodeReg) {
	operand := code.Operand()
	addr = operand >> 2
	reg = CodeReg(operand & REGISTER_MASK)
	return
}

// fields decodes the operand into display fields. ok is false if the
// word cannot be rebuilt from them.
func (code Code) fields() (args []string, ok bool) {
	op, operand := code.Decode()
	if !op.Known() {
		return
	}

	switch op {
	case OP_NOP, OP_HLT:
		ok = operand == 0
	case OP_LDI:
		imm, dst := code.LdiDecode()
		args = []string{fmt.Sprint(imm), dst.String()}
		ok = true
	case OP_ADD, OP_SUB:
		a, b, c := code.AluDecode()
		args = []string{a.String(), b.String(), c.String()}
		ok = a.Valid()
	case OP_CMP:
		imm, reg := code.CmpDecode()
		args = []string{fmt.Sprint(imm), reg.String()}
		ok = true
	case OP_JMP, OP_JEQ, OP_JGT, OP_JLT:
		target := code.JumpDecode()
		args = []string{fmt.Sprint(target)}
		ok = target <= TARGET_MASK
	case OP_STO, OP_LOD:
		addr, reg := code.MemDecode()
		args = []string{fmt.Sprint(addr), reg.String()}
		ok = addr <= ADDRESS_MASK
	}

	return
}

// String returns the assembly language representation of this instruction.
// Words that the assembler could not have produced are shown as data.
func (code Code) String() string {
	args, ok := code.fields()
	if !ok {
		return fmt.Sprintf(".word %#x", uint32(code))
	}

	return strings.Join(append([]string{code.Op().String()}, args...), " ")
}

// Describe returns the long form of the instruction, as used in traces.
func (code Code) Describe() string {
	args, ok := code.fields()
	if !ok {
		return fmt.Sprintf("DATA %#x", uint32(code))
	}

	return strings.ToUpper(strings.Join(append([]string{code.Op().Long()}, args...), " "))
}

// Binary returns the opcode and operand as zero padded binary digits.
func (code Code) Binary() string {
	op, operand := code.Decode()
	return fmt.Sprintf("%04b %018b", uint32(op), operand)
}
