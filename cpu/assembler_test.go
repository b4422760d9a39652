package cpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))

	assert.Equal("64", asm.Equate["MEMORY_SIZE"])
	assert.Equal("4", asm.Equate["REGISTER_COUNT"])
	assert.Equal("63", asm.Equate["LAST_ADDRESS"])
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssemblerProgram(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"; count to eight",
		"start: ldi 1 r1",
		"       ldi 1 r2",
		"loop:  add r1 r2 r2 ; r2 += r1",
		"       cmp 8 r2",
		"       jlt loop",
		"",
		"       sto 18 r2",
		"       hlt",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	expected := []Opcode{
		{2, 0, []string{"ldi", "1", "r1"}, 0x04_0005, ""},
		{3, 1, []string{"ldi", "1", "r2"}, 0x04_0006, ""},
		{4, 2, []string{"add", "r1", "r2", "r2"}, 0x08_001a, ""},
		{5, 3, []string{"cmp", "8", "r2"}, 0x10_0022, ""},
		{6, 4, []string{"jlt", "loop"}, 0x20_0002, "loop"},
		{8, 5, []string{"sto", "18", "r2"}, 0x24_004a, ""},
		{9, 6, []string{"hlt"}, 0x3c_0000, ""},
	}

	opEqual(t, expected, prog.Opcodes)

	assert.Equal(map[string]int{"start": 0, "loop": 2}, asm.Label)
}

func TestAssemblerAllMnemonics(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line string
		code Code
	}){
		{"nop", MakeCodeNop()},
		{"ldi 5 r0", MakeCodeLdi(5, REG_R0)},
		{"ldi 65535 r3", MakeCodeLdi(0xffff, REG_R3)},
		{"add r0 r1 r2", MakeCodeAlu(OP_ADD, REG_R0, REG_R1, REG_R2)},
		{"sub r3 r3 r0", MakeCodeAlu(OP_SUB, REG_R3, REG_R3, REG_R0)},
		{"cmp 8 r2", MakeCodeCmp(8, REG_R2)},
		{"jmp 31", MakeCodeJump(OP_JMP, 31)},
		{"jeq 0", MakeCodeJump(OP_JEQ, 0)},
		{"jgt 12", MakeCodeJump(OP_JGT, 12)},
		{"jlt 2", MakeCodeJump(OP_JLT, 2)},
		{"sto 63 r1", MakeCodeMem(OP_STO, 63, REG_R1)},
		{"lod 0 r3", MakeCodeMem(OP_LOD, 0, REG_R3)},
		{"hlt", MakeCodeHalt()},
		{"LDI 0x10 R1", MakeCodeLdi(16, REG_R1)},
		{"ldi 0b101 r1", MakeCodeLdi(5, REG_R1)},
		{"ldi 010 r1", MakeCodeLdi(10, REG_R1)},
		{"\tadd\tr0  r1\tr2  ", MakeCodeAlu(OP_ADD, REG_R0, REG_R1, REG_R2)},
		{".word 0xdeadbeef", Code(0xdeadbeef)},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog, err := asm.Parse(strings.NewReader(entry.line))
		assert.NoError(err, entry.line)
		if err != nil {
			continue
		}
		assert.Equal([]uint32{uint32(entry.code)}, prog.Binary(), entry.line)
	}
}

func TestAssemblerLoadImmediateRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, imm := range []uint32{0, 1, 255, 1000, 0xffff} {
		for reg := REG_R0; reg <= REG_R3; reg++ {
			asm := &Assembler{}
			line := fmt.Sprintf("ldi %d %v", imm, reg)
			prog, err := asm.Parse(strings.NewReader(line))
			assert.NoError(err, line)
			if err != nil {
				continue
			}
			code := prog.Opcodes[0].Code
			got_imm, got_reg := code.LdiDecode()
			assert.Equal(imm, got_imm, line)
			assert.Equal(reg, got_reg, line)
			assert.Equal(line, code.String())
		}
	}
}

func TestAssemblerEquate(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("BASE", "40")

	program := []string{
		".equ COUNT 8",
		".equ ACC r2",
		".equ TOP $(MEMORY_SIZE-1)",
		"ldi $(COUNT * 2 + 1) r0",
		"cmp COUNT ACC",
		"add r0 r1 ACC",
		"sto TOP r0",
		"sto $(BASE + 2) ACC",
		"jmp $(end - 1)",
		"end: hlt",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []uint32{
		uint32(MakeCodeLdi(17, REG_R0)),
		uint32(MakeCodeCmp(8, REG_R2)),
		uint32(MakeCodeAlu(OP_ADD, REG_R0, REG_R1, REG_R2)),
		uint32(MakeCodeMem(OP_STO, 63, REG_R0)),
		uint32(MakeCodeMem(OP_STO, 42, REG_R2)),
		uint32(MakeCodeJump(OP_JMP, 5)),
		uint32(MakeCodeHalt()),
	}
	assert.Equal(expected, prog.Binary())
	assert.Equal([]string{"ldi", "17", "r0"}, prog.Opcodes[0].Words)
	assert.Equal(4, prog.Opcodes[0].LineNo)
}

func TestAssemblerEquateExpression(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		".equ TEN 10",
		".equ THIRTY $(3 * TEN)",
		".equ LAST $(THIRTY + end)",
		"ldi $(THIRTY + 1) r1",
		"ldi $(LAST * 2) r2",
		"end: hlt",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []uint32{
		uint32(MakeCodeLdi(31, REG_R1)),
		uint32(MakeCodeLdi(64, REG_R2)),
		uint32(MakeCodeHalt()),
	}
	assert.Equal(expected, prog.Binary())
}

func TestAssemblerEquateLoop(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		".equ A $(B + 1)",
		".equ B $(A + 1)",
		"ldi $(A) r0",
		"ldi B r1",
	}

	_, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.ErrorIs(err, ErrParseExpression("A"))

	var ea *ErrAssembly
	assert.True(errors.As(err, &ea))
	if ea != nil {
		lines := ea.Syntax()
		assert.Len(lines, 2)
		if len(lines) == 2 {
			assert.Equal(3, lines[0].LineNo)
			assert.Equal(4, lines[1].LineNo)
			assert.ErrorIs(lines[1], ErrOperandMalformed)
		}
	}
}

func TestAssemblerForwardLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"jmp skip",
		"ldi 1 r0",
		"skip:",
		"data: hlt",
		"lod data r1",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(2, asm.Label["skip"])
	assert.Equal(2, asm.Label["data"])
	assert.Equal(MakeCodeJump(OP_JMP, 2), prog.Opcodes[0].Code)
	assert.Equal("skip", prog.Opcodes[0].LinkLabel)
	assert.Equal(MakeCodeMem(OP_LOD, 2, REG_R1), prog.Opcodes[3].Code)
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"ldi 5 r0",
		"xyz 1 2",
		"ldi 70000 r0",
		"add r0 r4 r1",
		"ldi five r0",
		"jmp",
		"hlt 1",
		"sto 64 r0",
		"jmp 32",
		"cmp 8 x2",
		"ldi $(1 +) r0",
		"hlt",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.Nil(prog)
	assert.Error(err)

	var ea *ErrAssembly
	assert.True(errors.As(err, &ea))
	if ea == nil {
		t.Fatal(err)
	}

	table := [](struct {
		lineno int
		field  int
		err    error
	}){
		{2, 0, ErrMnemonicUnknown},
		{3, 1, ErrOperandRange},
		{4, 2, ErrRegisterInvalid},
		{5, 1, ErrLabelMissing("five")},
		{6, 1, ErrOperandMissing},
		{7, 1, ErrOperandExtra},
		{8, 1, ErrOperandRange},
		{9, 1, ErrOperandRange},
		{10, 2, ErrRegisterInvalid},
		{11, 0, ErrParseExpression("1 +")},
	}

	lines := ea.Syntax()
	assert.Equal(len(table), len(lines))
	if len(table) != len(lines) {
		t.Fatal(err)
	}

	for n, entry := range table {
		se := lines[n]
		assert.Equal(entry.lineno, se.LineNo)
		assert.Equal(program[entry.lineno-1], se.Line)
		assert.ErrorIs(se, entry.err, se.Error())

		var eo *ErrOperand
		if entry.field == 0 {
			assert.False(errors.As(se, &eo), se.Error())
			continue
		}
		assert.True(errors.As(se, &eo), se.Error())
		assert.Equal(entry.field, eo.Field, se.Error())
		assert.ErrorIs(se, ErrOperandMalformed, se.Error())
	}

	assert.ErrorIs(err, ErrMnemonicUnknown)
	assert.ErrorIs(err, ErrOperandMalformed)
	assert.Contains(err.Error(), "line 2 'xyz 1 2'")
}

func TestAssemblerLabelErrors(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"a: nop",
		"a: nop",
		"9x: nop",
		".equ",
		".equ A 1",
		".equ A 2",
		".equ MEMORY_SIZE 3",
		"jmp nowhere",
	}

	_, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))

	var ea *ErrAssembly
	assert.True(errors.As(err, &ea))
	if ea == nil {
		t.Fatal(err)
	}

	lines := ea.Syntax()
	assert.Len(lines, 6)
	if len(lines) != 6 {
		t.Fatal(err)
	}
	assert.Equal(2, lines[0].LineNo)
	assert.ErrorIs(lines[0], ErrLabelDuplicate)
	assert.Equal(3, lines[1].LineNo)
	assert.ErrorIs(lines[1], ErrLabelInvalid)
	assert.Equal(4, lines[2].LineNo)
	assert.ErrorIs(lines[2], ErrEquateSyntax)
	assert.Equal(6, lines[3].LineNo)
	assert.ErrorIs(lines[3], ErrEquateDuplicate)
	assert.Equal(7, lines[4].LineNo)
	assert.ErrorIs(lines[4], ErrEquateDuplicate)
	assert.Equal(8, lines[5].LineNo)
	assert.ErrorIs(lines[5], ErrLabelMissing("nowhere"))
}

func TestAssemblerProgramTooLarge(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := strings.Repeat("nop\n", PROGRAM_LIMIT)
	prog, err := asm.Parse(strings.NewReader(program))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(prog.Binary(), PROGRAM_LIMIT)

	_, err = asm.Parse(strings.NewReader(program + "; comment\nhlt\nhlt\n"))
	assert.ErrorIs(err, ErrProgramTooLarge)

	var ea *ErrAssembly
	assert.True(errors.As(err, &ea))
	if ea != nil {
		lines := ea.Syntax()
		assert.Len(lines, 1)
		assert.Equal(PROGRAM_LIMIT+2, lines[0].LineNo)
	}
}

func TestAssemblerReuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("x: bad"))
	assert.Error(err)

	prog, err := asm.Parse(strings.NewReader("x: hlt"))
	assert.NoError(err)
	if err == nil {
		assert.Equal([]uint32{uint32(MakeCodeHalt())}, prog.Binary())
	}
}
