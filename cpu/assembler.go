// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Limit on nested equate lookups, to stop self-referencing definitions.
const EQUATE_DEPTH = 16

var (
	reLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reParen = regexp.MustCompile(`\$\([^\$]*\)`)
)

// mnemonicMap maps lower case mnemonics to opcodes.
var mnemonicMap = func() map[string]CodeOp {
	mnemonics := make(map[string]CodeOp, len(opLong))
	for op := range opLong {
		mnemonics[op.String()] = op
	}
	return mnemonics
}()

// pending is a source line waiting for the second pass.
type pending struct {
	LineNo int
	Pc     int
	Source string // Line with comments removed.
	Line   string // Source with labels removed.
}

// Assembler is a two pass assembler for the ISC system.
//
// The first pass strips comments, records labels and equates, and assigns
// an address to every instruction. The second pass encodes the
// instructions, resolving labels and $(...) expressions.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.

	pending []pending
	errs    []error
	depth   int // Nesting of $(...) evaluations.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// fail records an error against a source line.
func (asm *Assembler) fail(lineno int, line string, err error) {
	asm.errs = append(asm.errs, &ErrSyntax{LineNo: lineno, Line: line, Err: err})
}

// Parse parses an input stream into a Program.
//
// Every line is assembled even after an error; the returned error is an
// *ErrAssembly listing each failed line.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	clear(asm.Label)
	if asm.Label == nil {
		asm.Label = make(map[string]int, 16)
	}
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(_cpu_defines)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.pending = asm.pending[:0]
	asm.errs = nil

	err = asm.scan(input)
	if err != nil {
		return
	}

	for _, line := range asm.pending {
		asm.assemble(line)
	}

	if len(asm.errs) != 0 {
		err = &ErrAssembly{Errs: slices.Clone(asm.errs)}
		return
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// scan is the first pass.
func (asm *Assembler) scan(input io.Reader) (err error) {
	scanner := bufio.NewScanner(input)

	var lineno int
	pc := 0

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		source := strings.TrimSpace(text_comment[0])
		line := source
		words := strings.Fields(line)

		for len(words) > 0 && strings.HasSuffix(words[0], ":") {
			label := strings.TrimSuffix(words[0], ":")
			line = strings.TrimSpace(strings.TrimPrefix(line, words[0]))
			words = words[1:]

			if !reLabel.MatchString(label) {
				asm.fail(lineno, source, ErrLabelInvalid)
				continue
			}
			_, ok := asm.Label[label]
			if ok {
				asm.fail(lineno, source, ErrLabelDuplicate)
				continue
			}
			asm.Label[label] = pc
		}

		if len(words) == 0 {
			continue
		}

		// .equ CONST VALUE
		// .equ CONST $(expression with spaces)
		if words[0] == ".equ" {
			if len(words) < 3 || !reLabel.MatchString(words[1]) {
				asm.fail(lineno, source, ErrEquateSyntax)
				continue
			}
			value := strings.Join(words[2:], " ")
			if len(words) > 3 && !reParen.MatchString(value) {
				asm.fail(lineno, source, ErrEquateSyntax)
				continue
			}
			_, ok := asm.Equate[words[1]]
			if ok {
				asm.fail(lineno, source, ErrEquateDuplicate)
				continue
			}
			asm.Equate[words[1]] = value
			continue
		}

		if pc == PROGRAM_LIMIT {
			asm.fail(lineno, source, ErrProgramTooLarge)
		}

		asm.pending = append(asm.pending, pending{LineNo: lineno, Pc: pc, Source: source, Line: line})
		pc++
	}

	err = scanner.Err()

	return
}

// assemble is the second pass over a single line.
func (asm *Assembler) assemble(line pending) {
	expanded, err := asm.expand(line.Line)
	if err != nil {
		asm.fail(line.LineNo, line.Source, err)
		return
	}

	words := strings.Fields(expanded)

	code, label, err := asm.parseWords(words)
	if err != nil {
		asm.fail(line.LineNo, line.Source, err)
		return
	}

	if line.Pc >= PROGRAM_LIMIT {
		// Already reported by the first pass.
		return
	}

	opcode := Opcode{LineNo: line.LineNo, Pc: line.Pc, Words: words, Code: code, LinkLabel: label}
	asm.Opcode = append(asm.Opcode, opcode)
}

// expand does compile-time $(...) evaluations.
func (asm *Assembler) expand(line string) (expanded string, err error) {
	expanded = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})

	return
}

// parenEval evaluates an expression with starlark.
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	if asm.depth >= EQUATE_DEPTH {
		err = ErrParseExpression(expr)
		return
	}
	asm.depth++
	defer func() { asm.depth-- }()

	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key := range asm.Equate {
		if !strings.Contains(expr, key) {
			continue
		}
		v, v_err := asm.valueOf(key)
		if v_err != nil {
			// Ignore non-integer equates. They may be registers.
			continue
		}
		pred[key] = starlark.MakeUint64(uint64(v))
	}
	for key, pc := range asm.Label {
		_, ok := pred[key]
		if !ok {
			pred[key] = starlark.MakeInt(pc)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_uint64, ok := st_int.Uint64()
	if !ok || st_uint64 > 0xffffffff {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_uint64)
	return
}

// resolve follows equates until word is no longer one.
func (asm *Assembler) resolve(word string) string {
	for range EQUATE_DEPTH {
		equate, ok := asm.Equate[word]
		if !ok {
			break
		}
		word = equate
	}

	return word
}

// parseNumber parses an unsigned 32-bit number. Numbers are decimal
// unless prefixed by 0x, 0b or 0o.
func parseNumber(word string) (value uint64, err error) {
	base := 10
	if len(word) > 2 && word[0] == '0' && strings.ContainsRune("xXbBoO", rune(word[1])) {
		base = 0
	}

	return strconv.ParseUint(word, base, 32)
}

// valueOf returns the value of a simple word: an equate, a label, a
// $(...) expression or an unsigned number.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	word = asm.resolve(word)

	pc, ok := asm.Label[word]
	if ok {
		value = uint32(pc)
		return
	}

	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2 : len(word)-1])
	}

	v64, err := parseNumber(word)
	if err != nil && reLabel.MatchString(word) {
		err = ErrLabelMissing(word)
		return
	}
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)
	return
}

// getValue parses operand n as a value of at most limit.
func (asm *Assembler) getValue(words []string, n int, limit uint32) (value uint32, err error) {
	word := words[n]
	value, err = asm.valueOf(word)
	if err == nil && value > limit {
		err = ErrOperandRange
	}
	if err != nil {
		err = &ErrOperand{Field: n, Word: word, Err: err}
	}
	return
}

// getRegister parses operand n as a register.
func (asm *Assembler) getRegister(words []string, n int) (reg CodeReg, err error) {
	word := words[n]
	defer func() {
		if err != nil {
			err = &ErrOperand{Field: n, Word: word, Err: err}
		}
	}()

	word = asm.resolve(word)

	if len(word) < 2 || (word[0] != 'r' && word[0] != 'R') {
		err = ErrRegisterInvalid
		return
	}

	value, err := strconv.ParseUint(word[1:], 10, 8)
	if err != nil {
		err = ErrParseNumber(word[1:])
		return
	}

	reg = CodeReg(value)
	if !reg.Valid() {
		err = ErrRegisterInvalid
		return
	}

	return
}

// checkArgs verifies the operand count. words[0] is the mnemonic.
func checkArgs(words []string, count int) (err error) {
	args := len(words) - 1
	switch {
	case args < count:
		err = &ErrOperand{Field: args + 1, Err: ErrOperandMissing}
	case args > count:
		err = &ErrOperand{Field: count + 1, Word: words[count+1], Err: ErrOperandExtra}
	}
	return
}

// parseWords encodes the words of a line of assembly text.
func (asm *Assembler) parseWords(words []string) (code Code, label string, err error) {
	if len(words) == 0 {
		err = ErrMnemonicUnknown
		return
	}

	if words[0] == ".word" {
		err = checkArgs(words, 1)
		if err != nil {
			return
		}
		var value uint32
		value, err = asm.getValue(words, 1, 0xffffffff)
		code = Code(value)
		return
	}

	op, ok := mnemonicMap[strings.ToLower(words[0])]
	if !ok {
		err = ErrMnemonicUnknown
		return
	}

	switch op {
	case OP_NOP, OP_HLT:
		err = checkArgs(words, 0)
		if err != nil {
			return
		}
		code = Encode(op, 0)
	case OP_LDI, OP_CMP:
		err = checkArgs(words, 2)
		if err != nil {
			return
		}
		var imm uint32
		var reg CodeReg
		imm, err = asm.getValue(words, 1, IMMEDIATE_MAX)
		if err != nil {
			return
		}
		reg, err = asm.getRegister(words, 2)
		if err != nil {
			return
		}
		if op == OP_LDI {
			code = MakeCodeLdi(uint16(imm), reg)
		} else {
			code = MakeCodeCmp(uint16(imm), reg)
		}
	case OP_ADD, OP_SUB:
		err = checkArgs(words, 3)
		if err != nil {
			return
		}
		var regs [3]CodeReg
		for n := range regs {
			regs[n], err = asm.getRegister(words, n+1)
			if err != nil {
				return
			}
		}
		code = MakeCodeAlu(op, regs[0], regs[1], regs[2])
	case OP_JMP, OP_JEQ, OP_JGT, OP_JLT:
		err = checkArgs(words, 1)
		if err != nil {
			return
		}
		var target uint32
		target, err = asm.getValue(words, 1, TARGET_MASK)
		if err != nil {
			return
		}
		_, ok := asm.Label[words[1]]
		if ok {
			label = words[1]
		}
		code = MakeCodeJump(op, uint8(target))
	case OP_STO, OP_LOD:
		err = checkArgs(words, 2)
		if err != nil {
			return
		}
		var addr uint32
		var reg CodeReg
		addr, err = asm.getValue(words, 1, ADDRESS_MASK)
		if err != nil {
			return
		}
		reg, err = asm.getRegister(words, 2)
		if err != nil {
			return
		}
		code = MakeCodeMem(op, uint8(addr), reg)
	default:
		err = ErrMnemonicUnknown
	}

	return
}
