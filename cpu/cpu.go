package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

const (
	REGISTER_COUNT = 4                // General purpose registers.
	MEMORY_SIZE    = 64               // Words of shared code and data memory.
	LAST_ADDRESS   = MEMORY_SIZE - 1  // A run ends after executing this address.
	PROGRAM_LIMIT  = MEMORY_SIZE      // Largest loadable program, in words.
	TARGET_LIMIT   = TARGET_MASK + 1  // Jump targets are below this address.
	ADDRESS_LIMIT  = ADDRESS_MASK + 1 // Store and load addresses are below this.
	IMMEDIATE_MAX  = IMMEDIATE_MASK   // Largest immediate operand.
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("%v", MEMORY_SIZE),
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"LAST_ADDRESS":   fmt.Sprintf("%v", LAST_ADDRESS),
	"IMMEDIATE_MAX":  fmt.Sprintf("%v", IMMEDIATE_MAX),
	"FLAG_GT":        fmt.Sprintf("%v", int(FLAG_GT)),
	"FLAG_EQ":        fmt.Sprintf("%v", int(FLAG_EQ)),
	"FLAG_LT":        fmt.Sprintf("%v", int(FLAG_LT)),
}

// Change is a single piece of state modified by an instruction.
type Change struct {
	Target string // r0-r3, flag, mem[N], pc or halt.
	Old    uint32
	New    uint32
}

// Step records one executed instruction.
type Step struct {
	Tick    int      // Cycle number since reset.
	Pc      int      // Address the instruction was fetched from.
	Code    Code     // Instruction executed.
	Changes []Change // State deltas, in the order applied.
}

// Tracer receives every executed instruction. The cpu calls it
// unconditionally; a nil Tracer drops the steps.
type Tracer interface {
	Trace(step *Step)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(step *Step)

func (tf TracerFunc) Trace(step *Step) {
	tf(step)
}

// Cpu is the simulation context for the processor.
//
// A run ends when a halt executes or the instruction at LAST_ADDRESS
// completes; either way the PC and halt flag are reset so the same
// Cpu can run again. Registers, flag and memory are left as they were.
type Cpu struct {
	Verbose bool   // Set to enable verbose logging.
	Tracer  Tracer // Receives executed instructions, if set.

	Pc       int                    // Address of the next instruction.
	Register [REGISTER_COUNT]uint32 // Register bank.
	Memory   [MEMORY_SIZE]uint32    // Shared code and data memory.
	Flag     Flag                   // Outcome of the last compare.
	Halt     bool                   // Set by the halt instruction.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new, zeroed, CPU.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %02d\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %v\n", "flag", cpu.Flag)
	text += fmt.Sprintf("% 5s: %v\n", "halt", cpu.Halt)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 5s: %04X_%04X\n", CodeReg(n), val>>16, val&0xffff)
	}

	return
}

// Reset the CPU state.
// - Clears the registers, flag and memory.
// - Zeros the PC, halt flag and tick counter.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory[:])
	cpu.Flag = FLAG_UNSET
	cpu.Pc = 0
	cpu.Halt = false
	cpu.Ticks = 0
}

// LoadProgram copies a program into memory, starting at address 0.
// Memory past the end of the program is left untouched.
func (cpu *Cpu) LoadProgram(program []uint32) (err error) {
	if len(program) > PROGRAM_LIMIT {
		err = ErrProgramTooLarge
		return
	}

	copy(cpu.Memory[:], program)

	if cpu.Verbose {
		log.Printf("cpu: loaded %v words", len(program))
	}

	return
}

// Reg returns the value of a register.
func (cpu *Cpu) Reg(reg CodeReg) (value uint32, err error) {
	if !reg.Valid() {
		err = ErrAddressOutOfRange
		return
	}

	value = cpu.Register[reg]
	return
}

// SetReg sets the value of a register.
func (cpu *Cpu) SetReg(reg CodeReg, value uint32) (err error) {
	if !reg.Valid() {
		err = ErrAddressOutOfRange
		return
	}

	cpu.Register[reg] = value
	return
}

// Load returns the word at a memory address.
func (cpu *Cpu) Load(addr uint32) (value uint32, err error) {
	if addr >= MEMORY_SIZE {
		err = ErrAddressOutOfRange
		return
	}

	value = cpu.Memory[addr]
	return
}

// Store sets the word at a memory address.
func (cpu *Cpu) Store(addr uint32, value uint32) (err error) {
	if addr >= MEMORY_SIZE {
		err = ErrAddressOutOfRange
		return
	}

	cpu.Memory[addr] = value
	return
}

// FetchCode fetches the instruction at the PC.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if cpu.Pc < 0 || cpu.Pc >= MEMORY_SIZE {
		err = ErrAddressOutOfRange
		return
	}

	code = Code(cpu.Memory[cpu.Pc])
	return
}

// Tick executes a single instruction cycle.
//
// When the run ends, the PC and halt flag are reset and ErrHalted or
// ErrMemoryEnd is returned.
func (cpu *Cpu) Tick() (err error) {
	pc := cpu.Pc

	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	switch {
	case cpu.Halt:
		err = ErrHalted
	case pc == LAST_ADDRESS:
		err = ErrMemoryEnd
	default:
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %v at %02d after %v ticks", err, pc, cpu.Ticks)
	}

	cpu.Pc = 0
	cpu.Halt = false

	return
}

// Done returns true if the error from Tick marks the normal end of a run.
func Done(err error) bool {
	return errors.Is(err, ErrHalted) || errors.Is(err, ErrMemoryEnd)
}

// Run ticks the CPU until the run ends or an instruction fails.
func (cpu *Cpu) Run() (err error) {
	for {
		err = cpu.Tick()
		if Done(err) {
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// setReg writes a register, recording the change.
func (cpu *Cpu) setReg(step *Step, reg CodeReg, value uint32) (err error) {
	old, err := cpu.Reg(reg)
	if err != nil {
		return
	}

	cpu.Register[reg] = value
	step.Changes = append(step.Changes, Change{Target: reg.String(), Old: old, New: value})
	return
}

// setFlag writes the flag register, recording the change.
func (cpu *Cpu) setFlag(step *Step, flag Flag) {
	step.Changes = append(step.Changes, Change{Target: "flag", Old: uint32(cpu.Flag), New: uint32(flag)})
	cpu.Flag = flag
}

// target checks a jump target.
func target(code Code) (pc int, err error) {
	addr := code.JumpDecode()
	if addr >= TARGET_LIMIT {
		err = ErrAddressOutOfRange
		return
	}

	pc = int(addr)
	return
}

// Execute executes a single decoded instruction.
//
// Opcodes without a defined operation are treated as no-ops. On error
// no state is modified.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%02d: %v", cpu.Pc, code)
	}

	step := &Step{Tick: cpu.Ticks, Pc: cpu.Pc, Code: code}

	next_pc := cpu.Pc + 1

	op, _ := code.Decode()
	switch op {
	case OP_NOP:
		// pass
	case OP_LDI:
		imm, dst := code.LdiDecode()
		err = cpu.setReg(step, dst, imm)
	case OP_ADD, OP_SUB:
		a, b, c := code.AluDecode()
		var val_a, val_b uint32
		val_a, err = cpu.Reg(a)
		if err != nil {
			return
		}
		val_b, err = cpu.Reg(b)
		if err != nil {
			return
		}
		// Unsigned, wrapping.
		output := val_a + val_b
		if op == OP_SUB {
			output = val_a - val_b
		}
		err = cpu.setReg(step, c, output)
	case OP_CMP:
		imm, reg := code.CmpDecode()
		var val uint32
		val, err = cpu.Reg(reg)
		if err != nil {
			return
		}
		// Register is treated as signed.
		diff := int64(int32(val)) - int64(imm)
		flag := FLAG_EQ
		switch {
		case diff > 0:
			flag = FLAG_GT
		case diff < 0:
			flag = FLAG_LT
		}
		cpu.setFlag(step, flag)
	case OP_JMP:
		next_pc, err = target(code)
	case OP_JEQ, OP_JGT, OP_JLT:
		var pc int
		pc, err = target(code)
		if err != nil {
			return
		}
		want, _ := op.Cond()
		if cpu.Flag == want {
			next_pc = pc
			cpu.setFlag(step, FLAG_UNSET)
		}
	case OP_STO:
		addr, reg := code.MemDecode()
		var val, old uint32
		val, err = cpu.Reg(reg)
		if err != nil {
			return
		}
		old, err = cpu.Load(addr)
		if err != nil {
			return
		}
		cpu.Memory[addr] = val
		step.Changes = append(step.Changes, Change{Target: fmt.Sprintf("mem[%d]", addr), Old: old, New: val})
	case OP_LOD:
		addr, reg := code.MemDecode()
		var val uint32
		val, err = cpu.Load(addr)
		if err != nil {
			return
		}
		err = cpu.setReg(step, reg, val)
	case OP_HLT:
		cpu.Halt = true
		step.Changes = append(step.Changes, Change{Target: "halt", Old: 0, New: 1})
	default:
		// Reserved opcodes are ignored.
		if cpu.Verbose {
			log.Printf("cpu: %02d: opcode %v ignored", cpu.Pc, op)
		}
	}
	if err != nil {
		return
	}

	if next_pc != cpu.Pc+1 {
		step.Changes = append(step.Changes, Change{Target: "pc", Old: uint32(cpu.Pc), New: uint32(next_pc)})
	}

	cpu.Pc = next_pc
	cpu.Ticks += 1

	if cpu.Tracer != nil {
		cpu.Tracer.Trace(step)
	}

	return
}
