// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/isc/cpu"
	"github.com/ezrec/isc/internal"
	"github.com/ezrec/isc/io"
)

// Emulator state. CPU + program listing + run pacing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Rom io.Rom // Image loaded into memory on reset.

	Delay time.Duration // Pause between cycles, for watching a trace.
	Limit int           // Maximum cycles in a single run, 0 for no limit.

	cycles int // Cycles in the current run.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(map[string]string{
		"CYCLE_LIMIT": fmt.Sprintf("%v", emu.Limit),
	}),
		emu.Cpu.Defines(),
	)
}

// Reset the emulator: clear the CPU and load the program image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Rom.Data = emu.Program.Binary()

	emu.Cpu.Reset()
	err = emu.Cpu.LoadProgram(emu.Rom.Data)
	if err != nil {
		return
	}

	emu.cycles = 0

	return
}

// Code returns the current instruction code, as found in memory.
func (emu *Emulator) Code() cpu.Code {
	code, _ := emu.Cpu.FetchCode()
	return code
}

// LineNo returns the current line number for the executing opcode,
// or 0 if the PC is outside the program listing.
func (emu *Emulator) LineNo() int {
	op := emu.Program.Debug(emu.Cpu.Pc)
	if op == nil {
		return 0
	}

	return op.LineNo
}

// Tick performs a single tick of the emulator.
// done is set when the run ends, by halt or at the end of memory.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	pc := emu.Cpu.Pc
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Pc: pc, Err: err}
		}
	}()

	if emu.Limit > 0 && emu.cycles >= emu.Limit {
		err = ErrCycleLimit
		return
	}

	err = emu.Cpu.Tick()
	emu.cycles++
	if cpu.Done(err) {
		if emu.Verbose {
			log.Printf("emulator: run ended after %v cycles: %v", emu.cycles, err)
		}
		err = nil
		done = true
		emu.cycles = 0
		return
	}
	if err != nil {
		return
	}

	if emu.Delay > 0 {
		time.Sleep(emu.Delay)
	}

	return
}

// Run ticks the emulator until the run ends, or an error occurs.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
