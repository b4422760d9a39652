// Package monitor is an interactive, line oriented debugger for the
// emulator.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"

	"github.com/ezrec/isc/cpu"
	"github.com/ezrec/isc/emulator"
)

// Default number of words shown by 'mem'.
const MEM_COUNT = 16

// command is a single monitor command.
type command struct {
	Name  string
	Args  string
	Help  string
	Apply func(mon *Monitor, args []string) (err error)
}

var commands []command

func init() {
	commands = []command{
		{"help", "", "show this help", (*Monitor).doHelp},
		{"step", "[n]", "execute n instructions (default 1)", (*Monitor).doStep},
		{"run", "", "execute until halt, end of memory or an error", (*Monitor).doRun},
		{"regs", "", "show the registers", (*Monitor).doRegs},
		{"mem", "[addr [count]]", "show memory", (*Monitor).doMem},
		{"poke", "addr value", "write a word to memory", (*Monitor).doPoke},
		{"list", "", "show the program listing", (*Monitor).doList},
		{"reset", "", "reload the program and clear the cpu", (*Monitor).doReset},
		{"quit", "", "leave the monitor", nil},
	}
}

// Monitor drives an emulator from text commands.
type Monitor struct {
	Verbose     bool               // If set, log every command.
	Emulator    *emulator.Emulator // Emulator under inspection.
	Output      io.Writer          // Command output.
	Prompt      string             // Prompt used by Serve.
	HistoryFile string             // Readline history, if set.
}

// NewMonitor creates a monitor for an emulator, writing to output.
func NewMonitor(emu *emulator.Emulator, output io.Writer) (mon *Monitor) {
	mon = &Monitor{
		Emulator: emu,
		Output:   output,
		Prompt:   "isc> ",
	}

	return
}

// Exec runs one command line. quit is set by the 'quit' command.
func (mon *Monitor) Exec(line string) (quit bool, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	if mon.Verbose {
		log.Printf("monitor: %v", words)
	}

	name := strings.ToLower(words[0])
	if name == "exit" || name == "q" {
		name = "quit"
	}

	for _, cmd := range commands {
		if cmd.Name != name {
			continue
		}
		if cmd.Apply == nil {
			quit = true
			return
		}
		err = cmd.Apply(mon, words[1:])
		return
	}

	err = ErrCommandUnknown(words[0])
	return
}

// Serve reads commands with readline until 'quit' or end of input.
// A nil input reads from the terminal.
func (mon *Monitor) Serve(input io.ReadCloser) (err error) {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		items = append(items, readline.PcItem(cmd.Name))
	}

	config := &readline.Config{
		Prompt:          mon.Prompt,
		HistoryFile:     mon.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          mon.Output,
	}
	if input != nil {
		config.Stdin = input
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return
	}
	defer rl.Close()

	for {
		var line string
		line, err = rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				err = nil
				return
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		quit, cmd_err := mon.Exec(line)
		if cmd_err != nil {
			fmt.Fprintln(mon.Output, f("error: %v", cmd_err))
		}
		if quit {
			return
		}
	}
}

// argNumber parses argument n, or returns def if it is absent.
func argNumber(args []string, n int, def uint64) (value uint64, err error) {
	if n >= len(args) {
		value = def
		return
	}

	value, err = strconv.ParseUint(args[n], 0, 32)
	if err != nil {
		err = ErrArgument(args[n])
	}
	return
}

// checkArgs verifies there are at most limit arguments.
func checkArgs(args []string, limit int) (err error) {
	if len(args) > limit {
		err = ErrArgumentExtra
	}
	return
}

func (mon *Monitor) doHelp(args []string) (err error) {
	table := tablewriter.NewWriter(mon.Output)
	table.SetHeader([]string{"Command", "Arguments", "Description"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, cmd := range commands {
		table.Append([]string{cmd.Name, cmd.Args, cmd.Help})
	}
	table.Render()

	return
}

// where prints the next instruction to execute.
func (mon *Monitor) where() {
	emu := mon.Emulator
	code := emu.Code()
	lineno := emu.LineNo()
	if lineno == 0 {
		fmt.Fprintf(mon.Output, "%02d: %v\n", emu.Cpu.Pc, code)
		return
	}
	fmt.Fprintf(mon.Output, "%02d: %v (line %d)\n", emu.Cpu.Pc, code, lineno)
}

// ended prints the end of a run.
func (mon *Monitor) ended() {
	fmt.Fprintf(mon.Output, "run ended after %d ticks\n", mon.Emulator.Cpu.Ticks)
}

func (mon *Monitor) doStep(args []string) (err error) {
	err = checkArgs(args, 1)
	if err != nil {
		return
	}

	count, err := argNumber(args, 0, 1)
	if err != nil {
		return
	}

	for range count {
		var done bool
		done, err = mon.Emulator.Tick()
		if err != nil {
			return
		}
		if done {
			mon.ended()
			return
		}
	}

	mon.where()
	return
}

func (mon *Monitor) doRun(args []string) (err error) {
	err = checkArgs(args, 0)
	if err != nil {
		return
	}

	err = mon.Emulator.Run()
	if err != nil {
		return
	}

	mon.ended()
	return
}

func (mon *Monitor) doRegs(args []string) (err error) {
	err = checkArgs(args, 0)
	if err != nil {
		return
	}

	proc := mon.Emulator.Cpu

	table := tablewriter.NewWriter(mon.Output)
	table.SetHeader([]string{"Register", "Hex", "Decimal"})
	table.SetAutoFormatHeaders(false)
	table.Append([]string{"pc", fmt.Sprintf("%#x", proc.Pc), strconv.Itoa(proc.Pc)})
	table.Append([]string{"flag", fmt.Sprintf("%#x", int(proc.Flag)), proc.Flag.String()})
	table.Append([]string{"halt", "", strconv.FormatBool(proc.Halt)})
	table.Append([]string{"ticks", "", strconv.Itoa(proc.Ticks)})
	for n, val := range proc.Register {
		table.Append([]string{cpu.CodeReg(n).String(), fmt.Sprintf("%#08x", val), strconv.FormatInt(int64(int32(val)), 10)})
	}
	table.Render()

	return
}

func (mon *Monitor) doMem(args []string) (err error) {
	err = checkArgs(args, 2)
	if err != nil {
		return
	}

	addr, err := argNumber(args, 0, 0)
	if err != nil {
		return
	}
	if addr >= cpu.MEMORY_SIZE {
		err = ErrArgument(args[0])
		return
	}

	count, err := argNumber(args, 1, MEM_COUNT)
	if err != nil {
		return
	}
	count = min(count, cpu.MEMORY_SIZE-addr)

	proc := mon.Emulator.Cpu

	table := tablewriter.NewWriter(mon.Output)
	table.SetHeader([]string{"Addr", "Word", "Code"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	for n := range count {
		pc := addr + n
		word := proc.Memory[pc]
		table.Append([]string{fmt.Sprintf("%02d", pc), fmt.Sprintf("%#08x", word), cpu.Code(word).String()})
	}
	table.Render()

	return
}

func (mon *Monitor) doPoke(args []string) (err error) {
	if len(args) < 2 {
		err = ErrArgumentMissing
		return
	}
	err = checkArgs(args, 2)
	if err != nil {
		return
	}

	addr, err := argNumber(args, 0, 0)
	if err != nil {
		return
	}
	value, err := argNumber(args, 1, 0)
	if err != nil {
		return
	}

	err = mon.Emulator.Cpu.Store(uint32(addr), uint32(value))
	return
}

func (mon *Monitor) doList(args []string) (err error) {
	err = checkArgs(args, 0)
	if err != nil {
		return
	}

	WriteListing(mon.Output, mon.Emulator.Program, mon.Emulator.Cpu.Pc)
	return
}

func (mon *Monitor) doReset(args []string) (err error) {
	err = checkArgs(args, 0)
	if err != nil {
		return
	}

	err = mon.Emulator.Reset()
	if err != nil {
		return
	}

	mon.where()
	return
}

// WriteListing writes a program listing as a table. The opcode at pc is
// marked; pass a negative pc for no marker.
func WriteListing(w io.Writer, prog *cpu.Program, pc int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Pc", "Line", "Word", "Code", "Description"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, op := range prog.Opcodes {
		mark := ""
		if op.Pc == pc {
			mark = "=>"
		}
		code := op.Code.String()
		if len(op.LinkLabel) != 0 {
			code = strings.Join(op.Words, " ")
		}
		table.Append([]string{
			mark,
			fmt.Sprintf("%02d", op.Pc),
			strconv.Itoa(op.LineNo),
			fmt.Sprintf("%#08x", uint32(op.Code)),
			code,
			op.Code.Describe(),
		})
	}
	table.Render()
}
