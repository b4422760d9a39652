// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"iter"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezrec/isc/cpu"
	"github.com/ezrec/isc/emulator"
	"github.com/ezrec/isc/io"
	"github.com/ezrec/isc/monitor"
	"github.com/ezrec/isc/translate"
)

// Options shared by the subcommands.
type options struct {
	verbose bool
	defines []string

	output  string
	delay   time.Duration
	limit   int
	trace   bool
	history string
}

// isBinary reports if path names a binary image rather than source.
func isBinary(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".bin")
}

// assemble parses an assembly source file.
func assemble(opts *options, path string, defines iter.Seq2[string, string]) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: opts.verbose}
	if defines != nil {
		for name, value := range defines {
			asm.Predefine(name, value)
		}
	}
	for _, define := range opts.defines {
		name, value, ok := strings.Cut(define, "=")
		if !ok {
			value = "1"
		}
		asm.Predefine(name, value)
	}

	prog, err = asm.Parse(inf)
	if err != nil {
		err = fmt.Errorf("%v:\n%w", path, err)
	}
	return
}

// readImage loads a binary image file.
func readImage(path string) (rom *io.Rom, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	rom = &io.Rom{}
	_, err = rom.ReadFrom(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}
	return
}

// loadProgram returns the program in path, assembled or disassembled.
func loadProgram(opts *options, path string, emu *emulator.Emulator) (prog *cpu.Program, err error) {
	if isBinary(path) {
		var rom *io.Rom
		rom, err = readImage(path)
		if err != nil {
			return
		}
		prog = cpu.Disassemble(rom.Data)
		return
	}

	var defines iter.Seq2[string, string]
	if emu != nil {
		defines = emu.Defines()
	}

	return assemble(opts, path, defines)
}

// newEmulator creates an emulator for a program file.
func newEmulator(opts *options, path string) (emu *emulator.Emulator, err error) {
	emu = emulator.NewEmulator()
	emu.Verbose = opts.verbose
	emu.Delay = opts.delay
	emu.Limit = opts.limit

	emu.Program, err = loadProgram(opts, path, emu)
	if err != nil {
		return
	}

	err = emu.Reset()
	return
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "isc",
		Short:        "Assembler, disassembler and emulator for the ISC",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.Printf("isc: using locale %v", translate.Tag())
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose mode")
	rootCmd.PersistentFlags().StringArrayVarP(&opts.defines, "define", "D", nil, "Predefine an equate, NAME=VALUE")

	asmCmd := &cobra.Command{
		Use:   "asm SOURCE",
		Short: "Assemble a source file into a binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := assemble(opts, args[0], emulator.NewEmulator().Defines())
			if err != nil {
				return
			}

			output := opts.output
			if len(output) == 0 {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".bin"
			}

			ouf, err := os.Create(output)
			if err != nil {
				return
			}
			defer ouf.Close()

			rom := &io.Rom{Data: prog.Binary()}
			_, err = rom.WriteTo(ouf)
			if err != nil {
				return
			}

			if opts.verbose {
				log.Printf("isc: %v: %v words", output, len(rom.Data))
			}
			return
		},
	}
	asmCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Binary image to write (default SOURCE.bin)")

	disCmd := &cobra.Command{
		Use:   "dis FILE",
		Short: "List a binary image or source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := loadProgram(opts, args[0], emulator.NewEmulator())
			if err != nil {
				return
			}

			monitor.WriteListing(cmd.OutOrStdout(), prog, -1)
			return
		},
	}

	runCmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a binary image or source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			emu, err := newEmulator(opts, args[0])
			if err != nil {
				return
			}

			if opts.trace {
				emu.Tracer = &io.Trace{Output: cmd.OutOrStdout(), Verbose: opts.verbose}
			}

			err = emu.Run()
			fmt.Fprint(cmd.OutOrStdout(), emu.Cpu.String())
			return
		},
	}
	runCmd.Flags().DurationVar(&opts.delay, "delay", 0, "Pause between instructions")
	runCmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum instructions to run (0 = no limit)")
	runCmd.Flags().BoolVar(&opts.trace, "trace", false, "Trace every instruction")

	monitorCmd := &cobra.Command{
		Use:   "monitor FILE",
		Short: "Debug a binary image or source file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			emu, err := newEmulator(opts, args[0])
			if err != nil {
				return
			}

			if opts.trace {
				emu.Tracer = &io.Trace{Output: cmd.OutOrStdout(), Verbose: opts.verbose}
			}

			mon := monitor.NewMonitor(emu, cmd.OutOrStdout())
			mon.Verbose = opts.verbose
			mon.HistoryFile = opts.history

			return mon.Serve(nil)
		},
	}
	monitorCmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum instructions in a single run (0 = no limit)")
	monitorCmd.Flags().BoolVar(&opts.trace, "trace", false, "Trace every instruction")
	monitorCmd.Flags().StringVar(&opts.history, "history", "", "Command history file")

	rootCmd.AddCommand(asmCmd, disCmd, runCmd, monitorCmd)

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
