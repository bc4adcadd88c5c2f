// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/r8vm/internal"
	"github.com/ezrec/r8vm/vm"
)

const (
	TICK_LIMIT = 1 << 20 // Default tick limit of Run.
)

var _emulator_defines = map[string]string{
	"TICK_LIMIT": fmt.Sprintf("%v", TICK_LIMIT),
}

// Emulator state. Machine + assembled listing + memory region data.
type Emulator struct {
	Verbose bool        // If set, enables verbose logging.
	*vm.VM              // Reference to the machine simulation.
	Program *vm.Program // Reference to the currently running program listing.
	Data    []byte      // Initial contents of the memory region.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		VM:      vm.NewVM(),
		Program: &vm.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.VM.Defines(),
	)
}

// Compile assembles a source listing into the emulator's program.
func (emu *Emulator) Compile(source io.Reader) (err error) {
	asm := &vm.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(source)
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// Reset the machine and load the program and data image.
func (emu *Emulator) Reset() (err error) {
	emu.VM.Verbose = emu.Verbose

	image, err := emu.Program.Image(emu.Data)
	if err != nil {
		return
	}

	err = emu.VM.Load(image[:])
	if err != nil {
		return
	}

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.VM.Ticks
}

// Pc returns the current program counter.
func (emu *Emulator) Pc() int {
	return int(emu.VM.Register[vm.REG_PC])
}

// Code returns the listing instruction at the program counter.
func (emu *Emulator) Code() vm.Instruction {
	for ip, code := range emu.Program.Codes() {
		if int(ip) == emu.Pc() {
			return code
		}
	}

	return vm.Instruction{}
}

// LineNo returns the current line number for the executing statement.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(uint8(emu.Pc()))
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set machine verbosity
	emu.VM.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.VM.Tick()
	if err != nil {
		return
	}

	done = emu.VM.Stop

	return
}

// Run ticks the emulator until done. A limit of zero uses TICK_LIMIT,
// a negative limit runs without one.
func (emu *Emulator) Run(limit int) (err error) {
	if limit == 0 {
		limit = TICK_LIMIT
	}

	for done := emu.VM.Stop; !done; {
		if limit > 0 && emu.Ticks() >= limit {
			err = &ErrRuntime{LineNo: emu.LineNo(), Err: ErrTickLimit}
			return
		}
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
