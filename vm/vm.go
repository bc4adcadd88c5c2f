// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package vm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"slices"
	"strings"
)

var _vm_defines = map[string]string{
	"INSTRUCTION_BASE":   fmt.Sprintf("0x%x", INSTRUCTION_BASE),
	"MEMORY_BASE":        fmt.Sprintf("0x%x", MEMORY_BASE),
	"STACK_BASE":         fmt.Sprintf("0x%x", STACK_BASE),
	"ADDRESS_SPACE_SIZE": fmt.Sprintf("0x%x", ADDRESS_SPACE_SIZE),
	"INSTRUCTION_SIZE":   fmt.Sprintf("0x%x", INSTRUCTION_SIZE),
	"MEMORY_SIZE":        fmt.Sprintf("0x%x", MEMORY_SIZE),
	"STACK_SIZE":         fmt.Sprintf("0x%x", STACK_SIZE),
}

// VM is the simulation context of the machine.
type VM struct {
	Verbose bool // Set to enable verbose logging.

	Memory   AddressSpace // Instruction, memory and stack regions.
	Register RegisterFile // Register bank, including pc and sp.
	Flags    Flags        // Comparison flags.
	Stop     bool         // Set once an exit instruction has executed.

	Input  io.Reader // Byte source for read instructions.
	Output io.Writer // Byte sink for out instructions.

	Ticks int // Instructions executed since the last reset.
}

// NewVM creates a new machine with a zeroed address space.
func NewVM() (vm *VM) {
	vm = &VM{}

	return
}

// Defines for the machine.
func (vm *VM) Defines() iter.Seq2[string, string] {
	return maps.All(_vm_defines)
}

// Reset clears the registers, flags and address space.
// The I/O channels are kept.
func (vm *VM) Reset() {
	if vm.Verbose {
		log.Printf("vm: reset")
	}

	clear(vm.Memory[:])
	clear(vm.Register[:])
	vm.Flags = Flags{}
	vm.Stop = false
	vm.Ticks = 0
}

// Load resets the machine and copies in a complete address space image.
func (vm *VM) Load(image []byte) (err error) {
	if len(image) != ADDRESS_SPACE_SIZE {
		err = ErrImageSize
		return
	}

	vm.Reset()
	copy(vm.Memory[:], image)

	return
}

// Fetch decodes the instruction at the program counter.
func (vm *VM) Fetch() (ins Instruction, err error) {
	pc := vm.Register[REG_PC]
	cursor := codeCursor{code: vm.Memory.Instructions()[pc:]}

	return Decode(&cursor)
}

// Tick executes a single fetch, advance and execute cycle.
func (vm *VM) Tick() (err error) {
	if vm.Stop {
		err = ErrHalted
		return
	}

	pc := vm.Register[REG_PC]

	ins, err := vm.Fetch()
	if err != nil {
		err = &ErrFetch{Pc: pc, Err: err}
		return
	}

	if vm.Verbose {
		log.Printf("%02x: %v", pc, ins)
	}

	vm.Register[REG_PC] = pc + uint8(ins.Len())

	err = vm.Execute(ins)
	if err != nil {
		return
	}

	vm.Ticks++

	return
}

// Run ticks the machine until it halts, or an error occurs.
func (vm *VM) Run() (err error) {
	for !vm.Stop {
		err = vm.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Execute executes a single decoded instruction.
// The program counter must already point past the instruction.
func (vm *VM) Execute(ins Instruction) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrInstruction(ins), err)
		}
	}()

	if !ins.Reg.Valid() || !ins.Src.Valid() || !ins.Dst.Valid() {
		err = ErrRegisterInvalid
		return
	}

	reg := &vm.Register

	switch ins.Opcode {
	case OP_EXIT:
		vm.Stop = true
	case OP_MOV_REG8_CONST8:
		reg[ins.Reg] = ins.Value
	case OP_XOR_MEM_REG8_CONST8:
		var b *byte
		b, err = vm.Memory.Byte(Address16(reg[ins.Reg]))
		if err != nil {
			return
		}
		*b ^= ins.Value
	case OP_CMP_REG8_CONST8:
		vm.Flags.Equal = reg[ins.Reg] == ins.Value
	case OP_CMP_REG8_REG8:
		vm.Flags.Equal = reg[ins.Reg] == reg[ins.Src]
	case OP_JUMP_IF_NOT_EQUAL:
		if !vm.Flags.Equal {
			reg[REG_PC] = ins.Value
		}
	case OP_SUB_REG8_CONST8:
		reg[ins.Reg] -= ins.Value
	case OP_ADD_REG8_CONST8:
		reg[ins.Reg] += ins.Value
	case OP_XOR_REG8_CONST8:
		reg[ins.Reg] ^= ins.Value
	case OP_XOR_REG8_REG8:
		reg[ins.Reg] ^= reg[ins.Src]
	case OP_READ_STDIN_STACK:
		err = vm.readStack(int(ins.Value))
	case OP_POP_REG8:
		if reg[REG_SP] == 0 {
			err = ErrStackEmpty
			return
		}
		reg[REG_SP]--
		reg[ins.Reg] = vm.Memory.Stack()[reg[REG_SP]]
	case OP_DEREF_ADDRESS_REG16_REG8:
		var b *byte
		b, err = vm.Memory.Byte(ins.Address().Eval(reg))
		if err != nil {
			return
		}
		reg[ins.Dst] = *b
	case OP_WRITE_STDOUT_CONST8:
		if vm.Output == nil {
			err = ErrChannelInvalid
			return
		}
		_, err = vm.Output.Write([]byte{ins.Value})
	default:
		err = ErrOpcodeByte(ins.Opcode)
	}

	return
}

// readStack reads count bytes from the input, and pushes them
// in reverse order at the stack pointer.
func (vm *VM) readStack(count int) (err error) {
	if vm.Input == nil {
		err = ErrChannelInvalid
		return
	}

	sp := int(vm.Register[REG_SP])
	if sp+count > STACK_LIMIT {
		err = ErrStackFull
		return
	}

	pushed := vm.Memory.Stack()[sp : sp+count]
	_, err = io.ReadFull(vm.Input, pushed)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrInputShort
		} else {
			err = errors.Join(ErrInputShort, err)
		}
		return
	}
	slices.Reverse(pushed)

	vm.Register[REG_SP] = uint8(sp + count)

	return
}

// String returns the current machine state as a string.
func (vm *VM) String() (text string) {
	var sb strings.Builder

	for n := range REGISTER_COUNT {
		ri := RegisterIndex(n)
		fmt.Fprintf(&sb, "% 5s: %02x\n", ri.String(), vm.Register[ri])
	}
	fmt.Fprintf(&sb, "equal: %v\n", vm.Flags.Equal)
	fmt.Fprintf(&sb, " stop: %v\n", vm.Stop)

	regions := []struct {
		name string
		data []byte
	}{
		{"instructions", vm.Memory.Instructions()},
		{"memory", vm.Memory.Memory()},
		{"stack", vm.Memory.Stack()},
	}
	for _, region := range regions {
		fmt.Fprintf(&sb, "%v:\n%v", region.name, hex.Dump(region.data))
	}

	text = sb.String()
	return
}
