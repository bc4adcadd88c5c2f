package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// newProgramVM returns a machine with the instructions at offset 0.
func newProgramVM(codes ...Instruction) (vm *VM) {
	vm = NewVM()

	var code []byte
	for _, ins := range codes {
		code = ins.AppendEncode(code)
	}
	copy(vm.Memory.Instructions(), code)

	return
}

func TestVMLoad(t *testing.T) {
	assert := assert.New(t)

	vm := NewVM()
	vm.Register[REG_R0] = 0x55
	vm.Flags.Equal = true

	assert.ErrorIs(vm.Load(make([]byte, 1023)), ErrImageSize)
	assert.ErrorIs(vm.Load(make([]byte, 1025)), ErrImageSize)

	image := make([]byte, ADDRESS_SPACE_SIZE)
	image[0] = byte(OP_EXIT)
	image[MEMORY_BASE] = 0xaa
	image[STACK_BASE] = 0xbb
	assert.NoError(vm.Load(image))

	assert.Equal(uint8(0), vm.Register[REG_R0])
	assert.False(vm.Flags.Equal)
	assert.Equal(uint8(0xaa), vm.Memory.Memory()[0])
	assert.Equal(uint8(0xbb), vm.Memory.Stack()[0])
	assert.Equal(INSTRUCTION_SIZE, len(vm.Memory.Instructions()))
	assert.Equal(MEMORY_SIZE, len(vm.Memory.Memory()))
	assert.Equal(STACK_SIZE, len(vm.Memory.Stack()))
}

func TestVMExit(t *testing.T) {
	assert := assert.New(t)

	// A zeroed instruction region is a single exit.
	vm := NewVM()
	assert.NoError(vm.Run())
	assert.True(vm.Stop)
	assert.Equal(uint8(1), vm.Register[REG_PC])
	assert.Equal(1, vm.Ticks)

	assert.ErrorIs(vm.Tick(), ErrHalted)
}

func TestVMAdvance(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeMovReg8Const8(REG_R0, 1),
		MakeJumpIfNotEqual(0x80),
		MakeDerefAddressReg16Reg8(AddressReg16{High: REG_R1, Low: REG_R2}, REG_R3),
		MakePopReg8(REG_R4),
	)
	vm.Flags.Equal = true

	ips := []uint8{}
	for range 3 {
		ips = append(ips, vm.Register[REG_PC])
		assert.NoError(vm.Tick())
	}
	assert.Equal([]uint8{0, 3, 5}, ips)
	assert.Equal(uint8(9), vm.Register[REG_PC])
}

func TestVMWrap(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeSubReg8Const8(REG_R0, 1),
		MakeAddReg8Const8(REG_R1, 0xff),
		MakeAddReg8Const8(REG_R1, 2),
		MakeXorReg8Const8(REG_R2, 0xf0),
		MakeXorReg8Reg8(REG_R2, REG_R0),
		MakeMovReg8Const8(REG_R3, 0x80),
		MakeAddReg8Const8(REG_R3, 0x80),
	)

	for range 7 {
		assert.NoError(vm.Tick())
	}

	assert.Equal(uint8(0xff), vm.Register[REG_R0])
	assert.Equal(uint8(0x01), vm.Register[REG_R1])
	assert.Equal(uint8(0x0f), vm.Register[REG_R2])
	assert.Equal(uint8(0x00), vm.Register[REG_R3])
}

func TestVMCompareBranch(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		r0    uint8
		equal bool
		pc    uint8
	}){
		{"equal", 5, true, 5},
		{"not_equal", 4, false, 0x40},
	}

	for _, entry := range table {
		vm := newProgramVM(
			MakeCmpReg8Const8(REG_R0, 5),
			MakeJumpIfNotEqual(0x40),
		)
		vm.Register[REG_R0] = entry.r0

		assert.NoError(vm.Tick(), entry.name)
		assert.Equal(entry.equal, vm.Flags.Equal, entry.name)
		assert.NoError(vm.Tick(), entry.name)
		assert.Equal(entry.pc, vm.Register[REG_PC], entry.name)
	}

	vm := newProgramVM(
		MakeCmpReg8Reg8(REG_R3, REG_R5),
		MakeCmpReg8Reg8(REG_R3, REG_R4),
	)
	vm.Register[REG_R3] = 7
	vm.Register[REG_R4] = 7
	vm.Register[REG_R5] = 8
	vm.Flags.Equal = true
	assert.NoError(vm.Tick())
	assert.False(vm.Flags.Equal)
	assert.NoError(vm.Tick())
	assert.True(vm.Flags.Equal)
}

func TestVMCountdown(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeMovReg8Const8(REG_R0, 3), // 0x00
		MakeSubReg8Const8(REG_R0, 1), // 0x03
		MakeCmpReg8Const8(REG_R0, 0), // 0x06
		MakeJumpIfNotEqual(0x03),     // 0x09
		MakeExit(),                   // 0x0b
	)

	subs := 0
	for !vm.Stop {
		ins, err := vm.Fetch()
		assert.NoError(err)
		if ins.Opcode == OP_SUB_REG8_CONST8 {
			subs++
		}
		assert.NoError(vm.Tick())
	}

	assert.Equal(3, subs)
	assert.Equal(uint8(0), vm.Register[REG_R0])
	assert.True(vm.Flags.Equal)
	assert.Equal(uint8(0x0c), vm.Register[REG_PC])
	assert.Equal(1+3*3+1, vm.Ticks)
}

func TestVMStack(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeReadStdinStack(3),
		MakePopReg8(REG_R0),
		MakePopReg8(REG_R1),
		MakePopReg8(REG_R2),
		MakePopReg8(REG_R3),
	)
	vm.Input = bytes.NewReader([]byte{'a', 'b', 'c', 'd'})

	assert.NoError(vm.Tick())
	assert.Equal(uint8(3), vm.Register[REG_SP])
	assert.Equal([]byte{'c', 'b', 'a'}, vm.Memory.Stack()[:3])

	for range 3 {
		assert.NoError(vm.Tick())
	}
	assert.Equal(uint8('a'), vm.Register[REG_R0])
	assert.Equal(uint8('b'), vm.Register[REG_R1])
	assert.Equal(uint8('c'), vm.Register[REG_R2])
	assert.Equal(uint8(0), vm.Register[REG_SP])

	err := vm.Tick()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.True(errors.Is(err, ErrInstruction{}))
}

func TestVMStackAppend(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeReadStdinStack(2),
		MakeReadStdinStack(2),
		MakePopReg8(REG_R0),
		MakePopReg8(REG_R1),
		MakePopReg8(REG_R2),
	)
	vm.Input = bytes.NewReader([]byte{1, 2, 3, 4})

	for range 5 {
		assert.NoError(vm.Tick())
	}

	assert.Equal([]byte{2, 1, 4, 3}, vm.Memory.Stack()[:4])
	assert.Equal(uint8(3), vm.Register[REG_R0])
	assert.Equal(uint8(4), vm.Register[REG_R1])
	assert.Equal(uint8(1), vm.Register[REG_R2])
	assert.Equal(uint8(1), vm.Register[REG_SP])
}

func TestVMStackFull(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeReadStdinStack(0xff),
		MakeReadStdinStack(1),
	)
	vm.Input = bytes.NewReader(make([]byte, 0x100))

	assert.NoError(vm.Tick())
	assert.Equal(uint8(0xff), vm.Register[REG_SP])
	assert.ErrorIs(vm.Tick(), ErrStackFull)
	assert.Equal(uint8(0xff), vm.Register[REG_SP])
}

func TestVMInputShort(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(MakeReadStdinStack(4))
	vm.Input = strings.NewReader("abc")
	assert.ErrorIs(vm.Tick(), ErrInputShort)

	vm = newProgramVM(MakeReadStdinStack(4))
	assert.ErrorIs(vm.Tick(), ErrChannelInvalid)

	// A zero length read needs no input.
	vm = newProgramVM(MakeReadStdinStack(0))
	vm.Input = strings.NewReader("")
	assert.NoError(vm.Tick())
	assert.Equal(uint8(0), vm.Register[REG_SP])
}

func TestVMDeref(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeDerefAddressReg16Reg8(AddressReg16{High: REG_R1, Low: REG_R2}, REG_R4),
		MakeAddReg8Const8(REG_R2, 1),
		MakeDerefAddressReg16Reg8(AddressReg16{High: REG_R1, Low: REG_R2}, REG_R5),
		MakeMovReg8Const8(REG_R1, 0x04),
		MakeDerefAddressReg16Reg8(AddressReg16{High: REG_R1, Low: REG_R2}, REG_R6),
	)
	vm.Register[REG_R1] = 0x01
	vm.Register[REG_R2] = 0x00
	vm.Memory[0x100] = 0xab
	vm.Memory[0x101] = 0xcd
	vm.Memory.Memory()[0x100] = 0xef

	for range 4 {
		assert.NoError(vm.Tick())
	}
	assert.Equal(uint8(0xab), vm.Register[REG_R4])
	assert.Equal(uint8(0xcd), vm.Register[REG_R5])
	assert.Equal(uint8(0xef), vm.Memory[0x200])

	// 0x0401 is past the end of the address space.
	assert.ErrorIs(vm.Tick(), ErrAddressInvalid)
}

func TestVMXorMem(t *testing.T) {
	assert := assert.New(t)

	// Decrypt the exit at 0x09 in place.
	vm := newProgramVM(
		MakeMovReg8Const8(REG_R1, 0x09),
		MakeXorMemReg8Const8(REG_R1, 0x41),
		MakeAddReg8Const8(REG_R0, 0),
	)
	vm.Memory[0x09] = byte(OP_EXIT) ^ 0x41
	vm.Memory[0x0a] = byte(OP_ADD_REG8_CONST8)

	assert.NoError(vm.Run())
	assert.Equal(uint8(0x0a), vm.Register[REG_PC])
	assert.Equal(byte(OP_EXIT), vm.Memory[0x09])
}

func TestVMOutput(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeWriteStdoutConst8('o'),
		MakeWriteStdoutConst8('k'),
		MakeWriteStdoutConst8('\n'),
	)

	assert.ErrorIs(vm.Tick(), ErrChannelInvalid)

	output := &bytes.Buffer{}
	vm = newProgramVM(
		MakeWriteStdoutConst8('o'),
		MakeWriteStdoutConst8('k'),
		MakeWriteStdoutConst8('\n'),
	)
	vm.Output = output
	assert.NoError(vm.Run())
	assert.Equal("ok\n", output.String())
}

func TestVMPcWrap(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(
		MakeAddReg8Const8(REG_R1, 1),
		MakeCmpReg8Const8(REG_R1, 2),
		MakeJumpIfNotEqual(0xfe),
		MakeExit(),
	)
	copy(vm.Memory[0xfe:], MakeWriteStdoutConst8('A').Encode())
	output := &bytes.Buffer{}
	vm.Output = output

	assert.NoError(vm.Run())
	assert.Equal("A", output.String())
	assert.Equal(uint8(9), vm.Register[REG_PC])
}

func TestVMFetchShort(t *testing.T) {
	assert := assert.New(t)

	vm := newProgramVM(MakeJumpIfNotEqual(0xff))
	vm.Memory[0xff] = byte(OP_MOV_REG8_CONST8)
	vm.Memory[0x100] = 1 // Memory region, not part of the instruction.

	assert.NoError(vm.Tick())
	err := vm.Tick()
	assert.ErrorIs(err, ErrDecodeShort)
	var fetch *ErrFetch
	assert.True(errors.As(err, &fetch))
	assert.Equal(uint8(0xff), fetch.Pc)

	vm = newProgramVM()
	vm.Memory[0] = 0x20
	assert.ErrorIs(vm.Tick(), ErrOpcodeUnknown)
}

func TestVMRegisterInvalid(t *testing.T) {
	assert := assert.New(t)

	vm := NewVM()
	err := vm.Execute(MakeMovReg8Const8(RegisterIndex(16), 1))
	assert.ErrorIs(err, ErrRegisterInvalid)
}

func TestVMString(t *testing.T) {
	assert := assert.New(t)

	vm := NewVM()
	vm.Register[REG_R7] = 0x5a
	vm.Register[REG_SP] = 0x03
	vm.Flags.Equal = true

	text := vm.String()
	assert.Contains(text, "   r7: 5a\n")
	assert.Contains(text, "   sp: 03\n")
	assert.Contains(text, "  r15: 00\n")
	assert.Contains(text, "equal: true\n")
	assert.Contains(text, "instructions:\n")
	assert.Contains(text, "memory:\n")
	assert.Contains(text, "stack:\n")
}

func TestVMDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for key, value := range NewVM().Defines() {
		defines[key] = value
	}

	assert.Equal("0x100", defines["MEMORY_BASE"])
	assert.Equal("0x300", defines["STACK_BASE"])
	assert.Equal("0x400", defines["ADDRESS_SPACE_SIZE"])
}

func TestAddress16(t *testing.T) {
	assert := assert.New(t)

	addr := MakeAddress16(0x01, 0x23)
	assert.Equal(Address16(0x0123), addr)
	assert.Equal(uint8(0x01), addr.High())
	assert.Equal(uint8(0x23), addr.Low())

	reg := RegisterFile{}
	pair := AddressReg16{High: REG_R6, Low: REG_R7}
	reg[REG_R6] = 0x03
	assert.Equal(Address16(0x0300), pair.Eval(&reg))
	reg[REG_R7] = 0xff
	assert.Equal(Address16(0x03ff), pair.Eval(&reg))
}
