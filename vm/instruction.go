package vm

import (
	"fmt"
	"io"
)

// Instruction is a decoded instruction. Only the operand fields used by
// the Opcode are meaningful; the others are always zero.
type Instruction struct {
	Opcode Opcode
	Reg    RegisterIndex // Target, first comparand, or high address register.
	Src    RegisterIndex // Source, second comparand, or low address register.
	Dst    RegisterIndex // Destination of a dereference.
	Value  uint8         // Constant, jump target, byte count, or output byte.
}

// MakeExit creates an instruction that halts the machine.
func MakeExit() Instruction {
	return Instruction{Opcode: OP_EXIT}
}

// MakeMovReg8Const8 creates 'reg = value'.
func MakeMovReg8Const8(reg RegisterIndex, value uint8) Instruction {
	return Instruction{Opcode: OP_MOV_REG8_CONST8, Reg: reg, Value: value}
}

// MakeXorMemReg8Const8 creates 'mem[reg] ^= value', where the
// register holds an absolute address.
func MakeXorMemReg8Const8(reg RegisterIndex, value uint8) Instruction {
	return Instruction{Opcode: OP_XOR_MEM_REG8_CONST8, Reg: reg, Value: value}
}

// MakeCmpReg8Const8 creates 'equal = reg == value'.
func MakeCmpReg8Const8(reg RegisterIndex, value uint8) Instruction {
	return Instruction{Opcode: OP_CMP_REG8_CONST8, Reg: reg, Value: value}
}

// MakeCmpReg8Reg8 creates 'equal = a == b'.
func MakeCmpReg8Reg8(a, b RegisterIndex) Instruction {
	return Instruction{Opcode: OP_CMP_REG8_REG8, Reg: a, Src: b}
}

// MakeJumpIfNotEqual creates 'if !equal { pc = target }'.
func MakeJumpIfNotEqual(target uint8) Instruction {
	return Instruction{Opcode: OP_JUMP_IF_NOT_EQUAL, Value: target}
}

// MakeSubReg8Const8 creates 'reg -= value'.
func MakeSubReg8Const8(reg RegisterIndex, value uint8) Instruction {
	return Instruction{Opcode: OP_SUB_REG8_CONST8, Reg: reg, Value: value}
}

// MakeAddReg8Const8 creates 'reg += value'.
func MakeAddReg8Const8(reg RegisterIndex, value uint8) Instruction {
	return Instruction{Opcode: OP_ADD_REG8_CONST8, Reg: reg, Value: value}
}

// MakeXorReg8Const8 creates 'reg ^= value'.
func MakeXorReg8Const8(reg RegisterIndex, value uint8) Instruction {
	return Instruction{Opcode: OP_XOR_REG8_CONST8, Reg: reg, Value: value}
}

// MakeXorReg8Reg8 creates 'dst ^= src'.
func MakeXorReg8Reg8(dst, src RegisterIndex) Instruction {
	return Instruction{Opcode: OP_XOR_REG8_REG8, Reg: dst, Src: src}
}

// MakeReadStdinStack creates an instruction that pushes count input bytes.
func MakeReadStdinStack(count uint8) Instruction {
	return Instruction{Opcode: OP_READ_STDIN_STACK, Value: count}
}

// MakePopReg8 creates 'reg = pop()'.
func MakePopReg8(reg RegisterIndex) Instruction {
	return Instruction{Opcode: OP_POP_REG8, Reg: reg}
}

// MakeDerefAddressReg16Reg8 creates 'dst = mem[src]'.
func MakeDerefAddressReg16Reg8(src AddressReg16, dst RegisterIndex) Instruction {
	return Instruction{Opcode: OP_DEREF_ADDRESS_REG16_REG8, Reg: src.High, Src: src.Low, Dst: dst}
}

// MakeWriteStdoutConst8 creates an instruction that outputs a single byte.
func MakeWriteStdoutConst8(value uint8) Instruction {
	return Instruction{Opcode: OP_WRITE_STDOUT_CONST8, Value: value}
}

// Address returns the register pair of a dereference.
func (ins Instruction) Address() AddressReg16 {
	return AddressReg16{High: ins.Reg, Low: ins.Src}
}

// Len returns the encoded length of the instruction in bytes.
func (ins Instruction) Len() int {
	return ins.Opcode.Len()
}

// Encode returns the binary encoding of the instruction.
func (ins Instruction) Encode() []byte {
	return ins.AppendEncode(make([]byte, 0, ins.Len()))
}

// AppendEncode appends the binary encoding of the instruction to code.
func (ins Instruction) AppendEncode(code []byte) []byte {
	code = append(code, byte(ins.Opcode))

	switch ins.Opcode {
	case OP_EXIT:
	case OP_MOV_REG8_CONST8, OP_XOR_MEM_REG8_CONST8, OP_CMP_REG8_CONST8,
		OP_SUB_REG8_CONST8, OP_ADD_REG8_CONST8, OP_XOR_REG8_CONST8:
		code = append(code, byte(ins.Reg), ins.Value)
	case OP_JUMP_IF_NOT_EQUAL, OP_READ_STDIN_STACK, OP_WRITE_STDOUT_CONST8:
		code = append(code, ins.Value)
	case OP_POP_REG8:
		code = append(code, byte(ins.Reg))
	case OP_DEREF_ADDRESS_REG16_REG8:
		code = append(code, byte(ins.Reg), byte(ins.Src), byte(ins.Dst))
	case OP_XOR_REG8_REG8, OP_CMP_REG8_REG8:
		code = append(code, byte(ins.Reg), byte(ins.Src))
	}

	return code
}

// Decode reads exactly one instruction from the byte cursor.
func Decode(r io.ByteReader) (ins Instruction, err error) {
	next := func() (value uint8) {
		if err != nil {
			return
		}
		value, err = r.ReadByte()
		if err != nil {
			err = ErrDecodeShort
		}
		return
	}

	reg := func() (ri RegisterIndex) {
		ri = RegisterIndex(next())
		if err == nil && !ri.Valid() {
			err = ErrRegisterInvalid
		}
		return
	}

	ins.Opcode = Opcode(next())
	if err != nil {
		return
	}

	switch ins.Opcode {
	case OP_EXIT:
	case OP_MOV_REG8_CONST8, OP_XOR_MEM_REG8_CONST8, OP_CMP_REG8_CONST8,
		OP_SUB_REG8_CONST8, OP_ADD_REG8_CONST8, OP_XOR_REG8_CONST8:
		ins.Reg = reg()
		ins.Value = next()
	case OP_JUMP_IF_NOT_EQUAL, OP_READ_STDIN_STACK, OP_WRITE_STDOUT_CONST8:
		ins.Value = next()
	case OP_POP_REG8:
		ins.Reg = reg()
	case OP_DEREF_ADDRESS_REG16_REG8:
		ins.Reg = reg()
		ins.Src = reg()
		ins.Dst = reg()
	case OP_XOR_REG8_REG8, OP_CMP_REG8_REG8:
		ins.Reg = reg()
		ins.Src = reg()
	default:
		err = ErrOpcodeByte(ins.Opcode)
	}

	return
}

// codeCursor reads bytes from a fixed code slice.
type codeCursor struct {
	code []byte
	pos  int
}

func (cc *codeCursor) ReadByte() (value byte, err error) {
	if cc.pos >= len(cc.code) {
		err = io.EOF
		return
	}

	value = cc.code[cc.pos]
	cc.pos++
	return
}

// DecodeBytes decodes the instruction at the start of code.
func DecodeBytes(code []byte) (ins Instruction, err error) {
	return Decode(&codeCursor{code: code})
}

// String returns the assembly language form of the instruction.
func (ins Instruction) String() string {
	mnemonic := ins.Opcode.Mnemonic()

	switch ins.Opcode {
	case OP_EXIT:
		return mnemonic
	case OP_MOV_REG8_CONST8, OP_XOR_MEM_REG8_CONST8, OP_CMP_REG8_CONST8,
		OP_SUB_REG8_CONST8, OP_ADD_REG8_CONST8, OP_XOR_REG8_CONST8:
		return fmt.Sprintf("%v %v 0x%02x", mnemonic, ins.Reg, ins.Value)
	case OP_JUMP_IF_NOT_EQUAL, OP_READ_STDIN_STACK, OP_WRITE_STDOUT_CONST8:
		return fmt.Sprintf("%v 0x%02x", mnemonic, ins.Value)
	case OP_POP_REG8:
		return fmt.Sprintf("%v %v", mnemonic, ins.Reg)
	case OP_DEREF_ADDRESS_REG16_REG8:
		return fmt.Sprintf("%v %v %v %v", mnemonic, ins.Reg, ins.Src, ins.Dst)
	case OP_XOR_REG8_REG8, OP_CMP_REG8_REG8:
		return fmt.Sprintf("%v %v %v", mnemonic, ins.Reg, ins.Src)
	}

	return mnemonic
}
