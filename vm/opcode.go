package vm

// Opcode is the leading byte of an encoded instruction.
type Opcode uint8

// Operations:
//
//	Exit                   stop execution
//	MovReg8Const8          reg = value
//	XorMemReg8Const8       mem[reg] ^= value
//	CmpReg8Const8          equal = reg == value
//	JumpIfNotEqual         if !equal { pc = target }
//	SubReg8Const8          reg -= value
//	AddReg8Const8          reg += value
//	ReadStdinStack         push count input bytes
//	PopReg8                reg = pop()
//	DerefAddressReg16Reg8  dst = mem[high:low]
//	XorReg8Reg8            dst ^= src
//	WriteStdoutConst8      output value
//	CmpReg8Reg8            equal = a == b
//	XorReg8Const8          reg ^= value
//
//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_EXIT                     = Opcode(0)  // Exit
	OP_MOV_REG8_CONST8          = Opcode(1)  // MovReg8Const8
	OP_XOR_MEM_REG8_CONST8      = Opcode(2)  // XorMemReg8Const8
	OP_CMP_REG8_CONST8          = Opcode(3)  // CmpReg8Const8
	OP_JUMP_IF_NOT_EQUAL        = Opcode(4)  // JumpIfNotEqual
	OP_SUB_REG8_CONST8          = Opcode(5)  // SubReg8Const8
	OP_ADD_REG8_CONST8          = Opcode(6)  // AddReg8Const8
	OP_READ_STDIN_STACK         = Opcode(7)  // ReadStdinStack
	OP_POP_REG8                 = Opcode(8)  // PopReg8
	OP_DEREF_ADDRESS_REG16_REG8 = Opcode(9)  // DerefAddressReg16Reg8
	OP_XOR_REG8_REG8            = Opcode(10) // XorReg8Reg8
	OP_WRITE_STDOUT_CONST8      = Opcode(11) // WriteStdoutConst8
	OP_CMP_REG8_REG8            = Opcode(12) // CmpReg8Reg8
	OP_XOR_REG8_CONST8          = Opcode(13) // XorReg8Const8
)

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	return op.Len() != 0
}

// Len returns the encoded length of the opcode, including the opcode byte.
// Unknown opcodes have a length of zero.
func (op Opcode) Len() int {
	switch op {
	case OP_EXIT:
		return 1
	case OP_JUMP_IF_NOT_EQUAL, OP_READ_STDIN_STACK, OP_POP_REG8, OP_WRITE_STDOUT_CONST8:
		return 2
	case OP_MOV_REG8_CONST8, OP_XOR_MEM_REG8_CONST8, OP_CMP_REG8_CONST8,
		OP_SUB_REG8_CONST8, OP_ADD_REG8_CONST8, OP_XOR_REG8_REG8,
		OP_CMP_REG8_REG8, OP_XOR_REG8_CONST8:
		return 3
	case OP_DEREF_ADDRESS_REG16_REG8:
		return 4
	}

	return 0
}

// Mnemonic returns the assembler mnemonic of the opcode.
func (op Opcode) Mnemonic() string {
	switch op {
	case OP_EXIT:
		return "exit"
	case OP_MOV_REG8_CONST8:
		return "mov"
	case OP_XOR_MEM_REG8_CONST8:
		return "xorm"
	case OP_CMP_REG8_CONST8, OP_CMP_REG8_REG8:
		return "cmp"
	case OP_JUMP_IF_NOT_EQUAL:
		return "jne"
	case OP_SUB_REG8_CONST8:
		return "sub"
	case OP_ADD_REG8_CONST8:
		return "add"
	case OP_READ_STDIN_STACK:
		return "read"
	case OP_POP_REG8:
		return "pop"
	case OP_DEREF_ADDRESS_REG16_REG8:
		return "deref"
	case OP_XOR_REG8_REG8, OP_XOR_REG8_CONST8:
		return "xor"
	case OP_WRITE_STDOUT_CONST8:
		return "out"
	}

	return op.String()
}
