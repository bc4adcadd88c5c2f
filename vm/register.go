package vm

import (
	"fmt"
)

// RegisterIndex selects one slot of the register file.
type RegisterIndex uint8

const (
	REG_R0 = RegisterIndex(0)
	REG_R1 = RegisterIndex(1)
	REG_R2 = RegisterIndex(2)
	REG_R3 = RegisterIndex(3)
	REG_R4 = RegisterIndex(4)
	REG_R5 = RegisterIndex(5)
	REG_R6 = RegisterIndex(6)
	REG_R7 = RegisterIndex(7)
	REG_PC = RegisterIndex(8) // Program counter, offset into the instruction region.
	REG_SP = RegisterIndex(9) // Stack pointer, next free offset in the stack region.

	REGISTER_COUNT = 16 // Slots 10 to 15 are reserved.
)

// Valid returns true if the index names a slot of the register file.
func (ri RegisterIndex) Valid() bool {
	return ri < REGISTER_COUNT
}

// String returns the assembler name of the register.
func (ri RegisterIndex) String() string {
	switch ri {
	case REG_PC:
		return "pc"
	case REG_SP:
		return "sp"
	}

	return fmt.Sprintf("r%d", uint8(ri))
}

// RegisterFile is the bank of 8-bit registers.
type RegisterFile [REGISTER_COUNT]uint8

// Flags is the comparison state, set by cmp and read by jne.
type Flags struct {
	Equal bool
}
