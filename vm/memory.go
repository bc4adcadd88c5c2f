package vm

// Address space layout.
const (
	INSTRUCTION_BASE   = 0x000
	MEMORY_BASE        = 0x100
	STACK_BASE         = 0x300
	ADDRESS_SPACE_SIZE = 0x400

	INSTRUCTION_SIZE = MEMORY_BASE - INSTRUCTION_BASE
	MEMORY_SIZE      = STACK_BASE - MEMORY_BASE
	STACK_SIZE       = ADDRESS_SPACE_SIZE - STACK_BASE

	STACK_LIMIT = STACK_SIZE - 1 // Deepest stack an 8-bit sp can describe.
)

// AddressSpace is the single byte array holding all three regions.
type AddressSpace [ADDRESS_SPACE_SIZE]byte

// Instructions returns the instruction region.
func (as *AddressSpace) Instructions() []byte {
	return as[INSTRUCTION_BASE:MEMORY_BASE]
}

// Memory returns the data memory region.
func (as *AddressSpace) Memory() []byte {
	return as[MEMORY_BASE:STACK_BASE]
}

// Stack returns the stack region.
func (as *AddressSpace) Stack() []byte {
	return as[STACK_BASE:ADDRESS_SPACE_SIZE]
}

// Byte returns a pointer to the byte at an absolute address.
func (as *AddressSpace) Byte(address Address16) (b *byte, err error) {
	if int(address) >= len(as) {
		err = ErrAddressInvalid
		return
	}

	b = &as[address]
	return
}

// Address16 is an absolute address into the address space.
type Address16 uint16

// MakeAddress16 builds an address from its high and low bytes.
func MakeAddress16(high, low uint8) Address16 {
	return Address16(uint16(high)<<8 | uint16(low))
}

// High returns bits 8-15 of the address.
func (addr Address16) High() uint8 {
	return uint8(addr >> 8)
}

// Low returns bits 0-7 of the address.
func (addr Address16) Low() uint8 {
	return uint8(addr)
}

// AddressReg16 is an address formed from two registers.
// The registers are read every time the address is evaluated.
type AddressReg16 struct {
	High RegisterIndex
	Low  RegisterIndex
}

// Eval returns the address held by the register pair.
func (ar AddressReg16) Eval(reg *RegisterFile) Address16 {
	return MakeAddress16(reg[ar.High], reg[ar.Low])
}
