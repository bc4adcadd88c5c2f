package vm

import (
	"errors"

	"github.com/ezrec/r8vm/translate"
)

var f = translate.From

var (
	// Decode errors
	ErrOpcodeUnknown   = errors.New(f("opcode unknown"))
	ErrDecodeShort     = errors.New(f("instruction truncated"))
	ErrRegisterInvalid = errors.New(f("register invalid"))

	// Execution errors
	ErrHalted         = errors.New(f("halted"))
	ErrStackEmpty     = errors.New(f("stack empty"))
	// ErrStackFull is returned when a read would take the stack past
	// STACK_LIMIT, one byte short of the 256 byte stack region, as sp is
	// an 8-bit register.
	ErrStackFull      = errors.New(f("stack full"))
	ErrInputShort     = errors.New(f("input exhausted"))
	ErrAddressInvalid = errors.New(f("address invalid"))
	ErrChannelInvalid = errors.New(f("channel invalid"))
	ErrImageSize      = errors.New(f("image size invalid"))

	// Program layout errors
	ErrProgramSize = errors.New(f("program exceeds instruction region"))
	ErrDataSize    = errors.New(f("data exceeds memory region"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("operand missing"))
	ErrValueRange         = errors.New(f("value out of 8-bit range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcodeByte is the opcode byte that failed to decode.
type ErrOpcodeByte uint8

func (eo ErrOpcodeByte) Error() string {
	return f("unknown opcode 0x%02x", uint8(eo))
}

func (eo ErrOpcodeByte) Is(err error) bool {
	return err == ErrOpcodeUnknown
}

// ErrInstruction identifies the instruction whose execution failed.
type ErrInstruction Instruction

func (ei ErrInstruction) Error() string {
	return f("instruction '%v'", Instruction(ei).String())
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}

// ErrFetch indicates the program counter of a failed decode.
type ErrFetch struct {
	Pc  uint8
	Err error
}

func (err *ErrFetch) Error() string {
	return f("pc 0x%02x %v", err.Pc, err.Err)
}

func (err *ErrFetch) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
