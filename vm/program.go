package vm

import (
	"iter"
	"strings"
)

// Statement is a line of assembled code with its source location and
// generated instructions.
type Statement struct {
	LineNo    int
	Ip        int
	Words     []string
	Codes     []Instruction
	LinkLabel string
}

// Len returns the encoded length of the statement in bytes.
func (st *Statement) Len() (size int) {
	for _, code := range st.Codes {
		size += code.Len()
	}

	return
}

// Program is an assembled listing.
type Program struct {
	Statements []Statement
	Label      map[string]int
}

// Debug is the statement, and code index within it, at an instruction offset.
type Debug struct {
	*Statement
	Index int
}

func (prog *Program) Debug(ip uint8) (dbg Debug) {
	for n := range prog.Statements {
		st := &prog.Statements[n]
		offset := st.Ip
		for index, code := range st.Codes {
			if offset == int(ip) {
				dbg = Debug{Statement: st, Index: index}
				return
			}
			offset += code.Len()
		}
	}

	return
}

// Codes iterates over the instructions of the program, with their offset
// into the instruction region.
func (prog *Program) Codes() iter.Seq2[uint8, Instruction] {
	return func(yield func(ip uint8, code Instruction) bool) {
		for _, st := range prog.Statements {
			ip := st.Ip
			for _, code := range st.Codes {
				if ip >= INSTRUCTION_SIZE {
					return
				}
				if !yield(uint8(ip), code) {
					return
				}
				ip += code.Len()
			}
		}
	}
}

// Len returns the encoded length of the program in bytes.
func (prog *Program) Len() int {
	if len(prog.Statements) == 0 {
		return 0
	}

	last := &prog.Statements[len(prog.Statements)-1]
	return last.Ip + last.Len()
}

// Binary returns the encoded instruction stream.
func (prog *Program) Binary() (code []byte) {
	code = make([]byte, 0, prog.Len())
	for _, st := range prog.Statements {
		for _, ins := range st.Codes {
			code = ins.AppendEncode(code)
		}
	}

	return
}

// Image lays out a complete address space, with the program in the
// instruction region and data at the start of the memory region.
func (prog *Program) Image(data []byte) (image *AddressSpace, err error) {
	code := prog.Binary()
	if len(code) > INSTRUCTION_SIZE {
		err = ErrProgramSize
		return
	}
	if len(data) > MEMORY_SIZE {
		err = ErrDataSize
		return
	}

	image = &AddressSpace{}
	copy(image.Instructions(), code)
	copy(image.Memory(), data)

	return
}

// Disassemble decodes a run of instructions into statements.
// Decoding stops at the first error, which is returned along with the
// statements decoded so far.
func Disassemble(code []byte) (statements []Statement, err error) {
	cursor := &codeCursor{code: code}

	for cursor.pos < len(code) {
		ip := cursor.pos
		var ins Instruction
		ins, err = Decode(cursor)
		if err != nil {
			return
		}
		statements = append(statements, Statement{
			Ip:    ip,
			Words: strings.Split(ins.String(), " "),
			Codes: []Instruction{ins},
		})
	}

	return
}
