// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package vm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the r8vm instruction set.
type Assembler struct {
	Verbose    bool        // If set, verbosely logs the assembler actions.
	Statements []Statement // List of generated statements.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to instruction offsets.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansion int // Count of macro expansions, for local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register indexes.
var regMap = func() map[string]RegisterIndex {
	regs := make(map[string]RegisterIndex, REGISTER_COUNT+2)
	for n := range REGISTER_COUNT {
		ri := RegisterIndex(n)
		regs[ri.String()] = ri
		regs[fmt.Sprintf("r%d", n)] = ri
	}
	return regs
}()

// labelRe matches words that may name a label.
var labelRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber("~")
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		if len(word) < 2 {
			err = ErrParseCharacter(word)
		} else {
			err = ErrParseCharacter(word[1 : len(word)-1])
		}
		return
	}
	v64, err := strconv.ParseInt(strings.ReplaceAll(word, "_", ""), 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		if v64 < 0 {
			value = uint32(0xffffffff + (v64 + 1))
		} else {
			value = uint32(v64)
		}
	}

	if invert {
		value = ^value
	}

	return
}

// byteOf returns the value of a word that must fit in 8 bits.
// Negative values down to -128 are stored as two's complement.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v32, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v32 > 0xff && v32 < 0xffffff80 {
		err = ErrValueRange
		return
	}

	value = uint8(v32)
	return
}

// register parses a register operand.
func (asm *Assembler) register(word string) (reg RegisterIndex, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// valueOrLabel parses a literal operand. Words that look like identifiers
// are returned as labels, to be linked once the whole source is read.
func (asm *Assembler) valueOrLabel(word string) (value uint8, label string, err error) {
	if _, ok := regMap[word]; ok {
		err = ErrInstructionInvalid
		return
	}

	if labelRe.MatchString(word) {
		label = word
		return
	}

	value, err = asm.byteOf(word)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	for key, ip := range asm.Label {
		pred[key] = starlark.MakeInt(ip)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine parses a single line into words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentIp()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// stripComment removes a trailing ';' comment. A ';' inside a character
// quote is not a comment.
func stripComment(text string) string {
	quoted := false
	for n, c := range text {
		switch {
		case c == '\'':
			quoted = !quoted
		case c == ';' && !quoted:
			return text[:n]
		}
	}

	return text
}

// currentIp gets the offset of the next instruction.
func (asm *Assembler) currentIp() int {
	if len(asm.Statements) == 0 {
		return 0
	}

	last := &asm.Statements[len(asm.Statements)-1]

	return last.Ip + last.Len()
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.Statements = asm.Statements[:0]
	asm.expansion = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	maps.Insert(asm.Equate, maps.All(_vm_defines))
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statements {
		st := &asm.Statements[n]

		if len(st.LinkLabel) == 0 {
			continue
		}
		label := st.LinkLabel
		ip, ok := asm.Label[label]
		if !ok {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if ip > 0xff {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = ErrValueRange
			return
		}
		st.Codes[len(st.Codes)-1].Value = uint8(ip)
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statements),
		Label:      maps.Clone(asm.Label),
	}

	return
}

// regConstMap maps mnemonics taking a register and a constant.
var regConstMap = map[string](func(RegisterIndex, uint8) Instruction){
	"mov":  MakeMovReg8Const8,
	"xorm": MakeXorMemReg8Const8,
	"sub":  MakeSubReg8Const8,
	"add":  MakeAddReg8Const8,
	"cmp":  MakeCmpReg8Const8,
	"xor":  MakeXorReg8Const8,
}

// regRegMap maps mnemonics taking two registers.
var regRegMap = map[string](func(RegisterIndex, RegisterIndex) Instruction){
	"cmp": MakeCmpReg8Reg8,
	"xor": MakeXorReg8Reg8,
}

// constMap maps mnemonics taking a single constant.
var constMap = map[string](func(uint8) Instruction){
	"jne":  MakeJumpIfNotEqual,
	"read": MakeReadStdinStack,
	"out":  MakeWriteStdoutConst8,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Instruction
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		st := Statement{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Statements = append(asm.Statements, st)
	}()

	mnemonic := words[0]
	args := words[1:]

	need := func(count int) bool {
		switch {
		case len(args) < count:
			err = ErrOpcodeMissing
		case len(args) > count:
			err = ErrOpcodeExtraArgs
		}
		return err == nil
	}

	switch mnemonic {
	case "exit":
		if !need(0) {
			return
		}
		codes = append(codes, MakeExit())
	case "mov", "xorm", "sub", "add", "cmp", "xor":
		if !need(2) {
			return
		}
		var reg RegisterIndex
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		if make_rr, ok := regRegMap[mnemonic]; ok {
			if src, is_reg := regMap[args[1]]; is_reg {
				codes = append(codes, make_rr(reg, src))
				return
			}
		}
		var value uint8
		value, label, err = asm.valueOrLabel(args[1])
		if err != nil {
			return
		}
		codes = append(codes, regConstMap[mnemonic](reg, value))
	case "jne", "read", "out":
		if !need(1) {
			return
		}
		var value uint8
		value, label, err = asm.valueOrLabel(args[0])
		if err != nil {
			return
		}
		codes = append(codes, constMap[mnemonic](value))
	case "pop":
		if !need(1) {
			return
		}
		var reg RegisterIndex
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakePopReg8(reg))
	case "deref":
		if !need(3) {
			return
		}
		var regs [3]RegisterIndex
		for n := range regs {
			regs[n], err = asm.register(args[n])
			if err != nil {
				return
			}
		}
		src := AddressReg16{High: regs[0], Low: regs[1]}
		codes = append(codes, MakeDerefAddressReg16Reg8(src, regs[2]))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
