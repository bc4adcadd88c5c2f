// Package vm implements the r8vm virtual machine and its assembler.
//
// The machine has sixteen 8-bit registers (r0-r7, the program counter pc,
// the stack pointer sp, and six reserved slots), a single equal flag, and a
// 1024 byte address space split into an instruction region, a data memory
// region and a stack region. Instructions are a closed set of fourteen
// opcodes with fixed length byte encodings.
//
// The assembler translates a small assembly language into that encoding,
// supporting labels, equates, macros and compile-time expression evaluation.
package vm
