// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package challenge builds self-verifying flag images for the r8vm machine.
//
// The image carries a verifier program whose main body is xor obfuscated,
// and a memory region of masked flag bytes. Running the image reads a
// candidate flag from the input, and prints "Yep" or "Nope".
package challenge

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"

	"github.com/ezrec/r8vm/internal"
	"github.com/ezrec/r8vm/vm"
)

//go:embed verifier.r8
var verifierSource string

const (
	DEFAULT_PREFIX = "TFCCTF" // Prefix of generated flags.
	DEFAULT_KEY    = 0x41     // Default payload key.
	SECRET_SIZE    = 16       // Random bytes in a generated flag.
	MAX_FLAG_LEN   = 128      // Pairs addressable with a single low address register.
)

// Options for Build.
type Options struct {
	Verbose bool      // If set, logs the assembly of the verifier.
	Flag    string    // Flag to verify. Generated if empty.
	Prefix  string    // Prefix of a generated flag. DEFAULT_PREFIX if empty.
	Key     byte      // Payload and memory xor key. DEFAULT_KEY if zero.
	Rand    io.Reader // Source of randomness. crypto/rand if nil.
}

// Challenge is a built flag verifier.
type Challenge struct {
	Flag    string           // Flag accepted by the image.
	Key     byte             // Payload and memory xor key.
	Pad     []byte           // Random pad, one byte per flag byte.
	Masked  []byte           // Flag xor pad.
	Program *vm.Program      // Verifier listing, before obfuscation.
	Image   *vm.AddressSpace // Complete image.
}

// Build creates a new challenge image.
func Build(opts Options) (ch *Challenge, err error) {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.Reader
	}

	ch = &Challenge{
		Flag: opts.Flag,
		Key:  opts.Key,
	}

	if ch.Key == 0 {
		ch.Key = DEFAULT_KEY
	}

	if len(ch.Flag) == 0 {
		prefix := opts.Prefix
		if len(prefix) == 0 {
			prefix = DEFAULT_PREFIX
		}
		secret := make([]byte, SECRET_SIZE)
		_, err = io.ReadFull(rnd, secret)
		if err != nil {
			return
		}
		ch.Flag = fmt.Sprintf("%v{%v}", prefix, hex.EncodeToString(secret))
	}

	if len(ch.Flag) > MAX_FLAG_LEN {
		err = ErrFlagSize
		return
	}

	ch.Pad = make([]byte, len(ch.Flag))
	_, err = io.ReadFull(rnd, ch.Pad)
	if err != nil {
		return
	}

	ch.Masked = make([]byte, len(ch.Flag))
	data := make([]byte, 0, 2*len(ch.Flag))
	for n := range len(ch.Flag) {
		ch.Masked[n] = ch.Flag[n] ^ ch.Pad[n]
		data = append(data, ch.Masked[n]^ch.Key, ch.Pad[n]^ch.Key)
	}

	asm := &vm.Assembler{Verbose: opts.Verbose}
	asm.Predefine("FLAG_LEN", fmt.Sprintf("%d", len(ch.Flag)))
	asm.Predefine("KEY", fmt.Sprintf("0x%02x", ch.Key))

	ch.Program, err = asm.Parse(strings.NewReader(verifierSource))
	if err != nil {
		return
	}

	start, ok := ch.Program.Label["payload"]
	if !ok {
		err = vm.ErrLabelMissing("payload")
		return
	}
	end, ok := ch.Program.Label["payload_end"]
	if !ok {
		err = vm.ErrLabelMissing("payload_end")
		return
	}

	ch.Image, err = ch.Program.Image(data)
	if err != nil {
		return
	}

	code := ch.Program.Binary()
	obfuscated := slices.Collect(internal.IterSeqConcat(
		slices.Values(code[:start]),
		internal.IterSeqXor(slices.Values(code[start:end]), ch.Key),
		slices.Values(code[end:]),
	))
	copy(ch.Image.Instructions(), obfuscated)

	if opts.Verbose {
		log.Printf("challenge: %d byte verifier, payload 0x%02x-0x%02x", len(code), start, end)
	}

	return
}

// printable formats bytes as space separated hex.
func printable(data []byte) string {
	words := make([]string, len(data))
	for n, b := range data {
		words[n] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(words, " ")
}

// String returns the generated secrets of the challenge.
func (ch *Challenge) String() string {
	return strings.Join([]string{
		f("Generated flag: %v", ch.Flag),
		f("Xor values: %v", printable(ch.Pad)),
		f("Xor flag: %v", printable(ch.Masked)),
	}, "\n") + "\n"
}
