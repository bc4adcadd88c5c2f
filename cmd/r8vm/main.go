// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ezrec/r8vm/challenge"
	"github.com/ezrec/r8vm/emulator"
	"github.com/ezrec/r8vm/translate"
	"github.com/ezrec/r8vm/vm"
)

func main() {
	var build bool
	var secret string
	var key uint
	var compile string
	var file string
	var image string
	var save bool
	var input string
	var list bool
	var dump bool
	var limit int
	var verbose bool
	var lang string

	flag.BoolVar(&build, "build", false, "Build a flag verifier image")
	flag.StringVar(&secret, "flag", "", "Flag for -build, random if empty")
	flag.UintVar(&key, "key", challenge.DEFAULT_KEY, "Payload xor key for -build")
	flag.StringVar(&compile, "c", "", "Source file to assemble and run")
	flag.StringVar(&file, "f", "", "Image file to run")
	flag.StringVar(&image, "o", "program.bin", "Image file to write for -build or -s")
	flag.BoolVar(&save, "s", false, "Save the assembled image, do not execute")
	flag.StringVar(&input, "i", "-", "Program input")
	flag.BoolVar(&list, "l", false, "Disassemble the image, do not execute")
	flag.BoolVar(&dump, "dump", false, "Dump the machine state after the run")
	flag.IntVar(&limit, "limit", -1, "Tick limit, negative for none")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "lang", "", "Message locale, as a BCP 47 tag")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		translate.SetLocales(lang)
	}

	if key == 0 || key > 0xff {
		log.Fatalf("%v: -key must be in 1..255", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	switch {
	case build:
		ch, err := challenge.Build(challenge.Options{
			Verbose: verbose,
			Flag:    secret,
			Key:     byte(key),
		})
		if err != nil {
			log.Fatalf("build: %v", err)
		}
		fmt.Print(ch.String())
		writeImage(image, ch.Image)
		return
	case len(compile) != 0:
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		err = emu.Compile(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		err = emu.Reset()
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if save {
			writeImage(image, &emu.VM.Memory)
			return
		}
	case len(file) != 0:
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("%v: %v", file, err)
		}

		err = emu.VM.Load(data)
		if err != nil {
			log.Fatalf("%v: %v", file, err)
		}
	default:
		log.Fatalf("%v: one of -build, -c or -f is required", os.Args[0])
	}

	if list {
		code := emu.VM.Memory.Instructions()
		end := len(bytes.TrimRight(code, "\x00"))
		if end < len(code) {
			end++
		}
		statements, err := vm.Disassemble(code[:end])
		for _, st := range statements {
			fmt.Printf("%02x: %v\n", st.Ip, st.Codes[0])
		}
		if err != nil {
			log.Printf("disassemble: %v", err)
		}
		return
	}

	if input == "-" {
		emu.VM.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.VM.Input = inf
	}
	emu.VM.Output = os.Stdout

	err := emu.Run(limit)
	if dump {
		fmt.Fprint(os.Stderr, emu.VM.String())
	}
	if err != nil {
		log.Fatal(err)
	}
}

// writeImage saves a complete address space image to a file.
func writeImage(path string, image *vm.AddressSpace) {
	ouf, err := os.Create(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	_, err = io.Copy(ouf, bytes.NewReader(image[:]))
	if err == nil {
		err = ouf.Close()
	}
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
}
