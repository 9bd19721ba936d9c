package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/xyproto/env/v2"
)

const versionString = "asm 1.0.0"

// VerboseMode enables progress tracing to stderr; read only by main and the
// small amount of CLI-side diagnostic printing, never by the core.
var VerboseMode bool

func main() {
	var outputFlag = flag.String("o", "", "output object file (default: input with .o extension)")
	var verbose = flag.Bool("v", false, "verbose mode")
	var verboseLong = flag.Bool("verbose", false, "verbose mode")
	var version = flag.Bool("version", false, "print version information and exit")
	flag.Parse()
	args := flag.Args()
	if len(args) > 1 {
		// Flags may also follow the input path, as in "asm in.s -o out.o".
		flag.CommandLine.Parse(args[1:])
		args = append(args[:1:1], flag.Args()...)
	}

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	VerboseMode = *verbose || *verboseLong

	if len(args) != 1 {
		log.Fatalf("usage: asm <input.s> [-o output.o]")
	}
	inputPath := args[0]

	outputPath := *outputFlag
	if outputPath == "" {
		outputPath = env.Str("ASM_OUTPUT", defaultOutputPath(inputPath))
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("asm: %v", err)
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "asm: parsing %s\n", inputPath)
	}

	if err := assembleToFile(string(source), outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "asm: %s: %v\n", inputPath, err)
		os.Remove(outputPath)
		os.Exit(1)
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "asm: wrote %s\n", outputPath)
	}
}

// defaultOutputPath derives "name.o" from "name.s" (or "name.ext"), the
// same way an unspecified -o is resolved.
func defaultOutputPath(inputPath string) string {
	for i := len(inputPath) - 1; i >= 0 && inputPath[i] != '/'; i-- {
		if inputPath[i] == '.' {
			return inputPath[:i] + ".o"
		}
	}
	return inputPath + ".o"
}

// assembleToFile runs the lexer, parser and assembler driver over source
// and writes the resulting ELF64 object to outputPath. The core never
// touches the filesystem; only this CLI-facing function does.
func assembleToFile(source, outputPath string) error {
	prog, err := NewParser(source).Parse()
	if err != nil {
		return err
	}

	result, err := NewAssemblerDriver(prog).Assemble()
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return &AsmError{Kind: ErrIO, Msg: err.Error()}
	}
	defer f.Close()

	if _, err := NewObjectWriter(result).WriteTo(f); err != nil {
		return &AsmError{Kind: ErrIO, Msg: err.Error()}
	}
	return nil
}
