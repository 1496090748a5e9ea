package main

import (
	"fmt"
	"os"

	"github.com/grimdork/climate/arg"

	"github.com/Urethramancer/rv32/cpu"
	"github.com/Urethramancer/rv32/disassembler"
)

func main() {
	opt := arg.New("rvdis")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "b", "base", "Slot index of the first word.", 0, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "l", "listing", "Print slot index and raw word on each line.", false, false, arg.VarBool, nil)
	opt.SetPositional("INPUT", "Little-endian binary to read.", "", true, arg.VarString)
	opt.SetPositional("OUTPUT", "Optional file to write the source to.", "", false, arg.VarString)
	err := opt.Parse(os.Args)
	if err != nil {
		if err == arg.ErrNoArgs {
			opt.PrintHelp()
			return
		}
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	if opt.GetBool("help") {
		opt.PrintHelp()
		return
	}

	base := opt.GetInt("base")
	if base < 0 {
		fmt.Fprintf(os.Stderr, "Error: base %d is negative\n", base)
		os.Exit(1)
	}

	code, err := os.ReadFile(opt.GetPosString("INPUT"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
		os.Exit(1)
	}

	words, err := cpu.BytesToWords(code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Disassembly error: %v\n", err)
		os.Exit(1)
	}

	var text string
	if opt.GetBool("listing") {
		text = disassembler.Listing(words, uint32(base))
	} else {
		text = disassembler.DisassembleWords(words, uint32(base))
	}

	outputFile := opt.GetPosString("OUTPUT")
	if outputFile == "" {
		fmt.Print(text)
		return
	}

	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Disassembly written to %s\n", outputFile)
}
