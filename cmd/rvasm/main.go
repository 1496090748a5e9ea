package main

import (
	"fmt"
	"os"

	"github.com/grimdork/climate/arg"

	"github.com/Urethramancer/rv32/assembler"
	"github.com/Urethramancer/rv32/cpu"
)

func main() {
	opt := arg.New("rvasm")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "o", "output", "Write a little-endian binary to this file instead of printing hex words.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "b", "base", "Slot index of the first instruction.", 0, false, arg.VarInt, nil)
	opt.SetPositional("FILE", "Assembly source to read.", "", true, arg.VarString)
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

	data, err := os.ReadFile(opt.GetPosString("FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
		os.Exit(1)
	}

	prog, err := assembler.New().Assemble(string(data), uint32(base))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembly error: %v\n", err)
		os.Exit(1)
	}

	start, words := prog.Words()
	out := opt.GetString("output")
	if out == "" {
		for i, w := range words {
			if i > 0 {
				fmt.Print(" ")
			}
			fmt.Printf("%08x", w)
		}
		fmt.Println()
		return
	}

	if err := os.WriteFile(out, cpu.WordsToBytes(words), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d words from slot %d written to %s\n", len(words), start, out)
}
