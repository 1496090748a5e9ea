package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Urethramancer/rv32/assembler"
	"github.com/Urethramancer/rv32/cpu"
)

// loadFile assembles or reads a program and loads it at the configured start slot.
func loadFile(c *cpu.CPU, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".s", ".asm":
		prog, err := assembler.New().Assemble(string(data), c.Config.Start)
		if err != nil {
			return 0, err
		}
		return len(prog.Entries), prog.Load(c)
	}

	words, err := cpu.BytesToWords(data)
	if err != nil {
		return 0, err
	}
	return len(words), c.LoadProgram(c.Config.Start, words)
}

// forceRegisters applies a list like "x1=8, a0=0x10".
func forceRegisters(c *cpu.CPU, list string) error {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("%q: expected register=value", item)
		}
		reg, err := cpu.ParseReg(name)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(strings.TrimSpace(value), 0, 32)
		if err != nil {
			return fmt.Errorf("%q: %w", item, err)
		}
		err = c.SetReg(reg, uint32(v))
		if err != nil {
			return err
		}
	}
	return nil
}
