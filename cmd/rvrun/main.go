package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/grimdork/climate/arg"
	"github.com/sirupsen/logrus"

	"github.com/Urethramancer/rv32/cpu"
)

// This program loads a small RV32 program, forces register values and
// clocks the CPU for a number of edges before dumping the register file.
func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	def := cpu.DefaultConfig()
	opt := arg.New("rvrun")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "m", "mem", "Instruction memory size in slots.", def.MemSize, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "s", "start", "Slot index to load the program at and start fetching from.", 0, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "c", "cycles", "Number of clock edges to run.", 1, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "p", "period", "Clock period (e.g. 10ns). Empty runs edges back to back.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "r", "regs", "Initial register values, e.g. \"x1=8,x2=2\".", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "z", "no-zero", "Let instructions write x0.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "H", "halt", "Halt on an unsupported instruction instead of skipping it.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "e", "skip-empty", "Step over never-written slots instead of waiting on them.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "d", "reset-delay", "Edges consumed after reset before the first fetch.", 0, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "v", "verbose", "Log every cycle to stderr.", false, false, arg.VarBool, nil)
	opt.SetPositional("FILE", "Assembly source (.s, .asm) or little-endian binary.", "", true, arg.VarString)
	err := opt.Parse(os.Args)
	if err != nil {
		if err == arg.ErrNoArgs {
			opt.PrintHelp()
			return
		}
		log.Fatalf("Error parsing arguments: %v", err)
	}

	if opt.GetBool("help") {
		opt.PrintHelp()
		return
	}

	cfg := def
	cfg.MemSize = opt.GetInt("mem")
	start := opt.GetInt("start")
	if start < 0 {
		log.Fatalf("Start slot %d is negative", start)
	}
	cfg.Start = uint32(start)
	cycles := opt.GetInt("cycles")
	if cycles < 0 {
		log.Fatalf("Cycle count %d is negative", cycles)
	}
	cfg.ResetDelay = opt.GetInt("reset-delay")
	if cfg.ResetDelay < 0 {
		log.Fatalf("Reset delay %d is negative", cfg.ResetDelay)
	}
	cfg.SkipEmpty = opt.GetBool("skip-empty")
	cfg.HardwireZero = !opt.GetBool("no-zero")
	if opt.GetBool("halt") {
		cfg.Trap = cpu.TrapHalt
	}

	c := cpu.New(cfg)
	c.Logger = log
	if opt.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	path := opt.GetPosString("FILE")
	n, err := loadFile(c, path)
	if err != nil {
		log.Fatalf("Loading %s failed: %v", path, err)
	}

	err = forceRegisters(c, opt.GetString("regs"))
	if err != nil {
		log.Fatalf("Setting registers failed: %v", err)
	}

	fmt.Printf("Loaded %d words at slot %d\n\n", n, c.PC)
	fmt.Println("--- CPU State Before Execution ---")
	if err := c.DumpRegisters(os.Stdout); err != nil {
		log.Fatalf("Dumping registers failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = run(ctx, c, cycles, opt.GetString("period"))

	fmt.Println("\n--- CPU State After Execution ---")
	if derr := c.DumpRegisters(os.Stdout); derr != nil {
		log.Errorf("Dumping registers failed: %v", derr)
	}

	if err != nil {
		log.Fatalf("CPU execution failed: %v", err)
	}
	fmt.Println("\nExecution finished successfully.")
}

// run drives the CPU for cycles edges, either back to back or from a clock.
func run(ctx context.Context, c *cpu.CPU, cycles int, period string) error {
	if period == "" {
		return c.Run(ctx, cpu.Edges(cycles))
	}

	d, err := time.ParseDuration(period)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("clock period %v must be positive", d)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	edges := cpu.Clock{Period: d}.Start(ctx)
	limited := make(chan struct{})
	go func() {
		defer close(limited)
		for i := 0; i < cycles; i++ {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-edges:
				if !ok {
					return
				}
			}
			select {
			case limited <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c.Run(ctx, limited)
}
