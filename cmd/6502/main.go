// Command 6502 is a multi-subcommand front end over the core's assembler,
// disassembler, and CPU: "assemble" turns source into a binary image,
// "disassemble" turns an image back into source text, and "run" executes
// an image against a flat RAM bus with a UART-6551 mapped in for output.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sixfiveohtwo/core/asm"
	"github.com/sixfiveohtwo/core/cpu"
	"github.com/sixfiveohtwo/core/disasm"
	"github.com/sixfiveohtwo/core/memory"
)

func main() {
	app := &cli.App{
		Name:  "6502",
		Usage: "assemble, disassemble, and run 6502 programs",
		Commands: []*cli.Command{
			assembleCommand(),
			disassembleCommand(),
			runCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func assembleCommand() *cli.Command {
	return &cli.Command{
		Name:      "assemble",
		Usage:     "assemble a source file into a binary image",
		ArgsUsage: "<source.s>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (defaults to stdout)"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("exactly one source file required", 1)
			}
			src, err := os.ReadFile(c.Args().First())
			if err != nil {
				return cli.Exit(err, 1)
			}
			out := asm.Assemble(string(src))
			for _, d := range out.Diagnostics {
				fmt.Fprintln(os.Stderr, d.String())
			}
			if len(out.Diagnostics) > 0 {
				return cli.Exit("assembly failed", 2)
			}
			if dst := c.String("out"); dst != "" {
				return os.WriteFile(dst, out.Bytes, 0o644)
			}
			_, err = os.Stdout.Write(out.Bytes)
			return err
		},
	}
}

func disassembleCommand() *cli.Command {
	return &cli.Command{
		Name:      "disassemble",
		Usage:     "disassemble a binary image into source text",
		ArgsUsage: "<image.bin>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "start", Value: 0x0000, Usage: "address of the first byte of the image"},
			&cli.BoolFlag{Name: "addresses", Usage: "prefix each line with its address"},
			&cli.BoolFlag{Name: "bytes", Usage: "prefix each line with its encoded bytes"},
			&cli.BoolFlag{Name: "upper", Usage: "emit uppercase mnemonics and operands"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("exactly one image file required", 1)
			}
			img, err := os.ReadFile(c.Args().First())
			if err != nil {
				return cli.Exit(err, 1)
			}
			start := uint16(c.Int("start"))
			opts := disasm.Options{
				IncludeAddresses: c.Bool("addresses"),
				IncludeBytes:     c.Bool("bytes"),
				Uppercase:        c.Bool("upper"),
			}
			for _, ins := range disasm.Disassemble(img, start, len(img)) {
				fmt.Println(disasm.Format(ins, opts))
			}
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "load a binary image and execute it against a RAM bus with a UART",
		ArgsUsage: "<image.bin>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "load", Value: 0x0600, Usage: "address to load the image at"},
			&cli.IntFlag{Name: "reset", Value: -1, Usage: "reset vector override (defaults to -load-)"},
			&cli.IntFlag{Name: "uart", Value: 0xD000, Usage: "base address of the UART-6551"},
			&cli.Uint64Flag{Name: "max-steps", Value: 1_000_000, Usage: "halt after this many instructions even if not halted"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("exactly one image file required", 1)
			}
			img, err := os.ReadFile(c.Args().First())
			if err != nil {
				return cli.Exit(err, 1)
			}

			uartBase := uint16(c.Int("uart"))
			bus := memory.New()
			if err := bus.AddDevice(0x0000, int(uartBase), memory.NewRAM(int(uartBase))); err != nil {
				return cli.Exit(err, 1)
			}
			uart := memory.NewUART6551(func(b uint8) { fmt.Fprintf(os.Stdout, "%c", b) })
			if err := bus.AddDevice(uartBase, 4, uart); err != nil {
				return cli.Exit(err, 1)
			}
			if rest := 1<<16 - (int(uartBase) + 4); rest > 0 {
				if err := bus.AddDevice(uartBase+4, rest, memory.NewRAM(rest)); err != nil {
					return cli.Exit(err, 1)
				}
			}
			bus.PowerOn()

			load := uint16(c.Int("load"))
			for i, b := range img {
				bus.Write(load+uint16(i), b)
			}
			resetVec := load
			if c.Int("reset") >= 0 {
				resetVec = uint16(c.Int("reset"))
			}
			bus.Write(cpu.ResetVector, uint8(resetVec&0xFF))
			bus.Write(cpu.ResetVector+1, uint8(resetVec>>8))

			chip := cpu.New(cpu.Config{Bus: bus, IRQ: uart})
			steps := uint64(0)
			maxSteps := c.Uint64("max-steps")
			for !chip.Halted() && steps < maxSteps {
				chip.Step()
				steps++
			}
			if chip.Halted() {
				fmt.Fprintf(os.Stderr, "\nhalted on invalid opcode $%02X at pc=$%04X\n", chip.HaltOpcode(), chip.Registers().PC)
			}
			return nil
		},
	}
}
