// Command monitor is an interactive terminal inspector for the 6502 core:
// it loads a binary image onto a flat RAM bus, then lets a user single-step
// the CPU, watch registers and a page of memory update, and set
// breakpoints on PC.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sixfiveohtwo/core/cpu"
	"github.com/sixfiveohtwo/core/memory"
)

var (
	load = flag.Int("load", 0x0600, "address to load the image at")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [-load addr] <image.bin>", os.Args[0])
	}
	img, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	bus := memory.New()
	ram := memory.NewRAM(1 << 16)
	if err := bus.AddDevice(0, 1<<16, ram); err != nil {
		log.Fatal(err)
	}
	bus.PowerOn()

	addr := uint16(*load)
	for i, b := range img {
		bus.Write(addr+uint16(i), b)
	}
	bus.Write(cpu.ResetVector, uint8(addr&0xFF))
	bus.Write(cpu.ResetVector+1, uint8(addr>>8))

	chip := cpu.New(cpu.Config{Bus: bus})

	m := model{chip: chip, bus: bus, pageStart: addr & 0xFFF0}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
