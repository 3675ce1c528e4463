// dis6502 loads a flat binary image and disassembles it to stdout starting
// at the given PC. Unlike the teacher's C64/PRG-aware tool, this core has
// no cartridge or BASIC-listing format to special-case: the image is
// always treated as a raw byte stream loaded at -offset.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sixfiveohtwo/core/disasm"
)

var (
	startPC = flag.Int("start_pc", 0x0000, "PC value to start disassembling")
	offset  = flag.Int("offset", 0x0000, "offset into the 64K address space the image is loaded at")
	addrs     = flag.Bool("addresses", true, "prefix each line with its address")
	showBytes = flag.Bool("bytes", true, "prefix each line with its encoded bytes")
	upper     = flag.Bool("upper", false, "emit uppercase mnemonics and operands")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-start_pc <PC> -offset <offset>] <filename>", os.Args[0])
	}
	fn := flag.Args()[0]

	b, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("Can't open %s - %v", fn, err)
	}

	max := 1<<16 - *offset
	if l := len(b); l > max {
		log.Printf("Length %d at offset %d too long, truncating to 64k", l, *offset)
		b = b[:max]
	}

	img := make([]uint8, *offset+len(b))
	copy(img[*offset:], b)

	pc := uint16(*startPC)
	if *startPC == 0x0000 {
		pc = uint16(*offset)
	}

	fmt.Printf("0x%.2X bytes at pc: %.4X\n", len(b), pc)
	opts := disasm.Options{IncludeAddresses: *addrs, IncludeBytes: *showBytes, Uppercase: *upper}
	for _, ins := range disasm.Disassemble(img[min(int(pc), len(img)):], pc, len(img)-int(pc)) {
		fmt.Println(disasm.Format(ins, opts))
	}
}
