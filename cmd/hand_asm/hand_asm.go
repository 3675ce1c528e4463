// hand_asm reads a disassembly listing and reassembles it back to a
// binary image. It expects the address+bytes form that
// "6502 disassemble -addresses -bytes" (or dis6502) produces: each line
// starts with a four-hex-digit address, then up to three two-hex-digit
// byte columns, then the mnemonic text (ignored). This is the teacher's
// listing-to-binary idiom, retargeted from a third-party assembler
// listing format to this repo's own disassembler output, so a listing
// can be hand-edited and fed back in to produce a test fixture.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	offset = flag.Int("offset", 0x0000, "Low end of the output image if no listing line starts below it.")
)

var lineRE = regexp.MustCompile(`^([0-9A-Fa-f]{4})\s+((?:[0-9A-Fa-f]{2}\s+){1,3})`)

func main() {
	flag.Parse()
	if len(flag.Args()) != 2 {
		log.Fatalf("Invalid command: %s <listing> <output.bin>", os.Args[0])
	}
	fn := flag.Args()[0]
	out := flag.Args()[1]

	f, err := os.Open(fn)
	if err != nil {
		log.Fatalf("Can't open %q - %v", fn, err)
	}
	defer f.Close()

	var img [65536]uint8
	lo, hi := -1, -1

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		m := lineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue // not a listing line (blank, header, comment)
		}
		addr, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			log.Fatalf("line %d: bad address %q: %v", lineNo, m[1], err)
		}
		for i, tok := range strings.Fields(m[2]) {
			v, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				log.Fatalf("line %d: bad byte %q: %v", lineNo, tok, err)
			}
			a := (int(addr) + i) & 0xFFFF
			img[a] = uint8(v)
			if lo == -1 || a < lo {
				lo = a
			}
			if a > hi {
				hi = a
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("error reading %q: %v", fn, err)
	}
	if lo == -1 {
		log.Fatalf("no listing lines recognized in %q", fn)
	}
	if *offset > 0 && *offset < lo {
		lo = *offset
	}

	output := make([]byte, hi-lo+1)
	copy(output, img[lo:hi+1])

	of, err := os.Create(out)
	if err != nil {
		log.Fatalf("Can't open output %q - %v", out, err)
	}
	if _, err := of.Write(output); err != nil {
		log.Fatalf("Got error writing to %q - %v", out, err)
	}
	if err := of.Close(); err != nil {
		log.Fatalf("Error closing %q - %v", out, err)
	}
	fmt.Printf("wrote 0x%X bytes ($%04X-$%04X) to %s\n", len(output), lo, hi, out)
}
