// Package disasm walks a 6502 byte image and produces a linear-sweep
// disassembly: one record per instruction (or raw data byte for opcodes
// the table marks invalid). It does not follow control flow; the same
// byte can decode differently depending only on where the sweep started.
package disasm

import (
	"fmt"
	"strings"

	"github.com/sixfiveohtwo/core/opcode"
)

// Instruction is one decoded record: either a real instruction or, for an
// invalid opcode byte, a single-byte data record (Mnemonic ".byte").
type Instruction struct {
	Address  uint16
	Bytes    []uint8
	Mnemonic string
	Operand  string
	IsData   bool
}

// Options controls how Format renders an Instruction back to text.
// IncludeAddresses and IncludeBytes are independent of each other and of
// Uppercase. With Uppercase false the whole line (mnemonic, operand and
// byte dump) is lowercased; with it true the line is left as built.
type Options struct {
	IncludeAddresses bool
	IncludeBytes     bool
	Uppercase        bool
}

// Disassemble walks img, whose first byte sits at address start, for
// length bytes (clamped to the image bounds) and returns one Instruction
// per opcode or invalid byte encountered. Reading past the end of img for
// an instruction's trailing operand bytes returns zero, matching a
// truncated final instruction.
func Disassemble(img []uint8, start uint16, length int) []Instruction {
	var out []Instruction
	read := func(addr uint16) uint8 {
		if i := int(addr - start); i < len(img) {
			return img[i]
		}
		return 0
	}

	if length > len(img) {
		length = len(img)
	}
	for off := 0; off < length; {
		pc := start + uint16(off)
		op := read(pc)
		desc := opcode.Table[op]
		if desc.Mnemonic == opcode.Invalid {
			out = append(out, Instruction{
				Address:  pc,
				Bytes:    []uint8{op},
				Mnemonic: ".byte",
				Operand:  fmt.Sprintf("$%02X", op),
				IsData:   true,
			})
			off++
			continue
		}

		raw := make([]uint8, desc.Length)
		for i := range raw {
			raw[i] = read(pc + uint16(i))
		}
		out = append(out, Instruction{
			Address:  pc,
			Bytes:    raw,
			Mnemonic: desc.Mnemonic.String(),
			Operand:  formatOperand(desc, raw, pc),
			IsData:   false,
		})
		off += desc.Length
	}
	return out
}

// formatOperand renders raw's operand bytes per desc.Mode into the
// canonical textual form the assembler package accepts verbatim.
func formatOperand(desc opcode.Descriptor, raw []uint8, pc uint16) string {
	switch desc.Mode {
	case opcode.Implicit:
		return ""
	case opcode.Accumulator:
		return "A"
	case opcode.Immediate:
		return fmt.Sprintf("#$%02X", raw[1])
	case opcode.ZeroPage:
		return fmt.Sprintf("$%02X", raw[1])
	case opcode.ZeroPageX:
		return fmt.Sprintf("$%02X,X", raw[1])
	case opcode.ZeroPageY:
		return fmt.Sprintf("$%02X,Y", raw[1])
	case opcode.Absolute:
		return fmt.Sprintf("$%02X%02X", raw[2], raw[1])
	case opcode.AbsoluteX:
		return fmt.Sprintf("$%02X%02X,X", raw[2], raw[1])
	case opcode.AbsoluteY:
		return fmt.Sprintf("$%02X%02X,Y", raw[2], raw[1])
	case opcode.Indirect:
		return fmt.Sprintf("($%02X%02X)", raw[2], raw[1])
	case opcode.IndexedIndirect:
		return fmt.Sprintf("($%02X,X)", raw[1])
	case opcode.IndirectIndexed:
		return fmt.Sprintf("($%02X),Y", raw[1])
	case opcode.Relative:
		// The operand is a signed offset in the byte stream, but the
		// canonical form is the absolute branch target (spec.md §4.4).
		target := uint16(int32(pc) + 2 + int32(int8(raw[1])))
		return fmt.Sprintf("$%04X", target)
	}
	return ""
}

// Format renders one Instruction as a single assembly-source line per
// opts. With every option false this is just "MNEMONIC OPERAND", the form
// the assembler package re-parses without alteration.
func Format(ins Instruction, opts Options) string {
	var b strings.Builder
	if opts.IncludeAddresses {
		fmt.Fprintf(&b, "%04X  ", ins.Address)
	}
	if opts.IncludeBytes {
		for i := 0; i < 3; i++ {
			if i < len(ins.Bytes) {
				fmt.Fprintf(&b, "%02X ", ins.Bytes[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" ")
	}
	b.WriteString(ins.Mnemonic)
	if ins.Operand != "" {
		b.WriteString(" ")
		b.WriteString(ins.Operand)
	}
	line := b.String()
	if !opts.Uppercase {
		return strings.ToLower(line)
	}
	return line
}
