package asm

import (
	"strings"

	"github.com/sixfiveohtwo/core/opcode"
)

// SourceMapEntry ties one emitted span of bytes back to the source line
// and column that produced it, per spec.md §4.5's source map requirement.
type SourceMapEntry struct {
	SourceLine   int
	SourceColumn int
	Address      uint16
	Length       int
}

// Output is the result of Assemble: the emitted image (bytes[0] is the
// lowest address touched by any statement), its source map, and every
// diagnostic collected across both passes. A non-empty Diagnostics slice
// does not necessarily mean Bytes is empty — assembly keeps going after an
// error so a caller sees every problem in one run, per spec.md §7.
type Output struct {
	Bytes       []uint8
	BaseAddress uint16
	SourceMap   []SourceMapEntry
	Diagnostics []Diagnostic
}

// Assemble runs the two-pass assembler described in spec.md §4.5 over
// source text and returns the emitted image plus diagnostics.
func Assemble(text string) Output {
	lines := strings.Split(text, "\n")
	stmts := make([]*statement, 0, len(lines))
	var diags []Diagnostic

	for i, raw := range lines {
		lineNo := i + 1
		st, d := parseLine(stripComment(raw), lineNo)
		diags = append(diags, d...)
		if st != nil {
			stmts = append(stmts, st)
		}
	}

	sym := newSymtab()
	diags = append(diags, pass1(stmts, sym)...)
	bytes, base, srcMap, d2 := pass2(stmts, sym)
	diags = append(diags, d2...)

	return Output{Bytes: bytes, BaseAddress: base, SourceMap: srcMap, Diagnostics: diags}
}

// pass1 walks the parsed statements once, binding every label and
// "NAME = expr" constant to the symbol table and recording each
// statement's start address and emitted length. A later statement's
// addressing-mode resolution and directive sizing only ever depends on
// symbols bound earlier in this same walk, so pass 2 can reuse the
// addresses recorded here verbatim instead of recomputing the location
// counter a second time.
func pass1(stmts []*statement, sym *symtab) []Diagnostic {
	var diags []Diagnostic
	var lc uint32

	bind := func(name string, line int, val uint16, isConst bool) {
		if _, exists := sym.lookup(name); exists {
			diags = append(diags, diag(line, 1, "DuplicateSymbol", "symbol %q already defined", name))
			return
		}
		sym.values[name] = val
		if isConst {
			sym.isConst[name] = true
		}
	}

	for _, st := range stmts {
		if st.label != "" {
			bind(st.label, st.line, uint16(lc), false)
		}
		st.address = uint16(lc)

		switch st.kind {
		case stmtLabelOnly:
			// nothing to size

		case stmtConst:
			val, d := evalExpr(st.constExpr, st.line, sym)
			diags = append(diags, d...)
			bind(st.constName, st.line, uint16(val), true)

		case stmtOrg:
			val, d := evalExpr(st.exprLists[0].tokens, st.line, sym)
			diags = append(diags, d...)
			lc = uint32(uint16(val))
			st.address = uint16(lc)

		case stmtByte:
			st.length = len(st.exprLists)
			lc += uint32(st.length)

		case stmtWord:
			st.length = len(st.exprLists) * 2
			lc += uint32(st.length)

		case stmtText:
			st.length = len(st.text)
			lc += uint32(st.length)

		case stmtInstruction:
			mode, expr, d := resolveMode(st.mnemonic, st.operand, sym, st.line)
			diags = append(diags, d...)
			st.mode = mode
			st.operand = expr
			st.length = modeLength(mode)
			lc += uint32(st.length)
		}
	}
	return diags
}

// image accumulates emitted bytes over the full 64KiB address space so
// statements can write at whatever address .org put them, in any order,
// while still catching overlap between two statements that land on the
// same byte (spec.md's documented policy: overlapping emission is an
// error, not a silent last-write-wins).
type image struct {
	bytes   [65536]uint8
	touched [65536]bool
	lo, hi  int
}

func newImage() *image {
	return &image{lo: -1, hi: -1}
}

func (im *image) emit(addr uint16, b uint8, line, col int, diags *[]Diagnostic) {
	if im.touched[addr] {
		*diags = append(*diags, diag(line, col, "OverlappingEmission", "byte at $%04X already emitted by an earlier statement", addr))
	}
	im.bytes[addr] = b
	im.touched[addr] = true
	if im.lo == -1 || int(addr) < im.lo {
		im.lo = int(addr)
	}
	if int(addr) > im.hi {
		im.hi = int(addr)
	}
}

func pass2(stmts []*statement, sym *symtab) (out []uint8, base uint16, srcMap []SourceMapEntry, diags []Diagnostic) {
	im := newImage()

	for _, st := range stmts {
		switch st.kind {
		case stmtLabelOnly, stmtConst, stmtOrg:
			continue

		case stmtByte:
			for i, e := range st.exprLists {
				val, d := evalExpr(e.tokens, st.line, sym)
				diags = append(diags, d...)
				if val < 0 || val > 0xFF {
					diags = append(diags, diag(st.line, e.col, "ValueOutOfRange", "byte value %d out of range 0..255", val))
					val = 0
				}
				im.emit(st.address+uint16(i), uint8(val), st.line, e.col, &diags)
			}
			srcMap = append(srcMap, SourceMapEntry{SourceLine: st.line, SourceColumn: st.col, Address: st.address, Length: st.length})

		case stmtWord:
			for i, e := range st.exprLists {
				val, d := evalExpr(e.tokens, st.line, sym)
				diags = append(diags, d...)
				if val < 0 || val > 0xFFFF {
					diags = append(diags, diag(st.line, e.col, "ValueOutOfRange", "word value %d out of range 0..65535", val))
					val = 0
				}
				addr := st.address + uint16(i*2)
				im.emit(addr, uint8(val&0xFF), st.line, e.col, &diags)
				im.emit(addr+1, uint8((val>>8)&0xFF), st.line, e.col, &diags)
			}
			srcMap = append(srcMap, SourceMapEntry{SourceLine: st.line, SourceColumn: st.col, Address: st.address, Length: st.length})

		case stmtText:
			for i := 0; i < len(st.text); i++ {
				im.emit(st.address+uint16(i), st.text[i], st.line, st.col, &diags)
			}
			srcMap = append(srcMap, SourceMapEntry{SourceLine: st.line, SourceColumn: st.col, Address: st.address, Length: st.length})

		case stmtInstruction:
			op, ok := opcode.Encode(st.mnemonic, st.mode)
			if !ok {
				diags = append(diags, diag(st.line, st.mnemCol, "InvalidAddressingMode",
					"%s does not support the addressing mode implied by its operand", st.mnemonic))
				continue
			}
			im.emit(st.address, op, st.line, st.mnemCol, &diags)

			switch st.mode {
			case opcode.Implicit, opcode.Accumulator:
				// no operand bytes

			case opcode.Relative:
				target, d := evalExpr(st.operand, st.line, sym)
				diags = append(diags, d...)
				offset := target - (int64(st.address) + 2)
				if offset < -128 || offset > 127 {
					diags = append(diags, diag(st.line, st.mnemCol, "BranchOutOfRange", "branch target out of range (offset %d)", offset))
					offset = 0
				}
				im.emit(st.address+1, uint8(int8(offset)), st.line, st.mnemCol, &diags)

			case opcode.Absolute, opcode.AbsoluteX, opcode.AbsoluteY, opcode.Indirect:
				val, d := evalExpr(st.operand, st.line, sym)
				diags = append(diags, d...)
				if val < 0 || val > 0xFFFF {
					diags = append(diags, diag(st.line, st.mnemCol, "ValueOutOfRange", "operand %d out of range 0..65535", val))
					val = 0
				}
				im.emit(st.address+1, uint8(val&0xFF), st.line, st.mnemCol, &diags)
				im.emit(st.address+2, uint8((val>>8)&0xFF), st.line, st.mnemCol, &diags)

			default: // Immediate, ZeroPage, ZeroPageX, ZeroPageY, IndexedIndirect, IndirectIndexed
				val, d := evalExpr(st.operand, st.line, sym)
				diags = append(diags, d...)
				if val < 0 || val > 0xFF {
					diags = append(diags, diag(st.line, st.mnemCol, "ValueOutOfRange", "operand %d out of range 0..255", val))
					val = 0
				}
				im.emit(st.address+1, uint8(val), st.line, st.mnemCol, &diags)
			}
			srcMap = append(srcMap, SourceMapEntry{SourceLine: st.line, SourceColumn: st.mnemCol, Address: st.address, Length: st.length})
		}
	}

	if im.lo == -1 {
		return nil, 0, srcMap, diags
	}
	out = make([]uint8, im.hi-im.lo+1)
	copy(out, im.bytes[im.lo:im.hi+1])
	return out, uint16(im.lo), srcMap, diags
}
