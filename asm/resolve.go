package asm

import "github.com/sixfiveohtwo/core/opcode"

// branchMnemonics are the only mnemonics ever encoded in Relative mode.
var branchMnemonics = map[opcode.Mnemonic]bool{
	opcode.BCC: true, opcode.BCS: true, opcode.BEQ: true, opcode.BMI: true,
	opcode.BNE: true, opcode.BPL: true, opcode.BVC: true, opcode.BVS: true,
}

// resolveMode determines a instruction's addressing mode and the
// expression tokens carrying its numeric operand, from the raw operand
// token slice captured at parse time. It implements spec.md §4.5's
// zero-page/absolute disambiguation: a preferred mode is picked from the
// operand's surface form (hex digit count, decimal magnitude, or an
// explicit '<'/'>' byte extraction forcing zero-page); if the mnemonic
// has no encoding in that mode, the same-register counterpart (absolute
// for zero-page or vice versa) is tried before giving up.
func resolveMode(m opcode.Mnemonic, operand []token, sym *symtab, line int) (mode opcode.Mode, expr []token, diags []Diagnostic) {
	if len(operand) == 0 {
		return opcode.Implicit, nil, nil
	}
	if len(operand) == 1 && operand[0].kind == tokIdent && foldReg(operand[0].text) == "A" {
		return opcode.Accumulator, nil, nil
	}
	if operand[0].kind == tokImm {
		return opcode.Immediate, operand[1:], nil
	}
	if operand[0].kind == tokLParen {
		return resolveIndirect(operand, line)
	}
	if branchMnemonics[m] {
		return opcode.Relative, operand, nil
	}

	if reg, base, ok := splitIndexSuffix(operand); ok {
		narrow := preferNarrow(base, sym)
		var zpMode, absMode opcode.Mode
		if reg == "X" {
			zpMode, absMode = opcode.ZeroPageX, opcode.AbsoluteX
		} else {
			zpMode, absMode = opcode.ZeroPageY, opcode.AbsoluteY
		}
		return pickMode(m, narrow, zpMode, absMode), base, nil
	}

	narrow := preferNarrow(operand, sym)
	return pickMode(m, narrow, opcode.ZeroPage, opcode.Absolute), operand, nil
}

// pickMode tries the narrow-or-wide-preferred mode first, then its
// counterpart, so a mnemonic lacking one of the two forms (e.g. JMP has
// no zero-page form) still resolves instead of erroring.
func pickMode(m opcode.Mnemonic, narrow bool, zp, abs opcode.Mode) opcode.Mode {
	preferred, other := abs, zp
	if narrow {
		preferred, other = zp, abs
	}
	if _, ok := opcode.Encode(m, preferred); ok {
		return preferred
	}
	if _, ok := opcode.Encode(m, other); ok {
		return other
	}
	return preferred
}

// preferNarrow decides whether operand should prefer the zero-page-sized
// encoding: a literal written narrow (2 hex digits, or decimal/binary
// <= 255), a unary '<'/'>' byte extraction (always a single byte), or a
// known constant (not a label) whose value fits in a byte. A bare label
// reference defaults to absolute (wide) per spec.md §4.5, whether or not
// it has been defined yet.
func preferNarrow(operand []token, sym *symtab) bool {
	if len(operand) > 0 && (operand[0].kind == tokLT || operand[0].kind == tokGT) {
		return true
	}
	if wide, isBare := exprIsBareNumber(operand); isBare {
		return !wide
	}
	if name, ok := exprIsBareSymbol(operand); ok {
		if sym.isConst[name] {
			if v, found := sym.lookup(name); found {
				return v <= 0xFF
			}
		}
		return false
	}
	return false
}

// splitIndexSuffix reports whether operand ends in ",X" or ",Y", returning
// the register letter and the remaining base expression.
func splitIndexSuffix(operand []token) (reg string, base []token, ok bool) {
	n := len(operand)
	if n < 2 {
		return "", nil, false
	}
	last := operand[n-1]
	if last.kind != tokIdent {
		return "", nil, false
	}
	r := foldReg(last.text)
	if r != "X" && r != "Y" {
		return "", nil, false
	}
	if operand[n-2].kind != tokComma {
		return "", nil, false
	}
	return r, operand[:n-2], true
}

func resolveIndirect(operand []token, line int) (opcode.Mode, []token, []Diagnostic) {
	rparen := -1
	for i, t := range operand {
		if t.kind == tokRParen {
			rparen = i
			break
		}
	}
	if rparen == -1 {
		return opcode.Implicit, nil, []Diagnostic{diag(line, operand[0].col, "SyntaxError", "missing ')'")}
	}
	inside := operand[1:rparen]
	after := operand[rparen+1:]

	if len(inside) >= 2 && inside[len(inside)-1].kind == tokIdent && foldReg(inside[len(inside)-1].text) == "X" &&
		inside[len(inside)-2].kind == tokComma {
		if len(after) != 0 {
			return opcode.Implicit, nil, []Diagnostic{diag(line, after[0].col, "SyntaxError", "unexpected tokens after '(...,X)'")}
		}
		return opcode.IndexedIndirect, inside[:len(inside)-2], nil
	}
	if len(after) == 2 && after[0].kind == tokComma && after[1].kind == tokIdent && foldReg(after[1].text) == "Y" {
		return opcode.IndirectIndexed, inside, nil
	}
	if len(after) == 0 {
		return opcode.Indirect, inside, nil
	}
	return opcode.Implicit, nil, []Diagnostic{diag(line, operand[0].col, "SyntaxError", "malformed indirect operand")}
}

func foldReg(s string) string {
	if len(s) != 1 {
		return s
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return string(c)
}

// modeLength returns the encoded instruction length for mode: 1 for
// Implicit/Accumulator, 2 for every one-operand-byte mode (including
// Relative, whose operand is a signed offset), 3 for the two-operand-byte
// absolute-family modes.
func modeLength(mode opcode.Mode) int {
	switch mode {
	case opcode.Implicit, opcode.Accumulator:
		return 1
	case opcode.Absolute, opcode.AbsoluteX, opcode.AbsoluteY, opcode.Indirect:
		return 3
	default:
		return 2
	}
}
