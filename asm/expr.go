package asm

// symtab resolves symbol references during expression evaluation: labels
// bind addresses, constants bind arbitrary 16-bit values. Both live in one
// namespace (spec.md's symbol table is keyed by label name; constants from
// "NAME = expr" share it here since nothing in the grammar lets the two
// collide without a DuplicateSymbol).
type symtab struct {
	values  map[string]uint16
	isConst map[string]bool
}

func newSymtab() *symtab {
	return &symtab{values: map[string]uint16{}, isConst: map[string]bool{}}
}

func (s *symtab) lookup(name string) (uint16, bool) {
	v, ok := s.values[name]
	return v, ok
}

// evalExpr evaluates tokens per spec.md §4.5's grammar: an optional
// leading unary '<'/'>' applied to the whole expression's final value,
// then atoms (numbers, character literals, symbol references) combined
// left to right with '+'/'-'. There is no operator precedence beyond
// unary-before-binary.
func evalExpr(tokens []token, line int, sym *symtab) (int64, []Diagnostic) {
	if len(tokens) == 0 {
		return 0, []Diagnostic{diag(line, 0, "SyntaxError", "empty expression")}
	}

	var unary tokenKind
	hasUnary := false
	if tokens[0].kind == tokLT || tokens[0].kind == tokGT {
		unary = tokens[0].kind
		hasUnary = true
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return 0, []Diagnostic{diag(line, 0, "SyntaxError", "unary operator with no operand")}
	}

	val, diags := evalAtom(tokens[0], line, sym)
	tokens = tokens[1:]
	for len(tokens) >= 2 {
		op := tokens[0]
		if op.kind != tokPlus && op.kind != tokMinus {
			diags = append(diags, diag(line, op.col, "SyntaxError", "expected '+' or '-'"))
			break
		}
		rhs, d := evalAtom(tokens[1], line, sym)
		diags = append(diags, d...)
		if op.kind == tokPlus {
			val += rhs
		} else {
			val -= rhs
		}
		tokens = tokens[2:]
	}
	if len(tokens) == 1 {
		diags = append(diags, diag(line, tokens[0].col, "SyntaxError", "dangling token in expression"))
	}

	if hasUnary {
		if unary == tokLT {
			val &= 0xFF
		} else {
			val = (val >> 8) & 0xFF
		}
	}
	return val, diags
}

func evalAtom(tok token, line int, sym *symtab) (int64, []Diagnostic) {
	switch tok.kind {
	case tokNumber:
		return tok.num, nil
	case tokIdent:
		if v, ok := sym.lookup(tok.text); ok {
			return int64(v), nil
		}
		return 0, []Diagnostic{diag(line, tok.col, "UndefinedSymbol", "undefined symbol %q", tok.text)}
	}
	return 0, []Diagnostic{diag(line, tok.col, "SyntaxError", "expected a number or symbol")}
}

// exprIsBareNumber reports whether tokens is a single numeric literal, and
// if so whether its source spelling is "wide" per spec.md §4.5's
// disambiguation rule: written as 4 hex digits, or a decimal/binary value
// over 255. A 2-hex-digit (or ≤255 decimal/binary) literal is zero-page-
// sized ("narrow").
func exprIsBareNumber(tokens []token) (wide bool, isBare bool) {
	if len(tokens) != 1 || tokens[0].kind != tokNumber {
		return false, false
	}
	t := tokens[0]
	if t.radix == '$' {
		return len(t.text) > 2, true
	}
	return t.num > 255, true
}

// exprIsBareSymbol reports whether tokens is a single identifier reference
// (no arithmetic), returning its name.
func exprIsBareSymbol(tokens []token) (name string, ok bool) {
	if len(tokens) == 1 && tokens[0].kind == tokIdent {
		return tokens[0].text, true
	}
	return "", false
}
