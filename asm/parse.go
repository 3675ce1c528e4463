package asm

import "github.com/sixfiveohtwo/core/opcode"

type stmtKind int

const (
	stmtLabelOnly stmtKind = iota
	stmtConst
	stmtOrg
	stmtByte
	stmtWord
	stmtText
	stmtInstruction
)

// statement is one parsed source line. label is set whenever the line
// binds a symbol to the current location counter, independent of kind
// (a label may prefix a directive or instruction on the same line).
type statement struct {
	kind  stmtKind
	label string
	line  int

	// stmtConst
	constName string
	constExpr []token

	// stmtOrg / stmtByte / stmtWord: one expression per emitted value
	exprLists []exprAt

	// stmtText
	text string
	col  int // head token column, for stmtOrg/stmtByte/stmtWord/stmtText diagnostics

	// stmtInstruction
	mnemonic opcode.Mnemonic
	mode     opcode.Mode
	operand  []token // the expression tokens only (indexing/parens stripped)
	mnemCol  int

	// address is the location counter's value when this statement was
	// reached in pass 1; pass 2 reuses it verbatim rather than recomputing
	// (the two passes would otherwise have to agree on every .org and
	// directive-size evaluation a second time).
	address uint16
	length  int // byte length; 0 for stmtLabelOnly/stmtConst
}

// exprAt pairs an expression's tokens with the column its first token
// started at, for diagnostics that point at a specific value in a
// comma-separated directive list.
type exprAt struct {
	tokens []token
	col    int
}

// parseLine tokenizes and parses one source line (already comment- and
// newline-stripped). Returns nil, nil for a blank line.
func parseLine(raw string, lineNo int) (*statement, []Diagnostic) {
	toks, err := lexLine(raw)
	if err != nil {
		le := err.(*lexError)
		return nil, []Diagnostic{diag(lineNo, le.col, "SyntaxError", "%s", le.msg)}
	}
	if len(toks) == 0 {
		return nil, nil
	}

	st := &statement{kind: stmtLabelOnly, line: lineNo}

	// "NAME = expr" constant definition takes priority: a bare label is
	// never followed directly by '='.
	if len(toks) >= 2 && toks[0].kind == tokIdent && toks[1].kind == tokEquals {
		st.kind = stmtConst
		st.constName = toks[0].text
		st.constExpr = toks[2:]
		return st, nil
	}

	// Explicit "label:" prefix.
	if len(toks) >= 2 && toks[0].kind == tokIdent && toks[1].kind == tokColon {
		st.label = toks[0].text
		toks = toks[2:]
	} else if len(toks) > 1 && toks[0].kind == tokIdent && !isKeyword(toks[0].text) &&
		toks[1].kind == tokIdent && isKeyword(toks[1].text) {
		// Colonless label: an identifier at line start that isn't itself a
		// mnemonic or directive, directly followed by a mnemonic or directive.
		st.label = toks[0].text
		toks = toks[1:]
	}

	if len(toks) == 0 {
		return st, nil // label-only line
	}

	head := toks[0]
	if head.kind != tokIdent {
		return nil, []Diagnostic{diag(lineNo, head.col, "SyntaxError", "expected a mnemonic, directive, or label")}
	}

	if isDirective(head.text) {
		return parseDirective(st, head, toks[1:], lineNo)
	}

	m, ok := opcode.ByName(head.text)
	if !ok {
		return nil, []Diagnostic{diag(lineNo, head.col, "UnknownMnemonic", "unknown mnemonic %q", head.text)}
	}
	st.kind = stmtInstruction
	st.mnemonic = m
	st.mnemCol = head.col
	st.operand = toks[1:]
	return st, nil
}

// isKeyword reports whether name is a mnemonic or directive, used to
// disambiguate a colonless label from an instruction/directive at line
// start.
func isKeyword(name string) bool {
	if isDirective(name) {
		return true
	}
	_, ok := opcode.ByName(name)
	return ok
}

func isDirective(name string) bool {
	switch foldDirective(name) {
	case ".org", ".byte", ".word", ".ascii", ".text":
		return true
	}
	return false
}

func foldDirective(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

func parseDirective(st *statement, head token, rest []token, lineNo int) (*statement, []Diagnostic) {
	st.col = head.col
	switch foldDirective(head.text) {
	case ".org":
		st.kind = stmtOrg
		st.exprLists = []exprAt{{tokens: rest, col: head.col}}
	case ".byte":
		st.kind = stmtByte
		st.exprLists = splitByComma(rest, head.col)
	case ".word":
		st.kind = stmtWord
		st.exprLists = splitByComma(rest, head.col)
	case ".ascii", ".text":
		st.kind = stmtText
		if len(rest) != 1 || rest[0].kind != tokString {
			return nil, []Diagnostic{diag(lineNo, head.col, "SyntaxError", "%s expects a single string literal", head.text)}
		}
		st.text = rest[0].text
	}
	if len(st.exprLists) == 0 && (st.kind == stmtByte || st.kind == stmtWord) {
		return nil, []Diagnostic{diag(lineNo, head.col, "SyntaxError", "%s expects at least one value", head.text)}
	}
	return st, nil
}

func splitByComma(toks []token, fallbackCol int) []exprAt {
	var out []exprAt
	start := 0
	col := fallbackCol
	if len(toks) > 0 {
		col = toks[0].col
	}
	for i, t := range toks {
		if t.kind == tokComma {
			out = append(out, exprAt{tokens: toks[start:i], col: col})
			start = i + 1
			if start < len(toks) {
				col = toks[start].col
			}
		}
	}
	if start <= len(toks) {
		tail := toks[start:]
		if len(tail) > 0 || len(out) > 0 {
			out = append(out, exprAt{tokens: tail, col: col})
		}
	}
	return out
}
