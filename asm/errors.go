package asm

import "fmt"

// Diagnostic is one assembler error or warning, always carrying source
// position per spec.md §7 ("must include line and column ... stable
// enough for snapshot testing").
type Diagnostic struct {
	Line    int
	Column  int
	Kind    string // e.g. "UnknownMnemonic", matching spec.md §7's taxonomy
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Kind, d.Message)
}

func diag(line, col int, kind, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Line: line, Column: col, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
