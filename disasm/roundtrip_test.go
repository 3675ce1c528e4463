package disasm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixfiveohtwo/core/asm"
	"github.com/sixfiveohtwo/core/disasm"
)

// TestRoundTripAssembleDisassembleAssemble exercises spec.md's testable
// property: assembling a disassembly of an image reproduces the image,
// since disasm.Format's canonical operand text is exactly what the
// assembler's width heuristic (2 hex digits vs. 4) expects on the way back
// in.
func TestRoundTripAssembleDisassembleAssemble(t *testing.T) {
	src := `
.org $0600
start:  LDA #$01
        CLC
        ADC #$02
        STA $10
        LDX #$00
loop:   INX
        CPX #$05
        BNE loop
        LDY $1000,X
        STA ($10),Y
        JMP start
`
	first := asm.Assemble(src)
	require.Empty(t, first.Diagnostics)
	require.NotEmpty(t, first.Bytes)

	instrs := disasm.Disassemble(first.Bytes, first.BaseAddress, len(first.Bytes))
	require.NotEmpty(t, instrs)

	var b strings.Builder
	b.WriteString(".org $")
	b.WriteString(hex16(first.BaseAddress))
	b.WriteString("\n")
	for _, ins := range instrs {
		b.WriteString(disasm.Format(ins, disasm.Options{Uppercase: true}))
		b.WriteString("\n")
	}

	second := asm.Assemble(b.String())
	require.Empty(t, second.Diagnostics, "reassembly produced diagnostics: %v", second.Diagnostics)
	assert.Equal(t, first.Bytes, second.Bytes)
	assert.Equal(t, first.BaseAddress, second.BaseAddress)
}

func hex16(v uint16) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{
		digits[(v>>12)&0xF], digits[(v>>8)&0xF], digits[(v>>4)&0xF], digits[v&0xF],
	})
}
