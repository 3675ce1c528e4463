package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassembleDocumentedInstructions(t *testing.T) {
	// LDA #$05; LDA $10; LDA $0010 (forced absolute via a second opcode
	// byte that only exists in the 3-byte form); LDA $10,X; LDA ($10,X);
	// LDA ($10),Y
	img := []uint8{
		0xA9, 0x05, // LDA #$05
		0xA5, 0x10, // LDA $10
		0xAD, 0x10, 0x00, // LDA $0010
		0xB5, 0x10, // LDA $10,X
		0xA1, 0x10, // LDA ($10,X)
		0xB1, 0x10, // LDA ($10),Y
	}
	got := Disassemble(img, 0x0600, len(img))
	require.Len(t, got, 6)

	want := []struct {
		mnemonic string
		operand  string
		addr     uint16
	}{
		{"LDA", "#$05", 0x0600},
		{"LDA", "$10", 0x0602},
		{"LDA", "$0010", 0x0604},
		{"LDA", "$10,X", 0x0607},
		{"LDA", "($10,X)", 0x0609},
		{"LDA", "($10),Y", 0x060B},
	}
	for i, w := range want {
		assert.Equal(t, w.mnemonic, got[i].Mnemonic, "instruction %d mnemonic", i)
		assert.Equal(t, w.operand, got[i].Operand, "instruction %d operand", i)
		assert.Equal(t, w.addr, got[i].Address, "instruction %d address", i)
		assert.False(t, got[i].IsData)
	}
}

func TestDisassembleInvalidOpcodeIsData(t *testing.T) {
	img := []uint8{0xEA, 0x02, 0xEA} // NOP; invalid; NOP
	got := Disassemble(img, 0x0000, len(img))
	require.Len(t, got, 3)

	assert.False(t, got[0].IsData)
	assert.Equal(t, "NOP", got[0].Mnemonic)

	assert.True(t, got[1].IsData)
	assert.Equal(t, ".byte", got[1].Mnemonic)
	assert.Equal(t, "$02", got[1].Operand)
	assert.Equal(t, []uint8{0x02}, got[1].Bytes)

	assert.False(t, got[2].IsData)
}

func TestDisassembleRelativeBranchUsesAbsoluteTarget(t *testing.T) {
	// BEQ with offset 0x02 at $0600: target = $0600 + 2 + 2 = $0604.
	img := []uint8{0xF0, 0x02}
	got := Disassemble(img, 0x0600, len(img))
	require.Len(t, got, 1)
	assert.Equal(t, "BEQ", got[0].Mnemonic)
	assert.Equal(t, "$0604", got[0].Operand)
}

func TestDisassembleNegativeBranchOffset(t *testing.T) {
	// BNE with offset 0xFE (-2) at $0600: target = $0600 + 2 - 2 = $0600.
	img := []uint8{0xD0, 0xFE}
	got := Disassemble(img, 0x0600, len(img))
	require.Len(t, got, 1)
	assert.Equal(t, "$0600", got[0].Operand)
}

func TestFormat(t *testing.T) {
	ins := Instruction{Address: 0x0600, Bytes: []uint8{0xA9, 0x05}, Mnemonic: "LDA", Operand: "#$05"}

	assert.Equal(t, "lda #$05", Format(ins, Options{}))
	assert.Equal(t, "LDA #$05", Format(ins, Options{Uppercase: true}))
	assert.Equal(t, "0600  LDA #$05", Format(ins, Options{IncludeAddresses: true, Uppercase: true}))

	withBytes := Format(ins, Options{IncludeBytes: true, Uppercase: true})
	assert.Contains(t, withBytes, "A9 05")
	assert.Contains(t, withBytes, "LDA #$05")
}

func TestDisassembleTruncatedFinalInstructionReadsZero(t *testing.T) {
	// LDA absolute needs 3 bytes but only 2 are supplied.
	img := []uint8{0xAD, 0x10}
	got := Disassemble(img, 0x0000, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "$0010", got[0].Operand)
	require.Len(t, got[0].Bytes, 3)
	assert.Equal(t, uint8(0), got[0].Bytes[2])
}
