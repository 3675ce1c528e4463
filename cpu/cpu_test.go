package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/sixfiveohtwo/core/memory"
)

// newTestChip builds a Chip over a full 64KiB RAM bus, loads program at org,
// and points the reset vector at org before powering on.
func newTestChip(t *testing.T, program []uint8, org uint16) (*Chip, *memory.Bus) {
	t.Helper()
	bus := memory.New()
	ram := memory.NewRAM(1 << 16)
	if err := bus.AddDevice(0, 1<<16, ram); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	img := make([]uint8, 1<<16)
	img[ResetVector] = uint8(org & 0xFF)
	img[ResetVector+1] = uint8(org >> 8)
	copy(img[org:], program)
	ram.Load(img)

	c := New(Config{Bus: bus})
	return c, bus
}

func TestResetVector(t *testing.T) {
	c, _ := newTestChip(t, []uint8{0xEA}, 0x0600)
	if c.PC != 0x0600 {
		t.Errorf("PC after reset = %#04x, want 0x0600", c.PC)
	}
	if c.Cycles != 7 {
		t.Errorf("Cycles after reset = %d, want 7", c.Cycles)
	}
	if c.Halted() {
		t.Errorf("Halted() = true after reset")
	}
}

// TestSimpleALU covers scenario S1: LDA #$05; ADC #$03 lands A=8 with C, Z,
// N and V clear (I stays set from reset), and PC sits just past the two
// instructions.
func TestSimpleALU(t *testing.T) {
	program := []uint8{0xA9, 0x05, 0x69, 0x03}
	c, _ := newTestChip(t, program, 0x0600)

	c.Step() // LDA #$05
	c.Step() // ADC #$03

	got := Registers{A: c.A, Status: c.P, PC: c.PC}
	want := Registers{A: 0x08, Status: PUnused | PInterrupt, PC: 0x0604}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("after LDA/ADC: %v\ngot:  %s", diff, spew.Sdump(got))
	}
}

func TestADCDecimalMode(t *testing.T) {
	// SED; LDA #$58; ADC #$46 -> BCD 58+46 = 104, A=$04, C=1.
	program := []uint8{0xF8, 0xA9, 0x58, 0x69, 0x46}
	c, _ := newTestChip(t, program, 0x0600)
	c.Step() // SED
	c.Step() // LDA
	c.Step() // ADC

	if c.A != 0x04 {
		t.Errorf("A = %#02x, want 0x04", c.A)
	}
	if c.P&PCarry == 0 {
		t.Errorf("carry not set after decimal-mode overflow")
	}
}

func TestSBCBinaryIsInvertedADC(t *testing.T) {
	// SEC; LDA #$10; SBC #$05 -> 0x10 - 0x05 = 0x0B, C set (no borrow).
	program := []uint8{0x38, 0xA9, 0x10, 0xE9, 0x05}
	c, _ := newTestChip(t, program, 0x0600)
	c.Step()
	c.Step()
	c.Step()

	if c.A != 0x0B {
		t.Errorf("A = %#02x, want 0x0B", c.A)
	}
	if c.P&PCarry == 0 {
		t.Errorf("carry clear, want set (no borrow)")
	}
}

// TestBranchPageCross covers scenario S2: a taken branch that lands on a
// different page costs 2 extra cycles, versus 1 for same-page.
func TestBranchPageCross(t *testing.T) {
	tests := []struct {
		name    string
		org     uint16
		loadVal uint8 // operand to LDA, sets or clears Z ahead of BEQ
		offset  uint8
		want    uint32
	}{
		{"not taken", 0x0600, 0x01, 0x10, 2},
		{"taken same page", 0x0600, 0x00, 0x10, 3},
		{"taken crosses page", 0x06F0, 0x00, 0x20, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			program := []uint8{0xA9, tc.loadVal, 0xF0, tc.offset} // LDA #val; BEQ
			c, _ := newTestChip(t, program, tc.org)
			c.Step() // LDA, sets or clears Z
			cycles := c.Step()
			if cycles != tc.want {
				t.Errorf("BEQ cycles = %d, want %d", cycles, tc.want)
			}
		})
	}
}

// TestJMPIndirectPageWrapBug covers scenario S3: JMP via a pointer whose low
// byte sits at a page boundary re-reads the high byte from the start of the
// same page instead of the next one.
func TestJMPIndirectPageWrapBug(t *testing.T) {
	c, bus := newTestChip(t, []uint8{0x6C, 0xFF, 0x10}, 0x0600) // JMP ($10FF)
	bus.Write(0x1000, 0x34)
	bus.Write(0x10FF, 0x78)
	bus.Write(0x1100, 0x56)

	c.Step()

	if c.PC != 0x3478 {
		t.Errorf("PC after JMP ($10FF) = %#04x, want 0x3478 (page-wrap bug)", c.PC)
	}
}

// TestStack covers scenario S4: PHA/PLA round-trips A through the stack and
// leaves SP back where it started.
func TestStack(t *testing.T) {
	program := []uint8{0xA9, 0x42, 0x48, 0xA9, 0x00, 0x68} // LDA #$42; PHA; LDA #$00; PLA
	c, _ := newTestChip(t, program, 0x0600)
	c.SP = 0xFF

	c.Step() // LDA #$42
	c.Step() // PHA
	if c.SP != 0xFE {
		t.Fatalf("SP after PHA = %#02x, want 0xFE", c.SP)
	}
	c.Step() // LDA #$00
	c.Step() // PLA

	if c.A != 0x42 {
		t.Errorf("A after PLA = %#02x, want 0x42", c.A)
	}
	if c.SP != 0xFF {
		t.Errorf("SP after PLA = %#02x, want 0xFF", c.SP)
	}
}

func TestInvalidOpcodeHalts(t *testing.T) {
	// 0x02 has no documented behavior.
	c, _ := newTestChip(t, []uint8{0x02}, 0x0600)
	cycles := c.Step()
	if cycles != 0 {
		t.Errorf("cycles on invalid opcode = %d, want 0", cycles)
	}
	if !c.Halted() {
		t.Fatalf("Halted() = false after invalid opcode")
	}
	if c.HaltOpcode() != 0x02 {
		t.Errorf("HaltOpcode() = %#02x, want 0x02", c.HaltOpcode())
	}
	// Halted CPU stays halted and inert.
	pc := c.PC
	if cycles := c.Step(); cycles != 0 || c.PC != pc {
		t.Errorf("Step() after halt advanced state: cycles=%d pc=%#04x", cycles, c.PC)
	}
}

func TestBRKPushesPCPlus2(t *testing.T) {
	c, bus := newTestChip(t, []uint8{0x00}, 0x0600) // BRK at $0600
	bus.Write(IRQVector, 0x00)
	bus.Write(IRQVector+1, 0x08) // IRQ vector -> $0800
	c.SP = 0xFF
	c.Cycles = 0 // Reset() already charged 7 cycles; isolate BRK's own count.

	cycles := c.Step()
	if cycles != 7 {
		t.Errorf("BRK cycles = %d, want 7", cycles)
	}
	if c.Cycles != 7 {
		t.Errorf("Cycles after BRK = %d, want 7 (no double count)", c.Cycles)
	}
	if c.PC != 0x0800 {
		t.Errorf("PC after BRK = %#04x, want 0x0800", c.PC)
	}
	pushedP := bus.Read(0x0100 | uint16(c.SP+1))
	if pushedP&PBreak == 0 {
		t.Errorf("pushed status lacks B flag set for BRK")
	}
	lo := bus.Read(0x0100 | uint16(c.SP+2))
	hi := bus.Read(0x0100 | uint16(c.SP+3))
	ret := uint16(hi)<<8 | uint16(lo)
	if ret != 0x0602 {
		t.Errorf("pushed return address = %#04x, want 0x0602 (PC+2)", ret)
	}
}

func TestIrqServicedWithCyclesNotDoubleCounted(t *testing.T) {
	program := []uint8{0xEA, 0xEA, 0xEA} // NOP NOP NOP
	c, bus := newTestChip(t, program, 0x0600)
	bus.Write(IRQVector, 0x00)
	bus.Write(IRQVector+1, 0x09) // IRQ vector -> $0900
	c.P &^= PInterrupt
	c.Irq()
	c.Cycles = 0 // Reset() already charged 7 cycles; isolate the IRQ's own count.

	cycles := c.Step()
	if cycles != 7 {
		t.Errorf("IRQ service cycles = %d, want 7", cycles)
	}
	if c.Cycles != 7 {
		t.Errorf("Cycles after IRQ = %d, want 7", c.Cycles)
	}
	if c.PC != 0x0900 {
		t.Errorf("PC after IRQ = %#04x, want 0x0900", c.PC)
	}
	if c.P&PInterrupt == 0 {
		t.Errorf("interrupt-disable not set after servicing IRQ")
	}
}

func TestIrqMaskedByInterruptDisable(t *testing.T) {
	c, _ := newTestChip(t, []uint8{0xEA}, 0x0600)
	c.P |= PInterrupt
	c.Irq()

	cycles := c.Step()
	if cycles != 2 {
		t.Errorf("cycles = %d, want 2 (NOP executed, IRQ masked)", cycles)
	}
	if c.PC != 0x0601 {
		t.Errorf("PC = %#04x, want 0x0601 (IRQ should not have fired)", c.PC)
	}
}

// writeLog is a RAM that records every value written to offset 0.
type writeLog struct {
	*memory.RAM
	writes []uint8
}

func (w *writeLog) Write(offset uint16, val uint8) {
	if offset == 0 {
		w.writes = append(w.writes, val)
	}
	w.RAM.Write(offset, val)
}

func TestRMWSpuriousWrite(t *testing.T) {
	// INC $00 against a RAM cell observes two writes: the unmodified value,
	// then the incremented one.
	bus := memory.New()
	ram := &writeLog{RAM: memory.NewRAM(1 << 16)}
	if err := bus.AddDevice(0, 1<<16, ram); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	img := make([]uint8, 1<<16)
	img[ResetVector+1] = 0x06
	copy(img[0x0600:], []uint8{0xE6, 0x00}) // INC $00
	img[0x0000] = 0x7F
	ram.Load(img)
	c := New(Config{Bus: bus})

	c.Step()

	if diff := deep.Equal(ram.writes, []uint8{0x7F, 0x80}); diff != nil {
		t.Errorf("writes to $00: %v\ngot: %s", diff, spew.Sdump(ram.writes))
	}

	if got := bus.Read(0x0000); got != 0x80 {
		t.Errorf("memory at $00 = %#02x, want 0x80", got)
	}
	if c.P&PNegative == 0 {
		t.Errorf("N flag not set for INC result 0x80")
	}
}

func TestCPUTypeRicohIgnoresDecimalFlag(t *testing.T) {
	bus := memory.New()
	ram := memory.NewRAM(1 << 16)
	if err := bus.AddDevice(0, 1<<16, ram); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	img := make([]uint8, 1<<16)
	img[ResetVector] = 0x00
	img[ResetVector+1] = 0x06
	program := []uint8{0xF8, 0xA9, 0x58, 0x69, 0x46} // SED; LDA #$58; ADC #$46
	copy(img[0x0600:], program)
	ram.Load(img)

	c := New(Config{Type: NMOSRicoh, Bus: bus})
	c.Step() // SED (still just sets the flag bit; Ricoh's quirk is ADC/SBC ignoring it)
	c.Step() // LDA
	c.Step() // ADC

	// Binary 0x58+0x46 = 0x9E, no decimal correction despite D set.
	if c.A != 0x9E {
		t.Errorf("A = %#02x, want 0x9E (decimal mode ignored on Ricoh)", c.A)
	}
}

func TestOverlappingDeviceRejected(t *testing.T) {
	bus := memory.New()
	if err := bus.AddDevice(0x0000, 0x1000, memory.NewRAM(0x1000)); err != nil {
		t.Fatalf("first AddDevice: %v", err)
	}
	err := bus.AddDevice(0x0800, 0x100, memory.NewRAM(0x100))
	if _, ok := err.(memory.OverlapError); !ok {
		t.Fatalf("AddDevice overlap err = %v (%T), want memory.OverlapError", err, err)
	}
}
