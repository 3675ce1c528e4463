// Package cpu implements the NMOS 6502 execution engine: instruction
// decode via the opcode table, the thirteen addressing modes, ALU and
// flag semantics, and interrupt servicing on instruction boundaries.
package cpu

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sixfiveohtwo/core/irq"
	"github.com/sixfiveohtwo/core/memory"
	"github.com/sixfiveohtwo/core/opcode"
)

// CPUType selects between variants that differ only in decimal-flag
// handling: whether ADC/SBC honor it, and whether interrupt entry clears it.
// 65C02/65816 extensions are out of scope; this never adds opcodes.
type CPUType int

const (
	// NMOS is the base MOS 6502: decimal-mode ADC/SBC produce BCD results.
	NMOS CPUType = iota
	// NMOSRicoh is the Ricoh variant used in the NES: decimal mode is wired
	// off, so ADC/SBC always operate in binary regardless of the D flag.
	NMOSRicoh
	// CMOS models the one behavioral difference from 65C02 relevant here:
	// the decimal flag is cleared automatically on interrupt entry.
	CMOS
)

// Vector addresses per the 6502 interrupt/reset convention.
const (
	NMIVector   = uint16(0xFFFA)
	ResetVector = uint16(0xFFFC)
	IRQVector   = uint16(0xFFFE)
)

// Status register bit masks.
const (
	PNegative  = uint8(0x80)
	POverflow  = uint8(0x40)
	PUnused    = uint8(0x20) // Always reads as 1 when pushed.
	PBreak     = uint8(0x10) // Set only in pushed copies during BRK/PHP.
	PDecimal   = uint8(0x08)
	PInterrupt = uint8(0x04)
	PZero      = uint8(0x02)
	PCarry     = uint8(0x01)
)

// Registers is a point-in-time snapshot of CPU state, returned by
// Chip.Registers() for inspection/debugging front ends.
type Registers struct {
	A, X, Y, SP uint8
	PC          uint16
	Status      uint8
	Cycles      uint64
}

// InvalidState represents an internal precondition failure in the
// emulator (a bug in the core, not a property of the program being run).
type InvalidState struct {
	Reason string
}

// Error implements the error interface.
func (e InvalidState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// Chip is a single 6502-family execution engine. It is single-threaded and
// synchronous: Step is a pure state transition on (Chip, bus) with no
// suspension points mid-instruction. The only state shared across
// goroutines lives inside devices on the bus (e.g. a UART's receive FIFO).
type Chip struct {
	A, X, Y, SP uint8
	PC          uint16
	P           uint8
	Cycles      uint64

	cpuType CPUType
	bus     *memory.Bus
	irqLine irq.Sender // Optional device-driven level IRQ source (e.g. a UART).
	nmiLine irq.Sender // Optional device-driven edge NMI source.

	pendingIRQ bool // Latched by Irq(); also ORed with irqLine.Raised() each Step.
	pendingNMI bool // Latched by Nmi(), or an edge detected on nmiLine.
	nmiWasHigh bool // Last-seen state of nmiLine, to detect the rising edge.

	halted     bool
	haltOpcode uint8
}

// Config supplies the optional collaborators for a new Chip.
type Config struct {
	Type CPUType
	Bus  *memory.Bus
	IRQ  irq.Sender // Polled each Step; OR'd with explicit Irq() calls.
	NMI  irq.Sender // Polled each Step for a rising edge; OR'd with explicit Nmi() calls.
}

// New creates a Chip wired to the given bus and powers it on (equivalent
// to PowerOn followed by running Reset to completion).
func New(cfg Config) *Chip {
	c := &Chip{
		cpuType: cfg.Type,
		bus:     cfg.Bus,
		irqLine: cfg.IRQ,
		nmiLine: cfg.NMI,
	}
	c.PowerOn()
	return c
}

// PowerOn randomizes registers (matching real hardware's undefined
// power-on state), clears interrupt-pending state, and runs Reset.
func (c *Chip) PowerOn() {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	c.A = uint8(rnd.Intn(256))
	c.X = uint8(rnd.Intn(256))
	c.Y = uint8(rnd.Intn(256))
	c.SP = uint8(rnd.Intn(256))
	c.P = PUnused
	c.halted = false
	c.haltOpcode = 0
	c.pendingIRQ = false
	c.pendingNMI = false
	c.Reset()
}

// Reset models the RESET line: no stack push occurs, but the stack
// pointer moves down 3 bytes as if PC/P had been pushed (matching NMOS
// reset behavior), interrupts are disabled, and PC loads from the reset
// vector. Takes 7 cycles; Cycles is advanced accordingly.
func (c *Chip) Reset() {
	c.SP -= 3
	c.P |= PInterrupt
	c.halted = false
	c.haltOpcode = 0
	c.PC = c.bus.ReadU16LE(ResetVector)
	c.Cycles += 7
}

// Irq raises a level-triggered IRQ request. It is serviced on the next
// Step if the interrupt-disable flag is clear, and (absent a Config.IRQ
// source that keeps re-asserting) is treated as a single pulse: it clears
// once serviced.
func (c *Chip) Irq() {
	c.pendingIRQ = true
}

// Nmi raises an edge-triggered NMI request, serviced unconditionally on
// the next Step.
func (c *Chip) Nmi() {
	c.pendingNMI = true
}

// Halted reports whether the CPU has executed an invalid opcode and
// stopped. Matches the NMOS KIL/JAM behavior: once halted, Step keeps
// returning 0 cycles without advancing PC.
func (c *Chip) Halted() bool {
	return c.halted
}

// HaltOpcode returns the opcode byte that halted the CPU, valid only when
// Halted() is true.
func (c *Chip) HaltOpcode() uint8 {
	return c.haltOpcode
}

// Registers returns a snapshot of the CPU's visible state.
func (c *Chip) Registers() Registers {
	return Registers{A: c.A, X: c.X, Y: c.Y, SP: c.SP, PC: c.PC, Status: c.P, Cycles: c.Cycles}
}

// Step executes exactly one instruction, or one interrupt service
// sequence, to completion and returns the number of cycles consumed. If
// the CPU is halted this returns 0 without touching any state. Step never
// fails: invalid opcodes halt the CPU (observable via Halted/HaltOpcode)
// rather than propagating an error.
func (c *Chip) Step() uint32 {
	if c.halted {
		return 0
	}

	if edge := c.nmiEdge(); edge {
		c.pendingNMI = true
	}

	if c.pendingNMI {
		c.pendingNMI = false
		cycles := c.serviceInterrupt(NMIVector, false)
		c.Cycles += uint64(cycles)
		return cycles
	}
	irqAsserted := c.pendingIRQ || (c.irqLine != nil && c.irqLine.Raised())
	if irqAsserted && c.P&PInterrupt == 0 {
		c.pendingIRQ = false
		cycles := c.serviceInterrupt(IRQVector, false)
		c.Cycles += uint64(cycles)
		return cycles
	}

	op := c.fetch8()
	desc := opcode.Table[op]
	if desc.Mnemonic == opcode.Invalid {
		c.halted = true
		c.haltOpcode = op
		return 0
	}

	cycles := uint32(desc.BaseCycles)
	cycles += c.execute(desc)
	c.Cycles += uint64(cycles)
	return cycles
}

// nmiEdge reports a rising edge on the externally polled NMI line since
// the last Step call.
func (c *Chip) nmiEdge() bool {
	if c.nmiLine == nil {
		return false
	}
	high := c.nmiLine.Raised()
	edge := high && !c.nmiWasHigh
	c.nmiWasHigh = high
	return edge
}

// serviceInterrupt pushes PC and status (with B clear) and loads PC from
// addr, matching NMI/IRQ entry (7 cycles). fromBRK sets B in the pushed
// status instead of clearing it; BRK's caller has already advanced PC so
// the pushed return address is PC-at-BRK+2. Callers are
// responsible for folding the returned cycle count into c.Cycles, since
// BRK's caller (execute) must net it against the opcode table's base count
// rather than add it twice.
func (c *Chip) serviceInterrupt(addr uint16, fromBRK bool) uint32 {
	c.pushStack(uint8(c.PC >> 8))
	c.pushStack(uint8(c.PC & 0xFF))
	push := c.P | PUnused
	if fromBRK {
		push |= PBreak
	} else {
		push &^= PBreak
	}
	c.pushStack(push)
	c.P |= PInterrupt
	if c.cpuType == CMOS {
		c.P &^= PDecimal
	}
	c.PC = c.bus.ReadU16LE(addr)
	return 7
}

func (c *Chip) fetch8() uint8 {
	v := c.bus.Read(c.PC)
	c.PC++
	return v
}

func (c *Chip) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *Chip) pushStack(v uint8) {
	c.bus.Write(0x0100|uint16(c.SP), v)
	c.SP--
}

func (c *Chip) pullStack() uint8 {
	c.SP++
	return c.bus.Read(0x0100 | uint16(c.SP))
}
