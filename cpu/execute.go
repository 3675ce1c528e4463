package cpu

import (
	"github.com/sixfiveohtwo/core/opcode"
	. "github.com/sixfiveohtwo/core/opcode"
)

// execute dispatches on the decoded instruction's mnemonic and returns any
// cycles beyond the opcode table's base count (page-cross and branch
// penalties). Only the opcode byte has been fetched when this runs; the
// operand bytes are fetched from PC by the addressing helpers each case
// calls, so PC ends just past the full instruction unless the mnemonic
// itself rewrites it (branches, JMP, JSR, RTS, RTI, BRK).
func (c *Chip) execute(desc opcode.Descriptor) uint32 {
	switch desc.Mnemonic {
	case ADC:
		v, crossed := c.operandValue(desc)
		c.adc(v)
		return pageBonus(desc, crossed)
	case SBC:
		v, crossed := c.operandValue(desc)
		c.sbc(v)
		return pageBonus(desc, crossed)
	case AND:
		v, crossed := c.operandValue(desc)
		c.loadRegister(&c.A, c.A&v)
		return pageBonus(desc, crossed)
	case ORA:
		v, crossed := c.operandValue(desc)
		c.loadRegister(&c.A, c.A|v)
		return pageBonus(desc, crossed)
	case EOR:
		v, crossed := c.operandValue(desc)
		c.loadRegister(&c.A, c.A^v)
		return pageBonus(desc, crossed)
	case BIT:
		v, _ := c.operandValue(desc)
		c.setZero(c.A & v)
		c.P &^= PNegative | POverflow
		if v&PNegative != 0 {
			c.P |= PNegative
		}
		if v&POverflow != 0 {
			c.P |= POverflow
		}
		return 0
	case CMP:
		v, crossed := c.operandValue(desc)
		c.compare(c.A, v)
		return pageBonus(desc, crossed)
	case CPX:
		v, _ := c.operandValue(desc)
		c.compare(c.X, v)
		return 0
	case CPY:
		v, _ := c.operandValue(desc)
		c.compare(c.Y, v)
		return 0
	case LDA:
		v, crossed := c.operandValue(desc)
		c.loadRegister(&c.A, v)
		return pageBonus(desc, crossed)
	case LDX:
		v, crossed := c.operandValue(desc)
		c.loadRegister(&c.X, v)
		return pageBonus(desc, crossed)
	case LDY:
		v, crossed := c.operandValue(desc)
		c.loadRegister(&c.Y, v)
		return pageBonus(desc, crossed)
	case STA:
		c.store(desc, c.A)
		return 0
	case STX:
		c.store(desc, c.X)
		return 0
	case STY:
		c.store(desc, c.Y)
		return 0

	case ASL:
		c.shift(desc, func(v uint8) (uint8, bool) { return v << 1, v&0x80 != 0 })
		return 0
	case LSR:
		c.shift(desc, func(v uint8) (uint8, bool) { return v >> 1, v&0x01 != 0 })
		return 0
	case ROL:
		carryIn := c.P & PCarry
		c.shift(desc, func(v uint8) (uint8, bool) { return v<<1 | carryIn, v&0x80 != 0 })
		return 0
	case ROR:
		carryIn := c.P & PCarry
		c.shift(desc, func(v uint8) (uint8, bool) { return v>>1 | carryIn<<7, v&0x01 != 0 })
		return 0
	case INC:
		c.rmw(desc, func(v uint8) uint8 { return v + 1 })
		return 0
	case DEC:
		c.rmw(desc, func(v uint8) uint8 { return v - 1 })
		return 0

	case INX:
		c.loadRegister(&c.X, c.X+1)
		return 0
	case INY:
		c.loadRegister(&c.Y, c.Y+1)
		return 0
	case DEX:
		c.loadRegister(&c.X, c.X-1)
		return 0
	case DEY:
		c.loadRegister(&c.Y, c.Y-1)
		return 0
	case TAX:
		c.loadRegister(&c.X, c.A)
		return 0
	case TAY:
		c.loadRegister(&c.Y, c.A)
		return 0
	case TXA:
		c.loadRegister(&c.A, c.X)
		return 0
	case TYA:
		c.loadRegister(&c.A, c.Y)
		return 0
	case TSX:
		c.loadRegister(&c.X, c.SP)
		return 0
	case TXS:
		c.SP = c.X
		return 0

	case CLC:
		c.P &^= PCarry
		return 0
	case SEC:
		c.P |= PCarry
		return 0
	case CLD:
		c.P &^= PDecimal
		return 0
	case SED:
		c.P |= PDecimal
		return 0
	case CLI:
		c.P &^= PInterrupt
		return 0
	case SEI:
		c.P |= PInterrupt
		return 0
	case CLV:
		c.P &^= POverflow
		return 0
	case NOP:
		return 0

	case PHA:
		c.pushStack(c.A)
		return 0
	case PHP:
		c.pushStack(c.P | PUnused | PBreak)
		return 0
	case PLA:
		c.loadRegister(&c.A, c.pullStack())
		return 0
	case PLP:
		c.P = (c.pullStack() &^ PBreak) | PUnused
		return 0

	case JMP:
		c.PC = c.jumpTarget(desc.Mode)
		return 0
	case JSR:
		target := c.fetch16()
		ret := c.PC - 1
		c.pushStack(uint8(ret >> 8))
		c.pushStack(uint8(ret & 0xFF))
		c.PC = target
		return 0
	case RTS:
		lo := c.pullStack()
		hi := c.pullStack()
		c.PC = uint16(hi)<<8 | uint16(lo)
		c.PC++
		return 0
	case RTI:
		c.P = (c.pullStack() &^ PBreak) | PUnused
		lo := c.pullStack()
		hi := c.pullStack()
		c.PC = uint16(hi)<<8 | uint16(lo)
		return 0
	case BRK:
		// The byte after BRK is skipped: push PC+1 (PC already advanced past
		// the opcode, so +1 more lands on PC-at-BRK+2).
		c.PC++
		extra := c.serviceInterrupt(IRQVector, true)
		return extra - uint32(desc.BaseCycles)

	case BCC:
		return c.branch(c.P&PCarry == 0)
	case BCS:
		return c.branch(c.P&PCarry != 0)
	case BEQ:
		return c.branch(c.P&PZero != 0)
	case BNE:
		return c.branch(c.P&PZero == 0)
	case BMI:
		return c.branch(c.P&PNegative != 0)
	case BPL:
		return c.branch(c.P&PNegative == 0)
	case BVC:
		return c.branch(c.P&POverflow == 0)
	case BVS:
		return c.branch(c.P&POverflow != 0)
	}
	return 0
}

// pageBonus returns 1 if the addressing mode both allows a page-cross
// penalty and actually crossed a page, else 0.
func pageBonus(desc opcode.Descriptor, crossed bool) uint32 {
	if desc.PageCrossAdds && crossed {
		return 1
	}
	return 0
}

// operandValue fetches the operand for a read instruction: the immediate
// byte, the accumulator, or a memory read through the resolved effective
// address. Returns whether the address computation crossed a page.
func (c *Chip) operandValue(desc opcode.Descriptor) (uint8, bool) {
	switch desc.Mode {
	case opcode.Immediate:
		return c.fetch8(), false
	case opcode.Accumulator:
		return c.A, false
	default:
		addr, crossed := c.resolveAddress(desc.Mode)
		return c.bus.Read(addr), crossed
	}
}

// resolveAddress computes the effective address for every addressing mode
// that has one (everything but Implicit/Accumulator/Immediate/Relative).
func (c *Chip) resolveAddress(mode opcode.Mode) (addr uint16, pageCrossed bool) {
	switch mode {
	case opcode.ZeroPage:
		return uint16(c.fetch8()), false
	case opcode.ZeroPageX:
		return uint16(c.fetch8() + c.X), false
	case opcode.ZeroPageY:
		return uint16(c.fetch8() + c.Y), false
	case opcode.Absolute:
		return c.fetch16(), false
	case opcode.AbsoluteX:
		base := c.fetch16()
		addr = base + uint16(c.X)
		return addr, (base & 0xFF00) != (addr & 0xFF00)
	case opcode.AbsoluteY:
		base := c.fetch16()
		addr = base + uint16(c.Y)
		return addr, (base & 0xFF00) != (addr & 0xFF00)
	case opcode.IndexedIndirect:
		zp := c.fetch8() + c.X
		lo := c.bus.Read(uint16(zp))
		hi := c.bus.Read(uint16(zp + 1))
		return uint16(hi)<<8 | uint16(lo), false
	case opcode.IndirectIndexed:
		zp := c.fetch8()
		lo := c.bus.Read(uint16(zp))
		hi := c.bus.Read(uint16(zp + 1))
		ptr := uint16(hi)<<8 | uint16(lo)
		addr = ptr + uint16(c.Y)
		return addr, (ptr & 0xFF00) != (addr & 0xFF00)
	case opcode.Indirect:
		ptr := c.fetch16()
		lo := c.bus.Read(ptr)
		// The NMOS page-wrap bug: the high byte is read from $xx00, not
		// $(xx+1)00, when the pointer's low byte is $FF.
		hiAddr := (ptr & 0xFF00) | ((ptr + 1) & 0x00FF)
		hi := c.bus.Read(hiAddr)
		return uint16(hi)<<8 | uint16(lo), false
	}
	return 0, false
}

// jumpTarget resolves JMP's two forms: Absolute is a plain 16-bit operand,
// Indirect goes through resolveAddress's page-wrap-bug logic.
func (c *Chip) jumpTarget(mode opcode.Mode) uint16 {
	if mode == opcode.Absolute {
		return c.fetch16()
	}
	addr, _ := c.resolveAddress(opcode.Indirect)
	return addr
}

// store writes reg to the effective address for a store instruction. No
// bus read of the target precedes the write: unlike load/RMW access,
// stores never need the prior contents (UART-style devices with read side
// effects depend on this not reading before the store).
func (c *Chip) store(desc opcode.Descriptor, reg uint8) {
	addr, _ := c.resolveAddress(desc.Mode)
	c.bus.Write(addr, reg)
}

// shift applies op to the accumulator or a memory operand for
// ASL/LSR/ROL/ROR, setting carry from the bit shifted out and recomputing
// N/Z from the result.
func (c *Chip) shift(desc opcode.Descriptor, op func(uint8) (uint8, bool)) {
	if desc.Mode == opcode.Accumulator {
		res, carryOut := op(c.A)
		c.setCarry(carryOut)
		c.loadRegister(&c.A, res)
		return
	}
	addr, _ := c.resolveAddress(desc.Mode)
	old := c.bus.Read(addr)
	res, carryOut := op(old)
	// NMOS read-modify-write: a spurious write of the old value precedes
	// the real write, observable by memory-mapped I/O on the bus.
	c.bus.Write(addr, old)
	c.bus.Write(addr, res)
	c.setCarry(carryOut)
	c.setZero(res)
	c.setNegative(res)
}

// rmw applies op (INC/DEC) to a memory operand, performing the same
// spurious-write-then-real-write sequence as shift.
func (c *Chip) rmw(desc opcode.Descriptor, op func(uint8) uint8) {
	addr, _ := c.resolveAddress(desc.Mode)
	old := c.bus.Read(addr)
	res := op(old)
	c.bus.Write(addr, old)
	c.bus.Write(addr, res)
	c.setZero(res)
	c.setNegative(res)
}

// branch computes the relative target and returns the cycle bonus: +1 if
// taken, +1 more if the taken target lands on a different page than PC
// immediately after the offset byte is consumed.
func (c *Chip) branch(taken bool) uint32 {
	offset := int8(c.fetch8())
	if !taken {
		return 0
	}
	base := c.PC
	target := uint16(int32(base) + int32(offset))
	c.PC = target
	if base&0xFF00 != target&0xFF00 {
		return 2
	}
	return 1
}
