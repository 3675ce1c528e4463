package cpu

// setZero sets the Z flag from whether v is zero.
func (c *Chip) setZero(v uint8) {
	c.P &^= PZero
	if v == 0 {
		c.P |= PZero
	}
}

// setNegative sets the N flag from v's bit 7.
func (c *Chip) setNegative(v uint8) {
	c.P &^= PNegative
	if v&PNegative != 0 {
		c.P |= PNegative
	}
}

// setCarry sets the C flag.
func (c *Chip) setCarry(carry bool) {
	c.P &^= PCarry
	if carry {
		c.P |= PCarry
	}
}

// setOverflow sets the V flag per the two's-complement sign-change rule:
// it's set when the accumulator and operand share a sign that differs
// from the result's sign.
func (c *Chip) setOverflow(a, m, result uint8) {
	c.P &^= POverflow
	if (a^result)&(m^result)&0x80 != 0 {
		c.P |= POverflow
	}
}

// loadRegister stores val into reg and updates N/Z from the new value.
func (c *Chip) loadRegister(reg *uint8, val uint8) {
	*reg = val
	c.setZero(val)
	c.setNegative(val)
}

// adc implements ADC, including NMOS decimal-mode BCD correction. The
// Ricoh variant (NES) never honors the decimal flag.
func (c *Chip) adc(m uint8) {
	carry := c.P & PCarry

	if c.P&PDecimal != 0 && c.cpuType != NMOSRicoh {
		// BCD addition: correct each nibble in turn. See
		// http://6502.org/tutorials/decimal_mode.html.
		lo := (c.A & 0x0F) + (m & 0x0F) + carry
		if lo >= 0x0A {
			lo = ((lo + 0x06) & 0x0F) + 0x10
		}
		sum := uint16(c.A&0xF0) + uint16(m&0xF0) + uint16(lo)
		if sum >= 0xA0 {
			sum += 0x60
		}
		res := uint8(sum & 0xFF)

		// N/V/Z are undefined by NMOS hardware in decimal mode; this
		// implementation keeps them deterministic by taking Z from the plain
		// binary sum and N/V from the sum after only the low-nibble
		// correction. Only A and C are spec-guaranteed here.
		binSum := (c.A & 0xF0) + (m & 0xF0) + lo
		binResult := c.A + m + carry
		c.setOverflow(c.A, m, binSum)
		c.setNegative(binSum)
		c.setZero(binResult)
		c.setCarry(sum >= 0x100)
		c.A = res
		return
	}

	sum := uint16(c.A) + uint16(m) + uint16(carry)
	result := uint8(sum)
	c.setOverflow(c.A, m, result)
	c.setCarry(sum > 0xFF)
	c.loadRegister(&c.A, result)
}

// sbc implements SBC. In binary mode it is exactly ADC with the operand
// ones-complemented. NMOS decimal-mode SBC has its own nibble-borrow
// correction distinct from ADC's; flags other than A/C are undefined on
// real hardware so this derives them from the equivalent binary subtract.
func (c *Chip) sbc(m uint8) {
	carry := c.P & PCarry

	if c.P&PDecimal != 0 && c.cpuType != NMOSRicoh {
		lo := int8(c.A&0x0F) - int8(m&0x0F) + int8(carry) - 1
		if lo < 0 {
			lo = ((lo - 0x06) & 0x0F) - 0x10
		}
		sum := int16(c.A&0xF0) - int16(m&0xF0) + int16(lo)
		if sum < 0 {
			sum -= 0x60
		}
		res := uint8(sum & 0xFF)

		bin := c.A + ^m + carry
		c.setOverflow(c.A, ^m, bin)
		c.setNegative(bin)
		c.setZero(bin)
		c.setCarry(uint16(c.A)+uint16(^m)+uint16(carry) > 0xFF)
		c.A = res
		return
	}

	c.adc(^m)
}

// compare implements CMP/CPX/CPY: reg - m is computed but not stored, C is
// set if reg >= m, Z if they're equal, N from the subtraction's bit 7.
func (c *Chip) compare(reg, m uint8) {
	result := reg - m
	c.setCarry(reg >= m)
	c.setZero(result)
	c.setNegative(result)
}
