package memory

import "sync"

// UART 6551 register offsets, relative to the device's base address.
const (
	uartData    = 0
	uartStatus  = 1
	uartCommand = 2
	uartControl = 3
)

const (
	statusRDRF = uint8(0x08) // Receiver Data Register Full.
	statusTDRE = uint8(0x10) // Transmit Data Register Empty; always set.
	commandIRQ = uint8(0x02) // IRQ_EN bit in the command register.
)

// UART6551 models the 6551 ACIA subset needed for terminal I/O: a 256-byte
// receive FIFO, a transmit callback, and status/command registers. The
// receive FIFO is mutated by Receive (called from whatever goroutine is
// feeding the emulated terminal input) and drained by Read (called from
// the CPU's bus access), so it's protected by a mutex; nothing else about
// the device is shared across goroutines.
type UART6551 struct {
	mu      sync.Mutex
	fifo    []uint8
	command uint8
	control uint8
	tx      func(uint8)
}

// NewUART6551 creates a UART whose transmit side effect is tx. tx is
// called synchronously from Write(uartData, ...), i.e. before the bus
// write call that triggered it returns.
func NewUART6551(tx func(uint8)) *UART6551 {
	return &UART6551{tx: tx}
}

// Read implements memory.Device.
func (u *UART6551) Read(offset uint16) uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch offset % 4 {
	case uartData:
		if len(u.fifo) == 0 {
			return 0
		}
		v := u.fifo[0]
		u.fifo = u.fifo[1:]
		return v
	case uartStatus:
		return u.statusLocked()
	case uartCommand:
		return u.command
	case uartControl:
		return u.control
	}
	return 0xFF
}

// Write implements memory.Device.
func (u *UART6551) Write(offset uint16, val uint8) {
	switch offset % 4 {
	case uartData:
		if u.tx != nil {
			u.tx(val)
		}
	case uartCommand:
		u.mu.Lock()
		u.command = val
		u.mu.Unlock()
	case uartControl:
		u.mu.Lock()
		u.control = val
		u.mu.Unlock()
	case uartStatus:
		// Real hardware ignores writes to the status register.
	}
}

// PowerOn implements memory.Device.
func (u *UART6551) PowerOn() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fifo = u.fifo[:0]
	u.command = 0
	u.control = 0
}

// Receive pushes a byte into the 256-byte receive FIFO, as if a terminal
// had sent it. Safe to call from any goroutine, independent of bus access
// from the CPU's Step loop. Bytes beyond the FIFO's capacity are
// dropped, matching real overrun behavior (the core does not model the
// overrun-error status bit).
func (u *UART6551) Receive(b uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()
	const fifoCapacity = 256
	if len(u.fifo) >= fifoCapacity {
		return
	}
	u.fifo = append(u.fifo, b)
}

// Raised implements irq.Sender: FIFO-non-empty asserts IRQ iff IRQ_EN is set
// in the command register.
func (u *UART6551) Raised() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.command&commandIRQ != 0 && len(u.fifo) > 0
}

// statusLocked returns the status byte (caller holds u.mu): bit 3 RDRF (FIFO non-empty), bit 4 TDRE
// (always 1, the core never models transmit backpressure), other bits 0.
func (u *UART6551) statusLocked() uint8 {
	s := statusTDRE
	if len(u.fifo) > 0 {
		s |= statusRDRF
	}
	return s
}
