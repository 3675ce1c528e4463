// Package memory defines the basic interfaces for working with a 6502
// family memory map and the bus that routes byte-level reads and writes
// to the device that owns a given address range. Since each device has
// its own behavior (a RAM bank, a read-only ROM bank, a UART with side
// effects) these are all defined behind a single interface.
package memory

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Device is a polymorphic handle for anything mappable into the address
// space: RAM, ROM, or a memory-mapped peripheral with side effects.
type Device interface {
	// Read returns the data byte stored at the device-relative offset.
	Read(offset uint16) uint8
	// Write updates offset with the new value. For read-only devices this
	// is a no-op without error.
	Write(offset uint16, val uint8)
	// PowerOn performs power-on reset of the device. This is implementation
	// specific as to whether it's randomized or preset to all zeros.
	PowerOn()
}

// region is one entry in the bus's ordered, non-overlapping address map.
type region struct {
	base   uint16
	length int
	device Device
}

func (r region) end() int {
	return int(r.base) + r.length
}

// OverlapError indicates a new device's address range intersects one
// already registered on the bus.
type OverlapError struct {
	Base, ExistingBase uint16
	Length             int
}

// Error implements the interface for error types.
func (e OverlapError) Error() string {
	return fmt.Sprintf("device at 0x%.4X (length %d) overlaps existing device at 0x%.4X", e.Base, e.Length, e.ExistingBase)
}

// OutOfRangeError indicates base+length would run past the 64KiB address space.
type OutOfRangeError struct {
	Base   uint16
	Length int
}

// Error implements the interface for error types.
func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("device at 0x%.4X (length %d) extends past 0x10000", e.Base, e.Length)
}

// Bus is an ordered set of (base, length, device) records routing 16-bit
// addresses to the device that owns them. No two ranges may overlap. All
// operations are synchronous: a device's side effects (e.g. a UART
// transmit callback) complete before a Read/Write call returns. The bus
// itself adds no synchronization beyond protecting its own region table;
// individual devices (notably the UART's receive FIFO) are responsible
// for their own thread safety against asynchronous input.
type Bus struct {
	mu      sync.Mutex
	regions []region
	missR   uint8 // value returned when a read misses every device.
}

// New returns an empty bus. Reads to unmapped addresses return 0xFF, the
// conventional floating-bus value for an open NMOS data bus; writes to
// unmapped addresses are silently dropped.
func New() *Bus {
	return &Bus{missR: 0xFF}
}

// AddDevice registers device to own the byte range [base, base+length).
// Returns OverlapError if the range intersects an existing device, or
// OutOfRangeError if base+length exceeds the 64KiB address space.
func (b *Bus) AddDevice(base uint16, length int, device Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if int(base)+length > 1<<16 {
		return OutOfRangeError{base, length}
	}
	nr := region{base: base, length: length, device: device}
	for _, r := range b.regions {
		if int(base) < r.end() && int(r.base) < nr.end() {
			return OverlapError{Base: base, ExistingBase: r.base, Length: length}
		}
	}
	b.regions = append(b.regions, nr)
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].base < b.regions[j].base })
	return nil
}

// find returns the region owning addr, or nil if nothing does.
func (b *Bus) find(addr uint16) *region {
	// Linear scan; the 6502 address space realistically holds a handful of
	// devices (RAM, ROM, a UART) so a sorted-slice binary search would be
	// premature here.
	for i := range b.regions {
		r := &b.regions[i]
		if int(addr) >= int(r.base) && int(addr) < r.end() {
			return r
		}
	}
	return nil
}

// Read returns the byte at addr, routed to whichever device owns it. A
// miss (no device mapped) returns 0xFF.
func (b *Bus) Read(addr uint16) uint8 {
	b.mu.Lock()
	r := b.find(addr)
	b.mu.Unlock()
	if r == nil {
		return b.missR
	}
	return r.device.Read(addr - r.base)
}

// Write stores val at addr, routed to whichever device owns it. A miss
// (no device mapped) is silently dropped.
func (b *Bus) Write(addr uint16, val uint8) {
	b.mu.Lock()
	r := b.find(addr)
	b.mu.Unlock()
	if r == nil {
		return
	}
	r.device.Write(addr-r.base, val)
}

// ReadU16LE reads a little-endian 16-bit value composed of two Read calls,
// the second at addr+1 with 16-bit wraparound (0xFFFF+1 -> 0x0000). Callers
// needing the NMOS JMP-indirect page-wrap bug (high byte re-read from the
// start of the same page rather than addr+1) must compose the two Read
// calls themselves; see cpu.Chip's indirect addressing mode.
func (b *Bus) ReadU16LE(addr uint16) uint16 {
	lo := b.Read(addr)
	hi := b.Read(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// PowerOn resets every registered device to its power-on state.
func (b *Bus) PowerOn() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.regions {
		r.device.PowerOn()
	}
}

// RAM implements Device as a plain byte array: reads and writes are
// transparent.
type RAM struct {
	data []uint8
}

// NewRAM allocates a RAM device of the given size.
func NewRAM(size int) *RAM {
	return &RAM{data: make([]uint8, size)}
}

// Read implements Device.
func (r *RAM) Read(offset uint16) uint8 {
	return r.data[int(offset)%len(r.data)]
}

// Write implements Device.
func (r *RAM) Write(offset uint16, val uint8) {
	r.data[int(offset)%len(r.data)] = val
}

// PowerOn randomizes RAM contents, matching real hardware's undefined
// power-on state. Deterministic tests should call Load after PowerOn, or
// skip PowerOn entirely.
func (r *RAM) PowerOn() {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range r.data {
		r.data[i] = uint8(rnd.Intn(256))
	}
}

// Load copies img into RAM starting at offset 0, matching the binary image
// format (flat 64KiB array, address 0 at byte 0).
func (r *RAM) Load(img []uint8) {
	copy(r.data, img)
}

// ROM implements Device as a read-only byte array: writes are silently
// dropped.
type ROM struct {
	data []uint8
}

// NewROM wraps img as a read-only device. img is not copied.
func NewROM(img []uint8) *ROM {
	return &ROM{data: img}
}

// Read implements Device.
func (r *ROM) Read(offset uint16) uint8 {
	return r.data[int(offset)%len(r.data)]
}

// Write implements Device. It is a no-op: ROM cannot be written.
func (r *ROM) Write(offset uint16, val uint8) {}

// PowerOn implements Device. It is a no-op: ROM contents are fixed at
// construction.
func (r *ROM) PowerOn() {}
