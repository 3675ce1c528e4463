package main

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sixfiveohtwo/core/cpu"
	"github.com/sixfiveohtwo/core/disasm"
	"github.com/sixfiveohtwo/core/memory"
)

// model is the monitor's bubbletea state: the CPU and bus under
// inspection, the memory page currently displayed, a set of PC
// breakpoints, and a line of user feedback (last error, last command).
type model struct {
	chip *cpu.Chip
	bus  *memory.Bus

	pageStart   uint16
	breakpoints map[uint16]bool
	input       string
	message     string
	running     bool
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case " ", "s":
		m.step()

	case "c":
		m.continueToBreakpoint()

	case "b":
		if addr, err := strconv.ParseUint(strings.TrimSpace(m.input), 16, 16); err == nil {
			if m.breakpoints == nil {
				m.breakpoints = map[uint16]bool{}
			}
			m.breakpoints[uint16(addr)] = true
			m.message = fmt.Sprintf("breakpoint set at $%04X", addr)
		} else {
			m.message = "usage: type a hex address, then press b"
		}
		m.input = ""

	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}

	default:
		if len(keyMsg.String()) == 1 {
			m.input += keyMsg.String()
		}
	}
	return m, nil
}

func (m *model) step() {
	if m.chip.Halted() {
		m.message = fmt.Sprintf("halted on invalid opcode $%02X", m.chip.HaltOpcode())
		return
	}
	pc := m.chip.Registers().PC
	m.chip.Step()
	m.message = fmt.Sprintf("stepped from $%04X", pc)
	m.pageStart = m.chip.Registers().PC & 0xFFF0
}

func (m *model) continueToBreakpoint() {
	const guard = 1_000_000
	for i := 0; i < guard; i++ {
		if m.chip.Halted() {
			m.message = fmt.Sprintf("halted on invalid opcode $%02X", m.chip.HaltOpcode())
			return
		}
		if m.breakpoints[m.chip.Registers().PC] && i > 0 {
			m.message = fmt.Sprintf("hit breakpoint at $%04X", m.chip.Registers().PC)
			m.pageStart = m.chip.Registers().PC & 0xFFF0
			return
		}
		m.chip.Step()
	}
	m.message = "stopped: no breakpoint hit in 1,000,000 steps"
	m.pageStart = m.chip.Registers().PC & 0xFFF0
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	pcStyle    = lipgloss.NewStyle().Reverse(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.registerPane(),
		"",
		m.memoryPage(),
		"",
		m.nextInstruction(),
		"",
		dimStyle.Render(m.message),
		dimStyle.Render("[space/s] step  [b] set breakpoint at typed hex addr  [c] continue  [q] quit   addr: "+m.input),
	)
}

func (m model) registerPane() string {
	r := m.chip.Registers()
	flags := []struct {
		name string
		bit  uint8
	}{
		{"N", cpu.PNegative}, {"V", cpu.POverflow}, {"-", cpu.PUnused}, {"B", cpu.PBreak},
		{"D", cpu.PDecimal}, {"I", cpu.PInterrupt}, {"Z", cpu.PZero}, {"C", cpu.PCarry},
	}
	var fl strings.Builder
	for _, f := range flags {
		if r.Status&f.bit != 0 {
			fl.WriteString(strings.ToUpper(f.name))
		} else {
			fl.WriteString(strings.ToLower(f.name))
		}
		fl.WriteString(" ")
	}
	return labelStyle.Render("6502 monitor") + "\n" +
		fmt.Sprintf("PC=$%04X  A=$%02X  X=$%02X  Y=$%02X  SP=$%02X  cycles=%d\n%s",
			r.PC, r.A, r.X, r.Y, r.SP, r.Cycles, fl.String())
}

func (m model) memoryPage() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("memory") + "\n")
	pc := m.chip.Registers().PC
	for row := 0; row < 8; row++ {
		base := m.pageStart + uint16(row*16)
		fmt.Fprintf(&b, "$%04X  ", base)
		for col := 0; col < 16; col++ {
			addr := base + uint16(col)
			v := m.bus.Read(addr)
			cell := fmt.Sprintf("%02X ", v)
			if addr == pc {
				cell = pcStyle.Render(fmt.Sprintf("%02X", v)) + " "
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) nextInstruction() string {
	pc := m.chip.Registers().PC
	var img [3]uint8
	for i := range img {
		img[i] = m.bus.Read(pc + uint16(i))
	}
	instrs := disasm.Disassemble(img[:], pc, len(img))
	if len(instrs) == 0 {
		return ""
	}
	return labelStyle.Render("next") + "  " + disasm.Format(instrs[0], disasm.Options{Uppercase: true})
}
