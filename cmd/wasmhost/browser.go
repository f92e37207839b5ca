package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/wasm-host/snapshot"
)

const dumpRows = 16

type browserState int

const (
	stateList browserState = iota
	stateMemory
	stateGlobals
	stateSeek
)

// browser is the interactive snapshot viewer. The list holds every memory
// followed by every instance's globals.
type browser struct {
	err      error
	snap     *snapshot.Snapshot
	memory   []byte
	filename string
	seek     textinput.Model
	selected int
	offset   int
	state    browserState
}

func newBrowser(filename string, snap *snapshot.Snapshot) *browser {
	ti := textinput.New()
	ti.Placeholder = "0x0"
	ti.Prompt = "offset: "
	ti.Width = 20
	return &browser{filename: filename, snap: snap, seek: ti}
}

func (m *browser) Init() tea.Cmd { return nil }

func (m *browser) items() int { return m.snap.MemoryCount() + m.snap.InstanceCount() }

func (m *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateSeek {
		switch key.String() {
		case "enter":
			off, err := strconv.ParseInt(strings.TrimSpace(m.seek.Value()), 0, 64)
			switch {
			case err != nil:
				m.err = err
			case off < 0 || int(off) >= len(m.memory):
				m.err = fmt.Errorf("offset %#x outside memory of %d bytes", off, len(m.memory))
			default:
				m.err = nil
				m.offset = int(off) &^ 0xf
			}
			m.seek.Blur()
			m.state = stateMemory
			return m, nil
		case "esc":
			m.seek.Blur()
			m.state = stateMemory
			return m, nil
		}
		var cmd tea.Cmd
		m.seek, cmd = m.seek.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		switch {
		case m.state == stateList && m.selected > 0:
			m.selected--
		case m.state == stateMemory:
			m.scroll(-16)
		}

	case "down", "j":
		switch {
		case m.state == stateList && m.selected < m.items()-1:
			m.selected++
		case m.state == stateMemory:
			m.scroll(16)
		}

	case "pgup":
		m.scroll(-16 * dumpRows)
	case "pgdown", " ":
		m.scroll(16 * dumpRows)

	case "g":
		if m.state == stateMemory {
			m.seek.SetValue("")
			m.seek.Focus()
			m.state = stateSeek
			return m, textinput.Blink
		}

	case "enter":
		if m.state != stateList || m.items() == 0 {
			break
		}
		if m.selected < m.snap.MemoryCount() {
			m.memory = m.snap.Memory(m.selected)
			m.offset = 0
			m.state = stateMemory
		} else {
			m.state = stateGlobals
		}

	case "esc":
		m.state = stateList
		m.memory = nil
		m.err = nil
	}
	return m, nil
}

func (m *browser) scroll(delta int) {
	if m.state != stateMemory {
		return
	}
	last := max(0, (len(m.memory)-1)&^0xf)
	m.offset = min(max(0, m.offset+delta), last)
}

func (m *browser) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Snapshot"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateList:
		for i := range m.items() {
			line := m.itemLine(i)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateMemory, stateSeek:
		fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render(fmt.Sprintf("memory %d", m.selected)), valueStyle.Render(memoryLine(m.snap, m.selected)))
		b.WriteString(hexdump(m.memory, m.offset, dumpRows))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(m.err.Error()))
			b.WriteString("\n")
		}
		if m.state == stateSeek {
			b.WriteString(m.seek.View())
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ scroll • pgup/pgdown page • g go to offset • esc back"))

	case stateGlobals:
		inst := m.selected - m.snap.MemoryCount()
		b.WriteString(labelStyle.Render(fmt.Sprintf("instance %d globals", inst)))
		b.WriteString("\n\n")
		for i, v := range globals(m.snap, inst) {
			fmt.Fprintf(&b, "  %2d  %s\n", i, resultStyle.Render(fmt.Sprintf("%d (%#016x)", int64(v), v)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}
	return b.String()
}

func (m *browser) itemLine(i int) string {
	if i < m.snap.MemoryCount() {
		return labelStyle.Render(fmt.Sprintf("memory %d", i)) + "  " + valueStyle.Render(memoryLine(m.snap, i))
	}
	inst := i - m.snap.MemoryCount()
	return labelStyle.Render(fmt.Sprintf("instance %d", inst)) + "  " + valueStyle.Render(globalsLine(m.snap, inst))
}
