package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-host/snapshot"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Describe a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
				p := tea.NewProgram(newBrowser(args[0], snap), tea.WithAltScreen())
				_, err := p.Run()
				return err
			}
			summarize(cmd.OutOrStdout(), args[0], snap)
			return nil
		},
	}
	cmd.Flags().BoolP("interactive", "i", false, "Browse the snapshot interactively")
	return cmd
}

func summarize(w io.Writer, name string, snap *snapshot.Snapshot) {
	fmt.Fprintf(w, "%s %s (%d bytes)\n\n", titleStyle.Render("snapshot"), name, snap.Size())

	fmt.Fprintln(w, labelStyle.Render("memories"))
	for i := range snap.MemoryCount() {
		fmt.Fprintf(w, "  %d  %s\n", i, valueStyle.Render(memoryLine(snap, i)))
	}

	fmt.Fprintln(w, labelStyle.Render("instances"))
	for i := range snap.InstanceCount() {
		fmt.Fprintf(w, "  %d  %s\n", i, valueStyle.Render(globalsLine(snap, i)))
	}
}

func memoryLine(snap *snapshot.Snapshot, i int) string {
	mem := snap.Memory(i)
	nonZero := 0
	for _, b := range mem {
		if b != 0 {
			nonZero++
		}
	}
	return fmt.Sprintf("%d bytes, %d pages, %d non-zero", len(mem), len(mem)>>16, nonZero)
}

func globals(snap *snapshot.Snapshot, i int) []uint64 {
	buf := snap.Globals(i)
	out := make([]uint64, len(buf)/snapshot.GlobalSize)
	for j := range out {
		out[j] = binary.LittleEndian.Uint64(buf[j*snapshot.GlobalSize:])
	}
	return out
}

func globalsLine(snap *snapshot.Snapshot, i int) string {
	vals := globals(snap, i)
	parts := make([]string, len(vals))
	for j, v := range vals {
		parts[j] = fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%d globals [%s]", len(vals), strings.Join(parts, " "))
}

// hexdump renders rows of 16 bytes starting at offset.
func hexdump(mem []byte, offset, rows int) string {
	var b strings.Builder
	for r := range rows {
		start := offset + r*16
		if start >= len(mem) {
			break
		}
		row := mem[start:min(start+16, len(mem))]
		fmt.Fprintf(&b, "%08x  ", start)
		for i := range 16 {
			if i < len(row) {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for _, c := range row {
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteString("|\n")
	}
	return b.String()
}
