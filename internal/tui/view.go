package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"codeberg.org/mutker/vmctl/internal/core"
)

const nameColumnWidth = 24

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("vmctl"))
	b.WriteString("  ")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("snapshot v%d · %d VMs", m.snapshot.Version(), m.snapshot.Len())))
	b.WriteString("\n")

	if m.degraded.Banner {
		b.WriteString(BannerStyle.Render("CONNECTION DEGRADED · " + m.degraded.Reason))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(renderTable(m.snapshot, m.cursor, m.spinner.View()))
	b.WriteString("\n")
	b.WriteString(RenderSeparator(m.width))
	b.WriteString("\n")
	b.WriteString(renderEvents(m.events))
	b.WriteString("\n")
	b.WriteString(renderHelp())

	return b.String()
}

// renderTable renders the VM list with cursor, state and last error columns.
func renderTable(snap *core.Snapshot, cursor int, spinnerView string) string {
	var b strings.Builder

	vms := snap.VMs()
	if len(vms) == 0 {
		b.WriteString(DimmedStyle.Render("No virtual machines found."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(NoCursor())
	b.WriteString(ColumnHeaderStyle.Render(pad("NAME", nameColumnWidth) + pad("STATE", 16) + "LAST ERROR"))
	b.WriteString("\n")

	for i, vm := range vms {
		name := pad(vm.Name, nameColumnWidth)
		if i == cursor {
			b.WriteString(Cursor())
			b.WriteString(SelectedStyle.Render(name))
		} else {
			b.WriteString(NoCursor())
			b.WriteString(ItemStyle.Render(name))
		}

		b.WriteString(renderState(vm.State, spinnerView))
		if vm.LastError != "" {
			b.WriteString(ErrorStyle.Render(vm.LastError))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderState renders a state cell, padded to the column width.
func renderState(state core.PowerState, spinnerView string) string {
	label := pad(string(state), 16)
	switch state {
	case core.StateRunning:
		return StatusRunning.Render(label)
	case core.StateStopped:
		return StatusStopped.Render(label)
	case core.StateSuspended:
		return StatusSuspended.Render(label)
	case core.StateTransitioning:
		cell := spinnerView + " " + string(state)
		return StatusTransitioning.Render(cell) + pad("", 16-len(state)-2)
	default:
		return StatusUnknown.Render(label)
	}
}

// renderEvents renders the recent activity pane, oldest first.
func renderEvents(events []eventEntry) string {
	var b strings.Builder

	if len(events) == 0 {
		b.WriteString(DimmedStyle.Render("No recent activity."))
		b.WriteString("\n")
		return b.String()
	}

	for _, e := range events {
		stamp := DimmedStyle.Render(e.At.Format("15:04:05"))
		b.WriteString("  ")
		b.WriteString(stamp)
		b.WriteString(" ")
		if e.Err {
			b.WriteString(ErrorStyle.Render(e.Text))
		} else {
			b.WriteString(ItemStyle.Render(e.Text))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderHelp() string {
	bindings := []string{
		RenderKeyBinding("↑/↓", "navigate"),
		RenderKeyBinding("s", "start"),
		RenderKeyBinding("S", "shutdown"),
		RenderKeyBinding("x", "stop"),
		RenderKeyBinding("p", "suspend"),
		RenderKeyBinding("r", "refresh"),
		RenderKeyBinding("q", "quit"),
	}
	return HelpStyle.Render(strings.Join(bindings, "  "))
}

// pad right-pads s to the given display width, truncating on rune
// boundaries when it does not fit. Counts terminal cells, not bytes, so
// wide runes in VM names keep the columns aligned.
func pad(s string, width int) string {
	if width <= 0 {
		return ""
	}

	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}

	s = runewidth.Truncate(s, width-1, "")

	return s + strings.Repeat(" ", width-runewidth.StringWidth(s))
}
