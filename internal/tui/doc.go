// Package tui implements the terminal dashboard using Bubble Tea.
//
// The Model holds all view state and never mutates engine state directly:
// it reads snapshots, submits power commands, and requests refreshes. Redraws
// are driven by the engine's coalesced subscription channel, bridged into a
// tea.Msg by a listener command that re-arms itself after every update.
//
// # Key Files
//
//   - model.go: Model definition, Update loop, keyboard handling
//   - view.go: Dashboard rendering (VM table, event pane, banner)
//   - styles.go: Lipgloss styling
package tui
