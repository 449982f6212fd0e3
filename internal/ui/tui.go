// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and forwards key commands to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls holds channels carrying user commands out of the TUI
type Controls struct {
	Restart chan struct{}
	Quit    chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Restart: make(chan struct{}, 1),
		Quit:    make(chan struct{}, 1),
	}
}

func (c *Controls) restartChan() chan struct{} {
	if c == nil {
		return nil
	}
	return c.Restart
}

func (c *Controls) quitChan() chan struct{} {
	if c == nil {
		return nil
	}
	return c.Quit
}

// send posts a command without blocking the UI; repeats collapse into one
func (c *Controls) send(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "idle",
		controls: controls,
	}
}

// Run creates the TUI program. The caller starts it with Run on the program.
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
