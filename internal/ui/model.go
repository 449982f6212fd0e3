// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Shows stream formats, queue depth and renderer counters
package ui

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/player"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Stream
	title   string
	backend string
	source  audio.Format
	device  audio.Format

	// Playback
	state    player.State
	position int64

	// Stats
	depth     int
	capacity  int
	queued    int64
	played    int64
	dropped   int64
	underruns int64
	flushes   int64

	controls *Controls

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderQueue()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders the title and playback state
func (m Model) renderHeader() string {
	stateIcon := "■"
	switch m.state {
	case player.StatePlaying:
		stateIcon = "▶"
	case player.StateFailed:
		stateIcon = "✗"
	case player.StateFinished:
		stateIcon = "✓"
	}

	return fmt.Sprintf(`┌─ PCM Bridge ─────────────────────────────────────────┐
│ File:   %-44s │
│ Status: %s %-42s │
├──────────────────────────────────────────────────────┤
`, truncate(m.title, 44), stateIcon, string(m.state)+" "+formatPosition(m.position, m.source.SampleRate))
}

// renderStreamInfo renders the source and device formats
func (m Model) renderStreamInfo() string {
	if m.source.SampleRate == 0 {
		return "│ No stream                                            │\n"
	}

	return fmt.Sprintf("│ Source: %-44s │\n│ Device: %-44s │\n",
		describe(m.source), truncate(describe(m.device)+" via "+m.backend, 44))
}

// renderQueue renders the renderer queue fill
func (m Model) renderQueue() string {
	return fmt.Sprintf("│                                                      │\n"+
		"│ Queue:  [%s] %d/%d blocks%-17s │\n",
		renderBar(m.depth, m.capacity, 10), m.depth, m.capacity, "")
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  Played: %d  Underruns: %d  Flushes: %d%-5s │
│                                                      │
`, m.played, m.underruns, m.flushes, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ r:Restart  d:Debug  q:Quit                           │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders raw counters
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Queued: %d  Dropped: %d                            │
│   Position: %d frames                               │
│   Frame size: %d -> %d bytes                         │
`, m.queued, m.dropped, m.position, m.source.FrameSize(), m.device.FrameSize())
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.send(m.controls.quitChan())
		return m, tea.Quit
	case "r":
		m.controls.send(m.controls.restartChan())
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}

	stats := msg.Stats
	if stats.Source.SampleRate != 0 {
		m.source = stats.Source
		m.device = stats.Device
	}
	if stats.State != "" {
		m.state = stats.State
	}
	m.position = stats.Position
	m.depth = stats.Depth
	m.capacity = stats.Capacity
	m.queued = stats.Queued
	m.played = stats.Played
	m.dropped = stats.Dropped
	m.underruns = stats.Underruns
	m.flushes = stats.Flushes
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Title   string
	Backend string
	Stats   player.Stats
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func describe(f audio.Format) string {
	return fmt.Sprintf("%dHz %s %s", f.SampleRate, channelName(f.Channels), f.SampleFormat)
}

func formatPosition(frames int64, rate int) string {
	if rate <= 0 {
		return ""
	}
	d := time.Duration(frames) * time.Second / time.Duration(rate)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
