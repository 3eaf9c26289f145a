package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"blockstream/internal/blocks"
	"blockstream/internal/render"
)

// ─── Mode ───────────────────────────────────────────────────────────────────

type mode int

const (
	modeStreaming mode = iota
	modeDone
	modeCancelled
	modeFailed
)

// header + separator above the viewport, separator + hint below it
const chromeHeight = 4

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	spinner  spinner.Model
	viewport viewport.Model
	renderer *render.Renderer

	prompt  string
	style   string
	mode    mode
	err     error
	blocks  []blocks.Block
	flushes int

	ch     <-chan tea.Msg
	cancel context.CancelFunc

	ready bool
}

func newModel(prompt, style string, ch <-chan tea.Msg, cancel context.CancelFunc) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	return model{
		spinner: sp,
		prompt:  prompt,
		style:   style,
		mode:    modeStreaming,
		ch:      ch,
		cancel:  cancel,
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForStream(m.ch),
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := max(m.height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, h)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = h
		}
		if r, err := render.New(m.width, m.style); err == nil {
			m.renderer = r
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.mode == modeStreaming {
				m.cancel()
				m.mode = modeCancelled
			}
			return m, tea.Quit
		case "q", "esc":
			if m.mode != modeStreaming {
				return m, tea.Quit
			}
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case blocksMsg:
		m.blocks = msg.blocks
		m.flushes++
		m.refresh()
		return m, waitForStream(m.ch)

	case doneMsg:
		if m.mode == modeStreaming {
			m.mode = modeDone
		}
		return m, nil

	case errMsg:
		m.mode = modeFailed
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.mode != modeStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh re-renders the block list into the viewport, following the tail
// when the view was already at the bottom.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	follow := m.viewport.AtBottom()
	var content string
	if m.renderer != nil {
		content = m.renderer.Render(m.blocks)
	} else {
		content = render.Plain(m.blocks)
	}
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

// ─── View ───────────────────────────────────────────────────────────────────

func (m model) View() string {
	if !m.ready {
		return m.status()
	}
	sep := ruleStyle.Render(strings.Repeat("─", max(m.width, 1)))
	return strings.Join([]string{
		m.status(),
		sep,
		m.viewport.View(),
		sep,
		m.hint(),
	}, "\n")
}

func (m model) status() string {
	prompt := promptMark + m.prompt
	switch m.mode {
	case modeDone:
		return prompt + "  " + modeStyles[modeDone].Render(fmt.Sprintf("✓ done · %d updates", m.flushes))
	case modeCancelled:
		return prompt + "  " + modeStyles[modeCancelled].Render("! cancelled")
	case modeFailed:
		return prompt + "  " + modeStyles[modeFailed].Render("✗ "+m.err.Error())
	}
	return prompt + "  " + m.spinner.View() + modeStyles[modeStreaming].Render(fmt.Sprintf(" streaming · %d updates", m.flushes))
}

func (m model) hint() string {
	if m.mode == modeStreaming {
		return hintStyle.Render("ctrl+c cancel · ↑/↓ scroll")
	}
	return hintStyle.Render("q quit · ↑/↓ scroll")
}
