// Package tui is the live terminal view of one streamed response.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"blockstream/internal/llm"
	"blockstream/internal/render"
	"blockstream/internal/scheduler"
)

// Options configures Run.
type Options struct {
	Provider  llm.Provider
	Request   llm.Request
	Scheduler []scheduler.Option
	Style     string // render style, render.StyleAuto when empty
}

// Run streams one response into a full-screen view until the user quits.
// Ctrl+C while streaming cancels the response.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	style := opts.Style
	if style == "" {
		style = render.StyleAuto
	}

	ch := beginStream(ctx, opts.Provider, opts.Request, opts.Scheduler)
	m := newModel(opts.Request.Prompt, style, ch, cancel)

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
