package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"blockstream/internal/blocks"
	"blockstream/internal/llm"
	"blockstream/internal/scheduler"
	"blockstream/internal/session"
)

// ─── Messages sent from the stream goroutine to Bubble Tea ──────────────────

type blocksMsg struct {
	blocks []blocks.Block
}

type doneMsg struct{}

type errMsg struct {
	err error
}

// ─── Stream command ─────────────────────────────────────────────────────────
//
// Runs the response in a goroutine. Every scheduler flush becomes a
// blocksMsg on ch; the model dispatches another waitForStream after each
// message until the channel closes.

func beginStream(ctx context.Context, p llm.Provider, req llm.Request, opts []scheduler.Option) <-chan tea.Msg {
	ch := make(chan tea.Msg, 64)

	emit := func(msg tea.Msg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)

		s := scheduler.New(func(bs []blocks.Block) { emit(blocksMsg{blocks: bs}) }, opts...)
		err := session.Run(ctx, p, req, s)
		switch {
		case errors.Is(err, scheduler.ErrCancelled):
		case err != nil:
			emit(errMsg{err: err})
		default:
			emit(doneMsg{})
		}
	}()

	return ch
}

// waitForStream reads the next message from the channel.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return msg
	}
}
