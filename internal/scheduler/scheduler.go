// Package scheduler decides when a freshly parsed block list may replace the
// one last handed to the renderer while a response is streaming in.
package scheduler

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"blockstream/internal/blocks"
	"blockstream/internal/parser"
)

// ErrCancelled is reported by Err after Cancel.
var ErrCancelled = errors.New("stream cancelled")

// Defaults for the adaptive interval.
const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultSmallGrowth = 30
	DefaultIdleFactor  = 2.5
)

// RenderFunc receives every flushed block list. It must not call back into
// the Scheduler that invoked it.
type RenderFunc func(bs []blocks.Block)

// ErrorFunc receives the terminal error passed to Fail.
type ErrorFunc func(err error)

// State is the per-response bookkeeping of a Scheduler.
type State struct {
	LastBlocks    []blocks.Block
	LastFlushAt   time.Time
	LastBufferLen int
	Pending       bool // a delayed flush is armed
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithInterval sets the base flush interval.
func WithInterval(d time.Duration) Option { return func(s *Scheduler) { s.interval = d } }

// WithSmallGrowth sets the growth, in bytes, below which the interval is
// stretched by the idle factor.
func WithSmallGrowth(n int) Option { return func(s *Scheduler) { s.smallGrowth = n } }

// WithIdleFactor sets the multiplier applied on small growth.
func WithIdleFactor(f float64) Option { return func(s *Scheduler) { s.idleFactor = f } }

// WithLogger sets the logger for pass and lifecycle decisions. The default
// discards everything.
func WithLogger(l *zap.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithChainProgress advances thought-chain steps while streaming based on
// the content that follows each chain.
func WithChainProgress(on bool) Option { return func(s *Scheduler) { s.chainProgress = on } }

// WithErrorHandler sets the callback for Fail.
func WithErrorHandler(f ErrorFunc) Option { return func(s *Scheduler) { s.onError = f } }

// ─── Scheduler ──────────────────────────────────────────────────────────────

// Scheduler owns the buffer of one streamed response. Append may be called
// from the transport goroutine while the delayed flush fires on a timer
// goroutine; passes and render calls are serialized.
type Scheduler struct {
	render        RenderFunc
	onError       ErrorFunc
	clock         Clock
	interval      time.Duration
	smallGrowth   int
	idleFactor    float64
	chainProgress bool
	log           *zap.Logger

	flushMu sync.Mutex // serializes pass + render

	mu          sync.Mutex
	buf         strings.Builder
	state       State
	timer       Timer
	gen         uint64 // bumped whenever the armed timer is replaced or stopped
	interactive map[string]bool
	flushes     int
	closed      bool
	err         error
}

// New creates an idle Scheduler that flushes to render.
func New(render RenderFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		render:      render,
		clock:       realClock{},
		interval:    DefaultInterval,
		smallGrowth: DefaultSmallGrowth,
		idleFactor:  DefaultIdleFactor,
		log:         zap.NewNop(),
		interactive: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.render == nil {
		s.render = func([]blocks.Block) {}
	}
	if s.onError == nil {
		s.onError = func(error) {}
	}
	return s
}

// Append adds a chunk to the buffer and either flushes now or arms the
// delayed flush.
func (s *Scheduler) Append(chunk string) {
	if chunk == "" {
		return
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("chunk after close ignored", zap.Int("bytes", len(chunk)))
		return
	}
	s.buf.WriteString(chunk)

	now := s.clock.Now()
	growth := s.buf.Len() - s.state.LastBufferLen
	elapsed := now.Sub(s.state.LastFlushAt)

	interval := s.interval
	if growth < s.smallGrowth {
		interval = time.Duration(float64(interval) * s.idleFactor)
	}

	parsed, interactive := s.newInteractiveLocked()
	switch {
	case interactive:
		s.log.Debug("interactive directive, flushing now")
		s.stopTimerLocked()
	case elapsed >= interval:
		s.stopTimerLocked()
		parsed = parser.Parse(s.buf.String())
	default:
		s.armLocked(interval - elapsed)
		s.mu.Unlock()
		return
	}

	out, changed := s.flushLocked(now, false, parsed)
	s.mu.Unlock()
	if changed {
		s.render(out)
	}
}

// Complete ends the stream normally: any pending flush is dropped and one
// final exact pass runs with every loading chain step resolved.
func (s *Scheduler) Complete() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	loading := blocks.HasLoading(s.state.LastBlocks)
	out, changed := s.passLocked(s.clock.Now(), true)
	s.closed = true
	s.mu.Unlock()

	s.log.Debug("stream complete",
		zap.Int("flushes", s.Flushes()),
		zap.Bool("final_flush", changed),
		zap.Bool("resolved_chains", loading))
	if changed {
		s.render(out)
	}
}

// Fail ends the stream with a transport error. No further flushes happen.
func (s *Scheduler) Fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.closed = true
	s.err = err
	s.mu.Unlock()

	s.log.Debug("stream failed", zap.Error(err))
	s.onError(err)
}

// Cancel abandons the response: the pending flush is dropped, state is
// discarded and later chunks are ignored.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopTimerLocked()
	s.closed = true
	s.err = ErrCancelled
	s.buf.Reset()
	s.state = State{}
	s.log.Debug("stream cancelled")
}

// Reset returns the Scheduler to a fresh idle state for another response.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.buf.Reset()
	s.state = State{}
	s.interactive = map[string]bool{}
	s.flushes = 0
	s.closed = false
	s.err = nil
}

// Blocks returns the last flushed block list.
func (s *Scheduler) Blocks() []blocks.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastBlocks
}

// Flushes returns how many times render has been called since the last Reset.
func (s *Scheduler) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Buffer returns the accumulated response text.
func (s *Scheduler) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// State returns a snapshot of the scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended the stream: the one given to Fail,
// ErrCancelled, or nil.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ─── Internal helpers ───────────────────────────────────────────────────────

// passLocked parses the whole buffer and records a flush if the result
// differs from the last one. The final pass compares exactly so that the
// last rendered list always matches a one-shot parse.
func (s *Scheduler) passLocked(now time.Time, final bool) ([]blocks.Block, bool) {
	return s.flushLocked(now, final, parser.Parse(s.buf.String()))
}

// flushLocked is passLocked over an already parsed buffer.
func (s *Scheduler) flushLocked(now time.Time, final bool, bs []blocks.Block) ([]blocks.Block, bool) {
	text := s.buf.String()

	var same bool
	if final {
		bs = blocks.ResolveChains(bs)
		same = blocks.EqualExact(s.state.LastBlocks, bs)
	} else {
		if s.chainProgress {
			bs = progressChains(bs)
		}
		same = blocks.Equal(s.state.LastBlocks, bs)
	}

	s.state.Pending = false
	if same {
		s.log.Debug("pass unchanged", zap.Int("buffer", len(text)), zap.Int("blocks", len(bs)))
		return nil, false
	}

	s.state.LastBlocks = bs
	s.state.LastFlushAt = now
	s.state.LastBufferLen = len(text)
	s.interactive = blocks.InteractiveKinds(bs)
	s.flushes++
	s.log.Debug("flush", zap.Int("buffer", len(text)), zap.Int("blocks", len(bs)), zap.Bool("final", final))
	return bs, true
}

// newInteractiveLocked reports whether the assembled text blocks now hold an
// interactive directive kind that was absent at the last flush, returning
// the parse it checked. The raw buffer is scanned first so that the parse
// only runs when a new kind is possible.
func (s *Scheduler) newInteractiveLocked() ([]blocks.Block, bool) {
	text := s.buf.String()
	if !hasNewKind(blocks.ScanInteractive(text), s.interactive) {
		return nil, false
	}
	bs := parser.Parse(text)
	if !hasNewKind(blocks.InteractiveKinds(bs), s.interactive) {
		return nil, false
	}
	return bs, true
}

func hasNewKind(now, seen map[string]bool) bool {
	for k := range now {
		if !seen[k] {
			return true
		}
	}
	return false
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.stopTimerLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
	s.state.Pending = true
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.state.Pending = false
}

func (s *Scheduler) fire(gen uint64) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	out, changed := s.passLocked(s.clock.Now(), false)
	s.mu.Unlock()
	if changed {
		s.render(out)
	}
}
