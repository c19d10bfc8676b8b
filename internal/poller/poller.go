// Package poller keeps the navbar progress indicator in sync with the task
// runner's overall progress endpoint by polling it on a fixed interval.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/overall-progress/internal/clock"
	"github.com/JakeFAU/overall-progress/internal/clock/system"
	"github.com/JakeFAU/overall-progress/internal/dom"
	"github.com/JakeFAU/overall-progress/internal/indicator"
	"github.com/JakeFAU/overall-progress/internal/progress"
	"github.com/JakeFAU/overall-progress/internal/status"
)

// DefaultInterval is the delay between poll ticks.
const DefaultInterval = 2000 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by Start on a running poller.
	ErrAlreadyRunning = errors.New("poller already running")
	// ErrNoFetcher is returned by New when no Fetcher is supplied.
	ErrNoFetcher = errors.New("poller requires a fetcher")
)

// Fetcher retrieves the current progress document.
type Fetcher interface {
	Fetch(ctx context.Context) (status.ProgressStatus, error)
}

// Config tunes scheduling.
type Config struct {
	// Interval between ticks; DefaultInterval when zero.
	Interval time.Duration
	// DiscardStale drops responses older than the last applied one.
	DiscardStale bool
	// PollImmediately fires one poll as soon as Start is called instead of
	// waiting for the first tick.
	PollImmediately bool
}

// Snapshot describes the last applied poll.
type Snapshot struct {
	Seq       uint64    `json:"seq"`
	Progress  float64   `json:"progress"`
	Active    bool      `json:"active"`
	Rendered  bool      `json:"rendered"`
	AppliedAt time.Time `json:"applied_at"`
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClock overrides the time source and ticker factory.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger used for poll failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithEmitter routes poll events to e.
func WithEmitter(e progress.Emitter) Option {
	return func(p *Poller) {
		if e != nil {
			p.emitter = e
		}
	}
}

// Poller fetches progress on every tick and renders it into a document.
// Ticks do not wait for each other, so requests may overlap.
type Poller struct {
	cfg     Config
	fetcher Fetcher
	doc     dom.Document
	clock   clock.Clock
	logger  *zap.Logger
	emitter progress.Emitter

	seq atomic.Uint64

	// mu serializes rendering and guards the fields below.
	mu          sync.Mutex
	lastApplied uint64
	snapshot    Snapshot

	// runMu guards the run state and is held across Stop's wait.
	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Poller rendering into doc.
func New(cfg Config, fetcher Fetcher, doc dom.Document, opts ...Option) (*Poller, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	p := &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		doc:     doc,
		clock:   system.New(),
		logger:  zap.NewNop(),
		emitter: progress.NopEmitter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Interval reports the configured tick interval.
func (p *Poller) Interval() time.Duration {
	return p.cfg.Interval
}

// PollOnce fetches the progress document and renders it. On failure the
// document is left untouched and the error is returned.
func (p *Poller) PollOnce(ctx context.Context) error {
	seq := p.seq.Add(1)
	start := p.clock.Now()
	p.emitter.Emit(progress.Event{Seq: seq, TS: start, Stage: progress.StagePollStart})

	st, err := p.fetcher.Fetch(ctx)
	dur := p.clock.Now().Sub(start)
	if dur < 0 {
		dur = 0
	}
	if err != nil {
		p.emitter.Emit(progress.Event{
			Seq:   seq,
			TS:    p.clock.Now(),
			Stage: progress.StagePollError,
			Dur:   dur,
			Note:  err.Error(),
		})
		return fmt.Errorf("poll %d: %w", seq, err)
	}

	st.Progress = status.Clamp(st.Progress)
	applied, rendered := p.apply(seq, st)
	evt := progress.Event{
		Seq:      seq,
		TS:       p.clock.Now(),
		Progress: st.Progress,
		Active:   st.Active,
		Rendered: rendered,
		Dur:      dur,
	}
	if !applied {
		evt.Stage = progress.StagePollStale
		p.emitter.Emit(evt)
		p.logger.Debug("discarding stale progress response", zap.Uint64("seq", seq))
		return nil
	}
	evt.Stage = progress.StagePollDone
	p.emitter.Emit(evt)
	if !rendered {
		p.logger.Debug("progress indicator container not found", zap.String("id", dom.ContainerID))
	}
	return nil
}

func (p *Poller) apply(seq uint64, st status.ProgressStatus) (applied, rendered bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.DiscardStale && seq < p.lastApplied {
		return false, false
	}
	rendered = indicator.Render(p.doc, st.Progress, st.Active)
	if seq > p.lastApplied {
		p.lastApplied = seq
	}
	p.snapshot = Snapshot{
		Seq:       seq,
		Progress:  st.Progress,
		Active:    st.Active,
		Rendered:  rendered,
		AppliedAt: p.clock.Now(),
	}
	return true, rendered
}

// Snapshot returns the last applied poll; ok is false before the first one.
func (p *Poller) Snapshot() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot, p.snapshot.Seq != 0
}

// Start begins ticking. Polls run until Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.cfg.Interval)
	p.running = true
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(runCtx, ticker)
	if p.cfg.PollImmediately {
		p.launch(runCtx)
	}
	p.logger.Info("progress poller started", zap.Duration("interval", p.cfg.Interval))
	return nil
}

// Stop halts ticking, cancels in-flight polls and waits for them to return.
// It is safe to call on a stopped poller.
func (p *Poller) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
	p.wg.Wait()
	p.logger.Info("progress poller stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (p *Poller) Running() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context, ticker clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.launch(ctx)
		}
	}
}

func (p *Poller) launch(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.tick(ctx)
	}()
}

func (p *Poller) tick(ctx context.Context) {
	err := p.PollOnce(ctx)
	if err == nil {
		return
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		p.logger.Debug("poll canceled", zap.Error(err))
		return
	}
	p.logger.Error("error fetching overall progress", zap.Error(err))
}
