package engine

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTickInterval is the target wall time of one tick.
const DefaultTickInterval = 20 * time.Millisecond

// ErrRunning reports a second Run on a runner that is already looping.
var ErrRunning = errors.New("runner already running")

// Ticker is advanced once per loop iteration. *World implements it.
type Ticker interface {
	Think() bool
}

// Runner drives a Ticker at a fixed period on the calling goroutine.
type Runner struct {
	ticker   Ticker
	interval time.Duration
	log      zerolog.Logger

	running atomic.Bool
	ticks   atomic.Uint64
	panics  atomic.Uint64
}

// NewRunner returns a runner for t. A non-positive interval selects
// DefaultTickInterval.
func NewRunner(t Ticker, interval time.Duration, log zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{
		ticker:   t,
		interval: interval,
		log:      log.With().Str("component", "runner").Logger(),
	}
}

// Run ticks until ctx is cancelled. Cancellation is observed between ticks,
// never in the middle of one. A tick that overruns the interval is followed
// immediately by the next.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer r.running.Store(false)

	r.log.Info().Dur("interval", r.interval).Msg("simulation loop started")
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			r.log.Info().Uint64("ticks", r.ticks.Load()).Msg("simulation loop stopped")
			return nil
		}
		start := time.Now()
		r.step()
		sleep := r.interval - time.Since(start)
		if sleep <= 0 {
			continue
		}
		timer.Reset(sleep)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

func (r *Runner) step() {
	defer func() {
		if p := recover(); p != nil {
			r.panics.Add(1)
			r.log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("tick panicked")
		}
	}()
	r.ticker.Think()
	r.ticks.Add(1)
}

// Running reports whether Run is looping.
func (r *Runner) Running() bool { return r.running.Load() }

// Ticks returns the number of completed ticks.
func (r *Runner) Ticks() uint64 { return r.ticks.Load() }

// Panics returns the number of ticks that panicked.
func (r *Runner) Panics() uint64 { return r.panics.Load() }
