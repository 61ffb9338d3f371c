package button

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/events"
)

const (
	DefaultPollInterval     = 10 * time.Millisecond
	DefaultDebounceWindow   = 40 * time.Millisecond
	DefaultRefractoryPeriod = 300 * time.Millisecond
)

// Sampler reads the instantaneous logical button level. Implementations map
// the electrical level to pressed=true (the hardware button is active-low).
type Sampler interface {
	Sample() (pressed bool, err error)
}

type Option func(*Debouncer)

func WithPollInterval(interval time.Duration) Option {
	return func(d *Debouncer) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

func WithDebounceWindow(window time.Duration) Option {
	return func(d *Debouncer) {
		if window > 0 {
			d.debounceWindow = window
		}
	}
}

func WithRefractoryPeriod(period time.Duration) Option {
	return func(d *Debouncer) {
		if period > 0 {
			d.refractoryPeriod = period
		}
	}
}

// Debouncer converts raw pin-level samples into clean activation events. It
// owns its own poll goroutine and never blocks on pipeline state: the
// activation callback must hand off and return.
type Debouncer struct {
	sampler      Sampler
	onActivation func(events.Activation)

	pollInterval     time.Duration
	debounceWindow   time.Duration
	refractoryPeriod time.Duration

	seq atomic.Uint64

	// Poll-goroutine-owned edge state.
	lastLevel      bool
	candidateSince time.Time
	lastEmit       time.Time

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	closeCh   chan struct{}
	done      chan struct{}
}

func NewDebouncer(sampler Sampler, onActivation func(events.Activation), opts ...Option) *Debouncer {
	d := &Debouncer{
		sampler:          sampler,
		onActivation:     onActivation,
		pollInterval:     DefaultPollInterval,
		debounceWindow:   DefaultDebounceWindow,
		refractoryPeriod: DefaultRefractoryPeriod,
		closeCh:          make(chan struct{}),
		done:             make(chan struct{}),
	}
	if d.onActivation == nil {
		d.onActivation = func(events.Activation) {}
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start begins polling. Call at most once per debouncer instance.
func (d *Debouncer) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.started.Store(true)
		go func() {
			defer close(d.done)

			ticker := time.NewTicker(d.pollInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-d.closeCh:
					return
				case now := <-ticker.C:
					d.step(now)
				}
			}
		}()
	})
}

func (d *Debouncer) Close() {
	d.closeOnce.Do(func() {
		close(d.closeCh)
		if d.started.Load() {
			<-d.done
		}
	})
}

// step evaluates one sample. A rising edge opens a candidate window; the level
// must hold through the debounce window to emit, and emissions are suppressed
// within the refractory period of the previous one.
func (d *Debouncer) step(now time.Time) {
	pressed, err := d.sampler.Sample()
	if err != nil {
		logger.Warn("button sample failed", "error", err)
		d.lastLevel = false
		d.candidateSince = time.Time{}
		return
	}

	wasPressed := d.lastLevel
	d.lastLevel = pressed

	if !pressed {
		d.candidateSince = time.Time{}
		return
	}

	if !wasPressed {
		d.candidateSince = now
	}

	if d.candidateSince.IsZero() {
		// Already emitted for this press; wait for a release.
		return
	}

	if now.Sub(d.candidateSince) < d.debounceWindow {
		return
	}

	d.candidateSince = time.Time{}
	if !d.lastEmit.IsZero() && now.Sub(d.lastEmit) < d.refractoryPeriod {
		return
	}
	d.lastEmit = now

	d.onActivation(events.NewActivation(d.seq.Add(1)))
}
