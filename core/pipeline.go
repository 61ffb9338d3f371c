// Package pipeline coordinates one press-to-speech run at a time: capture a
// frame, describe it remotely, synthesize the description, play it back.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/camera"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/events"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/vision"
)

// Synthesizer turns description text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (speech.Audio, error)
}

// Feedback is the slice of the output surface the coordinator drives.
type Feedback interface {
	PlayAudio(ctx context.Context, audio speech.Audio) error
	Vibrate(pattern feedback.Pattern)
	StopHaptics()
}

type queuedActivation struct {
	activation events.Activation
	queuedAt   time.Time
}

// Pipeline is the coordinator. Activations arrive from the debouncer
// callback; a single runtime goroutine executes runs one at a time.
type Pipeline struct {
	camera      camera.Source
	describer   vision.Describer
	synthesizer Synthesizer
	feedback    Feedback

	policy    Policy
	deadline  time.Duration
	errorTone bool
	onEvent   func(events.Event)

	baseContext context.Context

	queue   chan queuedActivation
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	mu           sync.Mutex
	state        State
	activeRunID  string
	activeCancel context.CancelFunc
	supersededBy uint64
}

func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		policy:      PolicySupersede,
		deadline:    defaultRunDeadline,
		baseContext: context.Background(),
		state:       StateIdle,
		queue:       make(chan queuedActivation, 1),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.camera == nil {
		return nil, fmt.Errorf("a camera source is required")
	}
	if p.describer == nil {
		return nil, fmt.Errorf("a vision describer is required")
	}
	if p.synthesizer == nil {
		return nil, fmt.Errorf("a speech synthesizer is required")
	}
	if p.feedback == nil {
		return nil, fmt.Errorf("a feedback output is required")
	}

	return p, nil
}

// Start launches the runtime goroutine. ctx is the base context for all runs;
// cancelling it closes the pipeline.
func (p *Pipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.isClosed() {
			return
		}

		p.baseContext = ctx
		p.started.Store(true)

		go func() {
			<-ctx.Done()
			p.Close()
		}()

		go func() {
			defer close(p.done)

			for {
				select {
				case <-p.closeCh:
					return
				case queued := <-p.queue:
					if p.isClosed() {
						return
					}
					p.processActivation(queued)
				}
			}
		}()
	})
}

// Activate feeds one debounced button press into the pipeline. It never
// blocks: the press is acknowledged by haptic immediately, and what happens
// to an in-flight run is decided by the policy.
func (p *Pipeline) Activate(activation events.Activation) {
	if p.isClosed() {
		return
	}

	p.feedback.Vibrate(feedback.PatternAcknowledge)

	p.mu.Lock()
	busy := p.state != StateIdle
	if busy {
		switch p.policy {
		case PolicyQueue:
			p.mu.Unlock()
			runsDropped.Add(p.baseContext, 1)
			p.feedback.Vibrate(feedback.PatternBusy)
			p.emit(events.NewRunDropped(activation.Seq))
			return
		case PolicySupersede:
			p.supersededBy = activation.Seq
			runID := p.activeRunID
			if p.activeCancel != nil {
				p.activeCancel()
			}
			p.mu.Unlock()
			runsSuperseded.Add(p.baseContext, 1)
			p.emit(events.NewRunSuperseded(runID, activation.Seq))
		}
	} else {
		p.mu.Unlock()
	}

	p.enqueue(activation)
}

// enqueue replaces any still-pending activation; the newest press wins.
func (p *Pipeline) enqueue(activation events.Activation) {
	queued := queuedActivation{activation: activation, queuedAt: time.Now()}
	for {
		select {
		case <-p.closeCh:
			return
		case p.queue <- queued:
			return
		default:
		}

		select {
		case <-p.queue:
		default:
		}
	}
}

// State reports the coordinator's current position.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// Close cancels any in-flight run, stops the runtime and parks the haptics.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.closeCh)

		p.mu.Lock()
		if p.activeCancel != nil {
			p.activeCancel()
		}
		p.mu.Unlock()

		if p.started.Load() {
			<-p.done
		}
		p.feedback.StopHaptics()
	})
}

func (p *Pipeline) isClosed() bool {
	select {
	case <-p.closeCh:
		return true
	default:
		return false
	}
}

func (p *Pipeline) emit(event events.Event) {
	if p.onEvent == nil {
		return
	}
	p.onEvent(event)
}
