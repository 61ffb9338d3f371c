package pipeline

import (
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/camera"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/events"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/vision"
)

const defaultRunDeadline = 15 * time.Second

type Option func(*Pipeline)

// WithCamera sets the frame source. Required.
func WithCamera(source camera.Source) Option {
	return func(p *Pipeline) { p.camera = source }
}

// WithDescriber sets the vision client. Required.
func WithDescriber(describer vision.Describer) Option {
	return func(p *Pipeline) { p.describer = describer }
}

// WithSynthesizer sets the speech backend. Required.
func WithSynthesizer(synthesizer Synthesizer) Option {
	return func(p *Pipeline) { p.synthesizer = synthesizer }
}

// WithFeedback sets the audio and haptic output. Required.
func WithFeedback(feedback Feedback) Option {
	return func(p *Pipeline) { p.feedback = feedback }
}

// WithPolicy selects how a new activation treats an in-flight run.
func WithPolicy(policy Policy) Option {
	return func(p *Pipeline) {
		if policy == PolicySupersede || policy == PolicyQueue {
			p.policy = policy
		}
	}
}

// WithDeadline bounds a whole run, press to end of playback.
func WithDeadline(deadline time.Duration) Option {
	return func(p *Pipeline) {
		if deadline > 0 {
			p.deadline = deadline
		}
	}
}

// WithErrorTone plays a short tone in addition to the error haptic when a
// run fails.
func WithErrorTone(enabled bool) Option {
	return func(p *Pipeline) { p.errorTone = enabled }
}

// WithEventHandler registers a callback for pipeline lifecycle events. The
// callback must be safe for concurrent use and must not block.
func WithEventHandler(handler func(events.Event)) Option {
	return func(p *Pipeline) { p.onEvent = handler }
}
