package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech"
)

// Player plays one PCM buffer, blocking until it drains or ctx is cancelled.
// Cancellation must stop output immediately.
type Player interface {
	Play(ctx context.Context, pcm []byte, encoding audio.EncodingInfo) error
	Close() error
}

type OutputOption func(*Output)

// WithPatternOverrides replaces individual pulse sequences, keeping the
// built-in defaults for patterns not named.
func WithPatternOverrides(overrides map[Pattern]PulseSequence) OutputOption {
	return func(o *Output) {
		for pattern, sequence := range overrides {
			if len(sequence.Pulses) > 0 {
				o.patterns[pattern] = sequence
			}
		}
	}
}

// Output owns both feedback channels. Audio playback and haptics are
// independent: Vibrate never blocks, and neither channel waits on the other.
type Output struct {
	player   Player
	haptic   *haptic
	patterns map[Pattern]PulseSequence

	playMu    sync.Mutex
	closeOnce sync.Once
}

func NewOutput(player Player, motor Motor, opts ...OutputOption) (*Output, error) {
	o := &Output{player: player}

	// Deep-copy the defaults so per-device overrides never mutate them.
	if err := copier.CopyWithOption(&o.patterns, DefaultPatterns(), copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy default haptic patterns: %w", err)
	}

	for _, opt := range opts {
		opt(o)
	}

	o.haptic = newHaptic(motor, o.patterns)
	o.haptic.start()

	return o, nil
}

// PlayAudio plays one synthesized utterance. The coordinator never issues two
// playback calls concurrently; the mutex makes that a hard guarantee rather
// than a convention.
func (o *Output) PlayAudio(ctx context.Context, speechAudio speech.Audio) error {
	ctx, span := tracer.Start(ctx, "play speech audio")
	defer span.End()
	span.SetAttributes(
		attribute.Int("feedback.pcm_bytes", len(speechAudio.PCM)),
		attribute.Float64("feedback.duration_seconds", speechAudio.Duration().Seconds()),
	)

	o.playMu.Lock()
	defer o.playMu.Unlock()

	if err := o.player.Play(ctx, speechAudio.PCM, speechAudio.Encoding); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// Vibrate requests a named haptic pattern and returns immediately.
func (o *Output) Vibrate(pattern Pattern) {
	o.haptic.request(pattern)
}

// StopHaptics interrupts any in-flight pulse sequence and parks the motor.
func (o *Output) StopHaptics() {
	o.haptic.stop()
}

func (o *Output) Close() error {
	var closeErr error
	o.closeOnce.Do(func() {
		o.haptic.close()
		if err := o.player.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close audio player: %w", err))
		}
	})
	return closeErr
}
