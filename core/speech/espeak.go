package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCommand = "espeak"
	DefaultVoice   = "en"
	DefaultRate    = 160

	// Local synthesis of a one-sentence description completes well under
	// this bound.
	DefaultSynthesisTimeout = 3 * time.Second
)

type EspeakOption func(*EspeakSynthesizer)

func WithEspeakCommand(command string) EspeakOption {
	return func(s *EspeakSynthesizer) {
		if command != "" {
			s.command = command
		}
	}
}

func WithVoice(voice string) EspeakOption {
	return func(s *EspeakSynthesizer) {
		if voice != "" {
			s.voice = voice
		}
	}
}

// WithRate sets speaking speed in words per minute.
func WithRate(rate int) EspeakOption {
	return func(s *EspeakSynthesizer) {
		if rate > 0 {
			s.rate = rate
		}
	}
}

func WithSynthesisTimeout(timeout time.Duration) EspeakOption {
	return func(s *EspeakSynthesizer) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// EspeakSynthesizer runs the local espeak engine and captures its WAVE
// output. Deterministic for a fixed text, voice and rate.
type EspeakSynthesizer struct {
	command string
	voice   string
	rate    int
	timeout time.Duration

	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewEspeakSynthesizer(opts ...EspeakOption) *EspeakSynthesizer {
	s := &EspeakSynthesizer{
		command:    DefaultCommand,
		voice:      DefaultVoice,
		rate:       DefaultRate,
		timeout:    DefaultSynthesisTimeout,
		runCommand: runSynthesisCommand,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Probe verifies the espeak binary exists, for startup checks.
func (s *EspeakSynthesizer) Probe() error {
	if _, err := exec.LookPath(s.command); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *EspeakSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Audio{}, ErrInvalidText
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.runCommand(ctx,
		s.command,
		"-v", s.voice,
		"-s", strconv.Itoa(s.rate),
		"--stdout",
		text,
	)
	if err != nil {
		// Cancellation must stay visible to the caller; only genuine engine
		// failures are tagged as backend errors.
		if errors.Is(err, context.Canceled) {
			return Audio{}, err
		}
		return Audio{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	pcm, encoding, err := parsePCMWave(output)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if len(pcm) == 0 {
		return Audio{}, fmt.Errorf("%w: engine produced no samples", ErrBackend)
	}

	return Audio{PCM: pcm, Encoding: encoding}, nil
}

func runSynthesisCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout := bytes.Buffer{}
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %v", name, err)
	}

	return stdout.Bytes(), nil
}
