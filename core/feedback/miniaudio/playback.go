// Package miniaudio plays PCM buffers through the default output device
// using the malgo bindings.
package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
)

// Player drives a malgo playback device. A single context is shared across
// plays; each Play call initializes a short-lived device configured for the
// buffer's encoding.
type Player struct {
	audioContext *malgo.AllocatedContext

	mu        sync.Mutex
	closeOnce sync.Once
}

func NewPlayer() (*Player, error) {
	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	return &Player{audioContext: audioContext}, nil
}

// Play blocks until the buffer drains or ctx is cancelled. Cancellation stops
// the device immediately, discarding whatever audio remains.
func (p *Player) Play(ctx context.Context, pcm []byte, encoding audio.EncodingInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.audioContext == nil {
		return fmt.Errorf("audio context is closed")
	}
	if encoding.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported playback format: %s", encoding.Format)
	}
	if len(pcm) == 0 {
		return nil
	}

	channels := encoding.Channels
	if channels == 0 {
		channels = 1
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(encoding.SampleRate) / 10 // ~100ms of audio
	config.Periods = 4

	var (
		offsetMu sync.Mutex
		offset   int

		doneOnce sync.Once
		done     = make(chan struct{})
	)

	onData := func(pOutput, _ []byte, frameCount uint32) {
		offsetMu.Lock()
		defer offsetMu.Unlock()

		if offset >= len(pcm) {
			clear(pOutput)
			doneOnce.Do(func() { close(done) })
			return
		}
		offset = fillChunk(pOutput, pcm, offset)
	}

	device, err := malgo.InitDevice(
		p.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: onData},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = device.Stop()
		return ctx.Err()
	case <-done:
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	return nil
}

// fillChunk copies the next slice of pcm into out, zero-filling whatever the
// buffer does not cover so the device never replays stale bytes. Returns the
// new offset.
func fillChunk(out, pcm []byte, offset int) int {
	n := copy(out, pcm[offset:])
	clear(out[n:])
	return offset + n
}

func (p *Player) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.audioContext == nil {
			return
		}
		if err := p.audioContext.Uninit(); err != nil {
			closeErr = fmt.Errorf("failed to uninitialize audio context: %w", err)
		}
		p.audioContext.Free()
		p.audioContext = nil
	})
	return closeErr
}
