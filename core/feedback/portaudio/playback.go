// Package portaudio plays PCM buffers through the default output device
// using the PortAudio bindings. It is the fallback backend for hosts where
// miniaudio misbehaves.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
)

const defaultBufferSize = 1024

// Player opens a fresh output-only stream per Play call, sized to the
// buffer's encoding. PortAudio itself is initialized once per Player.
type Player struct {
	bufferSize int

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func NewPlayer() (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio backend: %w", err)
	}
	return &Player{bufferSize: defaultBufferSize}, nil
}

// Play blocks until the buffer drains or ctx is cancelled. Cancellation is
// checked between chunks, so output stops within one buffer's worth of audio.
func (p *Player) Play(ctx context.Context, pcm []byte, encoding audio.EncodingInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("audio backend is closed")
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

	out := make([]int16, p.bufferSize*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(encoding.SampleRate), p.bufferSize, out)
	if err != nil {
		return fmt.Errorf("failed to open playback stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start playback stream: %w", err)
	}
	defer stream.Stop()

	chunkBytes := len(out) * 2
	for offset := 0; offset < len(pcm); offset += chunkBytes {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := offset + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
			// Pad the final chunk with silence to fill the stream buffer.
			for i := range out {
				out[i] = 0
			}
		}

		if err := binary.Read(bytes.NewReader(pcm[offset:end]), binary.LittleEndian, out[:(end-offset)/2]); err != nil {
			return fmt.Errorf("failed to frame audio chunk: %w", err)
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write audio chunk: %w", err)
		}
	}

	return nil
}

func (p *Player) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		if err := portaudio.Terminate(); err != nil {
			closeErr = fmt.Errorf("failed to terminate audio backend: %w", err)
		}
	})
	return closeErr
}
