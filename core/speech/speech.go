package speech

import (
	"context"
	"errors"
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
)

var (
	// ErrInvalidText means there is nothing speakable in the input.
	ErrInvalidText = errors.New("synthesis text is empty")
	// ErrBackend means the synthesis backend failed or is unavailable.
	ErrBackend = errors.New("speech backend failed")
)

// Audio is one synthesized utterance as raw PCM.
type Audio struct {
	PCM      []byte
	Encoding audio.EncodingInfo
}

func (a Audio) Duration() time.Duration {
	return a.Encoding.Duration(len(a.PCM))
}

// Synthesizer converts text to speech audio. Implementations are expected to
// be deterministic for the same text and voice configuration.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}
