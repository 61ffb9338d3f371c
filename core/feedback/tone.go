package feedback

import (
	"math"
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech"
)

const (
	errorToneFrequency = 440.0
	errorToneDuration  = 150 * time.Millisecond
	errorToneAmplitude = 0.3
)

// ErrorTone generates a short sine burst played on failure paths. A tone is
// deliberately not speech, so a failed run can never be mistaken for a
// description.
func ErrorTone() speech.Audio {
	encoding := audio.GetDefaultEncodingInfo()

	frames := int(float64(encoding.SampleRate) * errorToneDuration.Seconds())
	pcm := make([]byte, frames*encoding.BytesPerFrame())
	for i := 0; i < frames; i++ {
		sample := int16(errorToneAmplitude * math.MaxInt16 * math.Sin(2*math.Pi*errorToneFrequency*float64(i)/float64(encoding.SampleRate)))
		pcm[2*i] = byte(sample)
		pcm[2*i+1] = byte(sample >> 8)
	}

	return speech.Audio{PCM: pcm, Encoding: encoding}
}
