package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat), Channels: 1}
}

// EncodingInfo describes the raw PCM layout of a synthesized or played buffer.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	Channels   int
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) BytesPerFrame() int {
	channels := e.Channels
	if channels == 0 {
		channels = 1
	}
	return e.Format.ByteSize() * channels
}

// Duration reports the playback time of a buffer of the given byte length.
func (e EncodingInfo) Duration(byteLen int) time.Duration {
	bytesPerFrame := e.BytesPerFrame()
	if bytesPerFrame <= 0 || e.SampleRate <= 0 {
		return 0
	}
	frames := byteLen / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(e.SampleRate)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
