package speech

import (
	"encoding/binary"
	"fmt"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
)

// parsePCMWave extracts the raw sample payload and its encoding from a RIFF
// WAVE container. Only uncompressed 16-bit PCM is accepted, which is what
// espeak's --stdout emits.
func parsePCMWave(data []byte) ([]byte, audio.EncodingInfo, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, audio.EncodingInfo{}, fmt.Errorf("not a RIFF WAVE container")
	}

	var encoding audio.EncodingInfo
	var pcm []byte
	haveFormat := false

	cursor := 12
	for cursor+8 <= len(data) {
		chunkID := string(data[cursor : cursor+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[cursor+4 : cursor+8]))
		body := data[cursor+8:]
		if chunkLen > len(body) {
			// espeak streams the container and leaves the data chunk length
			// unpatched (0xFFFFFFFF); take everything that follows.
			chunkLen = len(body)
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, audio.EncodingInfo{}, fmt.Errorf("fmt chunk too short: %d bytes", chunkLen)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			channels := int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate := int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample := binary.LittleEndian.Uint16(body[14:16])
			if audioFormat != 1 || bitsPerSample != 16 {
				return nil, audio.EncodingInfo{}, fmt.Errorf("unsupported wave format %d/%d-bit", audioFormat, bitsPerSample)
			}
			encoding = audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16, Channels: channels}
			haveFormat = true
		case "data":
			pcm = body[:chunkLen]
		}

		cursor += 8 + chunkLen
		if chunkLen%2 == 1 {
			cursor++
		}
	}

	if !haveFormat {
		return nil, audio.EncodingInfo{}, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, audio.EncodingInfo{}, fmt.Errorf("missing data chunk")
	}

	return pcm, encoding, nil
}
