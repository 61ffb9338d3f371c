package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
)

func buildWave(t *testing.T, sampleRate int, channels int, samples []byte) []byte {
	t.Helper()

	body := []byte{}
	appendChunk := func(id string, payload []byte) {
		body = append(body, id...)
		lenBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBytes, uint32(len(payload)))
		body = append(body, lenBytes...)
		body = append(body, payload...)
	}

	format := make([]byte, 16)
	binary.LittleEndian.PutUint16(format[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(format[2:4], uint16(channels))
	binary.LittleEndian.PutUint32(format[4:8], uint32(sampleRate))
	binary.LittleEndian.PutUint16(format[14:16], 16)
	appendChunk("fmt ", format)
	appendChunk("data", samples)

	wave := []byte("RIFF")
	lenBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBytes, uint32(4+len(body)))
	wave = append(wave, lenBytes...)
	wave = append(wave, "WAVE"...)
	wave = append(wave, body...)
	return wave
}

func TestSynthesizeReturnsPCMFromWaveOutput(t *testing.T) {
	samples := []byte{1, 0, 2, 0, 3, 0, 4, 0}

	synth := NewEspeakSynthesizer()
	synth.runCommand = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return buildWave(t, 22050, 1, samples), nil
	}

	result, err := synth.Synthesize(context.Background(), "a chair in front of you")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	if string(result.PCM) != string(samples) {
		t.Fatalf("expected PCM payload %v, got %v", samples, result.PCM)
	}
	if result.Encoding.SampleRate != 22050 {
		t.Fatalf("expected sample rate from wave header, got %d", result.Encoding.SampleRate)
	}
	if result.Encoding.Channels != 1 {
		t.Fatalf("expected mono audio, got %d channels", result.Encoding.Channels)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	synth := NewEspeakSynthesizer()
	synth.runCommand = func(context.Context, string, ...string) ([]byte, error) {
		t.Fatalf("engine must not be invoked for empty text")
		return nil, nil
	}

	if _, err := synth.Synthesize(context.Background(), "   "); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("expected ErrInvalidText, got %v", err)
	}
}

func TestSynthesizeWrapsEngineFailures(t *testing.T) {
	synth := NewEspeakSynthesizer()
	synth.runCommand = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	if _, err := synth.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestSynthesizePropagatesCancellationUnwrapped(t *testing.T) {
	synth := NewEspeakSynthesizer()
	synth.runCommand = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := synth.Synthesize(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancellation to stay visible, got %v", err)
	}
	if errors.Is(err, ErrBackend) {
		t.Fatalf("cancellation must not be reported as a backend failure, got %v", err)
	}
}

func TestSynthesizeRejectsNonWaveOutput(t *testing.T) {
	synth := NewEspeakSynthesizer()
	synth.runCommand = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("definitely not audio"), nil
	}

	if _, err := synth.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend for unparsable output, got %v", err)
	}
}

func TestParsePCMWaveHandlesUnpatchedStreamLength(t *testing.T) {
	wave := buildWave(t, 16000, 1, []byte{9, 0, 8, 0})
	// Simulate espeak's streamed container: data length left as 0xFFFFFFFF.
	dataLenOffset := len(wave) - 4 - 4
	binary.LittleEndian.PutUint32(wave[dataLenOffset:dataLenOffset+4], 0xFFFFFFFF)

	pcm, encoding, err := parsePCMWave(wave)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(pcm) != 4 {
		t.Fatalf("expected 4 payload bytes, got %d", len(pcm))
	}
	if encoding.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", encoding.SampleRate)
	}
}
