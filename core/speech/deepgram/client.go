package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech"
)

const DefaultVoice = "aura-asteria-en"

type Option func(*Synthesizer)

func WithVoice(voice string) Option {
	return func(s *Synthesizer) {
		if voice != "" {
			s.voice = voice
		}
	}
}

func WithEncodingInfo(encoding audio.EncodingInfo) Option {
	return func(s *Synthesizer) {
		if !encoding.IsZero() {
			s.encoding = encoding
		}
	}
}

// Synthesizer speaks text through the Deepgram speak websocket. Each call
// opens a connection, flushes one utterance and collects the audio frames
// until the service confirms the flush.
type Synthesizer struct {
	apiKey   string
	voice    string
	encoding audio.EncodingInfo

	dial func(ctx context.Context, urlStr string, header http.Header) (*websocket.Conn, error)
}

func NewSynthesizer(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key is required")
	}

	s := &Synthesizer{
		apiKey:   apiKey,
		voice:    DefaultVoice,
		encoding: audio.GetDefaultEncodingInfo(),
		dial: func(ctx context.Context, urlStr string, header http.Header) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, urlStr, header)
			return conn, err
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return speech.Audio{}, speech.ErrInvalidText
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", s.encoding.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(s.encoding.SampleRate))
	urlValues.Set("model", s.voice)
	urlValues.Set("container", "none")

	conn, err := s.dial(ctx,
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + s.apiKey}})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return speech.Audio{}, ctxErr
		}
		return speech.Audio{}, fmt.Errorf("%w: failed to open speak socket: %v", speech.ErrBackend, err)
	}
	defer conn.Close()

	// The read loop below blocks in ReadMessage; closing the connection is
	// the only way to abort it when the run is cancelled.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-watchDone:
		}
	}()

	if err := conn.WriteJSON(speakMsg(text)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return speech.Audio{}, ctxErr
		}
		return speech.Audio{}, fmt.Errorf("%w: failed to send text: %v", speech.ErrBackend, err)
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return speech.Audio{}, ctxErr
		}
		return speech.Audio{}, fmt.Errorf("%w: failed to flush: %v", speech.ErrBackend, err)
	}

	pcm, err := s.collectAudio(ctx, conn)
	if err != nil {
		return speech.Audio{}, err
	}

	return speech.Audio{PCM: pcm, Encoding: s.encoding}, nil
}

func (s *Synthesizer) collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	pcm := []byte{}
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(pcm) > 0 {
				return pcm, nil
			}
			return nil, fmt.Errorf("%w: speak socket read failed: %v", speech.ErrBackend, err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			pcm = append(pcm, msg...)
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				_ = conn.WriteJSON(closeMsg)
				if len(pcm) == 0 {
					return nil, fmt.Errorf("%w: service produced no audio", speech.ErrBackend)
				}
				return pcm, nil
			case "Warning", "Error":
				return nil, fmt.Errorf("%w: service reported %s", speech.ErrBackend, string(msg))
			}
		}
	}
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func speakMsg(text string) speakMessage {
	return speakMessage{Type: "Speak", Text: text}
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)
