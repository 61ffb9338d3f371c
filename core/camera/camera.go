package camera

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the camera could not be opened or is held by
	// another capture.
	ErrUnavailable = errors.New("camera unavailable")
	// ErrTimeout means no frame arrived within the capture timeout.
	ErrTimeout = errors.New("camera capture timed out")
)

// Frame is one captured still image, encodable for network transmission.
type Frame struct {
	JPEG  []byte
	Taken time.Time
}

// Source abstracts the camera. Capture is synchronous from the caller's
// perspective; implementations hold exclusive hardware access only for the
// duration of the call and release it on every return path.
type Source interface {
	Capture(ctx context.Context) (Frame, error)
}
