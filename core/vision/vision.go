package vision

import (
	"context"
	"errors"
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/camera"
)

var (
	// ErrNetwork covers connectivity, DNS and TLS failures. Retryable.
	ErrNetwork = errors.New("description service unreachable")
	// ErrTimeout means the request exceeded its per-attempt timeout. Retryable.
	ErrTimeout = errors.New("description request timed out")
	// ErrService means the service answered with a non-success status.
	ErrService = errors.New("description service error")
	// ErrRateLimited is the retryable sub-kind of service error.
	ErrRateLimited = errors.New("description service rate limited")
	// ErrMalformed means the payload could not be interpreted as a description.
	ErrMalformed = errors.New("malformed description response")
)

// Description is a natural-language scene description with response metadata.
type Description struct {
	Text         string
	Model        string
	FinishReason string
	Received     time.Time
}

// Describer abstracts the remote vision service. Describe must honor ctx
// cancellation mid-flight; the pipeline aborts superseded requests through it.
type Describer interface {
	Describe(ctx context.Context, frame camera.Frame) (Description, error)
}

// Retryable reports whether the failure kind is worth another attempt.
// Client-side service errors and malformed payloads are not.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}
