package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultCommand        = "fswebcam"
	DefaultResolution     = "640x480"
	DefaultCaptureTimeout = 2 * time.Second
)

type FswebcamOption func(*FswebcamSource)

func WithCommand(command string) FswebcamOption {
	return func(s *FswebcamSource) {
		if command != "" {
			s.command = command
		}
	}
}

func WithResolution(resolution string) FswebcamOption {
	return func(s *FswebcamSource) {
		if resolution != "" {
			s.resolution = resolution
		}
	}
}

func WithCaptureTimeout(timeout time.Duration) FswebcamOption {
	return func(s *FswebcamSource) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// FswebcamSource shells out to fswebcam for each capture. The webcam is a
// single-open device, so the source holds an in-process lock for the call's
// duration; a capture that finds the lock taken fails with ErrUnavailable
// instead of queueing behind stale work.
type FswebcamSource struct {
	command    string
	resolution string
	timeout    time.Duration
	tempDir    string

	mu sync.Mutex

	runCommand func(ctx context.Context, name string, args ...string) error
}

func NewFswebcamSource(opts ...FswebcamOption) *FswebcamSource {
	s := &FswebcamSource{
		command:    DefaultCommand,
		resolution: DefaultResolution,
		timeout:    DefaultCaptureTimeout,
		tempDir:    os.TempDir(),
		runCommand: runCaptureCommand,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Probe verifies the capture command exists. Used at startup so a missing
// camera stack fails the process instead of the first run.
func (s *FswebcamSource) Probe() error {
	if _, err := exec.LookPath(s.command); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FswebcamSource) Capture(ctx context.Context) (Frame, error) {
	if !s.mu.TryLock() {
		return Frame{}, fmt.Errorf("%w: capture already in progress", ErrUnavailable)
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	path := filepath.Join(s.tempDir, fmt.Sprintf("visionhat-%d.jpg", time.Now().UnixNano()))
	defer os.Remove(path)

	// -S 2 skips warm-up frames, --no-banner drops the timestamp overlay.
	if err := s.runCommand(ctx, s.command, "-r", s.resolution, "-S", "2", "--no-banner", path); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Frame{}, fmt.Errorf("%w: no frame within %s", ErrTimeout, s.timeout)
		}
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: capture file unreadable: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%w: capture produced an empty file", ErrUnavailable)
	}

	return Frame{JPEG: data, Taken: time.Now()}, nil
}

func runCaptureCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%s: %v (%s)", name, err, string(output))
	}
	return nil
}
