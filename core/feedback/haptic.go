package feedback

import (
	"sync"
	"sync/atomic"
	"time"
)

// Motor drives the physical vibration actuator as a simple on/off control.
type Motor interface {
	Set(on bool) error
}

type hapticCommand struct {
	pattern Pattern
	stop    bool
}

// haptic owns the single goroutine allowed to touch the motor. Pattern
// requests never block the caller; a pending request is replaced by a newer
// one, and an in-flight sequence yields to equal-or-higher priority.
type haptic struct {
	motor    Motor
	patterns map[Pattern]PulseSequence

	commands chan hapticCommand

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	closeCh   chan struct{}
	done      chan struct{}
}

func newHaptic(motor Motor, patterns map[Pattern]PulseSequence) *haptic {
	return &haptic{
		motor:    motor,
		patterns: patterns,
		commands: make(chan hapticCommand, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (h *haptic) start() {
	h.startOnce.Do(func() {
		h.started.Store(true)
		go h.run()
	})
}

func (h *haptic) close() {
	h.closeOnce.Do(func() {
		close(h.closeCh)
		if h.started.Load() {
			<-h.done
		}
	})
}

func (h *haptic) request(pattern Pattern) {
	h.submit(hapticCommand{pattern: pattern})
}

func (h *haptic) stop() {
	h.submit(hapticCommand{stop: true})
}

func (h *haptic) submit(cmd hapticCommand) {
	for {
		select {
		case h.commands <- cmd:
			return
		default:
		}

		// Replace whatever request is still pending; the newest intent wins.
		select {
		case <-h.commands:
		default:
		}
	}
}

func (h *haptic) run() {
	defer close(h.done)
	defer func() {
		// The motor must never be left stuck on.
		if err := h.motor.Set(false); err != nil {
			logger.Warn("failed to park haptic motor", "error", err)
		}
	}()

	for {
		select {
		case <-h.closeCh:
			return
		case cmd := <-h.commands:
			if cmd.stop {
				continue
			}
			if !h.playPattern(cmd.pattern) {
				return
			}
		}
	}
}

// playPattern plays one sequence to completion, following replacements.
// Returns false when the runner should shut down.
func (h *haptic) playPattern(pattern Pattern) bool {
	for {
		sequence, ok := h.patterns[pattern]
		if !ok || len(sequence.Pulses) == 0 {
			return true
		}

		replaced := false
		for _, pulse := range sequence.Pulses {
			if err := h.motor.Set(true); err != nil {
				logger.Warn("failed to drive haptic motor", "error", err)
			}
			outcome := h.wait(pulse.On, patternPriority(pattern))
			if err := h.motor.Set(false); err != nil {
				logger.Warn("failed to release haptic motor", "error", err)
			}

			switch outcome.kind {
			case waitClosed:
				return false
			case waitStopped:
				return true
			case waitReplaced:
				pattern = outcome.next
				replaced = true
			}
			if replaced {
				break
			}

			if pulse.Off > 0 {
				outcome = h.wait(pulse.Off, patternPriority(pattern))
				switch outcome.kind {
				case waitClosed:
					return false
				case waitStopped:
					return true
				case waitReplaced:
					pattern = outcome.next
					replaced = true
				}
				if replaced {
					break
				}
			}
		}

		if replaced {
			continue
		}
		if !sequence.Repeat {
			return true
		}
	}
}

type waitKind int

const (
	waitElapsed waitKind = iota
	waitReplaced
	waitStopped
	waitClosed
)

type waitOutcome struct {
	kind waitKind
	next Pattern
}

// wait sleeps for d but stays responsive to stop, close and interrupting
// patterns. Lower-priority requests arriving mid-sequence are discarded.
func (h *haptic) wait(d time.Duration, currentPriority int) waitOutcome {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-h.closeCh:
			return waitOutcome{kind: waitClosed}
		case cmd := <-h.commands:
			if cmd.stop {
				return waitOutcome{kind: waitStopped}
			}
			if patternPriority(cmd.pattern) >= currentPriority {
				return waitOutcome{kind: waitReplaced, next: cmd.pattern}
			}
		case <-timer.C:
			return waitOutcome{kind: waitElapsed}
		}
	}
}
