package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/events"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback"
)

// stageFailure tags an error with the stage that produced it, so failure
// events can name where a run died.
type stageFailure struct {
	stage string
	err   error
}

func (e *stageFailure) Error() string { return fmt.Sprintf("%s stage failed: %v", e.stage, e.err) }
func (e *stageFailure) Unwrap() error { return e.err }

// processActivation executes one full run on the runtime goroutine. The
// deadline bounds everything from capture to the end of playback.
func (p *Pipeline) processActivation(queued queuedActivation) {
	runCtx, cancel := context.WithTimeout(p.baseContext, p.deadline)
	defer cancel()

	go func() {
		select {
		case <-p.closeCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	ctx, span := tracer.Start(runCtx, "process pipeline run")
	defer span.End()

	runID := uuid.NewString()
	span.SetAttributes(
		attribute.String("pipeline_run.id", runID),
		attribute.Int64("pipeline_run.activation_seq", int64(queued.activation.Seq)),
		attribute.Float64("pipeline_run.queued_time", time.Since(queued.queuedAt).Seconds()),
	)

	p.mu.Lock()
	p.activeRunID = runID
	p.activeCancel = cancel
	p.supersededBy = 0
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.activeRunID = ""
		p.activeCancel = nil
		p.state = StateIdle
		p.mu.Unlock()
	}()

	runsStarted.Add(ctx, 1)
	p.emit(events.NewRunStarted(runID, queued.activation))

	err := p.executeRun(ctx, runID)
	if err == nil {
		runsCompleted.Add(ctx, 1)
		p.emit(events.NewRunCompleted(runID))
		return
	}

	p.mu.Lock()
	superseded := p.supersededBy != 0
	p.mu.Unlock()

	// A superseded run is stale whatever its error was; its outcome must not
	// reach the user. Shutdown likewise ends a run without error feedback.
	if superseded || (p.isClosed() && errors.Is(err, context.Canceled)) {
		span.AddEvent("run cancelled")
		p.feedback.StopHaptics()
		return
	}

	runsFailed.Add(ctx, 1)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	stage := "run"
	var failure *stageFailure
	if errors.As(err, &failure) {
		stage = failure.stage
	}
	logger.Warn("pipeline run failed", "run_id", runID, "stage", stage, "error", err)

	p.feedback.StopHaptics()
	p.feedback.Vibrate(feedback.PatternError)
	if p.errorTone && !p.isClosed() {
		toneCtx, toneCancel := context.WithTimeout(p.baseContext, 2*time.Second)
		if playErr := p.feedback.PlayAudio(toneCtx, feedback.ErrorTone()); playErr != nil {
			logger.Warn("failed to play error tone", "error", playErr)
		}
		toneCancel()
	}
	p.emit(events.NewRunFailed(runID, stage, err))
}

// executeRun walks the stages in order. Any stage error aborts the run; the
// shared ctx guarantees the camera lock, the network request and playback are
// all released on the way out.
func (p *Pipeline) executeRun(ctx context.Context, runID string) error {
	p.setState(StateCapturing)
	frame, err := p.camera.Capture(ctx)
	if err != nil {
		return &stageFailure{stage: "capture", err: err}
	}
	p.emit(events.NewCaptureCompleted(runID, len(frame.JPEG)))

	p.setState(StateDescribing)
	p.feedback.Vibrate(feedback.PatternProcessing)
	description, err := p.describer.Describe(ctx, frame)
	if err != nil {
		return &stageFailure{stage: "describe", err: err}
	}
	p.emit(events.NewDescriptionReceived(runID, description.Text))

	p.setState(StateSynthesizing)
	speechAudio, err := p.synthesizer.Synthesize(ctx, description.Text)
	if err != nil {
		return &stageFailure{stage: "synthesize", err: err}
	}
	p.emit(events.NewSynthesisCompleted(runID))

	// A stale run must never reach the speaker.
	if !p.isCurrentRun(runID) {
		return &stageFailure{stage: "speak", err: context.Canceled}
	}
	if err := ctx.Err(); err != nil {
		return &stageFailure{stage: "speak", err: err}
	}

	p.setState(StateSpeaking)
	p.feedback.StopHaptics()
	if err := p.feedback.PlayAudio(ctx, speechAudio); err != nil {
		return &stageFailure{stage: "speak", err: err}
	}
	p.emit(events.NewPlaybackEnded(runID))

	return nil
}

func (p *Pipeline) isCurrentRun(runID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeRunID == runID
}
