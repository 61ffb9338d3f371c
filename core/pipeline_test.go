package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/audio"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/camera"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/events"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/vision"
)

type fakeCamera struct {
	mu       sync.Mutex
	captures int
	err      error
}

func (c *fakeCamera) Capture(ctx context.Context) (camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return camera.Frame{}, c.err
	}
	c.captures++
	return camera.Frame{JPEG: []byte{0xff, 0xd8, 0xff}, Taken: time.Now()}, nil
}

type fakeDescriber struct {
	mu        sync.Mutex
	text      string
	err       error
	cancelErr error
	delay     time.Duration
	started   chan struct{}
	calls     int
}

func (d *fakeDescriber) Describe(ctx context.Context, _ camera.Frame) (vision.Description, error) {
	d.mu.Lock()
	d.calls++
	text, err, delay := d.text, d.err, d.delay
	cancelErr := d.cancelErr
	started := d.started
	d.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			if cancelErr != nil {
				return vision.Description{}, cancelErr
			}
			return vision.Description{}, ctx.Err()
		}
	}
	if err != nil {
		return vision.Description{}, err
	}
	return vision.Description{Text: text, Received: time.Now()}, nil
}

func (d *fakeDescriber) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, text string) (speech.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return speech.Audio{}, s.err
	}
	s.texts = append(s.texts, text)
	return speech.Audio{PCM: []byte(text), Encoding: audio.GetDefaultEncodingInfo()}, nil
}

type fakeFeedback struct {
	mu       sync.Mutex
	patterns []feedback.Pattern
	spoken   []string
	stops    int
}

func (f *fakeFeedback) PlayAudio(ctx context.Context, speechAudio speech.Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, string(speechAudio.PCM))
	return nil
}

func (f *fakeFeedback) Vibrate(pattern feedback.Pattern) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
}

func (f *fakeFeedback) StopHaptics() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeFeedback) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeFeedback) patternsSnapshot() []feedback.Pattern {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]feedback.Pattern(nil), f.patterns...)
}

func (f *fakeFeedback) patternCount(pattern feedback.Pattern) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, p := range f.patterns {
		if p == pattern {
			count++
		}
	}
	return count
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *eventRecorder) count(kind events.Kind) int {
	count := 0
	for _, k := range r.kinds() {
		if k == kind {
			count++
		}
	}
	return count
}

func (r *eventRecorder) await(t *testing.T, kind events.Kind, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if r.count(kind) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event %q not observed within %s (saw %v)", kind, within, r.kinds())
}

type pipelineFixture struct {
	pipeline  *Pipeline
	camera    *fakeCamera
	describer *fakeDescriber
	synth     *fakeSynthesizer
	feedback  *fakeFeedback
	recorder  *eventRecorder
}

func newFixture(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()

	fixture := &pipelineFixture{
		camera:    &fakeCamera{},
		describer: &fakeDescriber{text: "a door ahead"},
		synth:     &fakeSynthesizer{},
		feedback:  &fakeFeedback{},
		recorder:  &eventRecorder{},
	}

	allOpts := append([]Option{
		WithCamera(fixture.camera),
		WithDescriber(fixture.describer),
		WithSynthesizer(fixture.synth),
		WithFeedback(fixture.feedback),
		WithEventHandler(fixture.recorder.record),
	}, opts...)

	pipeline, err := New(allOpts...)
	if err != nil {
		t.Fatalf("failed to construct pipeline: %v", err)
	}
	fixture.pipeline = pipeline

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pipeline.Start(ctx)
	t.Cleanup(pipeline.Close)

	return fixture
}

func TestNewRequiresAllComponents(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected construction without components to fail")
	}
	if _, err := New(
		WithCamera(&fakeCamera{}),
		WithDescriber(&fakeDescriber{}),
		WithSynthesizer(&fakeSynthesizer{}),
	); err == nil {
		t.Fatalf("expected construction without feedback to fail")
	}
}

func TestPressToSpeechHappyPath(t *testing.T) {
	fixture := newFixture(t)

	fixture.pipeline.Activate(events.NewActivation(1))
	fixture.recorder.await(t, events.KindRunCompleted, 2*time.Second)

	spoken := fixture.feedback.spokenTexts()
	if len(spoken) != 1 || spoken[0] != "a door ahead" {
		t.Fatalf("expected the description to be spoken once, got %v", spoken)
	}
	if fixture.feedback.patternCount(feedback.PatternAcknowledge) != 1 {
		t.Fatalf("expected one acknowledge haptic")
	}
	if fixture.feedback.patternCount(feedback.PatternProcessing) != 1 {
		t.Fatalf("expected one processing haptic")
	}
	if fixture.feedback.patternCount(feedback.PatternError) != 0 {
		t.Fatalf("expected no error haptic on success")
	}

	wantOrder := []events.Kind{
		events.KindRunStarted,
		events.KindCaptureCompleted,
		events.KindDescriptionReceived,
		events.KindSynthesisCompleted,
		events.KindPlaybackEnded,
		events.KindRunCompleted,
	}
	kinds := fixture.recorder.kinds()
	if len(kinds) != len(wantOrder) {
		t.Fatalf("expected events %v, got %v", wantOrder, kinds)
	}
	for i, want := range wantOrder {
		if kinds[i] != want {
			t.Fatalf("expected event %d to be %q, got %q", i, want, kinds[i])
		}
	}

	if state := fixture.pipeline.State(); state != StateIdle {
		t.Fatalf("expected pipeline to return to idle, got %q", state)
	}
}

func TestSecondPressSupersedesInFlightRun(t *testing.T) {
	fixture := newFixture(t)
	fixture.describer.started = make(chan struct{}, 1)
	fixture.describer.delay = 5 * time.Second

	fixture.pipeline.Activate(events.NewActivation(1))
	<-fixture.describer.started

	// The second press must cancel the stalled run and speak its own result.
	fixture.describer.mu.Lock()
	fixture.describer.delay = 0
	fixture.describer.text = "a staircase going up"
	fixture.describer.mu.Unlock()

	fixture.pipeline.Activate(events.NewActivation(2))
	fixture.recorder.await(t, events.KindRunCompleted, 2*time.Second)

	spoken := fixture.feedback.spokenTexts()
	if len(spoken) != 1 || spoken[0] != "a staircase going up" {
		t.Fatalf("expected only the superseding run to be spoken, got %v", spoken)
	}
	if fixture.recorder.count(events.KindRunSuperseded) != 1 {
		t.Fatalf("expected one superseded event, got %v", fixture.recorder.kinds())
	}
	if fixture.feedback.patternCount(feedback.PatternError) != 0 {
		t.Fatalf("expected no error haptic for a superseded run")
	}
}

func TestQueuePolicyDropsPressWhileBusy(t *testing.T) {
	fixture := newFixture(t, WithPolicy(PolicyQueue))
	fixture.describer.started = make(chan struct{}, 1)
	fixture.describer.delay = 200 * time.Millisecond

	fixture.pipeline.Activate(events.NewActivation(1))
	<-fixture.describer.started
	fixture.pipeline.Activate(events.NewActivation(2))

	fixture.recorder.await(t, events.KindRunCompleted, 2*time.Second)

	if fixture.recorder.count(events.KindRunDropped) != 1 {
		t.Fatalf("expected the busy press to be dropped, got %v", fixture.recorder.kinds())
	}
	if fixture.feedback.patternCount(feedback.PatternBusy) != 1 {
		t.Fatalf("expected one busy haptic")
	}
	if got := len(fixture.feedback.spokenTexts()); got != 1 {
		t.Fatalf("expected exactly one spoken description, got %d", got)
	}
}

func TestCaptureFailureSkipsDescription(t *testing.T) {
	fixture := newFixture(t)
	fixture.camera.err = camera.ErrUnavailable

	fixture.pipeline.Activate(events.NewActivation(1))
	fixture.recorder.await(t, events.KindRunFailed, 2*time.Second)

	if calls := fixture.describer.callCount(); calls != 0 {
		t.Fatalf("expected no network call after a capture failure, got %d", calls)
	}
	patterns := fixture.feedback.patternsSnapshot()
	want := []feedback.Pattern{feedback.PatternAcknowledge, feedback.PatternError}
	if len(patterns) != len(want) {
		t.Fatalf("expected haptic sequence %v, got %v", want, patterns)
	}
	for i, pattern := range want {
		if patterns[i] != pattern {
			t.Fatalf("expected haptic sequence %v, got %v", want, patterns)
		}
	}
}

func TestSupersededRunFailureEmitsNoErrorFeedback(t *testing.T) {
	fixture := newFixture(t)
	fixture.describer.started = make(chan struct{}, 1)
	fixture.describer.delay = 5 * time.Second
	// The stalled request dies with a network error rather than a clean
	// cancellation, racing the superseding press.
	fixture.describer.cancelErr = vision.ErrNetwork

	fixture.pipeline.Activate(events.NewActivation(1))
	<-fixture.describer.started

	fixture.describer.mu.Lock()
	fixture.describer.delay = 0
	fixture.describer.cancelErr = nil
	fixture.describer.text = "a bicycle leaning on a wall"
	fixture.describer.mu.Unlock()

	fixture.pipeline.Activate(events.NewActivation(2))
	fixture.recorder.await(t, events.KindRunCompleted, 2*time.Second)

	if fixture.feedback.patternCount(feedback.PatternError) != 0 {
		t.Fatalf("expected no error haptic for the superseded run")
	}
	if fixture.recorder.count(events.KindRunFailed) != 0 {
		t.Fatalf("expected no failure event for the superseded run, got %v", fixture.recorder.kinds())
	}
	spoken := fixture.feedback.spokenTexts()
	if len(spoken) != 1 || spoken[0] != "a bicycle leaning on a wall" {
		t.Fatalf("expected only the superseding run to be spoken, got %v", spoken)
	}
}

func TestFailedRunEmitsSingleErrorPattern(t *testing.T) {
	fixture := newFixture(t)
	fixture.describer.err = vision.ErrService

	fixture.pipeline.Activate(events.NewActivation(1))
	fixture.recorder.await(t, events.KindRunFailed, 2*time.Second)

	if fixture.feedback.patternCount(feedback.PatternError) != 1 {
		t.Fatalf("expected exactly one error haptic, got %d", fixture.feedback.patternCount(feedback.PatternError))
	}
	if got := len(fixture.feedback.spokenTexts()); got != 0 {
		t.Fatalf("expected nothing to be spoken on failure, got %d utterances", got)
	}
	if state := fixture.pipeline.State(); state != StateIdle {
		t.Fatalf("expected pipeline to return to idle after failure, got %q", state)
	}

	// The pipeline must accept the next press normally.
	fixture.describer.mu.Lock()
	fixture.describer.err = nil
	fixture.describer.mu.Unlock()

	fixture.pipeline.Activate(events.NewActivation(2))
	fixture.recorder.await(t, events.KindRunCompleted, 2*time.Second)
}

func TestRunFailedNamesTheFailingStage(t *testing.T) {
	fixture := newFixture(t)
	fixture.synth.err = speech.ErrBackend

	fixture.pipeline.Activate(events.NewActivation(1))
	fixture.recorder.await(t, events.KindRunFailed, 2*time.Second)

	fixture.recorder.mu.Lock()
	defer fixture.recorder.mu.Unlock()
	for _, event := range fixture.recorder.events {
		if failed, ok := event.(events.RunFailed); ok {
			if failed.Stage != "synthesize" {
				t.Fatalf("expected the synthesize stage to be named, got %q", failed.Stage)
			}
			if !errors.Is(failed.Err, speech.ErrBackend) {
				t.Fatalf("expected the backend error to be preserved, got %v", failed.Err)
			}
			return
		}
	}
	t.Fatalf("no run failure event recorded")
}

func TestRunDeadlineBoundsAStalledStage(t *testing.T) {
	fixture := newFixture(t, WithDeadline(100*time.Millisecond))
	fixture.describer.delay = 5 * time.Second

	fixture.pipeline.Activate(events.NewActivation(1))
	fixture.recorder.await(t, events.KindRunFailed, 2*time.Second)

	if fixture.feedback.patternCount(feedback.PatternError) != 1 {
		t.Fatalf("expected one error haptic for the timed-out run")
	}
	if got := len(fixture.feedback.spokenTexts()); got != 0 {
		t.Fatalf("expected nothing to be spoken after the deadline, got %d utterances", got)
	}
}

func TestCloseCancelsInFlightRun(t *testing.T) {
	fixture := newFixture(t)
	fixture.describer.started = make(chan struct{}, 1)
	fixture.describer.delay = 5 * time.Second

	fixture.pipeline.Activate(events.NewActivation(1))
	<-fixture.describer.started

	done := make(chan struct{})
	go func() {
		fixture.pipeline.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("close did not cancel the in-flight run")
	}

	if fixture.feedback.patternCount(feedback.PatternError) != 0 {
		t.Fatalf("expected no error haptic on shutdown")
	}
}

func TestActivationAfterCloseIsIgnored(t *testing.T) {
	fixture := newFixture(t)
	fixture.pipeline.Close()

	fixture.pipeline.Activate(events.NewActivation(1))
	time.Sleep(50 * time.Millisecond)

	if got := len(fixture.feedback.spokenTexts()); got != 0 {
		t.Fatalf("expected no runs after close, got %d utterances", got)
	}
}

func TestErrorToneFollowsErrorHaptic(t *testing.T) {
	fixture := newFixture(t, WithErrorTone(true))
	fixture.camera.err = camera.ErrUnavailable

	fixture.pipeline.Activate(events.NewActivation(1))
	fixture.recorder.await(t, events.KindRunFailed, 2*time.Second)

	if got := len(fixture.feedback.spokenTexts()); got != 1 {
		t.Fatalf("expected the error tone to be played once, got %d buffers", got)
	}
}
