package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "activation", event: NewActivation(1), expected: KindActivation},
		{name: "run started", event: NewRunStarted("run", NewActivation(1)), expected: KindRunStarted},
		{name: "capture completed", event: NewCaptureCompleted("run", 1024), expected: KindCaptureCompleted},
		{name: "description received", event: NewDescriptionReceived("run", "a chair"), expected: KindDescriptionReceived},
		{name: "synthesis completed", event: NewSynthesisCompleted("run"), expected: KindSynthesisCompleted},
		{name: "playback ended", event: NewPlaybackEnded("run"), expected: KindPlaybackEnded},
		{name: "run completed", event: NewRunCompleted("run"), expected: KindRunCompleted},
		{name: "run failed", event: NewRunFailed("run", "capturing", nil), expected: KindRunFailed},
		{name: "run superseded", event: NewRunSuperseded("run", 2), expected: KindRunSuperseded},
		{name: "run dropped", event: NewRunDropped(2), expected: KindRunDropped},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestActivationTimestampsAreSet(t *testing.T) {
	activation := NewActivation(7)

	if activation.Timestamp().IsZero() {
		t.Fatalf("expected activation timestamp to be set")
	}
	if activation.Seq != 7 {
		t.Fatalf("expected activation seq 7, got %d", activation.Seq)
	}
}
