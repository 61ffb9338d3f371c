package events

const (
	KindRunStarted          Kind = "run.started"
	KindCaptureCompleted    Kind = "run.capture_completed"
	KindDescriptionReceived Kind = "run.description_received"
	KindSynthesisCompleted  Kind = "run.synthesis_completed"
	KindPlaybackEnded       Kind = "run.playback_ended"
	KindRunCompleted        Kind = "run.completed"
	KindRunFailed           Kind = "run.failed"
	KindRunSuperseded       Kind = "run.superseded"
	KindRunDropped          Kind = "run.dropped"
)

type RunStarted struct {
	Base
	RunID      string
	Activation Activation
}

func NewRunStarted(runID string, activation Activation) RunStarted {
	return RunStarted{Base: NewBase(KindRunStarted), RunID: runID, Activation: activation}
}

type CaptureCompleted struct {
	Base
	RunID     string
	FrameSize int
}

func NewCaptureCompleted(runID string, frameSize int) CaptureCompleted {
	return CaptureCompleted{Base: NewBase(KindCaptureCompleted), RunID: runID, FrameSize: frameSize}
}

type DescriptionReceived struct {
	Base
	RunID string
	Text  string
}

func NewDescriptionReceived(runID, text string) DescriptionReceived {
	return DescriptionReceived{Base: NewBase(KindDescriptionReceived), RunID: runID, Text: text}
}

type SynthesisCompleted struct {
	Base
	RunID string
}

func NewSynthesisCompleted(runID string) SynthesisCompleted {
	return SynthesisCompleted{Base: NewBase(KindSynthesisCompleted), RunID: runID}
}

type PlaybackEnded struct {
	Base
	RunID string
}

func NewPlaybackEnded(runID string) PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded), RunID: runID}
}

type RunCompleted struct {
	Base
	RunID string
}

func NewRunCompleted(runID string) RunCompleted {
	return RunCompleted{Base: NewBase(KindRunCompleted), RunID: runID}
}

type RunFailed struct {
	Base
	RunID string
	Stage string
	Err   error
}

func NewRunFailed(runID, stage string, err error) RunFailed {
	return RunFailed{Base: NewBase(KindRunFailed), RunID: runID, Stage: stage, Err: err}
}

type RunSuperseded struct {
	Base
	RunID string
	BySeq uint64
}

func NewRunSuperseded(runID string, bySeq uint64) RunSuperseded {
	return RunSuperseded{Base: NewBase(KindRunSuperseded), RunID: runID, BySeq: bySeq}
}

type RunDropped struct {
	Base
	Seq uint64
}

func NewRunDropped(seq uint64) RunDropped {
	return RunDropped{Base: NewBase(KindRunDropped), Seq: seq}
}
