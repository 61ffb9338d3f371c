package pipeline

// State is the coordinator's externally visible position in a run. At most
// one run is ever active, so a single state describes the whole pipeline.
type State string

const (
	StateIdle         State = "idle"
	StateCapturing    State = "capturing"
	StateDescribing   State = "describing"
	StateSynthesizing State = "synthesizing"
	StateSpeaking     State = "speaking"
)

// Policy decides what a new activation does to an in-flight run.
type Policy string

const (
	// PolicySupersede cancels the in-flight run and starts a fresh one.
	PolicySupersede Policy = "supersede"
	// PolicyQueue drops the new activation and signals busy instead.
	PolicyQueue Policy = "queue"
)
