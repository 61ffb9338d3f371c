package feedback

import "time"

// Pattern names the closed set of haptic cues the device can express. The
// vocabulary is deliberately small so a user can learn it by feel.
type Pattern string

const (
	// PatternAcknowledge confirms a button press was registered.
	PatternAcknowledge Pattern = "acknowledge"
	// PatternProcessing pulses while the pipeline is waiting on a stage.
	PatternProcessing Pattern = "processing"
	// PatternError reports a failed run; success is implicit in the speech
	// that follows, so there is no success pattern.
	PatternError Pattern = "error"
	// PatternBusy reports a dropped activation under the queue policy.
	PatternBusy Pattern = "busy"
)

// Pulse is one motor-on interval followed by a pause.
type Pulse struct {
	On  time.Duration `yaml:"on"`
	Off time.Duration `yaml:"off"`
}

// PulseSequence is a fixed pulse train. Repeating sequences run until they
// are replaced or stopped.
type PulseSequence struct {
	Pulses []Pulse `yaml:"pulses"`
	Repeat bool    `yaml:"repeat"`
}

// DefaultPatterns returns the built-in pulse trains. The on-durations match
// the deployed device: short tap for acknowledge, long buzz for error.
func DefaultPatterns() map[Pattern]PulseSequence {
	return map[Pattern]PulseSequence{
		PatternAcknowledge: {Pulses: []Pulse{{On: 200 * time.Millisecond}}},
		PatternProcessing:  {Pulses: []Pulse{{On: 100 * time.Millisecond, Off: 400 * time.Millisecond}}, Repeat: true},
		PatternError:       {Pulses: []Pulse{{On: 1 * time.Second}}},
		PatternBusy:        {Pulses: []Pulse{{On: 60 * time.Millisecond, Off: 60 * time.Millisecond}, {On: 60 * time.Millisecond}}},
	}
}

// patternPriority orders interruptions: an in-flight sequence yields only to
// an equal-or-higher-priority pattern.
func patternPriority(p Pattern) int {
	switch p {
	case PatternError:
		return 3
	case PatternAcknowledge, PatternBusy:
		return 2
	case PatternProcessing:
		return 1
	}
	return 0
}
