// Package config loads the device configuration file. Credentials are never
// part of the file; they come from the environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	pipeline "github.com/aidenreynolds-dev/assistive-navigation-device/core"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback"
)

type Config struct {
	Vision   VisionConfig   `yaml:"vision"`
	Camera   CameraConfig   `yaml:"camera"`
	Button   ButtonConfig   `yaml:"button"`
	Haptic   HapticConfig   `yaml:"haptic"`
	Speech   SpeechConfig   `yaml:"speech"`
	Audio    AudioConfig    `yaml:"audio"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

type VisionConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxRetries is a pointer so an explicit 0 (no retries) survives the
	// defaults pass.
	MaxRetries  *int          `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

type CameraConfig struct {
	Command        string        `yaml:"command"`
	Resolution     string        `yaml:"resolution"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
}

type ButtonConfig struct {
	Pin              string        `yaml:"pin"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	DebounceWindow   time.Duration `yaml:"debounce_window"`
	RefractoryPeriod time.Duration `yaml:"refractory_period"`
}

type HapticConfig struct {
	Pin      string                                      `yaml:"pin"`
	Patterns map[feedback.Pattern]feedback.PulseSequence `yaml:"patterns"`
}

type SpeechConfig struct {
	Backend string `yaml:"backend"`
	Voice   string `yaml:"voice"`
	Rate    int    `yaml:"rate"`
}

type AudioConfig struct {
	Backend string `yaml:"backend"`
}

type PipelineConfig struct {
	Policy   pipeline.Policy `yaml:"policy"`
	Deadline time.Duration   `yaml:"deadline"`
}

type FeedbackConfig struct {
	ErrorTone bool `yaml:"error_tone"`
}

const (
	SpeechBackendEspeak   = "espeak"
	SpeechBackendDeepgram = "deepgram"

	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
)

var resolutionPattern = regexp.MustCompile(`^\d+x\d+$`)

// Load reads path, fills defaults and validates. A missing file is an error;
// an empty file yields the full default configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Vision.Model == "" {
		c.Vision.Model = "gpt-4o-mini"
	}
	if c.Vision.RequestTimeout == 0 {
		c.Vision.RequestTimeout = 10 * time.Second
	}
	if c.Vision.MaxRetries == nil {
		defaultRetries := 2
		c.Vision.MaxRetries = &defaultRetries
	}
	if c.Vision.BackoffBase == 0 {
		c.Vision.BackoffBase = 500 * time.Millisecond
	}

	if c.Camera.Command == "" {
		c.Camera.Command = "fswebcam"
	}
	if c.Camera.Resolution == "" {
		c.Camera.Resolution = "640x480"
	}
	if c.Camera.CaptureTimeout == 0 {
		c.Camera.CaptureTimeout = 2 * time.Second
	}

	if c.Button.Pin == "" {
		c.Button.Pin = "GPIO17"
	}
	if c.Button.PollInterval == 0 {
		c.Button.PollInterval = 10 * time.Millisecond
	}
	if c.Button.DebounceWindow == 0 {
		c.Button.DebounceWindow = 40 * time.Millisecond
	}
	if c.Button.RefractoryPeriod == 0 {
		c.Button.RefractoryPeriod = 300 * time.Millisecond
	}

	if c.Haptic.Pin == "" {
		c.Haptic.Pin = "GPIO5"
	}

	if c.Speech.Backend == "" {
		c.Speech.Backend = SpeechBackendEspeak
	}
	// Voice and rate stay empty here; each backend applies its own default.

	if c.Audio.Backend == "" {
		c.Audio.Backend = AudioBackendMiniaudio
	}

	if c.Pipeline.Policy == "" {
		c.Pipeline.Policy = pipeline.PolicySupersede
	}
	if c.Pipeline.Deadline == 0 {
		c.Pipeline.Deadline = 15 * time.Second
	}
}

func (c *Config) validate() error {
	if *c.Vision.MaxRetries < 0 {
		return fmt.Errorf("vision.max_retries must not be negative, got %d", *c.Vision.MaxRetries)
	}
	if !resolutionPattern.MatchString(c.Camera.Resolution) {
		return fmt.Errorf("camera.resolution must look like 640x480, got %q", c.Camera.Resolution)
	}
	if c.Button.DebounceWindow < c.Button.PollInterval {
		return fmt.Errorf("button.debounce_window must be at least button.poll_interval")
	}
	switch c.Speech.Backend {
	case SpeechBackendEspeak, SpeechBackendDeepgram:
	default:
		return fmt.Errorf("speech.backend must be %q or %q, got %q", SpeechBackendEspeak, SpeechBackendDeepgram, c.Speech.Backend)
	}
	switch c.Audio.Backend {
	case AudioBackendMiniaudio, AudioBackendPortaudio:
	default:
		return fmt.Errorf("audio.backend must be %q or %q, got %q", AudioBackendMiniaudio, AudioBackendPortaudio, c.Audio.Backend)
	}
	switch c.Pipeline.Policy {
	case pipeline.PolicySupersede, pipeline.PolicyQueue:
	default:
		return fmt.Errorf("pipeline.policy must be %q or %q, got %q", pipeline.PolicySupersede, pipeline.PolicyQueue, c.Pipeline.Policy)
	}
	if c.Pipeline.Deadline < time.Second {
		return fmt.Errorf("pipeline.deadline must be at least 1s, got %s", c.Pipeline.Deadline)
	}
	return nil
}
