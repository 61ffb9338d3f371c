package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	pipeline "github.com/aidenreynolds-dev/assistive-navigation-device/core"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/button"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/camera"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/config"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback/miniaudio"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/feedback/portaudio"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/rpi"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/speech/deepgram"
	"github.com/aidenreynolds-dev/assistive-navigation-device/core/vision"
)

func main() {
	configPath := flag.String("config", "", "path to the device configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("visionhat: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	_ = godotenv.Load()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := camera.NewFswebcamSource(
		camera.WithCommand(cfg.Camera.Command),
		camera.WithResolution(cfg.Camera.Resolution),
		camera.WithCaptureTimeout(cfg.Camera.CaptureTimeout),
	)
	if err := source.Probe(); err != nil {
		return fmt.Errorf("camera probe: %w", err)
	}

	describerOpts := []vision.OpenAIOption{
		vision.WithModel(cfg.Vision.Model),
		vision.WithRequestTimeout(cfg.Vision.RequestTimeout),
		vision.WithMaxRetries(*cfg.Vision.MaxRetries),
		vision.WithBackoffBase(cfg.Vision.BackoffBase),
	}
	if cfg.Vision.Endpoint != "" {
		describerOpts = append(describerOpts, vision.WithEndpoint(cfg.Vision.Endpoint))
	}
	describer, err := vision.NewOpenAIDescriber(apiKey, describerOpts...)
	if err != nil {
		return fmt.Errorf("vision client: %w", err)
	}

	synthesizer, err := newSynthesizer(cfg)
	if err != nil {
		return err
	}

	player, err := newPlayer(cfg)
	if err != nil {
		return fmt.Errorf("audio backend: %w", err)
	}

	motor, err := rpi.NewMotor(cfg.Haptic.Pin)
	if err != nil {
		return fmt.Errorf("haptic motor: %w", err)
	}
	defer motor.Close()

	output, err := feedback.NewOutput(player, motor, feedback.WithPatternOverrides(cfg.Haptic.Patterns))
	if err != nil {
		return fmt.Errorf("feedback output: %w", err)
	}
	defer output.Close()

	pipe, err := pipeline.New(
		pipeline.WithCamera(source),
		pipeline.WithDescriber(describer),
		pipeline.WithSynthesizer(synthesizer),
		pipeline.WithFeedback(output),
		pipeline.WithPolicy(cfg.Pipeline.Policy),
		pipeline.WithDeadline(cfg.Pipeline.Deadline),
		pipeline.WithErrorTone(cfg.Feedback.ErrorTone),
	)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	pipe.Start(ctx)
	defer pipe.Close()

	sampler, err := rpi.NewButton(cfg.Button.Pin)
	if err != nil {
		return fmt.Errorf("button: %w", err)
	}

	debouncer := button.NewDebouncer(sampler, pipe.Activate,
		button.WithPollInterval(cfg.Button.PollInterval),
		button.WithDebounceWindow(cfg.Button.DebounceWindow),
		button.WithRefractoryPeriod(cfg.Button.RefractoryPeriod),
	)
	debouncer.Start(ctx)
	defer debouncer.Close()

	log.Println("visionhat ready, waiting for the button")
	<-ctx.Done()
	log.Println("visionhat shutting down")
	return nil
}

func newSynthesizer(cfg *config.Config) (pipeline.Synthesizer, error) {
	switch cfg.Speech.Backend {
	case config.SpeechBackendDeepgram:
		deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
		if deepgramKey == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY is not set")
		}
		return deepgram.NewSynthesizer(deepgramKey, deepgram.WithVoice(cfg.Speech.Voice))
	case config.SpeechBackendEspeak:
		synthesizer := speech.NewEspeakSynthesizer(
			speech.WithVoice(cfg.Speech.Voice),
			speech.WithRate(cfg.Speech.Rate),
		)
		if err := synthesizer.Probe(); err != nil {
			return nil, fmt.Errorf("espeak probe: %w", err)
		}
		return synthesizer, nil
	}
	return nil, fmt.Errorf("unknown speech backend %q", cfg.Speech.Backend)
}

func newPlayer(cfg *config.Config) (feedback.Player, error) {
	switch cfg.Audio.Backend {
	case config.AudioBackendPortaudio:
		return portaudio.NewPlayer()
	default:
		return miniaudio.NewPlayer()
	}
}
