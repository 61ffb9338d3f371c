package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aidenreynolds-dev/assistive-navigation-device/core/camera"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 2
	DefaultBackoffBase    = 500 * time.Millisecond

	// defaultInstruction matches the deployed device prompt; descriptions are
	// spoken aloud so they have to stay short.
	defaultInstruction = "Describe what's visible in one short sentence (<= 15 words)."

	maxOutputTokens = 256
)

type OpenAIOption func(*OpenAIDescriber)

func WithModel(model string) OpenAIOption {
	return func(d *OpenAIDescriber) {
		if model != "" {
			d.model = model
		}
	}
}

// WithEndpoint overrides the API base URL, e.g. for a self-hosted gateway.
func WithEndpoint(baseURL string) OpenAIOption {
	return func(d *OpenAIDescriber) {
		if baseURL != "" {
			d.baseURL = baseURL
		}
	}
}

func WithInstruction(instruction string) OpenAIOption {
	return func(d *OpenAIDescriber) {
		if instruction != "" {
			d.instruction = instruction
		}
	}
}

func WithRequestTimeout(timeout time.Duration) OpenAIOption {
	return func(d *OpenAIDescriber) {
		if timeout > 0 {
			d.requestTimeout = timeout
		}
	}
}

func WithMaxRetries(retries int) OpenAIOption {
	return func(d *OpenAIDescriber) {
		if retries >= 0 {
			d.maxRetries = uint64(retries)
		}
	}
}

func WithBackoffBase(base time.Duration) OpenAIOption {
	return func(d *OpenAIDescriber) {
		if base > 0 {
			d.backoffBase = base
		}
	}
}

// OpenAIDescriber sends one frame per request to a vision-capable chat model
// and returns the text of the first choice.
type OpenAIDescriber struct {
	client *openai.Client

	model          string
	baseURL        string
	instruction    string
	requestTimeout time.Duration
	maxRetries     uint64
	backoffBase    time.Duration
}

func NewOpenAIDescriber(apiKey string, opts ...OpenAIOption) (*OpenAIDescriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("description service api key is required")
	}

	d := &OpenAIDescriber{
		model:          DefaultModel,
		instruction:    defaultInstruction,
		requestTimeout: DefaultRequestTimeout,
		maxRetries:     DefaultMaxRetries,
		backoffBase:    DefaultBackoffBase,
	}

	for _, opt := range opts {
		opt(d)
	}

	config := openai.DefaultConfig(apiKey)
	if d.baseURL != "" {
		config.BaseURL = d.baseURL
	}
	config.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	d.client = openai.NewClientWithConfig(config)

	return d, nil
}

func (d *OpenAIDescriber) Describe(ctx context.Context, frame camera.Frame) (Description, error) {
	ctx, span := tracer.Start(ctx, "describe frame")
	defer span.End()
	span.SetAttributes(
		attribute.String("vision.model", d.model),
		attribute.Int("vision.frame_bytes", len(frame.JPEG)),
	)

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame.JPEG)

	attempts := 0
	var description Description
	operation := func() error {
		attempts++
		result, err := d.describeOnce(ctx, dataURL)
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			logger.Warn("description attempt failed, retrying", "attempt", attempts, "error", err)
			return err
		}
		description = result
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.newBackoff(), d.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		span.SetAttributes(attribute.Int("vision.attempts", attempts))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Description{}, err
	}

	span.SetAttributes(attribute.Int("vision.attempts", attempts))
	return description, nil
}

func (d *OpenAIDescriber) describeOnce(ctx context.Context, dataURL string) (Description, error) {
	ctx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: d.instruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailLow,
				}},
			},
		}},
	})
	if err != nil {
		return Description{}, classifyRequestError(err)
	}

	if len(resp.Choices) == 0 {
		return Description{}, fmt.Errorf("%w: response contained no choices", ErrMalformed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Description{}, fmt.Errorf("%w: response contained no description text", ErrMalformed)
	}

	return Description{
		Text:         text,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Received:     time.Now(),
	}, nil
}

func (d *OpenAIDescriber) newBackoff() backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = d.backoffBase
	return exponential
}

func classifyRequestError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return fmt.Errorf("%w: status %d: %v", ErrService, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return fmt.Errorf("%w: status %d: %v", ErrService, reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
