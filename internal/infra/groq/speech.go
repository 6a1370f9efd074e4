package groq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"raaee/internal/domain"
	"raaee/internal/infra"
	"raaee/internal/infra/audio"
)

type SpeechConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Language    string
	Timeout     time.Duration
	Calibration time.Duration
}

// SpeechClient transcribes normalized Urdu speech through the
// /audio/transcriptions endpoint.
type SpeechClient struct {
	client     *openai.Client
	apiKey     string
	model      string
	language   string
	calibrator *audio.Calibrator
	retry      infra.RetryConfig
	logger     *slog.Logger
}

func NewSpeechClient(cfg SpeechConfig, logger *slog.Logger) *SpeechClient {
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	retry := infra.DefaultRetryConfig()
	retry.Retryable = isTransient

	return &SpeechClient{
		client:     newOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		language:   baseLanguage(cfg.Language),
		calibrator: audio.NewCalibrator(cfg.Calibration),
		retry:      retry,
		logger:     logger,
	}
}

// Transcribe returns the recognized text, domain.ErrUnintelligible when the
// clip is silent or the service hears nothing, and
// domain.ErrSpeechUnavailable for every other failure.
func (c *SpeechClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	cal, err := c.calibrator.Calibrate(wav)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnintelligible, err)
	}
	c.logger.Debug("ambient noise calibrated", "threshold", cal.Threshold, "peak", cal.PeakEnergy)
	if !cal.Speech {
		return "", fmt.Errorf("%w: clip is silent (peak %.0f)", domain.ErrUnintelligible, cal.PeakEnergy)
	}

	if c.apiKey == "" {
		return "", fmt.Errorf("%w: api key not configured", domain.ErrSpeechUnavailable)
	}

	var resp openai.AudioResponse
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var err error
		resp, err = c.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    c.model,
			FilePath: "audio.wav",
			Reader:   bytes.NewReader(wav),
			Language: c.language,
			Format:   openai.AudioResponseFormatJSON,
		})
		if err != nil {
			return fmt.Errorf("transcription request: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSpeechUnavailable, retryErr)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", domain.ErrUnintelligible
	}
	return text, nil
}

// isTransient retries throttling, server errors and transport failures. A
// body that fails to decode is not retried.
func isTransient(err error) bool {
	if code := statusCode(err); code != 0 {
		return infra.IsRetryableHTTPStatus(code)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

// baseLanguage reduces a locale such as ur-PK to the ISO-639-1 code the
// transcription endpoint expects.
func baseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "ur"
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
