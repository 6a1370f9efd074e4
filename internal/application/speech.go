package application

import (
	"context"
	"fmt"

	"raaee/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type AnswerGenerator interface {
	Generate(ctx context.Context, query string, advice *domain.Advice) domain.Answer
}

// NoopSTT stands in when no speech credential is configured, so only typed
// questions can be answered.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ []byte) (string, error) {
	return "", fmt.Errorf("%w: set speech.api_key or GROQ_API_KEY to enable transcription", domain.ErrSpeechUnavailable)
}

// NoopTranslator passes text through unchanged.
type NoopTranslator struct{}

func (n *NoopTranslator) Translate(_ context.Context, text string) (string, error) {
	return text, nil
}
