package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"raaee/internal/domain"
)

// Pipeline stage names, as reported to the Recorder.
const (
	StageNormalize  = "normalize"
	StageTranscribe = "transcribe"
	StageTranslate  = "translate"
	StageGenerate   = "generate"
)

// Result is the outcome of answering one question.
type Result struct {
	// Transcription is the Urdu text heard, or the placeholder shown when
	// nothing could be transcribed.
	Transcription string
	// Query is what the answer generator was asked: the English translation,
	// or the Urdu text when translation fell back.
	Query    string
	Crop     string
	Response string
	// Degraded is set when transcription or translation fell back.
	Degraded bool
	Failure  domain.FailureKind
}

type Advisor struct {
	normalizer AudioNormalizer
	stt        SpeechToText
	translator Translator
	kb         *domain.KnowledgeBase
	llm        AnswerGenerator
	recorder   Recorder
	logger     *slog.Logger
}

func NewAdvisor(
	normalizer AudioNormalizer,
	stt SpeechToText,
	translator Translator,
	kb *domain.KnowledgeBase,
	llm AnswerGenerator,
	recorder Recorder,
	logger *slog.Logger,
) *Advisor {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	if kb == nil {
		kb = domain.NewKnowledgeBase(nil)
	}
	return &Advisor{
		normalizer: normalizer,
		stt:        stt,
		translator: translator,
		kb:         kb,
		llm:        llm,
		recorder:   recorder,
		logger:     logger,
	}
}

func (a *Advisor) KnowledgeBase() *domain.KnowledgeBase {
	return a.kb
}

// Answer runs a recorded question through the whole pipeline. The only
// errors returned wrap domain.ErrEmptyAudio or domain.ErrConversionFailed.
// A failed transcription still yields a Result carrying the placeholder.
func (a *Advisor) Answer(ctx context.Context, clip domain.Clip) (*Result, error) {
	logger := LoggerFrom(ctx, a.logger)

	if len(clip.Data) == 0 {
		return nil, domain.ErrEmptyAudio
	}
	logger.Info("received audio", "filename", clip.Filename, "content_type", clip.ContentType, "bytes", len(clip.Data))

	var wav []byte
	err := a.stage(StageNormalize, func() error {
		var err error
		wav, err = a.normalizer.Normalize(ctx, clip)
		return err
	})
	if err != nil {
		logger.Error("audio conversion failed", "error", err)
		if !errors.Is(err, domain.ErrConversionFailed) && !errors.Is(err, domain.ErrEmptyAudio) {
			err = fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
		}
		return nil, err
	}

	var text string
	err = a.stage(StageTranscribe, func() error {
		var err error
		text, err = a.stt.Transcribe(ctx, wav)
		return err
	})
	if err != nil {
		placeholder := domain.TranscriptPlaceholder(err)
		logger.Warn("transcription failed", "error", err)
		a.recorder.RecordDegraded()
		return &Result{
			Transcription: placeholder,
			Response:      placeholder,
			Degraded:      true,
		}, nil
	}
	logger.Info("transcribed", "text", text)

	return a.answer(ctx, logger, text), nil
}

// AnswerText answers a typed Urdu question, skipping normalization and
// transcription.
func (a *Advisor) AnswerText(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyQuery
	}
	logger := LoggerFrom(ctx, a.logger)
	logger.Info("received text question", "text", text)
	return a.answer(ctx, logger, text), nil
}

func (a *Advisor) answer(ctx context.Context, logger *slog.Logger, urdu string) *Result {
	result := &Result{Transcription: urdu}

	var english string
	err := a.stage(StageTranslate, func() error {
		var err error
		english, err = a.translator.Translate(ctx, urdu)
		return err
	})
	english = strings.TrimSpace(english)
	switch {
	case err != nil:
		logger.Warn("translation failed, answering from transcript", "error", err)
		result.Query = urdu
		result.Degraded = true
	case english == "":
		logger.Warn("translation empty, answering from transcript")
		result.Query = urdu
		result.Degraded = true
	default:
		logger.Info("translated", "query", english)
		result.Query = english
	}
	if result.Degraded {
		a.recorder.RecordDegraded()
	}

	advice, ok := a.kb.Lookup(result.Query)
	if ok {
		result.Crop = advice.Crop
		logger.Info("knowledge base match", "crop", advice.Crop)
	} else {
		logger.Info("no knowledge base match")
	}
	a.recorder.RecordLookup(result.Crop)

	var answer domain.Answer
	_ = a.stage(StageGenerate, func() error {
		answer = a.llm.Generate(ctx, result.Query, advice)
		if answer.Failed() {
			return fmt.Errorf("answer generation: %s", answer.Failure)
		}
		return nil
	})
	a.recorder.RecordAnswer(answer.Failure)

	result.Response = answer.Text
	result.Failure = answer.Failure
	if answer.Failed() {
		logger.Warn("answered with fallback", "failure", answer.Failure)
	} else {
		logger.Info("answer generated", "chars", len([]rune(answer.Text)))
	}
	return result
}

func (a *Advisor) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	a.recorder.ObserveStage(name, time.Since(start), err)
	return err
}

// Run answers clips from source until ctx is cancelled, handing every
// result to notifier.
func (a *Advisor) Run(ctx context.Context, source AudioSource, notifier Notifier) error {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}

	a.logger.Info("starting audio source", "source", source.Name())
	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer source.Stop()

	a.logger.Info("advisor ready, listening for questions", "crops", a.kb.Len())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processOneClip(ctx, source, notifier); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Error("processing question", "error", err)
			}
		}
	}
}

func (a *Advisor) processOneClip(ctx context.Context, source AudioSource, notifier Notifier) error {
	clip, err := source.NextClip(ctx)
	if err != nil {
		return fmt.Errorf("getting audio: %w", err)
	}

	result, err := a.Answer(ctx, clip)
	if errors.Is(err, domain.ErrEmptyAudio) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("answering %s: %w", clip.Filename, err)
	}

	if err := notifier.Notify(ctx, result); err != nil {
		a.logger.Error("notifying result", "error", err)
	}
	return nil
}
