// Package wire assembles the advisor from configuration for the binaries.
package wire

import (
	"log/slog"

	"raaee/config"
	"raaee/internal/application"
	"raaee/internal/infra/audio"
	"raaee/internal/infra/groq"
	"raaee/internal/infra/knowledge"
	"raaee/internal/infra/mymemory"
)

// Advisor wires the answering pipeline from config. A nil recorder
// discards measurements.
func Advisor(cfg *config.Config, recorder application.Recorder, logger *slog.Logger) *application.Advisor {
	normalizer := audio.NewNormalizer(cfg.Audio.FFmpegPath, cfg.Audio.SampleRate, logger)

	var stt application.SpeechToText = &application.NoopSTT{}
	if cfg.Speech.APIKey != "" {
		stt = groq.NewSpeechClient(groq.SpeechConfig{
			APIKey:      cfg.Speech.APIKey,
			BaseURL:     cfg.Speech.BaseURL,
			Model:       cfg.Speech.Model,
			Language:    cfg.Speech.Language,
			Timeout:     cfg.Speech.Timeout,
			Calibration: cfg.Speech.Calibration,
		}, logger)
	} else {
		logger.Warn("no speech api key configured, audio questions will get the speech service placeholder")
	}

	var translator application.Translator = &application.NoopTranslator{}
	if !cfg.Translation.Disabled {
		translator = mymemory.NewClient(mymemory.Config{
			BaseURL: cfg.Translation.BaseURL,
			Source:  cfg.Translation.Source,
			Target:  cfg.Translation.Target,
			Email:   cfg.Translation.Email,
			Timeout: cfg.Translation.Timeout,
		}, logger)
	}

	llm := groq.NewChatClient(groq.ChatConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	kb := knowledge.Load(cfg.Knowledge.Path, logger)

	return application.NewAdvisor(normalizer, stt, translator, kb, llm, recorder, logger)
}
