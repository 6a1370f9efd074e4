package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"raaee/config"
	"raaee/internal/application"
	"raaee/internal/infra/audio"
	"raaee/internal/infra/pushover"
	"raaee/internal/logging"
	"raaee/internal/wire"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	source := flag.String("source", "", "audio source: file or microphone (overrides audio.source)")
	dir := flag.String("dir", "", "directory watched for recordings (overrides audio.file_dir)")
	text := flag.String("text", "", "answer one typed Urdu question and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *source != "" {
		cfg.Audio.Source = *source
	}
	if *dir != "" {
		cfg.Audio.FileDir = *dir
	}

	// Answers go to stdout, diagnostics to stderr.
	logger := logging.New(cfg.Log, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	advisor := wire.Advisor(cfg, nil, logger)
	var notifier application.Notifier = &printNotifier{w: os.Stdout}
	if cfg.Pushover.Enabled {
		notifier = application.MultiNotifier{
			notifier,
			pushover.NewClient(cfg.Pushover.BaseURL, cfg.Pushover.Token, cfg.Pushover.UserKey),
		}
	}

	if *text != "" {
		result, err := advisor.AnswerText(ctx, *text)
		if err != nil {
			logger.Error("answering", "error", err)
			os.Exit(1)
		}
		deliver(ctx, notifier, result, logger)
		return
	}

	audioSource := createAudioSource(cfg.Audio, logger)
	logger.Info("starting raaee ask", "audio_source", audioSource.Name())

	if err := advisor.Run(ctx, audioSource, notifier); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("advisor error", "error", err)
		os.Exit(1)
	}
}

func createAudioSource(cfg config.AudioConfig, logger *slog.Logger) application.AudioSource {
	switch cfg.Source {
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	case "file":
		return audio.NewFileSource(cfg.FileDir)
	default:
		logger.Warn("unknown audio source, using file", "source", cfg.Source)
		return audio.NewFileSource(cfg.FileDir)
	}
}

func deliver(ctx context.Context, notifier application.Notifier, result *application.Result, logger *slog.Logger) {
	if err := notifier.Notify(ctx, result); err != nil {
		logger.Error("notifying result", "error", err)
	}
}

type printNotifier struct {
	w io.Writer
}

func (p *printNotifier) Notify(_ context.Context, result *application.Result) error {
	if result.Crop != "" {
		_, err := fmt.Fprintf(p.w, "سوال: %s\nفصل: %s\nجواب: %s\n\n", result.Transcription, result.Crop, result.Response)
		return err
	}
	_, err := fmt.Fprintf(p.w, "سوال: %s\nجواب: %s\n\n", result.Transcription, result.Response)
	return err
}
