//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"raaee/internal/domain"
)

const framesPerBuffer = 1024

// MicrophoneSource records one question at a time from the default input
// device. A recording ends after a second of silence or ten seconds total.
type MicrophoneSource struct {
	stream     *portaudio.Stream
	frames     []int16
	sampleRate int
	logger     *slog.Logger
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	if sampleRate <= 0 {
		sampleRate = domain.SpeechFormat().SampleRate
	}
	return &MicrophoneSource{
		sampleRate: sampleRate,
		logger:     logger,
		frames:     make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.frames)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

func (m *MicrophoneSource) NextClip(ctx context.Context) (domain.Clip, error) {
	m.logger.Info("listening, ask your question")

	samples := make([]int16, 0, m.sampleRate*5)
	silenceThreshold := int16(500)
	silenceDuration := 0
	maxSilenceFrames := m.sampleRate

	for {
		select {
		case <-ctx.Done():
			return domain.Clip{}, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			return domain.Clip{}, fmt.Errorf("reading from stream: %w", err)
		}

		samples = append(samples, m.frames...)

		isSilent := true
		for _, sample := range m.frames {
			if sample > silenceThreshold || sample < -silenceThreshold {
				isSilent = false
				break
			}
		}

		if isSilent {
			silenceDuration += len(m.frames)
		} else {
			silenceDuration = 0
		}

		if silenceDuration > maxSilenceFrames && len(samples) > m.sampleRate {
			break
		}

		if len(samples) > m.sampleRate*10 {
			break
		}
	}

	format := domain.SpeechFormat()
	format.SampleRate = m.sampleRate

	return domain.Clip{
		Data:        EncodeWAV(SamplesToPCM(samples), format),
		Filename:    "microphone.wav",
		ContentType: "audio/wav",
	}, nil
}
