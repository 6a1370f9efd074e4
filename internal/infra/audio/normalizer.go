package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"raaee/internal/domain"
)

// Normalizer turns whatever the browser recorded into 16 kHz mono PCM WAV.
// Decoding is delegated to ffmpeg over stdin/stdout pipes, so no scratch
// files are written.
type Normalizer struct {
	ffmpegPath string
	format     domain.AudioFormat
	logger     *slog.Logger
}

func NewNormalizer(ffmpegPath string, sampleRate int, logger *slog.Logger) *Normalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	format := domain.SpeechFormat()
	if sampleRate > 0 {
		format.SampleRate = sampleRate
	}
	return &Normalizer{
		ffmpegPath: ffmpegPath,
		format:     format,
		logger:     logger,
	}
}

func (n *Normalizer) Format() domain.AudioFormat {
	return n.format
}

func (n *Normalizer) Normalize(ctx context.Context, clip domain.Clip) ([]byte, error) {
	if len(clip.Data) == 0 {
		return nil, domain.ErrEmptyAudio
	}

	if !clip.IsWebM() && IsFormat(clip.Data, n.format) {
		n.logger.Debug("audio already normalized", "bytes", len(clip.Data))
		return clip.Data, nil
	}

	n.logger.Info("converting audio", "filename", clip.Filename, "content_type", clip.ContentType, "bytes", len(clip.Data))

	pcm, err := n.transcode(ctx, clip.Data)
	if err != nil {
		return nil, err
	}

	return EncodeWAV(pcm, n.format), nil
}

func (n *Normalizer) transcode(ctx context.Context, data []byte) ([]byte, error) {
	path, err := exec.LookPath(n.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: locating ffmpeg: %v", domain.ErrConversionFailed, err)
	}

	cmd := exec.CommandContext(ctx, path,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", strconv.Itoa(n.format.Channels),
		"-ar", strconv.Itoa(n.format.SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "s16le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrConversionFailed, err, lastLine(stderr.String()))
	}

	pcm := stdout.Bytes()
	pcm = pcm[:len(pcm)&^1]
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no audio decoded", domain.ErrConversionFailed)
	}

	return pcm, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
