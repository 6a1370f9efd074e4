package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyAudio       = errors.New("empty audio")
	ErrConversionFailed = errors.New("audio conversion failed")
)

// Clip is an uploaded recording as received from the client.
type Clip struct {
	Data        []byte
	Filename    string
	ContentType string
}

// IsWebM reports whether the clip was declared as a browser WebM recording.
func (c Clip) IsWebM() bool {
	return strings.HasSuffix(strings.ToLower(c.Filename), ".webm") ||
		strings.HasPrefix(strings.ToLower(c.ContentType), "audio/webm")
}

// AudioFormat describes linear PCM audio.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// SpeechFormat is what the speech service is fed: 16 kHz mono 16-bit PCM.
func SpeechFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}
