package application

import (
	"context"

	"raaee/internal/domain"
)

// AudioSource yields recorded questions one at a time.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextClip(ctx context.Context) (domain.Clip, error)
	Name() string
}

// AudioNormalizer turns an uploaded clip into 16 kHz mono PCM WAV.
type AudioNormalizer interface {
	Normalize(ctx context.Context, clip domain.Clip) ([]byte, error)
}
