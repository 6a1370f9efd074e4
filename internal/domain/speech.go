package domain

import "errors"

var (
	// ErrUnintelligible means the audio held no recognizable speech.
	ErrUnintelligible = errors.New("speech unintelligible")
	// ErrSpeechUnavailable means the speech service could not be reached or failed.
	ErrSpeechUnavailable = errors.New("speech service unavailable")
	// ErrTranslationFailed is distinct from a translation that is legitimately empty.
	ErrTranslationFailed = errors.New("translation failed")
	// ErrEmptyQuery means a typed question held no text.
	ErrEmptyQuery = errors.New("empty query")
)
