package application

import (
	"time"

	"raaee/internal/domain"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordAnswer(kind domain.FailureKind)
	RecordLookup(crop string)
	RecordDegraded()
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveStage(string, time.Duration, error) {}
func (NoopRecorder) RecordAnswer(domain.FailureKind)           {}
func (NoopRecorder) RecordLookup(string)                       {}
func (NoopRecorder) RecordDegraded()                           {}
