package service

import (
	"time"

	"irecStatApp/internal/domain/model"
)

// Recorder receives operational measurements from the analytics service.
type Recorder interface {
	CacheHit(kind model.DatasetKind)
	CacheMiss(kind model.DatasetKind)
	ObserveCompute(kind model.DatasetKind, d time.Duration)
	ValidationWarning(code string)
	EventsSynthesized(kind model.EventKind, n int)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(model.DatasetKind)                     {}
func (nopRecorder) CacheMiss(model.DatasetKind)                    {}
func (nopRecorder) ObserveCompute(model.DatasetKind, time.Duration) {}
func (nopRecorder) ValidationWarning(string)                       {}
func (nopRecorder) EventsSynthesized(model.EventKind, int)         {}
