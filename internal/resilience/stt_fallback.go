package resilience

import (
	"context"

	"github.com/asherquest/asherquest/pkg/provider/stt"
)

// StreamFallback implements [stt.StreamProvider] with failover across live
// transcription backends. Only session establishment participates in
// failover; once a stream is open, mid-stream errors belong to the caller.
type StreamFallback struct {
	group *FallbackGroup[stt.StreamProvider]
}

var _ stt.StreamProvider = (*StreamFallback)(nil)

// NewStreamFallback creates a [StreamFallback] with primary as the
// preferred backend.
func NewStreamFallback(primary stt.StreamProvider, primaryName string, settings GroupSettings) *StreamFallback {
	return &StreamFallback{
		group: NewFallbackGroup(primary, primaryName, settings),
	}
}

// AddFallback registers an additional live transcription backend.
func (f *StreamFallback) AddFallback(name string, provider stt.StreamProvider) {
	f.group.AddFallback(name, provider)
}

// StartStream opens a session against the first healthy backend.
func (f *StreamFallback) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	return DoResult(f.group, func(p stt.StreamProvider) (stt.SessionHandle, error) {
		return p.StartStream(ctx, cfg)
	})
}

// BatchFallback implements [stt.BatchProvider] with failover across
// whole-utterance transcription backends: the Whisper API first, a local
// whisper.cpp model when the API is down.
type BatchFallback struct {
	group *FallbackGroup[stt.BatchProvider]
}

var _ stt.BatchProvider = (*BatchFallback)(nil)

// NewBatchFallback creates a [BatchFallback] with primary as the preferred
// backend.
func NewBatchFallback(primary stt.BatchProvider, primaryName string, settings GroupSettings) *BatchFallback {
	return &BatchFallback{
		group: NewFallbackGroup(primary, primaryName, settings),
	}
}

// AddFallback registers an additional batch transcription backend.
func (f *BatchFallback) AddFallback(name string, provider stt.BatchProvider) {
	f.group.AddFallback(name, provider)
}

// Degraded reports whether every backend's breaker is open.
func (f *BatchFallback) Degraded() bool {
	return f.group.Degraded()
}

// Transcribe runs the utterance through the first healthy backend.
func (f *BatchFallback) Transcribe(ctx context.Context, req stt.BatchRequest) (*stt.Transcript, error) {
	return DoResult(f.group, func(p stt.BatchProvider) (*stt.Transcript, error) {
		return p.Transcribe(ctx, req)
	})
}
