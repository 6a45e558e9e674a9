package resilience

import (
	"context"

	"github.com/asherquest/asherquest/pkg/provider/llm"
)

// CompletionFallback implements [llm.Provider] with failover across several
// completion backends: a hosted model as primary with a local Ollama as the
// last resort, for example. Each backend has its own circuit breaker.
type CompletionFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*CompletionFallback)(nil)

// NewCompletionFallback creates a [CompletionFallback] with primary as the
// preferred backend.
func NewCompletionFallback(primary llm.Provider, primaryName string, settings GroupSettings) *CompletionFallback {
	return &CompletionFallback{
		group: NewFallbackGroup(primary, primaryName, settings),
	}
}

// AddFallback registers an additional completion backend.
func (f *CompletionFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Degraded reports whether every backend's breaker is open.
func (f *CompletionFallback) Degraded() bool {
	return f.group.Degraded()
}

// Complete sends the request to the first healthy backend.
func (f *CompletionFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return DoResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
