package resilience

import (
	"context"
	"errors"

	"github.com/asherquest/asherquest/pkg/provider/image"
)

// ImageFallback implements [image.Provider] with failover across generation
// backends. A content-policy rejection is permanent: it condemns the
// prompt, not the backend, so it is returned immediately without trying
// fallbacks or penalizing the breaker.
type ImageFallback struct {
	group *FallbackGroup[image.Provider]
}

var _ image.Provider = (*ImageFallback)(nil)

// NewImageFallback creates an [ImageFallback] with primary as the preferred
// backend.
func NewImageFallback(primary image.Provider, primaryName string, settings GroupSettings) *ImageFallback {
	settings.Permanent = func(err error) bool {
		return errors.Is(err, image.ErrContentPolicy)
	}
	return &ImageFallback{
		group: NewFallbackGroup(primary, primaryName, settings),
	}
}

// AddFallback registers an additional generation backend.
func (f *ImageFallback) AddFallback(name string, provider image.Provider) {
	f.group.AddFallback(name, provider)
}

// Degraded reports whether every backend's breaker is open.
func (f *ImageFallback) Degraded() bool {
	return f.group.Degraded()
}

// Generate renders the request with the first healthy backend.
func (f *ImageFallback) Generate(ctx context.Context, req image.Request) (*image.Result, error) {
	return DoResult(f.group, func(p image.Provider) (*image.Result, error) {
		return p.Generate(ctx, req)
	})
}
