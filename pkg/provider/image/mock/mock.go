// Package mock provides a test double for the image.Provider interface.
//
// Example:
//
//	p := &mock.Provider{
//	    Result: &image.Result{URL: "https://img.example/1.png"},
//	}
//	res, _ := p.Generate(ctx, image.Request{Prompt: "a star whale"})
package mock

import (
	"context"
	"sync"

	"github.com/asherquest/asherquest/pkg/provider/image"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the Request passed to Generate.
	Req image.Request
}

// Provider is a mock implementation of image.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Generate when GenerateFunc is nil. A nil Result
	// yields an empty result.
	Result *image.Result

	// GenerateErr, if non-nil, is returned instead of a result. Set it to a
	// wrapped image.ErrContentPolicy or image.ErrRateLimited to exercise
	// the typed error paths.
	GenerateErr error

	// GenerateFunc, if non-nil, is invoked instead of the static fields.
	GenerateFunc func(ctx context.Context, req image.Request) (*image.Result, error)

	// GenerateCalls records every invocation of Generate in order.
	GenerateCalls []GenerateCall
}

// Generate records the call and returns the configured result.
func (p *Provider) Generate(ctx context.Context, req image.Request) (*image.Result, error) {
	p.mu.Lock()
	p.GenerateCalls = append(p.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	fn := p.GenerateFunc
	res := p.Result
	err := p.GenerateErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &image.Result{OriginalPrompt: req.Prompt}, nil
	}
	return res, nil
}

// CallCount returns the number of Generate calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.GenerateCalls)
}

// Compile-time interface assertion.
var _ image.Provider = (*Provider)(nil)
