// Package image defines the Provider interface for image generation backends.
//
// A provider wraps a text-to-image API (e.g., DALL·E 3) behind a single
// request/response call. Two failure classes matter to callers and are
// therefore sentinel errors: safety-filter rejections (ErrContentPolicy) and
// quota exhaustion (ErrRateLimited). Everything else is a generic failure.
//
// Implementations must be safe for concurrent use.
package image

import (
	"context"
	"errors"
)

// ErrContentPolicy indicates the prompt was rejected by the backend's safety
// filter. Callers should tell the learner to try a different idea rather
// than retrying.
var ErrContentPolicy = errors.New("image: prompt rejected by content policy")

// ErrRateLimited indicates the backend refused the request due to quota or
// rate limits. Callers should ask the learner to wait before retrying.
var ErrRateLimited = errors.New("image: rate limited")

// Request describes one image generation.
type Request struct {
	// Prompt is the learner's (or narrator's) description of the scene.
	// Providers apply their own kid-safe framing around it.
	Prompt string

	// Style is an optional rendering style hint ("vivid", "natural").
	// Empty means provider default.
	Style string
}

// Result is a generated image.
type Result struct {
	// URL points at the generated image. Hosted providers return a
	// time-limited URL.
	URL string

	// Prompt is the full prompt that produced the image, after provider
	// framing and any backend rewriting.
	Prompt string

	// OriginalPrompt is the unmodified prompt from the Request.
	OriginalPrompt string
}

// Provider is the abstraction over any image generation backend.
//
// Implementations must be safe for concurrent use. A call is a single
// attempt: providers do not retry internally.
type Provider interface {
	// Generate produces one image for req. Errors wrap ErrContentPolicy or
	// ErrRateLimited when the backend reports those conditions.
	Generate(ctx context.Context, req Request) (*Result, error)
}
