// Package openai provides an image generation provider backed by the OpenAI
// DALL·E 3 API. It implements the image.Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/asherquest/asherquest/pkg/provider/image"
)

const defaultModel = oai.ImageModelDallE3

// promptPrefix and promptSuffix frame every learner prompt so generated
// scenes stay on-theme and age appropriate.
const (
	promptPrefix = "A vibrant, family-friendly illustration for a children's story featuring Captain Asher's space adventure: "
	promptSuffix = ". Style: colorful, adventurous, suitable for kids, with a sci-fi fantasy theme."
)

// Provider implements image.Provider using the OpenAI image generation API.
type Provider struct {
	client oai.Client
	model  oai.ImageModel
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	model   oai.ImageModel
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout. Image generation is slow;
// allow at least a minute.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithModel overrides the default image model ("dall-e-3").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = oai.ImageModel(model)
	}
}

// New constructs a new OpenAI image Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Generate implements image.Provider.
func (p *Provider) Generate(ctx context.Context, req image.Request) (*image.Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("openai: prompt must not be empty")
	}

	enhanced := FramePrompt(req.Prompt)

	params := oai.ImageGenerateParams{
		Model:   p.model,
		Prompt:  enhanced,
		N:       oai.Int(1),
		Size:    oai.ImageGenerateParamsSize1024x1024,
		Quality: oai.ImageGenerateParamsQualityStandard,
	}
	switch req.Style {
	case "natural":
		params.Style = oai.ImageGenerateParamsStyleNatural
	default:
		params.Style = oai.ImageGenerateParamsStyleVivid
	}

	resp, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("openai: no image in response")
	}

	prompt := resp.Data[0].RevisedPrompt
	if prompt == "" {
		prompt = enhanced
	}

	return &image.Result{
		URL:            resp.Data[0].URL,
		Prompt:         prompt,
		OriginalPrompt: req.Prompt,
	}, nil
}

// FramePrompt wraps a raw scene description in the fixed kid-safe framing.
func FramePrompt(prompt string) string {
	return promptPrefix + strings.TrimSpace(prompt) + promptSuffix
}

// classifyError maps API failures onto the package's sentinel errors so
// callers can distinguish safety rejections and quota exhaustion from
// generic failure.
func classifyError(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("openai: %w: %s", image.ErrRateLimited, apierr.Message)
		}
		if strings.Contains(apierr.Error(), "content_policy_violation") {
			return fmt.Errorf("openai: %w: %s", image.ErrContentPolicy, apierr.Message)
		}
	}
	if strings.Contains(err.Error(), "content_policy_violation") {
		return fmt.Errorf("openai: %w", image.ErrContentPolicy)
	}
	if strings.Contains(err.Error(), "rate_limit_exceeded") {
		return fmt.Errorf("openai: %w", image.ErrRateLimited)
	}
	return fmt.Errorf("openai: generate image: %w", err)
}

// Compile-time interface assertion.
var _ image.Provider = (*Provider)(nil)
