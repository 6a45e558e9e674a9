package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/asherquest/asherquest/pkg/provider/image"
	imgmock "github.com/asherquest/asherquest/pkg/provider/image/mock"
)

func TestImageFallback(t *testing.T) {
	primary := &imgmock.Provider{GenerateErr: errors.New("service down")}
	backup := &imgmock.Provider{
		Result: &image.Result{URL: "https://img.example/1.png"},
	}
	f := NewImageFallback(primary, "dall-e", GroupSettings{})
	f.AddFallback("dall-e-backup", backup)

	res, err := f.Generate(context.Background(), image.Request{Prompt: "a star whale"})
	if err != nil {
		t.Fatal(err)
	}
	if res.URL != "https://img.example/1.png" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestImageFallbackContentPolicyIsPermanent(t *testing.T) {
	primary := &imgmock.Provider{
		GenerateErr: fmt.Errorf("request blocked: %w", image.ErrContentPolicy),
	}
	backup := &imgmock.Provider{}
	f := NewImageFallback(primary, "dall-e", GroupSettings{})
	f.AddFallback("dall-e-backup", backup)

	_, err := f.Generate(context.Background(), image.Request{Prompt: "something"})
	if !errors.Is(err, image.ErrContentPolicy) {
		t.Fatalf("err = %v, want ErrContentPolicy to surface", err)
	}
	if backup.CallCount() != 0 {
		t.Error("content-policy rejection must not fail over")
	}
}

func TestImageFallbackRateLimitFailsOver(t *testing.T) {
	primary := &imgmock.Provider{
		GenerateErr: fmt.Errorf("too fast: %w", image.ErrRateLimited),
	}
	backup := &imgmock.Provider{
		Result: &image.Result{URL: "https://img.example/2.png"},
	}
	f := NewImageFallback(primary, "dall-e", GroupSettings{})
	f.AddFallback("dall-e-backup", backup)

	res, err := f.Generate(context.Background(), image.Request{Prompt: "a moon fox"})
	if err != nil {
		t.Fatal(err)
	}
	if res.URL != "https://img.example/2.png" {
		t.Errorf("url = %q", res.URL)
	}
}
