// Command asherquest is the main entry point for the reading adventure server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/asherquest/asherquest/internal/app"
	"github.com/asherquest/asherquest/internal/config"
	"github.com/asherquest/asherquest/internal/health"
	"github.com/asherquest/asherquest/internal/observe"
	"github.com/asherquest/asherquest/internal/resilience"
	"github.com/asherquest/asherquest/internal/server"
	"github.com/asherquest/asherquest/internal/story"
	"github.com/asherquest/asherquest/pkg/provider/image"
	imgopenai "github.com/asherquest/asherquest/pkg/provider/image/openai"
	"github.com/asherquest/asherquest/pkg/provider/llm"
	"github.com/asherquest/asherquest/pkg/provider/llm/anyllm"
	llmopenai "github.com/asherquest/asherquest/pkg/provider/llm/openai"
	"github.com/asherquest/asherquest/pkg/provider/stt"
	"github.com/asherquest/asherquest/pkg/provider/stt/deepgram"
	sttopenai "github.com/asherquest/asherquest/pkg/provider/stt/openai"
	"github.com/asherquest/asherquest/pkg/provider/stt/whisper"
	"github.com/asherquest/asherquest/pkg/provider/tts"
	"github.com/asherquest/asherquest/pkg/provider/tts/coqui"
	"github.com/asherquest/asherquest/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "asherquest: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "asherquest: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("asherquest starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "asherquest",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Only the log level applies live; everything else is built at startup.
	watcher, err := config.NewWatcher(*configPath, func(old, cur *config.Config) {
		d := config.Diff(old, cur)
		if d.Empty() {
			return
		}
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.ProvidersChanged || d.NarrationChanged || d.StoryPackChanged {
			slog.Warn("provider, narration, or story changes require a restart")
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Narration)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, checkers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Story pack ────────────────────────────────────────────────────────────
	pack := story.Builtin()
	if cfg.Story.PackPath != "" {
		pack, err = story.Load(cfg.Story.PackPath)
		if err != nil {
			slog.Error("failed to load story pack", "path", cfg.Story.PackPath, "err", err)
			return 1
		}
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, pack)

	// ── Session manager and HTTP server ───────────────────────────────────────
	voice := tts.VoiceProfile{ID: cfg.Narration.VoiceID, Provider: cfg.Providers.TTS.Name}

	mgr := app.NewManager(pack, providers, voice,
		app.WithLogger(logger),
		app.WithIdleTimeout(time.Duration(cfg.Session.IdleTimeout)),
	)
	defer mgr.Close()

	srv := server.New(mgr, providers, voice,
		server.WithLogger(logger),
		server.WithHealth(health.New(checkers...)),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready, press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if cfg.Server.TLS != nil {
			errCh <- httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			errCh <- httpServer.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry, narration config.NarrationConfig) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// The native OpenAI client carries its own retry and timeout handling;
	// everything else goes through the any-llm adapter.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT (live) ────────────────────────────────────────────────────────────

	reg.RegisterSTTStream("deepgram", func(entry config.ProviderEntry) (stt.StreamProvider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── STT (batch) ───────────────────────────────────────────────────────────

	reg.RegisterSTTBatch("openai", func(entry config.ProviderEntry) (stt.BatchProvider, error) {
		var opts []sttopenai.Option
		if entry.Model != "" {
			opts = append(opts, sttopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		return sttopenai.New(entry.APIKey, opts...)
	})

	reg.RegisterSTTBatch("whisper-native", func(entry config.ProviderEntry) (stt.BatchProvider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(modelPath, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModelID(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if narration.VoiceID != "" {
			opts = append(opts, elevenlabs.WithDefaultVoice(narration.VoiceID))
		}
		if narration.SpeedFactor != 0 {
			opts = append(opts, elevenlabs.WithSpeed(narration.SpeedFactor))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Image ─────────────────────────────────────────────────────────────────

	reg.RegisterImage("openai", func(entry config.ProviderEntry) (image.Provider, error) {
		var opts []imgopenai.Option
		if entry.Model != "" {
			opts = append(opts, imgopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, imgopenai.WithBaseURL(entry.BaseURL))
		}
		return imgopenai.New(entry.APIKey, opts...)
	})
}

// buildProviders instantiates every provider named in cfg. An entry with
// fallbacks becomes a resilience group with per-backend circuit breakers; the
// matching readiness checker reports the group degraded when every breaker
// is open.
func buildProviders(cfg *config.Config, reg *config.Registry) (app.Providers, []health.Checker, error) {
	var (
		ps       app.Providers
		checkers []health.Checker
		settings resilience.GroupSettings
	)

	if name := cfg.Providers.LLM.Name; name != "" {
		primary, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return ps, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		group := resilience.NewCompletionFallback(primary, name, settings)
		for _, fb := range cfg.Providers.LLM.Fallbacks {
			p, err := reg.CreateLLM(fb)
			if err != nil {
				return ps, nil, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, p)
		}
		ps.LLM = group
		checkers = append(checkers, degradedCheck("llm", group.Degraded))
		slog.Info("provider created", "kind", "llm", "name", name, "fallbacks", len(cfg.Providers.LLM.Fallbacks))
	}

	if name := cfg.Providers.STT.Name; name != "" {
		primary, err := reg.CreateSTTStream(cfg.Providers.STT)
		if err != nil {
			return ps, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		group := resilience.NewStreamFallback(primary, name, settings)
		for _, fb := range cfg.Providers.STT.Fallbacks {
			p, err := reg.CreateSTTStream(fb)
			if err != nil {
				return ps, nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, p)
		}
		ps.STTStream = group
		slog.Info("provider created", "kind", "stt", "name", name, "fallbacks", len(cfg.Providers.STT.Fallbacks))
	}

	if name := cfg.Providers.STTBatch.Name; name != "" {
		primary, err := reg.CreateSTTBatch(cfg.Providers.STTBatch)
		if err != nil {
			return ps, nil, fmt.Errorf("create stt_batch provider %q: %w", name, err)
		}
		group := resilience.NewBatchFallback(primary, name, settings)
		for _, fb := range cfg.Providers.STTBatch.Fallbacks {
			p, err := reg.CreateSTTBatch(fb)
			if err != nil {
				return ps, nil, fmt.Errorf("create stt_batch fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, p)
		}
		ps.STTBatch = group
		checkers = append(checkers, degradedCheck("stt_batch", group.Degraded))
		slog.Info("provider created", "kind", "stt_batch", "name", name, "fallbacks", len(cfg.Providers.STTBatch.Fallbacks))
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		primary, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return ps, nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		group := resilience.NewSpeechFallback(primary, name, settings)
		for _, fb := range cfg.Providers.TTS.Fallbacks {
			p, err := reg.CreateTTS(fb)
			if err != nil {
				return ps, nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, p)
		}
		ps.TTS = group
		checkers = append(checkers, degradedCheck("tts", group.Degraded))
		slog.Info("provider created", "kind", "tts", "name", name, "fallbacks", len(cfg.Providers.TTS.Fallbacks))
	}

	if name := cfg.Providers.Image.Name; name != "" {
		primary, err := reg.CreateImage(cfg.Providers.Image)
		if err != nil {
			return ps, nil, fmt.Errorf("create image provider %q: %w", name, err)
		}
		group := resilience.NewImageFallback(primary, name, settings)
		for _, fb := range cfg.Providers.Image.Fallbacks {
			p, err := reg.CreateImage(fb)
			if err != nil {
				return ps, nil, fmt.Errorf("create image fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, p)
		}
		ps.Image = group
		slog.Info("provider created", "kind", "image", "name", name, "fallbacks", len(cfg.Providers.Image.Fallbacks))
	}

	return ps, checkers, nil
}

// degradedCheck adapts a fallback group's Degraded method to a readiness
// checker via [health.BreakerCheck].
func degradedCheck(name string, degraded func() bool) health.Checker {
	return health.BreakerCheck(name, func() string {
		if degraded() {
			return "open"
		}
		return "closed"
	})
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, pack *story.Pack) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Asher Quest startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT live", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("STT batch", cfg.Providers.STTBatch.Name, cfg.Providers.STTBatch.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Image", cfg.Providers.Image.Name, cfg.Providers.Image.Model)
	fmt.Printf("║  Story pack      : %-19s ║\n", pack.Name)
	fmt.Printf("║  Steps           : %-19d ║\n", len(pack.Steps))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
