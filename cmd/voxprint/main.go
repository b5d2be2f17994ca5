// Command voxprint is the main entry point for the voxprint voice-profile
// server.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voxprint/internal/config"
	"github.com/MrWong99/voxprint/internal/health"
	"github.com/MrWong99/voxprint/internal/observe"
	"github.com/MrWong99/voxprint/internal/orchestrator"
	"github.com/MrWong99/voxprint/internal/pattern"
	"github.com/MrWong99/voxprint/internal/profile/profilestore"
	"github.com/MrWong99/voxprint/internal/resilience"
	"github.com/MrWong99/voxprint/internal/sample"
	"github.com/MrWong99/voxprint/pkg/provider/embeddings"
	oaembed "github.com/MrWong99/voxprint/pkg/provider/embeddings/openai"
	"github.com/MrWong99/voxprint/pkg/provider/llm"
	"github.com/MrWong99/voxprint/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/voxprint/pkg/provider/llm/openai"
	"github.com/MrWong99/voxprint/pkg/provider/stt"
	"github.com/MrWong99/voxprint/pkg/provider/stt/deepgram"
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
			fmt.Fprintf(os.Stderr, "voxprint: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxprint: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := &slog.LevelVar{}
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("voxprint starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
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
	metrics := observe.DefaultMetrics()

	// ── Storage ───────────────────────────────────────────────────────────────
	store, ready, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise storage", "err", err)
		return 1
	}
	defer closeStore()

	// ── Providers ─────────────────────────────────────────────────────────────
	llmProvider, err := buildLLMStack(cfg)
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}
	if llmProvider == nil {
		slog.Error("an LLM provider is required for pattern extraction — set providers.llm in the config")
		return 1
	}
	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		slog.Error("failed to build transcription provider", "err", err)
		return 1
	}
	embedder, err := buildEmbeddings(cfg)
	if err != nil {
		slog.Error("failed to build embeddings provider", "err", err)
		return 1
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	var extractorOpts []pattern.Option
	if cfg.Analysis.ExtractionTemperature > 0 {
		extractorOpts = append(extractorOpts, pattern.WithTemperature(cfg.Analysis.ExtractionTemperature))
	}
	var checkerOpts []sample.Option
	if cfg.Analysis.SampleMinLength > 0 && cfg.Analysis.SampleMaxLength > 0 {
		checkerOpts = append(checkerOpts, sample.WithLengthBounds(cfg.Analysis.SampleMinLength, cfg.Analysis.SampleMaxLength))
	}
	if cfg.Analysis.DuplicateThreshold > 0 {
		checkerOpts = append(checkerOpts, sample.WithDuplicateThreshold(cfg.Analysis.DuplicateThreshold))
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Store:       store,
		Transcriber: transcriber,
		Extractor:   pattern.NewExtractor(llmProvider, extractorOpts...),
		Checker:     sample.New(checkerOpts...),
		Embeddings:  embedder,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		slog.Error("failed to initialise orchestrator", "err", err)
		return 1
	}

	// Startup consistency sweep: recompute every stored calibration score so
	// derived state matches the current tables. A no-op on a clean dataset.
	if changed, err := orch.RecomputeAll(ctx, 0); err != nil {
		slog.Error("startup score recompute failed", "err", err)
		return 1
	} else if changed > 0 {
		slog.Info("startup score recompute corrected stale scores", "changed", changed)
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(_, next *config.Config) {
		logLevel.Set(slogLevel(next.Server.LogLevel))
		slog.Info("configuration reloaded", "log_level", next.Server.LogLevel)
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	health.New(ready...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", addr)
		if cfg.Server.TLS != nil {
			errCh <- srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Storage wiring ────────────────────────────────────────────────────────────

// buildStore selects Postgres when a DSN is configured and the in-memory
// store otherwise. Returns the store, readiness checkers, and a close func.
func buildStore(ctx context.Context, cfg *config.Config) (profilestore.Store, []health.Checker, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("no postgres_dsn configured — using in-memory storage, profiles will not survive restarts")
		return profilestore.NewMemStore(), nil, func() {}, nil
	}

	pool, err := profilestore.Connect(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := profilestore.NewPostgresStore(pool)
	if err := store.Migrate(ctx, cfg.Storage.EmbeddingDimensions); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate schema: %w", err)
	}
	slog.Info("postgres storage ready", "embedding_dimensions", cfg.Storage.EmbeddingDimensions)

	ready := []health.Checker{{
		Name:  "postgres",
		Check: pool.Ping,
	}}
	return store, ready, pool.Close, nil
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildLLMStack creates the primary LLM provider plus its configured
// fallbacks behind per-backend circuit breakers.
func buildLLMStack(cfg *config.Config) (llm.Provider, error) {
	primary, err := buildLLM(cfg.Providers.LLM.ProviderEntry)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, nil
	}
	if len(cfg.Providers.LLM.Fallbacks) == 0 {
		return primary, nil
	}

	breaker := resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		Cooldown:         time.Duration(cfg.Resilience.CooldownSeconds) * time.Second,
	}
	group := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, breaker)
	for _, entry := range cfg.Providers.LLM.Fallbacks {
		p, err := buildLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", entry.Name, err)
		}
		if p != nil {
			group.AddFallback(entry.Name, p)
			slog.Info("llm fallback registered", "name", entry.Name, "model", entry.Model)
		}
	}
	return group, nil
}

// buildLLM creates one LLM backend from a config entry. The "openai" name
// maps to the native SDK client; every other recognised name routes through
// the any-llm multiplexer.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "openai":
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	default:
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)
	}
}

// buildTranscriber creates the primary STT backend plus its configured
// fallbacks behind per-backend circuit breakers, mirroring the LLM stack.
func buildTranscriber(cfg *config.Config) (stt.Transcriber, error) {
	primary, err := buildSTT(cfg.Providers.STT.ProviderEntry)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		slog.Warn("no STT provider configured — voice sessions require pre-transcribed input")
		return nil, nil
	}
	if len(cfg.Providers.STT.Fallbacks) == 0 {
		return primary, nil
	}

	breaker := resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		Cooldown:         time.Duration(cfg.Resilience.CooldownSeconds) * time.Second,
	}
	group := resilience.NewSTTFallback(primary, cfg.Providers.STT.Name, breaker)
	for _, entry := range cfg.Providers.STT.Fallbacks {
		t, err := buildSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", entry.Name, err)
		}
		if t != nil {
			group.AddFallback(entry.Name, t)
			slog.Info("stt fallback registered", "name", entry.Name, "model", entry.Model)
		}
	}
	return group, nil
}

func buildSTT(entry config.ProviderEntry) (stt.Transcriber, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "deepgram":
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildEmbeddings(cfg *config.Config) (embeddings.Provider, error) {
	entry := cfg.Providers.Embeddings
	switch entry.Name {
	case "":
		slog.Warn("no embeddings provider configured — similarity index disabled")
		return nil, nil
	case "openai":
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", entry.Name)
	}
}

// ── Logger ────────────────────────────────────────────────────────────────────

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
