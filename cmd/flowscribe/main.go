// Command flowscribe is the main entry point for the FlowScribe transcript
// service.
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

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/config"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/health"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/observe"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/resilience"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/rewrite"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/semantic"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/server"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/store"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript/confidence"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/embeddings"
	oaembed "github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/embeddings/openai"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm/anyllm"
	oallm "github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm/openai"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "flowscribe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "flowscribe: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("flowscribe starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so every later component records into real meters.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "flowscribe",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// Storage.
	var (
		transcripts store.TranscriptStore
		dict        dictionary.Store
		pool        *pgxpool.Pool
		checkers    []health.Checker
	)
	switch {
	case cfg.Storage.PostgresDSN != "":
		pool, err = store.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()

		transcripts, err = store.NewPostgres(ctx, pool)
		if err != nil {
			slog.Error("failed to migrate transcript schema", "err", err)
			return 1
		}
		pgDict := dictionary.NewPostgresStore(pool)
		if err := pgDict.Migrate(ctx); err != nil {
			slog.Error("failed to migrate dictionary schema", "err", err)
			return 1
		}
		dict = pgDict
		checkers = append(checkers, health.PingChecker("postgres", pool))
		slog.Info("storage ready", "backend", "postgres")

	case cfg.Storage.SQLitePath != "":
		sqliteDict, err := dictionary.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			slog.Error("failed to open sqlite dictionary", "err", err)
			return 1
		}
		defer sqliteDict.Close()
		dict = sqliteDict
		transcripts = store.NewMemStore()
		slog.Info("storage ready", "backend", "sqlite", "path", cfg.Storage.SQLitePath)

	default:
		transcripts = store.NewMemStore()
		dict = dictionary.NewMemStore()
		slog.Warn("no storage backend configured, data is lost on exit")
	}

	// Providers.
	llmProvider, err := buildLLMProvider(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to build llm provider", "err", err)
		return 1
	}
	if llmProvider != nil && len(cfg.Providers.LLMFallbacks) > 0 {
		failover := resilience.NewFailover(cfg.Providers.LLM.Name, llmProvider, resilience.BreakerConfig{})
		for _, entry := range cfg.Providers.LLMFallbacks {
			fb, err := buildLLMProvider(entry)
			if err != nil {
				slog.Error("failed to build fallback llm provider", "name", entry.Name, "err", err)
				return 1
			}
			failover.AddFallback(entry.Name, fb)
			slog.Info("llm fallback registered", "provider", entry.Name, "model", entry.Model)
		}
		llmProvider = failover
	}

	embedProvider, err := buildEmbeddingsProvider(cfg.Providers.Embeddings)
	if err != nil {
		slog.Error("failed to build embeddings provider", "err", err)
		return 1
	}

	// Semantic index requires both an embedding model and postgres.
	var retriever rewrite.ContextRetriever
	if embedProvider != nil && pool != nil {
		if err := semantic.Migrate(ctx, pool, embedProvider.Dimensions()); err != nil {
			slog.Error("failed to migrate semantic index", "err", err)
			return 1
		}
		retriever = semantic.NewIndex(pool, embedProvider)
		slog.Info("semantic index ready", "model", embedProvider.ModelID())
	}

	// Rewrite engine.
	var engine *rewrite.Engine
	if llmProvider != nil {
		opts := []rewrite.Option{
			rewrite.WithDictionary(dict),
		}
		if cfg.Providers.LLM.Temperature > 0 {
			opts = append(opts, rewrite.WithTemperature(cfg.Providers.LLM.Temperature))
		}
		if cfg.Rewrite.Concurrency > 0 {
			opts = append(opts, rewrite.WithConcurrency(cfg.Rewrite.Concurrency))
		}
		if retriever != nil && cfg.Rewrite.ContextSegments > 0 {
			opts = append(opts, rewrite.WithContextRetriever(retriever, cfg.Rewrite.ContextSegments))
		}
		engine = rewrite.New(llmProvider, opts...)
		slog.Info("rewrite engine ready", "provider", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)
	} else {
		slog.Warn("no llm provider configured, rewrite endpoint disabled")
	}

	// HTTP server.
	percentile := cfg.Confidence.Percentile
	if percentile == 0 {
		percentile = confidence.DefaultPercentile
	}
	maxThreshold := cfg.Confidence.MaxThreshold
	if maxThreshold == 0 {
		maxThreshold = confidence.DefaultMaxThreshold
	}

	srv := server.New(transcripts, dict, engine,
		server.WithLogger(logger),
		server.WithHealth(health.New(checkers...)),
		server.WithThresholdDefaults(percentile, maxThreshold),
	)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
			return 1
		}
	}

	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildLLMProvider constructs the configured chat model. "openai" uses the
// native SDK; every other recognised name routes through any-llm. An empty
// name returns nil with no error, disabling the rewrite engine.
func buildLLMProvider(entry config.ProviderEntry) (llm.Provider, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "openai":
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		if entry.TimeoutSeconds > 0 {
			opts = append(opts, oallm.WithTimeout(entry.Timeout()))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
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

// buildEmbeddingsProvider constructs the configured embedding model. An
// empty name returns nil with no error, disabling the semantic index.
func buildEmbeddingsProvider(entry config.ProviderEntry) (embeddings.Provider, error) {
	if entry.Name == "" {
		return nil, nil
	}
	var opts []oaembed.Option
	if entry.BaseURL != "" {
		opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
	}
	if entry.TimeoutSeconds > 0 {
		opts = append(opts, oaembed.WithTimeout(entry.Timeout()))
	}
	if entry.Dimensions > 0 {
		opts = append(opts, oaembed.WithDimensions(entry.Dimensions))
	}
	return oaembed.New(entry.APIKey, entry.Model, opts...)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
