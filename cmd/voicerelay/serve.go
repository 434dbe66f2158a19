package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voicerelay/voicerelay/pkg/core"
	"github.com/voicerelay/voicerelay/pkg/core/providers/gemini"
	"github.com/voicerelay/voicerelay/pkg/core/providers/openai"
	"github.com/voicerelay/voicerelay/pkg/gateway/billing"
	"github.com/voicerelay/voicerelay/pkg/gateway/config"
	"github.com/voicerelay/voicerelay/pkg/gateway/languages"
	"github.com/voicerelay/voicerelay/pkg/gateway/prompt"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/session"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/sessions"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/state"
	"github.com/voicerelay/voicerelay/pkg/gateway/runloop"
	gatewayserver "github.com/voicerelay/voicerelay/pkg/gateway/server"
	"github.com/voicerelay/voicerelay/pkg/gateway/tools"
	"github.com/voicerelay/voicerelay/pkg/knowledge"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), newLogger())
		},
	}
}

func buildProvider(ctx context.Context, cfg config.Config) (core.Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return openai.New(cfg.OpenAIAPIKey, openai.WithModel(cfg.Model)), nil
	case config.ProviderGemini:
		return gemini.New(ctx, cfg.GeminiAPIKey, gemini.WithModel(cfg.Model))
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLMProvider)
	}
}

func buildDirectory(ctx context.Context, cfg config.Config, logger *slog.Logger) (billing.Directory, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("billing directory: in-memory seed data")
		return billing.NewMemoryDirectory(), func() {}, nil
	}
	dir, err := billing.NewPostgresDirectory(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("billing directory: postgres")
	return dir, dir.Close, nil
}

func buildSnapshotStore(cfg config.Config, logger *slog.Logger) (state.Store, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("snapshot store: in-memory", "expiry", cfg.SnapshotExpiry)
		return state.NewMemoryStore(cfg.SnapshotExpiry), func() {}
	}
	rs := state.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SnapshotExpiry)
	logger.Info("snapshot store: redis", "addr", cfg.RedisAddr, "expiry", cfg.SnapshotExpiry)
	return rs, func() { _ = rs.Close() }
}

func buildKnowledgeStore(cfg config.Config, logger *slog.Logger) *knowledge.Store {
	if cfg.KnowledgeFile == "" {
		return nil
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("knowledge base disabled: no OpenAI key for embeddings")
		return nil
	}
	store := knowledge.NewStore(knowledge.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel))
	if err := store.LoadFile(cfg.KnowledgeFile); err != nil {
		logger.Warn("knowledge base disabled: load failed", "file", cfg.KnowledgeFile, "error", err)
		return nil
	}
	logger.Info("knowledge base loaded", "file", cfg.KnowledgeFile, "documents", store.Len())
	return store
}

func runServe(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build provider: %w", err)
	}

	table := languages.Default()
	if cfg.LanguagesFile != "" {
		if table, err = languages.LoadFile(cfg.LanguagesFile); err != nil {
			return err
		}
	}

	systemPrompt, err := prompt.Load(cfg.SystemPromptFile)
	if err != nil {
		return err
	}

	directory, closeDirectory, err := buildDirectory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build billing directory: %w", err)
	}
	defer closeDirectory()

	snapshots, closeSnapshots := buildSnapshotStore(cfg, logger)
	defer closeSnapshots()

	catalogue, err := tools.NewCatalogue(table, directory, buildKnowledgeStore(cfg, logger), cfg.StripeAPIKey)
	if err != nil {
		return fmt.Errorf("build tool catalogue: %w", err)
	}

	registry := sessions.NewRegistry(snapshots, cfg.GracePeriod, logger)
	runner := runloop.NewRunner(provider, catalogue, runloop.Options{
		Model:                cfg.Model,
		Temperature:          &cfg.Temperature,
		MaxTokens:            cfg.MaxTokens,
		MaxModelCallsPerTurn: cfg.MaxModelCallsPerTurn,
		ToolTimeout:          cfg.ToolTimeout,
	}, logger)

	sessionCfg := session.Config{
		PingInterval:    cfg.PingInterval,
		WriteTimeout:    cfg.WriteTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		MaxMessageBytes: cfg.MaxMessageBytes,
		IdleTimeout:     cfg.IdleTimeout,
		TurnTimeout:     cfg.TurnTimeout,
		Streaming:       cfg.Streaming,
		WelcomeGreeting: cfg.WelcomeGreeting,
		SystemPrompt:    systemPrompt,
		SwitchDigit:     cfg.DTMFSwitchDigit,
	}
	deps := session.Deps{
		Registry:  registry,
		Runner:    runner,
		Languages: table,
		Logger:    logger,
	}
	tracker := sessions.NewTracker()

	gw := gatewayserver.New(cfg, sessionCfg, deps, tracker, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	logger.Info("starting gateway",
		"addr", cfg.Addr,
		"provider", provider.Name(),
		"model", cfg.Model,
		"streaming", cfg.Streaming,
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if n := tracker.CancelAll(); n > 0 {
		logger.Info("cancelling live connections", "count", n)
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !tracker.Wait(waitCtx) {
		logger.Warn("live connections did not settle before deadline")
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}
