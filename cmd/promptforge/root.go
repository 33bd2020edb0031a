package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	promptforge "github.com/set-night/promptforge"
	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/llm"
	"github.com/set-night/promptforge/internal/prompts"
	"github.com/set-night/promptforge/internal/repository"
	"github.com/set-night/promptforge/internal/service"
	"github.com/set-night/promptforge/internal/session"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "promptforge",
	Short:         "PromptForge - an assistant for engineering LLM prompts",
	Long:          `PromptForge turns rough ideas into detailed prompts and refines them through critique, chat and automatic improvement cycles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	rootCmd.AddCommand(botCmd, replCmd)
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	return err
}

// setupLogging installs the default JSON logger.
func setupLogging(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

// app is everything both front ends share.
type app struct {
	cfg      *config.Config
	store    repository.StateStore
	sessions *session.Registry
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, hooks session.Hooks) (*app, error) {
	store, err := repository.Open(ctx, cfg.DatabaseURL, promptforge.MigrationsFS)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	gateway, err := llm.New(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	structured := cfg.StructuredOutput
	if or, ok := gateway.(*llm.OpenRouter); ok && structured {
		structured = checkOpenRouterModel(ctx, or)
	}

	templates, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	assistant := service.NewAssistantService(gateway, templates, service.AssistantOptions{
		Structured: structured,
		WebSearch:  cfg.WebSearch,
	})

	sessions, err := session.NewRegistry(cfg.SessionCacheSize, assistant, store, hooks)
	if err != nil {
		store.Close()
		return nil, err
	}

	slog.Info("assistant ready",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"structured", structured,
		"web_search", cfg.WebSearch,
	)
	return &app{cfg: cfg, store: store, sessions: sessions}, nil
}

// checkOpenRouterModel reports whether the configured model accepts JSON
// schemas. An unknown model is logged and left to fail on first use.
func checkOpenRouterModel(ctx context.Context, or *llm.OpenRouter) bool {
	model, err := or.GetModel(ctx, "")
	if err != nil {
		slog.Warn("check openrouter model", "error", err)
		return true
	}
	if !model.Capabilities.StructuredOutput {
		slog.Info("model has no structured output, using markdown prompts", "model", model.ID)
		return false
	}
	return true
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("close storage", "error", err)
	}
}
