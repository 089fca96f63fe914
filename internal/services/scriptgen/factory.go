package scriptgen

import (
	"context"
	"log/slog"

	"reelforge/internal/config"
	"reelforge/internal/respcache"
	"reelforge/internal/services"
	"reelforge/internal/services/gemini"
	"reelforge/internal/services/llm"
)

// NewFromConfig builds a Service wired to the provider selected in the
// configuration. The cache may be nil when caching is disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config, cache *respcache.Cache, logger *slog.Logger) (*Service, error) {
	llmCfg := cfg.GetLLM()
	provider, err := newProvider(ctx, llmCfg)
	if err != nil {
		return nil, err
	}
	return NewService(provider, WithCache(cache), WithLogger(logger)), nil
}

func newProvider(ctx context.Context, llmCfg config.LLMConfig) (Provider, error) {
	switch llmCfg.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey: llmCfg.APIKey,
			Model:  llmCfg.Model,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "scriptgen", "init provider", "gemini client", err)
		}
		return client, nil
	default:
		return llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		}), nil
	}
}
