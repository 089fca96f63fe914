package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateStockMedia(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"workers.count":                c.Workers.Count,
		"workers.queue_poll_interval":  c.Workers.QueuePollInterval,
		"workers.error_retry_interval": c.Workers.ErrorRetryInterval,
		"workers.max_attempts":         c.Workers.MaxAttempts,
	}); err != nil {
		return err
	}
	for _, delay := range c.Workers.RetryDelays {
		if delay <= 0 {
			return errors.New("workers.retry_delays entries must be positive (seconds)")
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.paragraphs":    c.Pipeline.Paragraphs,
		"pipeline.terms_count":   c.Pipeline.TermsCount,
		"pipeline.clip_duration": c.Pipeline.ClipDuration,
	}); err != nil {
		return err
	}
	switch c.Pipeline.Aspect {
	case AspectPortrait, AspectLandscape:
	default:
		return fmt.Errorf("pipeline.aspect must be %q or %q", AspectPortrait, AspectLandscape)
	}
	switch c.Pipeline.MaterialSource {
	case SourcePexels, SourcePixabay:
	default:
		return fmt.Errorf("pipeline.material_source must be %q or %q", SourcePexels, SourcePixabay)
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/reelforge/config.toml"
			}
			return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'reelforge config new')", defaultPath)
		}
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key is required when llm.provider is \"openai\" (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("llm.provider must be %q or %q", ProviderGemini, ProviderOpenAI)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateStockMedia() error {
	switch c.Pipeline.MaterialSource {
	case SourcePexels:
		if c.StockMedia.PexelsAPIKey == "" {
			return errors.New("stock_media.pexels_api_key must be set when pipeline.material_source is \"pexels\" (or set PEXELS_API_KEY)")
		}
	case SourcePixabay:
		if c.StockMedia.PixabayAPIKey == "" {
			return errors.New("stock_media.pixabay_api_key must be set when pipeline.material_source is \"pixabay\" (or set PIXABAY_API_KEY)")
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"stock_media.request_timeout":  c.StockMedia.RequestTimeout,
		"stock_media.download_timeout": c.StockMedia.DownloadTimeout,
	}); err != nil {
		return err
	}
	if c.StockMedia.MinClipDuration < 0 {
		return errors.New("stock_media.min_clip_duration must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.TTLDays <= 0 {
		return errors.New("cache.ttl_days must be positive when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
