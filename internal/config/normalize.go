package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// normalize fills defaults, expands paths, and applies environment
// overrides. It runs before Validate so validation sees final values.
func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkers()
	c.normalizePipeline()
	c.normalizeLLM()
	c.normalizeGemini()
	c.normalizeStockMedia()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeTools()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = filepath.Join(c.Paths.DataDir, "output")
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkers() {
	if len(c.Workers.RetryDelays) == 0 {
		c.Workers.RetryDelays = defaultRetryDelays()
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Aspect = strings.ToLower(strings.TrimSpace(c.Pipeline.Aspect))
	if c.Pipeline.Aspect == "" {
		c.Pipeline.Aspect = AspectPortrait
	}
	c.Pipeline.Voice = strings.TrimSpace(c.Pipeline.Voice)
	if c.Pipeline.Voice == "" {
		c.Pipeline.Voice = defaultVoice
	}
	c.Pipeline.Language = strings.TrimSpace(c.Pipeline.Language)
	c.Pipeline.MaterialSource = strings.ToLower(strings.TrimSpace(c.Pipeline.MaterialSource))
	if c.Pipeline.MaterialSource == "" {
		c.Pipeline.MaterialSource = SourcePexels
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	// Environment wins over the file so secrets can stay out of it.
	if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("LLM_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
}

func (c *Config) normalizeGemini() {
	if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Gemini.APIKey = strings.TrimSpace(value)
	}
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeStockMedia() {
	if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.StockMedia.PexelsAPIKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("PIXABAY_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.StockMedia.PixabayAPIKey = strings.TrimSpace(value)
	}
	c.StockMedia.PexelsAPIKey = strings.TrimSpace(c.StockMedia.PexelsAPIKey)
	c.StockMedia.PixabayAPIKey = strings.TrimSpace(c.StockMedia.PixabayAPIKey)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "json":
		c.Logging.Format = "json"
	case "console", "text", "":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = "ffprobe"
	}
	c.Tools.Uvx = strings.TrimSpace(c.Tools.Uvx)
	if c.Tools.Uvx == "" {
		c.Tools.Uvx = "uvx"
	}
}
