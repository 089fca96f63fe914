package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Workers contains worker pool sizing and retry policy.
type Workers struct {
	Count              int   `toml:"count"`
	QueuePollInterval  int   `toml:"queue_poll_interval"`
	ErrorRetryInterval int   `toml:"error_retry_interval"`
	MaxAttempts        int   `toml:"max_attempts"`
	RetryDelays        []int `toml:"retry_delays"`
}

// Pipeline contains per-task generation defaults. Each field can be
// overridden per job through its serialized parameters.
type Pipeline struct {
	Paragraphs     int    `toml:"paragraphs"`
	TermsCount     int    `toml:"terms_count"`
	Aspect         string `toml:"aspect"`
	Voice          string `toml:"voice"`
	Language       string `toml:"language"`
	Subtitles      bool   `toml:"subtitles"`
	ClipDuration   int    `toml:"clip_duration"`
	MaterialSource string `toml:"material_source"`
	Faceless       bool   `toml:"faceless"`
}

// LLM contains connection settings for script and term generation.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains configuration for the Google Gemini provider.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// StockMedia contains configuration for stock footage providers.
type StockMedia struct {
	PexelsAPIKey    string `toml:"pexels_api_key"`
	PixabayAPIKey   string `toml:"pixabay_api_key"`
	MinClipDuration int    `toml:"min_clip_duration"`
	RequestTimeout  int    `toml:"request_timeout"`
	DownloadTimeout int    `toml:"download_timeout"`
}

// Cache contains configuration for the upstream response cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
	TTLDays int  `toml:"ttl_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Jobs           bool   `toml:"jobs"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Tools contains names or absolute paths of external binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Uvx     string `toml:"uvx"`
}

// Config encapsulates all configuration values for Reelforge.
//
// Configuration sections by subsystem:
//   - Paths: data, output, and log directories
//   - Workers: pool size, polling cadence, and retry policy
//   - Pipeline: default generation parameters for new tasks
//   - LLM: provider selection and connection settings for text generation
//   - Gemini: Google Gemini credentials and model choice
//   - StockMedia: Pexels/Pixabay credentials and fetch constraints
//   - Cache: response cache toggle and time-to-live
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Tools: external binary locations (ffmpeg, ffprobe, uvx)
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workers       Workers       `toml:"workers"`
	Pipeline      Pipeline      `toml:"pipeline"`
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	StockMedia    StockMedia    `toml:"stock_media"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Tools         Tools         `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/reelforge/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// OutputDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.TasksDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// QueueDatabasePath returns the path of the durable job queue database.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// CacheDatabasePath returns the path of the response cache database.
func (c *Config) CacheDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "cache.db")
}

// TasksDir returns the root directory holding per-task working directories.
func (c *Config) TasksDir() string {
	return filepath.Join(c.Paths.DataDir, "tasks")
}

// TaskDir returns the working directory for one task. Stage artifacts are
// scoped under it so concurrent tasks never contend on the same path.
func (c *Config) TaskDir(id string) string {
	return filepath.Join(c.TasksDir(), id)
}

// FFmpegBinary returns the ffmpeg executable used for assembly.
func (c *Config) FFmpegBinary() string {
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	return c.Tools.FFprobe
}

// UvxBinary returns the uvx executable used to run Python tooling.
func (c *Config) UvxBinary() string {
	return c.Tools.Uvx
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains resolved text-generation settings.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// GetLLM returns the text-generation settings for the selected provider.
// When the provider is "gemini" the Gemini section supplies key and model.
func (c *Config) GetLLM() LLMConfig {
	cfg := LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
	if cfg.Provider == ProviderGemini {
		cfg.APIKey = strings.TrimSpace(c.Gemini.APIKey)
		cfg.Model = strings.TrimSpace(c.Gemini.Model)
		cfg.BaseURL = ""
	}
	return cfg
}
