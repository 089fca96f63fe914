package config

// Text-generation provider identifiers accepted by [llm] provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Stock footage source identifiers accepted by [pipeline] material_source.
const (
	SourcePexels  = "pexels"
	SourcePixabay = "pixabay"
)

// Aspect ratio identifiers accepted by [pipeline] aspect.
const (
	AspectPortrait  = "portrait"
	AspectLandscape = "landscape"
)

const (
	defaultDataDir              = "~/.local/share/reelforge"
	defaultWorkerCount          = 2
	defaultQueuePollInterval    = 2
	defaultErrorRetryInterval   = 5
	defaultMaxAttempts          = 3
	defaultParagraphs           = 1
	defaultTermsCount           = 5
	defaultVoice                = "en-US-ChristopherNeural"
	defaultClipDuration         = 5
	defaultLLMBaseURL           = "https://api.openai.com/v1"
	defaultLLMModel             = "gpt-4o-mini"
	defaultLLMTimeoutSeconds    = 120
	defaultGeminiModel          = "gemini-2.0-flash"
	defaultStockRequestTimeout  = 60
	defaultStockDownloadTimeout = 240
	defaultCacheTTLDays         = 7
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
)

// defaultRetryDelays returns the per-attempt delays, in seconds, applied
// before a transient job failure is queued again.
func defaultRetryDelays() []int {
	return []int{60, 120, 300}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Workers: Workers{
			Count:              defaultWorkerCount,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MaxAttempts:        defaultMaxAttempts,
			RetryDelays:        defaultRetryDelays(),
		},
		Pipeline: Pipeline{
			Paragraphs:     defaultParagraphs,
			TermsCount:     defaultTermsCount,
			Aspect:         AspectPortrait,
			Voice:          defaultVoice,
			Subtitles:      true,
			ClipDuration:   defaultClipDuration,
			MaterialSource: SourcePexels,
		},
		LLM: LLM{
			Provider:       ProviderGemini,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		StockMedia: StockMedia{
			RequestTimeout:  defaultStockRequestTimeout,
			DownloadTimeout: defaultStockDownloadTimeout,
		},
		Cache: Cache{
			Enabled: true,
			TTLDays: defaultCacheTTLDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Jobs:           true,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Uvx:     "uvx",
		},
	}
}
