package scriptgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelforge/internal/logging"
	"reelforge/internal/respcache"
	"reelforge/internal/services"
	"reelforge/internal/services/llm"
	"reelforge/internal/textutil"
)

const (
	defaultMaxAttempts = 5
	defaultRetryStep   = 2 * time.Second

	cacheKindScript = "script"
	cacheKindTerms  = "terms"
)

// Provider is the completion surface shared by the llm and gemini clients.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service generates narration scripts and search terms through a Provider,
// consulting the response cache before spending provider quota.
type Service struct {
	provider    Provider
	cache       *respcache.Cache
	logger      *slog.Logger
	maxAttempts int
	retryStep   time.Duration
	sleeper     func(time.Duration)
}

// Option customizes Service construction.
type Option func(*Service)

// WithCache attaches a response cache. A nil cache disables caching.
func WithCache(cache *respcache.Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger sets the logger used for generation events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAttempts overrides the per-call retry budget.
func WithMaxAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithRetryStep overrides the backoff step between attempts.
func WithRetryStep(step time.Duration) Option {
	return func(s *Service) {
		if step > 0 {
			s.retryStep = step
		}
	}
}

// WithSleeper overrides the sleep function used between retries.
// Tests install a no-op sleeper.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *Service) {
		if sleeper != nil {
			s.sleeper = sleeper
		}
	}
}

// NewService constructs a script generation service backed by provider.
func NewService(provider Provider, opts ...Option) *Service {
	svc := &Service{
		provider:    provider,
		logger:      logging.NewNop(),
		maxAttempts: defaultMaxAttempts,
		retryStep:   defaultRetryStep,
		sleeper:     time.Sleep,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Script generates narration text for subject. Paragraph count and language
// shape the prompt; the cleaned result is cached keyed by all three.
func (s *Service) Script(ctx context.Context, subject, language string, paragraphs int) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", services.Wrap(services.ErrValidation, "script", "generate", "subject is empty", nil)
	}
	if paragraphs < 1 {
		paragraphs = 1
	}

	params := map[string]any{
		"subject":    subject,
		"language":   language,
		"paragraphs": paragraphs,
	}
	if cached, ok := s.cache.Get(ctx, cacheKindScript, params); ok {
		s.logger.Info("script served from cache",
			logging.String(logging.FieldEventType, "script_cache_hit"),
			logging.String("subject", subject))
		return cached, nil
	}

	userPrompt := buildScriptPrompt(subject, language, paragraphs)
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		raw, err := s.provider.Complete(ctx, scriptSystemPrompt, userPrompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			s.logRetry("script", subject, attempt, err)
			if !s.wait(ctx, attempt) {
				break
			}
			continue
		}

		script := textutil.CleanScript(raw)
		if script == "" {
			lastErr = fmt.Errorf("provider returned empty script")
			s.logRetry("script", subject, attempt, lastErr)
			if !s.wait(ctx, attempt) {
				break
			}
			continue
		}
		if looksLikeProviderError(script) {
			lastErr = fmt.Errorf("provider returned error text: %s", snippet(script))
			s.logRetry("script", subject, attempt, lastErr)
			if !s.wait(ctx, attempt) {
				break
			}
			continue
		}

		if err := s.cache.Set(ctx, cacheKindScript, script, params); err != nil {
			s.logger.Warn("script cache store failed", logging.Error(err))
		}
		s.logger.Info("script generated",
			logging.String(logging.FieldEventType, "script_generated"),
			logging.String("subject", subject),
			logging.Int("word_count", textutil.WordCount(script)),
			logging.Int("attempt", attempt))
		return script, nil
	}

	return "", services.Wrap(services.ErrTransient, "script", "generate",
		fmt.Sprintf("no usable script after %d attempts", s.maxAttempts), lastErr)
}

// Terms generates count stock-footage search terms grounded in subject and
// script. The cache key includes a short script hash so edited scripts do
// not reuse stale terms.
func (s *Service) Terms(ctx context.Context, subject, script string, count int, faceless bool) ([]string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, services.Wrap(services.ErrValidation, "terms", "generate", "subject is empty", nil)
	}
	if count < 1 {
		count = 1
	}

	scriptHash := "none"
	if strings.TrimSpace(script) != "" {
		scriptHash = textutil.ShortHash(script)
	}
	params := map[string]any{
		"subject":     subject,
		"script_hash": scriptHash,
		"faceless":    faceless,
	}
	if cached, ok := s.cache.Get(ctx, cacheKindTerms, params); ok {
		if terms := decodeTerms(cached); len(terms) > 0 {
			s.logger.Info("terms served from cache",
				logging.String(logging.FieldEventType, "terms_cache_hit"),
				logging.String("subject", subject))
			return terms, nil
		}
	}

	systemPrompt, userPrompt := buildTermsPrompt(subject, script, count, faceless)
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		raw, err := s.provider.CompleteJSON(ctx, systemPrompt, userPrompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			s.logRetry("terms", subject, attempt, err)
			if !s.wait(ctx, attempt) {
				break
			}
			continue
		}

		terms := decodeTerms(raw)
		if len(terms) == 0 {
			lastErr = fmt.Errorf("provider returned no usable terms: %s", snippet(raw))
			s.logRetry("terms", subject, attempt, lastErr)
			if !s.wait(ctx, attempt) {
				break
			}
			continue
		}
		if len(terms) > count {
			terms = terms[:count]
		}

		if err := s.cache.Set(ctx, cacheKindTerms, encodeTerms(terms), params); err != nil {
			s.logger.Warn("terms cache store failed", logging.Error(err))
		}
		s.logger.Info("terms generated",
			logging.String(logging.FieldEventType, "terms_generated"),
			logging.String("subject", subject),
			logging.Int("term_count", len(terms)),
			logging.Int("attempt", attempt))
		return terms, nil
	}

	return nil, services.Wrap(services.ErrTransient, "terms", "generate",
		fmt.Sprintf("no usable terms after %d attempts", s.maxAttempts), lastErr)
}

// wait sleeps the linear backoff for attempt and reports whether the caller
// should keep retrying.
func (s *Service) wait(ctx context.Context, attempt int) bool {
	if attempt >= s.maxAttempts {
		return false
	}
	s.sleeper(time.Duration(attempt) * s.retryStep)
	return ctx.Err() == nil
}

func (s *Service) logRetry(kind, subject string, attempt int, err error) {
	s.logger.Warn("generation attempt failed",
		logging.String(logging.FieldEventType, kind+"_attempt_failed"),
		logging.String("subject", subject),
		logging.Int("attempt", attempt),
		logging.Int("max_attempts", s.maxAttempts),
		logging.Error(err))
}

// decodeTerms parses a JSON string array out of raw provider output,
// tolerating code fences and surrounding prose. Blank entries are dropped.
func decodeTerms(raw string) []string {
	var decoded []string
	if err := llm.DecodeLLMJSON(raw, &decoded); err != nil {
		return nil
	}
	terms := make([]string, 0, len(decoded))
	for _, term := range decoded {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

func encodeTerms(terms []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, term := range terms {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q", term)
	}
	b.WriteByte(']')
	return b.String()
}

// looksLikeProviderError catches providers that put failure text in the
// completion body instead of the HTTP status.
func looksLikeProviderError(text string) bool {
	return strings.Contains(text, "Error: ")
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 120 {
		return text[:120] + "..."
	}
	return text
}
