package stockmedia

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
)

// browserUserAgent is sent on provider requests; stock CDNs reject requests
// without a recognizable agent string.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// candidate is one searchable clip before download.
type candidate struct {
	provider string
	url      string
	duration float64
}

// searcher is implemented by each stock footage provider.
type searcher interface {
	name() string
	configured() bool
	search(ctx context.Context, term string, minDuration int, aspect string) ([]candidate, error)
}

// Service finds and downloads stock footage. It implements
// pipeline.MaterialFetcher.
type Service struct {
	logger          *slog.Logger
	pexels          *pexelsProvider
	pixabay         *pixabayProvider
	download        *downloader
	minClipDuration int
	shuffle         func(items []candidate)
}

// NewService builds the stock media service from configuration. Search and
// download share provider credentials but use separate HTTP clients because
// their timeout profiles differ by an order of magnitude.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	searchClient := &http.Client{Timeout: time.Duration(cfg.StockMedia.RequestTimeout) * time.Second}
	downloadClient := &http.Client{Timeout: time.Duration(cfg.StockMedia.DownloadTimeout) * time.Second}

	return &Service{
		logger: logging.NewComponentLogger(logger, "stockmedia"),
		pexels: &pexelsProvider{
			apiKey:  cfg.StockMedia.PexelsAPIKey,
			baseURL: pexelsSearchURL,
			client:  searchClient,
			limiter: newIntervalLimiter(pexelsMinInterval),
		},
		pixabay: &pixabayProvider{
			apiKey:  cfg.StockMedia.PixabayAPIKey,
			baseURL: pixabaySearchURL,
			client:  searchClient,
			limiter: newIntervalLimiter(pixabayMinInterval),
		},
		download:        newDownloader(downloadClient, cfg.FFprobeBinary()),
		minClipDuration: cfg.StockMedia.MinClipDuration,
		shuffle: func(items []candidate) {
			rand.Shuffle(len(items), func(i, j int) {
				items[i], items[j] = items[j], items[i]
			})
		},
	}
}

// WithSearchClient replaces the HTTP client used for provider searches (for
// testing).
func (s *Service) WithSearchClient(client HTTPDoer) {
	if client != nil {
		s.pexels.client = client
		s.pixabay.client = client
	}
}

// WithDownloadClient replaces the HTTP client used for clip downloads (for
// testing).
func (s *Service) WithDownloadClient(client HTTPDoer) {
	if client != nil {
		s.download.client = client
	}
}

// WithClipValidator replaces the downloaded-clip probe (for testing).
func (s *Service) WithClipValidator(validate func(ctx context.Context, path string) error) {
	if validate != nil {
		s.download.validate = validate
	}
}

// WithoutRateLimits removes the per-provider request pacing (for testing).
func (s *Service) WithoutRateLimits() {
	s.pexels.limiter = newIntervalLimiter(0)
	s.pixabay.limiter = newIntervalLimiter(0)
}

// WithDeterministicOrder downloads candidates in search order instead of
// shuffling them (for testing).
func (s *Service) WithDeterministicOrder() {
	s.shuffle = func([]candidate) {}
}

// Fetch searches the preferred provider for every term, falls back to the
// other provider when the found footage cannot cover the narration, then
// downloads clips until the per-clip contributions exceed the narration
// length. Exhausting every provider without a single clip returns an empty
// slice and no error; the caller decides that is a stage failure.
func (s *Service) Fetch(ctx context.Context, req pipeline.MaterialRequest) ([]string, error) {
	terms := cleanTerms(req.Terms)
	if len(terms) == 0 {
		return nil, services.Wrap(services.ErrValidation, "materials", "fetch", "no search terms", nil)
	}
	if strings.TrimSpace(req.Dir) == "" {
		return nil, services.Wrap(services.ErrValidation, "materials", "fetch", "download directory is empty", nil)
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure material directory: %w", err)
	}

	minDuration := req.ClipDuration
	if s.minClipDuration > minDuration {
		minDuration = s.minClipDuration
	}

	var (
		candidates    []candidate
		seen          = make(map[string]struct{})
		foundDuration float64
	)
	for i, provider := range s.providerOrder(req.Source) {
		if !provider.configured() {
			if i == 0 {
				return nil, services.Wrap(services.ErrConfiguration, "materials", provider.name(), "api key is not set", nil)
			}
			s.logger.Debug("fallback provider not configured, skipping",
				logging.String("provider", provider.name()))
			continue
		}
		for _, term := range terms {
			items, err := provider.search(ctx, term, minDuration, req.Aspect)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.Warn("stock search failed",
					logging.String(logging.FieldEventType, "stock_search_failed"),
					logging.String("provider", provider.name()),
					logging.String("term", term),
					logging.Error(err))
				continue
			}
			kept := 0
			for _, item := range items {
				if _, dup := seen[item.url]; dup {
					continue
				}
				seen[item.url] = struct{}{}
				candidates = append(candidates, item)
				foundDuration += item.duration
				kept++
			}
			s.logger.Info("stock search results",
				logging.String("provider", provider.name()),
				logging.String("term", term),
				logging.Int("found", len(items)),
				logging.Int("kept", kept))
		}
		if foundDuration >= req.AudioDuration {
			break
		}
		s.logger.Info("footage does not cover narration yet",
			logging.String("provider", provider.name()),
			logging.Float64("found_seconds", foundDuration),
			logging.Float64("required_seconds", req.AudioDuration))
	}

	if len(candidates) == 0 {
		s.logger.Warn("no stock footage found",
			logging.String(logging.FieldEventType, "stock_search_empty"),
			logging.String("terms", strings.Join(terms, ", ")))
		return []string{}, nil
	}

	s.shuffle(candidates)

	clipSeconds := float64(req.ClipDuration)
	var (
		paths []string
		total float64
	)
	for _, item := range candidates {
		path, err := s.download.fetch(ctx, item.url, req.Dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("clip download failed",
				logging.String(logging.FieldEventType, "clip_download_failed"),
				logging.String("provider", item.provider),
				logging.String("url", item.url),
				logging.Error(err))
			continue
		}
		paths = append(paths, path)
		total += math.Min(clipSeconds, item.duration)
		if total > req.AudioDuration {
			break
		}
	}

	s.logger.Info("materials ready",
		logging.String(logging.FieldEventType, "materials_ready"),
		logging.Int("clips", len(paths)),
		logging.Float64("footage_seconds", total),
		logging.Float64("required_seconds", req.AudioDuration))
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

// providerOrder puts the requested source first; the other becomes the
// fallback.
func (s *Service) providerOrder(source string) []searcher {
	if source == config.SourcePixabay {
		return []searcher{s.pixabay, s.pexels}
	}
	return []searcher{s.pexels, s.pixabay}
}

func cleanTerms(terms []string) []string {
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		if trimmed := strings.TrimSpace(term); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
