package stockmedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
)

const (
	pixabaySearchURL = "https://pixabay.com/api/videos/"
	pixabayPerPage   = 50

	// Pixabay allows 5000 requests/hour; stay well under it.
	pixabayMinInterval = time.Second
)

// pixabayRenditions lists the rendition keys in preference order; the first
// one wide enough for the target aspect wins.
var pixabayRenditions = []string{"large", "medium", "small", "tiny"}

type pixabayProvider struct {
	apiKey  string
	baseURL string
	client  HTTPDoer
	limiter *intervalLimiter
}

type pixabayResponse struct {
	Hits []pixabayHit `json:"hits"`
}

type pixabayHit struct {
	Duration float64                    `json:"duration"`
	Videos   map[string]pixabayRendition `json:"videos"`
}

type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (p *pixabayProvider) name() string { return config.SourcePixabay }

func (p *pixabayProvider) configured() bool { return p.apiKey != "" }

// search returns clips whose best rendition is at least as wide as the
// target resolution and long enough to fill one clip slot.
func (p *pixabayProvider) search(ctx context.Context, term string, minDuration int, aspect string) ([]candidate, error) {
	if !p.configured() {
		return nil, services.Wrap(services.ErrConfiguration, "materials", "pixabay", "api key is not set", nil)
	}
	if err := p.limiter.wait(ctx); err != nil {
		return nil, err
	}

	width, _ := pipeline.AspectResolution(aspect)
	query := url.Values{}
	query.Set("q", term)
	query.Set("video_type", "all")
	query.Set("per_page", strconv.Itoa(pixabayPerPage))
	query.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build pixabay request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "materials", "pixabay", "search request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrProvider, "materials", "pixabay", fmt.Sprintf("search returned HTTP %d", resp.StatusCode), nil)
	}

	var payload pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrProvider, "materials", "pixabay", "decode search response", err)
	}

	var found []candidate
	for _, hit := range payload.Hits {
		if hit.Duration < float64(minDuration) {
			continue
		}
		for _, size := range pixabayRenditions {
			rendition, ok := hit.Videos[size]
			if !ok {
				continue
			}
			if rendition.Width >= width && rendition.URL != "" {
				found = append(found, candidate{
					provider: p.name(),
					url:      rendition.URL,
					duration: hit.Duration,
				})
				break
			}
		}
	}
	return found, nil
}
