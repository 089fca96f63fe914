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
	pexelsSearchURL = "https://api.pexels.com/videos/search"
	pexelsPerPage   = 20

	// Pexels free tier allows roughly 200 requests/hour.
	pexelsMinInterval = 2 * time.Second
)

type pexelsProvider struct {
	apiKey  string
	baseURL string
	client  HTTPDoer
	limiter *intervalLimiter
}

type pexelsResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	Duration   float64           `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Link   string `json:"link"`
}

func (p *pexelsProvider) name() string { return config.SourcePexels }

func (p *pexelsProvider) configured() bool { return p.apiKey != "" }

// search returns clips at the exact target resolution for the aspect with at
// least minDuration seconds of footage.
func (p *pexelsProvider) search(ctx context.Context, term string, minDuration int, aspect string) ([]candidate, error) {
	if !p.configured() {
		return nil, services.Wrap(services.ErrConfiguration, "materials", "pexels", "api key is not set", nil)
	}
	if err := p.limiter.wait(ctx); err != nil {
		return nil, err
	}

	width, height := pipeline.AspectResolution(aspect)
	query := url.Values{}
	query.Set("query", term)
	query.Set("per_page", strconv.Itoa(pexelsPerPage))
	query.Set("orientation", aspect)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build pexels request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "materials", "pexels", "search request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrProvider, "materials", "pexels", fmt.Sprintf("search returned HTTP %d", resp.StatusCode), nil)
	}

	var payload pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrProvider, "materials", "pexels", "decode search response", err)
	}

	var found []candidate
	for _, video := range payload.Videos {
		if video.Duration < float64(minDuration) {
			continue
		}
		// Pexels offers several renditions per video; only an exact match
		// for the target resolution avoids rescaling artifacts later.
		for _, file := range video.VideoFiles {
			if file.Width == width && file.Height == height && file.Link != "" {
				found = append(found, candidate{
					provider: p.name(),
					url:      file.Link,
					duration: video.Duration,
				})
				break
			}
		}
	}
	return found, nil
}
