package stockmedia_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
	"reelforge/internal/services/stockmedia"
	"reelforge/internal/testsupport"
	"reelforge/internal/textutil"
)

type fakeDoer struct {
	mu      sync.Mutex
	handler func(req *http.Request) (*http.Response, error)
	hosts   []string
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.hosts = append(d.hosts, req.URL.Host)
	d.mu.Unlock()
	return d.handler(req)
}

func (d *fakeDoer) hostCount(host string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, h := range d.hosts {
		if h == host {
			count++
		}
	}
	return count
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newService(t *testing.T, cfg *config.Config, doer stockmedia.HTTPDoer) *stockmedia.Service {
	t.Helper()
	svc := stockmedia.NewService(cfg, logging.NewNop())
	svc.WithSearchClient(doer)
	svc.WithDownloadClient(doer)
	svc.WithClipValidator(func(context.Context, string) error { return nil })
	svc.WithoutRateLimits()
	svc.WithDeterministicOrder()
	return svc
}

func TestFetchDownloadsExactResolutionMatch(t *testing.T) {
	var (
		authHeader  string
		searchQuery url.Values
	)
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			authHeader = req.Header.Get("Authorization")
			searchQuery = req.URL.Query()
			return jsonResponse(http.StatusOK, `{"videos":[
				{"duration":12,"video_files":[
					{"width":1280,"height":720,"link":"https://cdn.example.com/small.mp4"},
					{"width":1080,"height":1920,"link":"https://cdn.example.com/tall.mp4?sig=abc"}]},
				{"duration":9,"video_files":[
					{"width":640,"height":360,"link":"https://cdn.example.com/tiny.mp4"}]}]}`), nil
		case "cdn.example.com":
			return jsonResponse(http.StatusOK, "clip-bytes"), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	svc := newService(t, testsupport.NewConfig(t), doer)
	dir := t.TempDir()
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"ocean waves"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 4,
		ClipDuration:  5,
		Dir:           dir,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected one downloaded clip, got %d: %v", len(paths), paths)
	}
	if authHeader != "test" {
		t.Fatalf("expected pexels api key in Authorization header, got %q", authHeader)
	}
	if got := searchQuery.Get("query"); got != "ocean waves" {
		t.Fatalf("unexpected search query %q", got)
	}
	if got := searchQuery.Get("per_page"); got != "20" {
		t.Fatalf("unexpected per_page %q", got)
	}
	if got := searchQuery.Get("orientation"); got != "portrait" {
		t.Fatalf("unexpected orientation %q", got)
	}

	base := filepath.Base(paths[0])
	if !strings.HasPrefix(base, "vid-") || !strings.HasSuffix(base, ".mp4") {
		t.Fatalf("unexpected clip file name %q", base)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read downloaded clip: %v", err)
	}
	if string(data) != "clip-bytes" {
		t.Fatalf("unexpected clip contents %q", data)
	}
}

func TestFetchFallsBackToPixabay(t *testing.T) {
	var pixabayQuery url.Values
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			return jsonResponse(http.StatusOK, `{"videos":[]}`), nil
		case "pixabay.com":
			pixabayQuery = req.URL.Query()
			return jsonResponse(http.StatusOK, `{"hits":[
				{"duration":20,"videos":{
					"tiny":{"url":"https://cdn.example.com/px-tiny.mp4","width":640,"height":360},
					"large":{"url":"https://cdn.example.com/px-large.mp4","width":1080,"height":1920}}}]}`), nil
		case "cdn.example.com":
			return jsonResponse(http.StatusOK, "pixabay-clip"), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	svc := newService(t, testsupport.NewConfig(t), doer)
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"forest"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 10,
		ClipDuration:  5,
		Dir:           t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected one clip from fallback provider, got %d", len(paths))
	}
	if pixabayQuery == nil {
		t.Fatal("expected a pixabay search after pexels came up empty")
	}
	if got := pixabayQuery.Get("key"); got != "test" {
		t.Fatalf("expected pixabay api key query param, got %q", got)
	}
	if got := pixabayQuery.Get("q"); got != "forest" {
		t.Fatalf("unexpected pixabay search term %q", got)
	}
	if got := pixabayQuery.Get("per_page"); got != "50" {
		t.Fatalf("unexpected pixabay per_page %q", got)
	}
	if got := pixabayQuery.Get("video_type"); got != "all" {
		t.Fatalf("unexpected pixabay video_type %q", got)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read downloaded clip: %v", err)
	}
	if string(data) != "pixabay-clip" {
		t.Fatalf("unexpected clip contents %q", data)
	}
}

func TestFetchStopsOnceFootageCoversNarration(t *testing.T) {
	var videos []string
	for i := 0; i < 5; i++ {
		videos = append(videos, fmt.Sprintf(
			`{"duration":30,"video_files":[{"width":1080,"height":1920,"link":"https://cdn.example.com/clip-%d.mp4"}]}`, i))
	}
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			return jsonResponse(http.StatusOK, `{"videos":[`+strings.Join(videos, ",")+`]}`), nil
		case "cdn.example.com":
			return jsonResponse(http.StatusOK, "clip"), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	svc := newService(t, testsupport.NewConfig(t), doer)
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"city"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 8,
		ClipDuration:  5,
		Dir:           t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	// Two 5s contributions exceed the 8s narration; the other candidates
	// must never be downloaded.
	if len(paths) != 2 {
		t.Fatalf("expected two clips, got %d", len(paths))
	}
	if got := doer.hostCount("cdn.example.com"); got != 2 {
		t.Fatalf("expected 2 downloads, got %d", got)
	}
}

func TestFetchReusesExistingClip(t *testing.T) {
	clipURL := "https://cdn.example.com/reuse.mp4?sig=1"
	dir := t.TempDir()
	existing := filepath.Join(dir, "vid-"+textutil.ShortHash("https://cdn.example.com/reuse.mp4")+".mp4")
	testsupport.WriteFile(t, existing, 64)

	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			return jsonResponse(http.StatusOK,
				`{"videos":[{"duration":15,"video_files":[{"width":1080,"height":1920,"link":"`+clipURL+`"}]}]}`), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	svc := newService(t, testsupport.NewConfig(t), doer)
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"mountains"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 4,
		ClipDuration:  5,
		Dir:           dir,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(paths) != 1 || paths[0] != existing {
		t.Fatalf("expected existing clip %q to be reused, got %v", existing, paths)
	}
	if got := doer.hostCount("cdn.example.com"); got != 0 {
		t.Fatalf("expected no download for existing clip, saw %d", got)
	}
}

func TestFetchReturnsEmptyWhenProvidersFindNothing(t *testing.T) {
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			return jsonResponse(http.StatusOK, `{"videos":[]}`), nil
		case "pixabay.com":
			return jsonResponse(http.StatusOK, `{"hits":[]}`), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	svc := newService(t, testsupport.NewConfig(t), doer)
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"nothing matches this"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 30,
		ClipDuration:  5,
		Dir:           t.TempDir(),
	})
	if err != nil {
		t.Fatalf("an empty catalog is not an error, got: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no clips, got %v", paths)
	}
	if doer.hostCount("api.pexels.com") == 0 || doer.hostCount("pixabay.com") == 0 {
		t.Fatalf("expected both providers to be searched, hosts: %v", doer.hosts)
	}
}

func TestFetchRequiresPreferredProviderKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.StockMedia.PexelsAPIKey = ""
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected request to %q", req.URL.Host)
		return jsonResponse(http.StatusNotFound, "{}"), nil
	}

	svc := newService(t, cfg, doer)
	_, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"anything"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 10,
		ClipDuration:  5,
		Dir:           t.TempDir(),
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing key, got %v", err)
	}
}

func TestFetchDeduplicatesAcrossTerms(t *testing.T) {
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			return jsonResponse(http.StatusOK,
				`{"videos":[{"duration":30,"video_files":[{"width":1080,"height":1920,"link":"https://cdn.example.com/same.mp4"}]}]}`), nil
		case "pixabay.com":
			return jsonResponse(http.StatusOK, `{"hits":[]}`), nil
		case "cdn.example.com":
			return jsonResponse(http.StatusOK, "clip"), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	svc := newService(t, testsupport.NewConfig(t), doer)
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"waves", "surf"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 100,
		ClipDuration:  5,
		Dir:           t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected the shared clip once, got %v", paths)
	}
	if got := doer.hostCount("cdn.example.com"); got != 1 {
		t.Fatalf("expected a single download, got %d", got)
	}
}

func TestFetchDiscardsUnplayableDownloads(t *testing.T) {
	doer := &fakeDoer{}
	doer.handler = func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.pexels.com":
			return jsonResponse(http.StatusOK,
				`{"videos":[{"duration":30,"video_files":[{"width":1080,"height":1920,"link":"https://cdn.example.com/broken.mp4"}]}]}`), nil
		case "pixabay.com":
			return jsonResponse(http.StatusOK, `{"hits":[]}`), nil
		case "cdn.example.com":
			return jsonResponse(http.StatusOK, "<html>error page</html>"), nil
		default:
			t.Errorf("unexpected request host %q", req.URL.Host)
			return jsonResponse(http.StatusNotFound, "{}"), nil
		}
	}

	dir := t.TempDir()
	svc := newService(t, testsupport.NewConfig(t), doer)
	svc.WithClipValidator(func(ctx context.Context, path string) error {
		return errors.New("no video stream")
	})
	paths, err := svc.Fetch(context.Background(), pipeline.MaterialRequest{
		Terms:         []string{"broken"},
		Source:        config.SourcePexels,
		Aspect:        config.AspectPortrait,
		AudioDuration: 10,
		ClipDuration:  5,
		Dir:           dir,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected unplayable clip to be discarded, got %v", paths)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read material dir: %v", err)
	}
	for _, entry := range entries {
		t.Fatalf("expected rejected download to be removed, found %q", entry.Name())
	}
}
