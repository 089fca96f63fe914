package stockmedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"reelforge/internal/fileutil"
	"reelforge/internal/media/ffprobe"
	"reelforge/internal/services"
	"reelforge/internal/textutil"
)

// downloader saves stock clips into the task directory. Filenames derive
// from the source URL so a restarted task reuses clips it already has
// instead of downloading them again.
type downloader struct {
	client        HTTPDoer
	ffprobeBinary string
	validate      func(ctx context.Context, path string) error
}

func newDownloader(client HTTPDoer, ffprobeBinary string) *downloader {
	d := &downloader{client: client, ffprobeBinary: ffprobeBinary}
	d.validate = d.probeClip
	return d
}

// clipFileName derives a stable local name from the clip URL. Query strings
// carry expiring signatures, so they are excluded from the hash.
func clipFileName(rawURL string) string {
	base := rawURL
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	return "vid-" + textutil.ShortHash(base) + ".mp4"
}

// fetch downloads rawURL into dir and returns the local path. An existing
// non-empty file short-circuits the download. The clip lands under a .part
// name first so interrupted transfers are never mistaken for finished clips.
func (d *downloader) fetch(ctx context.Context, rawURL, dir string) (string, error) {
	target := filepath.Join(dir, clipFileName(rawURL))
	if fileutil.NonEmpty(target) {
		return target, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrProvider, "materials", "download", "clip download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrProvider, "materials", "download", fmt.Sprintf("clip download returned HTTP %d", resp.StatusCode), nil)
	}

	partial := target + ".part"
	if err := writeStream(partial, resp.Body); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("write clip: %w", err)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("finalize clip: %w", err)
	}

	if err := d.validate(ctx, target); err != nil {
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrProvider, "materials", "download", "downloaded clip is not playable", err)
	}
	return target, nil
}

// probeClip rejects truncated or non-video payloads some CDNs serve in
// place of an error page.
func (d *downloader) probeClip(ctx context.Context, path string) error {
	result, err := ffprobe.Inspect(ctx, d.ffprobeBinary, path)
	if err != nil {
		return err
	}
	if result.VideoStreamCount() == 0 {
		return fmt.Errorf("no video stream")
	}
	if result.DurationSeconds() <= 0 {
		return fmt.Errorf("zero duration")
	}
	return nil
}

func writeStream(path string, body io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
