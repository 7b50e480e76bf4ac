package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/time/rate"
)

// Fetcher downloads episode audio to local files. Downloads are streamed in
// bounded chunks so arbitrarily large files never get buffered in memory,
// and request starts are rate limited to stay polite to podcast CDNs.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	dir     string
}

// NewFetcher returns a Fetcher writing into dir. downloadsPerSecond caps how
// often new downloads may start; burst allows short bursts above the rate.
func NewFetcher(dir string, downloadsPerSecond float64, burst int) *Fetcher {
	return &Fetcher{
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(downloadsPerSecond), burst),
		dir:     dir,
	}
}

// Fetch downloads the resource at audioURL and returns the local file path.
// The partial file is removed when the download fails midway.
func (f *Fetcher) Fetch(ctx context.Context, audioURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build audio request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d fetching %s", resp.StatusCode, audioURL)
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	out, err := os.CreateTemp(f.dir, "*-"+FilenameFromURL(audioURL))
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to close audio file: %w", err)
	}

	log.Printf("Downloaded %s to %s", audioURL, out.Name())
	return out.Name(), nil
}

// FilenameFromURL derives a usable local filename from the path component of
// an audio URL. Falls back to audio.mp3 when the URL has no usable basename.
func FilenameFromURL(audioURL string) string {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return "audio.mp3"
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "audio.mp3"
	}
	// CreateTemp treats path separators in the pattern as an error.
	return filepath.Base(base)
}
