package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher downloads request audio into a staging directory.
type Fetcher struct {
	http *http.Client
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// Fetch saves the resource at src under dir and returns the local path.
// The file keeps the URL's extension so the duration reader can pick a decoder.
func (f *Fetcher) Fetch(ctx context.Context, src, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: GET %s: status %d", ErrFetch, src, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	dst := filepath.Join(dir, "audio"+extOf(src))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("%w: write audio: %v", ErrFetch, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write audio: %w", err)
	}
	return dst, nil
}

// extOf returns the lowercase extension of the URL path, or ".mp3".
func extOf(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 5 {
		return ".mp3"
	}
	return ext
}
