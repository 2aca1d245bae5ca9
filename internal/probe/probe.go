// Package probe checks whether remote images load.
package probe

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const maxImageBytes = 5 * 1024 * 1024

// ErrNotImage is returned by Width when the body does not decode as an image.
var ErrNotImage = errors.New("not a decodable image")

// Prober loads images over HTTP. A zero Timeout waits as long as the context
// allows.
type Prober struct {
	http    *http.Client
	timeout time.Duration
}

func New(httpClient *http.Client, timeout time.Duration) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Prober{http: httpClient, timeout: timeout}
}

// Probe waits until url has either loaded or failed to load. It never
// reports the outcome; load failures count as settled.
func (p *Prober) Probe(ctx context.Context, url string) {
	_, _ = p.decode(ctx, url)
}

// Width returns the natural pixel width of the image at url.
func (p *Prober) Width(ctx context.Context, url string) (int, error) {
	cfg, err := p.decode(ctx, url)
	if err != nil {
		return 0, err
	}
	return cfg.Width, nil
}

func (p *Prober) decode(ctx context.Context, url string) (image.Config, error) {
	if url == "" {
		return image.Config{}, fmt.Errorf("load image: empty url")
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return image.Config{}, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.http.Do(req)
	if err != nil {
		return image.Config{}, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return image.Config{}, fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	// Drain so the connection can be reused for the next thumbnail.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxImageBytes))
	return cfg, nil
}
