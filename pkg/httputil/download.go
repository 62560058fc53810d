package httputil

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/pkgcheck/pkg/cache"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/observability"
)

// Client downloads files. The zero value is usable.
type Client struct {
	// HTTP is the underlying client; nil means a client with a 5 minute
	// timeout.
	HTTP *http.Client
	// Meta remembers validators per URL. Nil disables conditional requests.
	Meta *ValidatorStore
	// Attempts and Delay configure retries; zero values mean 3 and 1s.
	Attempts int
	Delay    time.Duration
}

var defaultHTTP = &http.Client{Timeout: 5 * time.Minute}

// Download fetches url into path with a default [Client].
func Download(ctx context.Context, url, path string) (bool, error) {
	var c Client
	return c.Download(ctx, url, path)
}

// Download fetches url into path and reports whether the file changed.
// The body is written to a temporary file in the target directory and
// renamed over path, so readers never see a partial file.
func (c *Client) Download(ctx context.Context, url, path string) (bool, error) {
	if err := errors.ValidateURL(url); err != nil {
		return false, err
	}
	attempts, delay := c.Attempts, c.Delay
	if attempts == 0 {
		attempts = 3
	}
	if delay == 0 {
		delay = time.Second
	}

	var changed bool
	b := cache.Backoff{Attempts: attempts, Initial: delay}
	err := cache.RetryWithBackoff(ctx, b, func() error {
		var err error
		changed, err = c.fetch(ctx, url, path)
		return err
	})
	return changed, err
}

func (c *Client) fetch(ctx context.Context, url, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	var prev Validators
	if c.Meta != nil {
		if v, ok, _ := c.Meta.Get(ctx, url); ok {
			if _, statErr := os.Stat(path); statErr == nil {
				prev = v
			}
		}
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	hooks := observability.HTTP()
	host, reqPath := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, reqPath)
	start := time.Now()

	client := c.HTTP
	if client == nil {
		client = defaultHTTP
	}
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, reqPath, err)
		return false, cache.Retryable(transportError(url, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, reqPath, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, checkStatus(url, resp.StatusCode)
	}

	if err := writeAtomic(path, resp.Body); err != nil {
		return false, err
	}

	if c.Meta != nil {
		_ = c.Meta.Set(ctx, url, Validators{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		})
	}
	return true, nil
}

func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return cache.Retryable(fmt.Errorf("read body: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// transportError codes a failed round trip as a timeout or a network error.
func transportError(url string, err error) error {
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return errors.Wrap(errors.ErrCodeTimeout, err, "GET %s", url)
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url)
}
