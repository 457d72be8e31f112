// Package download implements the file-source collaborator: plain HTTP
// retrieval of published spreadsheets into temporary files, rate-limited
// to stay polite to the publisher, with a single batch sweep of the
// temporaries at the end of a run.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Error is a transient network or HTTP failure for one URL. It is
// recorded as a primary-task failure and triggers the portal fallback;
// retry policy belongs to the caller, not here.
type Error struct {
	URL    string
	Status int
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Config carries the downloader knobs.
type Config struct {
	Dir       string
	Timeout   time.Duration
	UserAgent string
	// MinInterval spaces successive downloads.
	MinInterval time.Duration
}

// Client downloads publications over plain HTTP. One client is shared by
// a coordinator run; the temp files it creates live until Sweep.
type Client struct {
	http      *http.Client
	userAgent string
	dir       string
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu      sync.Mutex
	created []string
}

// NewClient builds a client with the configured timeout and politeness
// interval.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "indexcli/1.0 (+monthly index ingestion)"
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		dir:       cfg.Dir,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		logger:    logger,
	}
}

// Download fetches url into a temp file keyed by the caller-supplied key
// plus a timestamp, so concurrent extraction attempts never collide. The
// returned path stays valid until Sweep.
func (c *Client) Download(ctx context.Context, url, key string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{URL: url, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: url, Status: resp.StatusCode}
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", &Error{URL: url, Cause: err}
	}
	dest := filepath.Join(c.dir, fmt.Sprintf("%s_%d.xlsx", key, time.Now().UnixNano()))

	out, err := os.Create(dest)
	if err != nil {
		return "", &Error{URL: url, Cause: err}
	}
	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", &Error{URL: url, Cause: err}
	}

	c.mu.Lock()
	c.created = append(c.created, dest)
	c.mu.Unlock()

	c.logger.Debug("downloaded publication",
		slog.String("url", url),
		slog.String("file", filepath.Base(dest)),
		slog.Int64("bytes", written))
	return dest, nil
}

// Sweep removes every temp file created by this client in one batch.
// Deferring removal to the end of the run keeps I/O out of the hot loop.
func (c *Client) Sweep() {
	c.mu.Lock()
	files := c.created
	c.created = nil
	c.mu.Unlock()

	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err == nil {
			removed++
		}
	}
	if len(files) > 0 {
		c.logger.Info("swept temporary downloads",
			slog.Int("removed", removed),
			slog.Int("total", len(files)))
	}
}
