package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Source yields the raw bytes of a catalog. Callers close the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// LoadSource opens src and decodes it. Open failures are reported as DataLoadError.
func LoadSource(ctx context.Context, src Source) ([]Item, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &DataLoadError{Source: src.String(), Err: err}
	}
	if rc == nil {
		return nil, &DataLoadError{Source: src.String(), Err: errors.New("source returned no data")}
	}
	defer rc.Close()

	return load(rc, src.String())
}

// FileSource reads the catalog from the local file system
type FileSource struct {
	Path string
}

// NewFileSource reads the catalog at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path)
}

func (s *FileSource) String() string {
	return s.Path
}

// HTTPSource downloads the catalog, retrying transport errors and 5xx responses
type HTTPSource struct {
	URL        string
	UserAgent  string
	MaxRetries int
	Backoff    time.Duration

	client *http.Client
	logger *logrus.Entry
}

// HTTPSourceOptions configures NewHTTPSource
type HTTPSourceOptions struct {
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int
	Backoff    time.Duration
}

// NewHTTPSource downloads the catalog from url. Negative retry counts mean no retries.
func NewHTTPSource(url string, opts HTTPSourceOptions, logger *logrus.Entry) *HTTPSource {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = logrus.WithField("component", "catalog_source")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Product-Recommender/1.0"
	}
	return &HTTPSource{
		URL:        url,
		UserAgent:  opts.UserAgent,
		MaxRetries: opts.MaxRetries,
		Backoff:    opts.Backoff,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

func (s *HTTPSource) String() string {
	return s.URL
}

// Open fetches the catalog body
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var lastErr error

	retries := max(s.MaxRetries, 0)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(s.Backoff, attempt)
			s.logger.WithFields(logrus.Fields{
				"url":     s.URL,
				"attempt": attempt,
				"delay":   delay,
			}).WithError(lastErr).Warn("Retrying catalog download")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryable, err := s.fetch(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, lastErr
}

func (s *HTTPSource) fetch(ctx context.Context) (io.ReadCloser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("network error: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	return resp.Body, false, nil
}

// calculateBackoff doubles base per attempt, caps at 30s and adds +/-25% jitter
func calculateBackoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	backoff := base * time.Duration(1<<uint(attempt-1))
	if backoff > 30*time.Second || backoff <= 0 {
		backoff = 30 * time.Second
	}
	if half := int64(backoff) / 2; half > 0 {
		backoff += time.Duration(rand.Int64N(half)) - backoff/4
	}
	return backoff
}

// NewSource picks an HTTPSource for http(s) locations and a FileSource otherwise
func NewSource(location string, opts HTTPSourceOptions, logger *logrus.Entry) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(location, opts, logger)
	}
	return NewFileSource(location)
}
