package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// maxManifestSize bounds how much of a manifest response is read (64KB).
const maxManifestSize = 64 << 10

// FetcherConfig configures a ManifestFetcher.
type FetcherConfig struct {
	// Timeout bounds each request attempt.
	Timeout time.Duration
	// MaxAttempts is the total number of attempts for transient failures.
	MaxAttempts int
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultFetcherConfig returns sensible defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:         10 * time.Second,
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		UserAgent:       "dyna",
	}
}

// ManifestFetcher retrieves remote manifests.
type ManifestFetcher struct {
	config   FetcherConfig
	client   *http.Client
	resolver Resolver
	logger   ports.Logger
}

// FetcherOption configures a ManifestFetcher.
type FetcherOption func(*ManifestFetcher)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *ManifestFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithResolver sets the URL resolver.
func WithResolver(r Resolver) FetcherOption {
	return func(f *ManifestFetcher) {
		f.resolver = r
	}
}

// WithFetcherLogger sets the fetcher logger.
func WithFetcherLogger(l ports.Logger) FetcherOption {
	return func(f *ManifestFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewManifestFetcher creates a manifest fetcher.
func NewManifestFetcher(config FetcherConfig, opts ...FetcherOption) *ManifestFetcher {
	defaults := DefaultFetcherConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = defaults.InitialInterval
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	f := &ManifestFetcher{
		config:   config,
		client:   &http.Client{},
		resolver: DefaultResolver(),
		logger:   ports.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolver returns the resolver used to build manifest URLs.
func (f *ManifestFetcher) Resolver() Resolver {
	return f.resolver
}

// Fetch retrieves and validates the manifest for the given coordinates.
// Every failure is reported as *ManifestUnavailableError.
func (f *ManifestFetcher) Fetch(ctx context.Context, c Coordinates) (*Manifest, error) {
	url, err := f.resolver.ManifestURL(c)
	if err != nil {
		return nil, &ManifestUnavailableError{Repo: c.Repo, Err: err}
	}

	var manifest *Manifest
	attempt := 0
	op := func() error {
		attempt++
		m, err := f.fetchOnce(ctx, url)
		if err == nil {
			manifest = m
			return nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		var parseErr *manifestParseError
		if errors.As(err, &parseErr) {
			return backoff.Permanent(err)
		}

		f.logger.Debug(ctx, "manifest fetch attempt failed",
			ports.F("repo", c.Repo),
			ports.F("attempt", attempt),
			ports.Err(err),
		)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.config.InitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.config.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		f.logger.Warn(ctx, "could not fetch manifest",
			ports.F("repo", c.Repo),
			ports.F("url", url),
			ports.Err(err),
		)
		return nil, &ManifestUnavailableError{Repo: c.Repo, URL: url, Err: err}
	}

	f.logger.Debug(ctx, "fetched manifest",
		ports.F("repo", c.Repo),
		ports.F("latest", manifest.Latest),
	)
	return manifest, nil
}

type manifestParseError struct {
	err error
}

func (e *manifestParseError) Error() string { return e.err.Error() }
func (e *manifestParseError) Unwrap() error { return e.err }

func (f *ManifestFetcher) fetchOnce(ctx context.Context, url string) (*Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxManifestSize {
		return nil, &manifestParseError{err: ErrTooLarge}
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, &manifestParseError{err: err}
	}
	return m, nil
}
