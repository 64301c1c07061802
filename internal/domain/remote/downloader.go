package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// Download limits.
const (
	// DefaultDownloadTimeout bounds a single artifact download.
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxArtifactSize bounds artifact bodies (4MB).
	DefaultMaxArtifactSize int64 = 4 << 20
)

// Downloader fetches artifact text while reporting byte progress to a sink.
type Downloader struct {
	client    *http.Client
	timeout   time.Duration
	maxSize   int64
	userAgent string
	logger    ports.Logger

	mu   sync.RWMutex
	sink ports.ProgressSink
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDownloadClient sets the HTTP client used for downloads.
func WithDownloadClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithDownloadTimeout bounds each download.
func WithDownloadTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithMaxArtifactSize sets the largest accepted body.
func WithMaxArtifactSize(n int64) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithDownloaderLogger sets the downloader logger.
func WithDownloaderLogger(l ports.Logger) DownloaderOption {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSink sets the initial progress sink.
func WithSink(s ports.ProgressSink) DownloaderOption {
	return func(d *Downloader) {
		d.sink = s
	}
}

// NewDownloader creates a downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:    &http.Client{},
		timeout:   DefaultDownloadTimeout,
		maxSize:   DefaultMaxArtifactSize,
		userAgent: "dyna",
		logger:    ports.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetSink replaces the progress sink. A nil sink disables reporting.
func (d *Downloader) SetSink(s ports.ProgressSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = s
}

func (d *Downloader) currentSink() ports.ProgressSink {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sink
}

// Download fetches url and returns the complete body. Only a 200 response
// read to the end is accepted; every other outcome is an *ArtifactFetchError
// and no partial content is returned.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ArtifactFetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &ArtifactFetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &ArtifactFetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        &StatusError{StatusCode: resp.StatusCode},
		}
	}

	total := resp.ContentLength
	if total > d.maxSize {
		return "", &ArtifactFetchError{URL: url, Err: ErrTooLarge}
	}

	var reader io.Reader = io.LimitReader(resp.Body, d.maxSize+1)
	if sink := d.currentSink(); sink != nil && total > 0 {
		reader = &progressReader{
			reader: reader,
			onRead: func(loaded int64) {
				sink.OnTransfer(url, loaded, total)
			},
		}
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, reader)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrTruncated
		}
		return "", &ArtifactFetchError{URL: url, Err: err}
	}
	if n > d.maxSize {
		return "", &ArtifactFetchError{URL: url, Err: ErrTooLarge}
	}
	if total > 0 && n != total {
		return "", &ArtifactFetchError{URL: url, Err: fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, n, total)}
	}

	d.logger.Debug(ctx, "downloaded artifact", ports.F("url", url), ports.F("bytes", n))
	return buf.String(), nil
}

// progressReader wraps an io.Reader to track download progress.
type progressReader struct {
	reader io.Reader
	loaded int64
	onRead func(loaded int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.loaded += int64(n)
		r.onRead(r.loaded)
	}
	return n, err
}
