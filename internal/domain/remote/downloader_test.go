package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transfer struct {
	url           string
	loaded, total int64
}

type recordingSink struct {
	mu        sync.Mutex
	transfers []transfer
}

func (s *recordingSink) OnCountKnown(int)   {}
func (s *recordingSink) OnProgress(float64) {}
func (s *recordingSink) OnFinished()        {}
func (s *recordingSink) OnTransfer(url string, loaded, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, transfer{url: url, loaded: loaded, total: total})
}

func (s *recordingSink) snapshot() []transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transfer(nil), s.transfers...)
}

func TestDownloader_Download(t *testing.T) {
	t.Parallel()

	t.Run("reports progress with declared length", func(t *testing.T) {
		t.Parallel()
		body := `{"namespace":"amy","id":"theme","version":4}`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			_, _ = w.Write([]byte(body))
		}))
		defer server.Close()

		sink := &recordingSink{}
		d := NewDownloader(WithSink(sink))

		got, err := d.Download(context.Background(), server.URL+"/plugin.json")
		require.NoError(t, err)
		assert.Equal(t, body, got)

		transfers := sink.snapshot()
		require.NotEmpty(t, transfers)
		last := transfers[len(transfers)-1]
		assert.Equal(t, server.URL+"/plugin.json", last.url)
		assert.Equal(t, int64(len(body)), last.loaded)
		assert.Equal(t, int64(len(body)), last.total)
	})

	t.Run("no progress without declared length", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Transfer-Encoding", "chunked")
			_, _ = w.Write([]byte("chunk-one"))
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte("chunk-two"))
		}))
		defer server.Close()

		sink := &recordingSink{}
		d := NewDownloader()
		d.SetSink(sink)

		got, err := d.Download(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "chunk-onechunk-two", got)
		assert.Empty(t, sink.snapshot())
	})

	t.Run("non-200 status", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("404: Not Found"))
		}))
		defer server.Close()

		got, err := NewDownloader().Download(context.Background(), server.URL)
		require.Error(t, err)
		assert.Empty(t, got)
		assert.True(t, IsArtifactFetchError(err))
		var fetchErr *ArtifactFetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	})

	t.Run("truncated body", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Length", "100")
			_, _ = w.Write([]byte("only a little"))
		}))
		defer server.Close()

		got, err := NewDownloader().Download(context.Background(), server.URL)
		require.Error(t, err)
		assert.Empty(t, got)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("oversized body", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		}))
		defer server.Close()

		_, err := NewDownloader(WithMaxArtifactSize(16)).Download(context.Background(), server.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		_, err := NewDownloader(WithDownloadTimeout(20 * time.Millisecond)).Download(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, IsArtifactFetchError(err))
	})
}

func TestArtifactFetchError_Message(t *testing.T) {
	t.Parallel()

	withStatus := &ArtifactFetchError{URL: "https://x/p.json", StatusCode: 500}
	assert.Equal(t, "fetching artifact https://x/p.json: unexpected status 500", withStatus.Error())

	withErr := &ArtifactFetchError{URL: "https://x/p.json", Err: ErrTruncated}
	assert.Equal(t, "fetching artifact https://x/p.json: response body truncated", withErr.Error())
}
