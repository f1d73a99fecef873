package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>recall page</body></html>"))
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "test-agent", RequestsPerSec: 100})
	body, err := f.Page(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "recall page")
	assert.Equal(t, "test-agent", gotUA)
}

func TestPage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Options{RequestsPerSec: 100})
	_, err := f.Page(context.Background(), srv.URL)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestPage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Options{RequestsPerSec: 100})
	_, err := f.Page(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestPage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f := New(Options{RequestsPerSec: 100})
	_, err := f.Page(ctx, srv.URL)
	assert.Error(t, err)
}

func TestPage_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// 20 req/s: three sequential fetches must take at least ~100ms.
	f := New(Options{RequestsPerSec: 20})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Page(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
