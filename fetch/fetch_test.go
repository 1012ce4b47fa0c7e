package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"repost-bot/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("image-bytes"))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(5*time.Second, 32)
	ctx := context.Background()

	r, err := f.Get(ctx, srv.URL+"/ok", "attachment")
	require.NoError(t, err)
	require.NotNil(t, r)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	for _, path := range []string{"/empty", "/missing", "/big"} {
		r, err := f.Get(ctx, srv.URL+path, "embed")
		assert.NoError(t, err, path)
		assert.Nil(t, r, path)
	}
}

func TestGetMalformedURLIsNoImage(t *testing.T) {
	for _, url := range []string{"http://[::1", "http://%zz/x", "\x7f"} {
		r, err := New(time.Second, 0).Get(context.Background(), url, "embed")
		assert.NoError(t, err, url)
		assert.Nil(t, r, url)
	}
}

func TestGetNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(time.Second, 0).Get(context.Background(), url, "embed")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Transient))
}
