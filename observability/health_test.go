package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthEndpoints(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name string
		db   Pinger
		path string
		want int
	}{
		{"healthz", pinger{}, "/healthz", http.StatusOK},
		{"ready", pinger{}, "/readyz", http.StatusOK},
		{"not ready", pinger{errors.New("locked")}, "/readyz", http.StatusServiceUnavailable},
		{"metrics", pinger{}, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(tt.db, ":0", &logger).Handler()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
