package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coloradocovid/covid-data-etl/internal/config"
)

func newTestServer(t *testing.T, agg Aggregator) *Server {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2021, 4, 3, 12, 0, 0, 0, time.UTC))
	cache := newTestCache(agg, 15*time.Minute, clock)
	cfg := &config.Config{CacheInvalidateKey: "sekrit"}
	return NewServer(cache, cfg, slog.Default())
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestServer_Data(t *testing.T) {
	srv := newTestServer(t, &mockAggregator{})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/data/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "2021-04-03 12:00:00.000000", body["last_updated"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	for _, view := range []string{"daily_cases", "daily_vaccines", "ave_cases", "ave_vaccines"} {
		assert.Contains(t, data, view)
	}
}

func TestServer_DataAggregatorFailure(t *testing.T) {
	srv := newTestServer(t, &mockAggregator{err: assert.AnError})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/data/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
}

func TestServer_InvalidateCache(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		wantCode   int
		wantStatus string
	}{
		{"correct key", "sekrit", http.StatusOK, "success"},
		{"wrong key", "guess", http.StatusForbidden, "unauthorized"},
		{"missing key", "", http.StatusForbidden, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &mockAggregator{})

			req := httptest.NewRequest(http.MethodPost, "/invalidate_cache/", nil)
			if tt.key != "" {
				req.Header.Set("invalidate-cache-key", tt.key)
			}

			resp, err := srv.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantStatus, decodeBody(t, resp)["status"])
		})
	}
}

func TestServer_InvalidateWithNoConfiguredKeyAlwaysRefuses(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2021, 4, 3, 12, 0, 0, 0, time.UTC))
	cache := newTestCache(&mockAggregator{}, 15*time.Minute, clock)
	srv := NewServer(cache, &config.Config{}, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/invalidate_cache/", nil)
	req.Header.Set("invalidate-cache-key", "")

	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &mockAggregator{})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}
