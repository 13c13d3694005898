package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(retries int) *AsyncNetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, MaxRetries: retries, UserAgent: "fx-test"}}
	nm := NewAsyncNetworkManager(cfg, logger.NewNopLogger())
	nm.backoff = func(int) time.Duration { return time.Millisecond }
	return nm
}

func TestGetSendsParamsAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fx-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newManager(0).Get(context.Background(), srv.URL, map[string]string{"page": "1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("third time"))
	}))
	defer srv.Close()

	body, err := newManager(2).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "third time", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetNotFoundIsMissingData(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newManager(3).Get(context.Background(), srv.URL, nil)
	assert.True(t, helpers.IsMissingData(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newManager(1).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.False(t, helpers.IsMissingData(err))
}

func TestProxyManager(t *testing.T) {
	pm := NewProxyManager("10.0.0.1:8080, http://10.0.0.2:3128,,", "", logger.NewNopLogger())
	require.True(t, pm.HasProxies())
	assert.Equal(t, defaultUserAgent, pm.GetUserAgent())

	p, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", p)

	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	assert.Equal(t, "http://10.0.0.2:3128", p)

	assert.False(t, NewProxyManager("", "ua", logger.NewNopLogger()).HasProxies())
}
