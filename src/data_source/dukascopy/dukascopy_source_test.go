package dukascopy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"fx-agent/src/logger"
	"fx-agent/src/models"
	"fx-agent/src/network"
	"fx-agent/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourURLUsesZeroBasedMonth(t *testing.T) {
	s := NewSource(&models.MConfig{Network: models.MNetworkConfig{BaseURL: "https://feed/"}}, nil, logger.NewNopLogger())
	assert.Equal(t, "https://feed/USDJPY/2024/00/15/13h_ticks.bi5",
		s.HourURL("usdjpy", time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)))
}

func TestDownloadRange(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch filepath.Base(r.URL.Path) {
		case "00h_ticks.bi5":
			w.Write([]byte("payload"))
		case "01h_ticks.bi5":
			http.NotFound(w, r)
		default:
			// 200 with an empty body
		}
	}))
	defer srv.Close()

	cfg := &models.MConfig{
		Paths:   models.MPathsConfig{DataRoot: t.TempDir()},
		Network: models.MNetworkConfig{BaseURL: srv.URL, RequestTimeout: 5, MaxRetries: 0},
	}
	log := logger.NewNopLogger()
	src := NewSource(cfg, network.NewAsyncNetworkManager(cfg, log), log)

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	stats, err := src.DownloadRange(context.Background(), "USDJPY", start, start.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.MDownloadStats{Pair: "USDJPY", OK: 1, Missing: 2}, stats)

	data, err := os.ReadFile(storage.RawTickPath(cfg, "USDJPY", start))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// a second run skips the file already on disk
	atomic.StoreInt32(&calls, 0)
	stats, err = src.DownloadRange(context.Background(), "USDJPY", start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
