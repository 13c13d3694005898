package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fx-agent/src/cache"
	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	calls int32
}

func (f *fakeService) Decision(_ context.Context, pair, tf string) (models.MDecision, error) {
	atomic.AddInt32(&f.calls, 1)
	if pair == "GBPUSD" {
		return models.MDecision{}, helpers.NewMissingData("no features for %s", pair)
	}
	return models.MDecision{Pair: pair, Timeframe: tf, Direction: models.DirectionBuy, Confidence: 0.8, RiskLevel: models.RiskLow}, nil
}

func (f *fakeService) Text(_ context.Context, pair, tf string) string {
	return pair + " " + tf + " forecast"
}

func newTestServer(t *testing.T) (*APIServer, *fakeService) {
	cfg := &models.MConfig{
		Pairs:    []string{"USDJPY", "EURUSD", "GBPUSD"},
		Bars:     models.MBarsConfig{Timeframes: []string{"M5", "H1"}},
		Features: models.MFeaturesConfig{Timeframe: "M5"},
		Cache:    models.MCacheConfig{TTLSeconds: 60, HistorySize: 10},
	}
	log := logger.NewNopLogger()
	svc := &fakeService{}
	s := NewAPIServer(cfg, log, svc, cache.NewMemoryCache(cfg, log))
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s, svc
}

func get(t *testing.T, s *APIServer, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndConfig(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = get(t, s, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "M5", body["feature_timeframe"])
}

func TestDecisionIsCached(t *testing.T) {
	s, svc := newTestServer(t)

	w := get(t, s, "/api/decision/usdjpy")
	require.Equal(t, http.StatusOK, w.Code)
	var d models.MDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, "USDJPY", d.Pair)
	assert.Equal(t, "M5", d.Timeframe)
	assert.Equal(t, models.DirectionBuy, d.Direction)

	get(t, s, "/api/decision/USDJPY")
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.calls))

	w = get(t, s, "/api/decisions/USDJPY/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"direction":"buy"`)
}

func TestDecisionErrors(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/decision/XAUUSD").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/decision/USDJPY?tf=M7").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/decision/GBPUSD").Code)
}

func TestDecisionText(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/api/decision/usdjpy/text?tf=H1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USDJPY H1 forecast", w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestWebsocketSubscription(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.Broadcast(models.MDecision{Pair: "USDJPY", Timeframe: "M5", Close: 1})
	require.Eventually(t, func() bool { return len(s.broadcast) == 0 }, time.Second, 5*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg models.MDecisionUpdate
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "INITIAL", msg.Type)
	assert.Equal(t, "USDJPY", msg.Decision.Pair)

	require.NoError(t, conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Pairs: []string{"usdjpy"}}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "INITIAL", msg.Type)

	s.Broadcast(models.MDecision{Pair: "EURUSD", Timeframe: "M5", Close: 1.1})
	s.Broadcast(models.MDecision{Pair: "USDJPY", Timeframe: "M5", Close: 2})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "UPDATE", msg.Type)
	assert.Equal(t, "USDJPY", msg.Decision.Pair)
	assert.Equal(t, 2.0, msg.Decision.Close)

	w := get(t, s, "/api/health")
	assert.Contains(t, w.Body.String(), `"connections":1`)
}
