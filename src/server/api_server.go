package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fx-agent/src/analysis"
	"fx-agent/src/helpers"
	"fx-agent/src/interfaces"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer serves decisions to the chat front end over REST and websocket.
// -----------------------------------------------------------------------------

type APIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Service interfaces.IDecisionService
	Cache   interfaces.IDecisionCache
	engine  *gin.Engine
	httpSrv *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MDecisionUpdate
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}
	stopOnce   sync.Once

	// Latest decision per pair, replayed to new subscribers
	latestState map[string]models.MDecisionUpdate
	latestAt    time.Time
	connections int
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, log *logger.Logger, svc interfaces.IDecisionService, cache interfaces.IDecisionCache) *APIServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:      cfg,
		Logger:      log,
		Service:     svc,
		Cache:       cache,
		engine:      gin.New(),
		clients:     make(map[*Client]struct{}),
		broadcast:   make(chan models.MDecisionUpdate, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		done:        make(chan struct{}),
		latestState: make(map[string]models.MDecisionUpdate),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/decision/:pair", s.getDecision)
	api.GET("/decision/:pair/text", s.getDecisionText)
	api.GET("/decisions/:pair/history", s.getHistory)

	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.httpSrv = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.connections
	latest := s.latestAt
	s.stateMutex.RUnlock()

	resp := gin.H{
		"status":      "ok",
		"connections": connections,
	}
	if !latest.IsZero() {
		resp["latest_update"] = latest.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pairs":             normalizePairs(s.Config.Pairs),
		"timeframes":        s.Config.Bars.Timeframes,
		"feature_timeframe": s.Config.Features.Timeframe,
		"event_windows":     s.Config.Features.EventWindows,
	})
}

// -----------------------------------------------------------------------------

// pairAndTimeframe validates the path pair and the tf query value.
func (s *APIServer) pairAndTimeframe(c *gin.Context) (string, string, bool) {
	pair := strings.ToUpper(c.Param("pair"))
	if !isKnownPair(s.Config, pair) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown pair %s", pair)})
		return "", "", false
	}
	tf := c.DefaultQuery("tf", s.Config.Features.Timeframe)
	if !analysis.IsTimeframe(tf) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown timeframe %s", tf)})
		return "", "", false
	}
	return pair, tf, true
}

// -----------------------------------------------------------------------------

func (s *APIServer) getDecision(c *gin.Context) {
	pair, tf, ok := s.pairAndTimeframe(c)
	if !ok {
		return
	}

	d, err := s.Decide(c.Request.Context(), pair, tf)
	if err != nil {
		status := http.StatusInternalServerError
		if helpers.IsMissingData(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getDecisionText(c *gin.Context) {
	pair, tf, ok := s.pairAndTimeframe(c)
	if !ok {
		return
	}
	c.String(http.StatusOK, s.Service.Text(c.Request.Context(), pair, tf))
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHistory(c *gin.Context) {
	pair := strings.ToUpper(c.Param("pair"))
	n := queryInt(c.Query("n"), s.Config.Cache.HistorySize)

	history, err := s.Cache.History(c.Request.Context(), pair, n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pair": pair, "decisions": history})
}

// -----------------------------------------------------------------------------
// Decision flow
// -----------------------------------------------------------------------------

// Decide returns the cached decision when it is still fresh, otherwise it
// computes a new one, caches it and pushes it to websocket subscribers.
func (s *APIServer) Decide(ctx context.Context, pair, tf string) (models.MDecision, error) {
	if d, ok := s.Cache.Latest(ctx, pair, tf); ok {
		return d, nil
	}

	d, err := s.Service.Decision(ctx, pair, tf)
	if err != nil {
		return models.MDecision{}, err
	}
	if err := s.Cache.Put(ctx, d); err != nil {
		s.Logger.Warning("Failed to cache decision for %s: %v", pair, err)
	}
	s.Broadcast(d)
	return d, nil
}

// -----------------------------------------------------------------------------

// Refresh recomputes the decision of every configured pair.
func (s *APIServer) Refresh(ctx context.Context) {
	for _, pair := range normalizePairs(s.Config.Pairs) {
		d, err := s.Service.Decision(ctx, pair, s.Config.Features.Timeframe)
		if err != nil {
			s.Logger.Warning("Refresh skipped %s: %v", pair, err)
			continue
		}
		if err := s.Cache.Put(ctx, d); err != nil {
			s.Logger.Warning("Failed to cache decision for %s: %v", pair, err)
		}
		s.Broadcast(d)
	}
}

// -----------------------------------------------------------------------------

// RunRefresher calls Refresh every interval until ctx is done.
func (s *APIServer) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
