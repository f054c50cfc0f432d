package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trade-decision-engine/internal/auth"
	"trade-decision-engine/internal/database"
	"trade-decision-engine/internal/events"
	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/scheduler"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	ProductionMode bool     `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Server exposes the engine's verdicts and news state over HTTP, with
// a websocket stream of engine events.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	authService *auth.Service
	sched       *scheduler.Scheduler
	repo        *database.VerdictRepository // nil when postgres is disabled
	newsStore   *news.Store
	hub         *WSHub
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// NewServer creates a new API server. repo may be nil.
func NewServer(
	config ServerConfig,
	authService *auth.Service,
	sched *scheduler.Scheduler,
	repo *database.VerdictRepository,
	newsStore *news.Store,
	bus *events.EventBus,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		config:      config,
		authService: authService,
		sched:       sched,
		repo:        repo,
		newsStore:   newsStore,
		hub:         NewWSHub(logger),
		rateLimiter: NewRateLimiter(30, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	// Every engine event reaches connected websocket clients.
	bus.SubscribeAll(server.hub.BroadcastEvent)

	server.registerRoutes()
	return server
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/api/v1")

	v1.POST("/login", s.handleLogin)
	v1.GET("/health", s.handleHealth)

	protected := v1.Group("")
	protected.Use(auth.Middleware(s.authService))
	protected.GET("/verdicts/latest", s.handleLatestVerdicts)
	protected.GET("/verdicts/:timeframe", s.handleVerdictHistory)
	protected.POST("/evaluate", s.handleEvaluate)
	protected.GET("/news/blocks", s.handleNewsBlocks)
	protected.GET("/news/history", s.handleNewsHistory)
	protected.GET("/ws", s.handleWebSocket)
}

// Start runs the HTTP server and the websocket hub.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
