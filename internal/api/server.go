// Package api HTTP и WebSocket интерфейс сервера: аутентификация,
// профили, управление матчами и поток уведомлений.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ShaharFullStack/tdscorchedearth/internal/auth"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/middleware"
	"github.com/ShaharFullStack/tdscorchedearth/internal/session"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
)

// Version версия API в ответах /health
const Version = "v1"

// Config зависимости и настройки HTTP сервера
type Config struct {
	Addr           string               // адрес, например :8088
	Auth           *auth.Service        // выдача и проверка токенов
	Sessions       *session.Manager     // реестр матчей
	Profiles       storage.ProfileRepo  // прогресс игроков
	Logger         *logging.Logger      // nil: логгер компонента api
	AllowedOrigins []string             // пусто: любой Origin
	Tracing        bool                 // включить otelgin
	Registry       *prometheus.Registry // nil: глобальный регистр
}

// Server REST API сервер
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	auth       *auth.Service
	sessions   *session.Manager
	profiles   storage.ProfileRepo
	metrics    *ServerMetrics
	log        *logging.Logger
	origins    map[string]bool
	shopMu     sync.Mutex
}

// NewServer создаёт сервер и настраивает маршруты
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	loggerMw := middleware.NewRequestLogger(cfg.Logger, "/health", "/metrics")
	router.Use(loggerMw.Handler())

	if cfg.Tracing {
		router.Use(otelgin.Middleware("rest_api"))
	}

	promMw := middleware.NewPrometheusMiddleware("scorched_api", cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &Server{
		router:   router,
		auth:     cfg.Auth,
		sessions: cfg.Sessions,
		profiles: cfg.Profiles,
		metrics:  NewServerMetrics(),
		log:      cfg.Logger,
		origins:  make(map[string]bool, len(cfg.AllowedOrigins)),
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[o] = true
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler http.Handler сервера, удобно для httptest
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware())

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws/matches/:id", s.handleMatchStream)

	v1 := s.router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/guest", s.handleGuest)
	}

	v1.GET("/stats", s.handleStats)

	protected := v1.Group("/")
	protected.Use(s.authMiddleware())
	{
		protected.GET("/profile", s.handleGetProfile)
		protected.POST("/profile/upgrades", s.handlePurchaseUpgrade)

		protected.POST("/matches", s.handleCreateMatch)
		protected.GET("/matches/:id", s.handleGetMatch)
		protected.DELETE("/matches/:id", s.handleCloseMatch)
		protected.POST("/matches/:id/actions", s.handleAction)
		protected.GET("/matches/:id/terrain", s.handleTerrain)
		protected.POST("/matches/:id/restart", s.handleRestart)
		protected.PUT("/matches/:id/quality", s.handleQuality)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(s.origins) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case s.origins[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// checkOrigin проверка Origin для WebSocket
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	return s.origins[r.Header.Get("Origin")]
}

// GenericResponse общий формат ответа API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, GenericResponse{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: message})
}

// handleHealth проверка состояния сервера
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  Version,
		"time":     time.Now().Unix(),
		"sessions": s.sessions.Count(),
	})
}

// handleStats статистика процесса и хоста
func (s *Server) handleStats(c *gin.Context) {
	cpuPercent, err := s.metrics.GetCPUUsage()
	if err != nil {
		s.log.Debug("📊 CPU недоступен: %v", err)
	}
	stats := gin.H{
		"uptime":         s.metrics.GetUptime(),
		"memory_mb":      s.metrics.GetMemoryUsage(),
		"cpu_percent":    cpuPercent,
		"sessions":       s.sessions.Count(),
		"server_time":    time.Now().Unix(),
		"memory_details": s.metrics.GetDetailedMemoryStats(),
	}
	if host, err := s.metrics.GetHostMemory(); err == nil {
		stats["host_memory"] = host
	}
	respond(c, http.StatusOK, "Статистика получена", stats)
}

// Start запускает HTTP сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.log.Info("🌐 REST API слушает %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает HTTP сервер
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("🛑 Остановка REST API")
	return s.httpServer.Shutdown(ctx)
}
