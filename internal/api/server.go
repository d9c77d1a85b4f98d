// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"price-peak-monitor/internal/monitor"
	"price-peak-monitor/internal/notifier"
	"price-peak-monitor/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusProvider источник состояния монитора
type StatusProvider interface {
	Status() monitor.Status
}

// SnapshotCounter счетчик строк истории
type SnapshotCounter interface {
	Count(ctx context.Context) (int64, error)
}

// NotificationStatsProvider статистика отправленных оповещений
type NotificationStatsProvider interface {
	GetStats() notifier.NotificationStats
}

// Server HTTP сервер статуса и метрик
type Server struct {
	router        *gin.Engine
	srv           *http.Server
	status        StatusProvider
	counter       SnapshotCounter
	notifications NotificationStatsProvider
}

// NewServer создает сервер. metrics может быть nil.
func NewServer(port int, status StatusProvider, counter SnapshotCounter, metrics http.Handler) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	s := &Server{
		router:  r,
		status:  status,
		counter: counter,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.registerRoutes(metrics)
	return s
}

func (s *Server) registerRoutes(metrics http.Handler) {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/status", s.handleStatus)
	if metrics != nil {
		s.router.GET("/metrics", gin.WrapH(metrics))
	}
}

// WithNotificationStats добавляет статистику оповещений в /status
func (s *Server) WithNotificationStats(p NotificationStatsProvider) *Server {
	s.notifications = p
	return s
}

// Router HTTP обработчик, используется в тестах
func (s *Server) Router() http.Handler {
	return s.router
}

// Start запускает сервер в фоне
func (s *Server) Start() {
	go func() {
		logger.Info("🌐 Status server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server stopped with error: %v", err)
		}
	}()
}

// Shutdown корректно останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{"monitor": s.status.Status()}

	if s.counter != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := s.counter.Count(ctx)
		if err != nil {
			resp["snapshots_error"] = err.Error()
		} else {
			resp["snapshots"] = count
		}
	}
	if s.notifications != nil {
		resp["notifications"] = s.notifications.GetStats()
	}

	c.JSON(http.StatusOK, resp)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
