package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"xui-vpn-bot/internal/services"
)

// HealthServer exposes a liveness endpoint for container orchestration
type HealthServer struct {
	server  *http.Server
	storage *services.StorageService
	logger  *logrus.Logger
	started time.Time
}

// NewHealthServer creates a health server listening on addr
func NewHealthServer(addr string, storage *services.StorageService, logger *logrus.Logger) *HealthServer {
	gin.SetMode(gin.ReleaseMode)

	h := &HealthServer{
		storage: storage,
		logger:  logger,
		started: time.Now(),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", h.handleHealthz)

	h.server = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return h
}

// Start runs the health server until it is shut down
func (h *HealthServer) Start() {
	h.logger.Infof("Health endpoint listening on %s", h.server.Addr)
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.logger.Errorf("Health server failed: %v", err)
	}
}

// Shutdown stops the health server gracefully
func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// handleHealthz reports process liveness and basic counters
func (h *HealthServer) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"users":          h.storage.CountUsers(),
	})
}
