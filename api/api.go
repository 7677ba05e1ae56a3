// Package api exposes the small HTTP surface used by the coordination
// dashboard: a health probe and a token-guarded activity counter.
package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"rescuebot/config"
	"rescuebot/pkg/logger"
	"rescuebot/storage"

	"github.com/gin-gonic/gin"
)

type handler struct {
	cfg *config.Config
	stg storage.IStorage
	log logger.ILogger
}

func NewRouter(cfg *config.Config, stg storage.IStorage, log logger.ILogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	h := &handler{cfg: cfg, stg: stg, log: log}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.healthz)
	r.GET("/api/status", h.tokenAuth, h.status)
	return r
}

func Run(cfg *config.Config, stg storage.IStorage, log logger.ILogger) error {
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Info("HTTP API listening", logger.String("addr", addr))
	return NewRouter(cfg, stg, log).Run(addr)
}

func (h *handler) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// tokenAuth guards the status endpoint with a constant-time token compare.
func (h *handler) tokenAuth(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("X-Api-Token")
	}

	if h.cfg.APIToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.APIToken)) != 1 {
		h.log.Warning("status request rejected", logger.String("remote", c.ClientIP()))
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.Next()
}

// status reports open activity counts as plain text, one figure per line.
func (h *handler) status(c *gin.Context) {
	ctx := c.Request.Context()

	searchRequests, err := h.stg.SearchRequest().CountOpen(ctx)
	if err != nil {
		h.log.Error("status: search request count failed", logger.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	departures, err := h.stg.Departure().CountOpen(ctx)
	if err != nil {
		h.log.Error("status: departure count failed", logger.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.String(http.StatusOK, "Search requests: %d\nDepartures: %d", searchRequests, departures)
}
