// Package api exposes the read-only status API next to the poll loop.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/PhilippVn/ZHS-Scraper/config"
	"github.com/PhilippVn/ZHS-Scraper/internal/mw"
	"github.com/PhilippVn/ZHS-Scraper/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, status StatusProvider, history store.HistoryStore) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(status, history)

	rateLimiter := mw.RateLimit(rate.Limit(cfg.RateLimitPerSec), 5)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/healthz", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/courses", caching, handler.GetCourses)
		api.GET("/changes", caching, handler.GetChanges)
	}

	return r
}
