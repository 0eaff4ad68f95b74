package apihandlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"autotag/internal/app"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// NonceHeader carries the nonce for state-changing admin actions.
const NonceHeader = "X-Autotag-Nonce"

// NewRouter builds the HTTP API for a.
func NewRouter(a *app.App) *gin.Engine {
	h := &APIHandler{App: a}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", h.HealthHandler)

	v1 := router.Group("/api/v1")
	v1.Use(bearerAuth(a.Config.Server.APIToken))
	{
		v1.GET("/nonce/:action", h.NonceHandler)

		v1.GET("/schedule", h.ScheduleStatusHandler)
		v1.POST("/schedule/run", h.RunScheduleHandler)

		v1.GET("/settings", h.GetSettingsHandler)
		v1.PUT("/settings", h.SaveSettingsHandler)

		v1.POST("/posts/tags", h.BulkTagPostsHandler)
		v1.POST("/posts/categories", h.BulkCategorizePostsHandler)
		v1.GET("/posts/:id/terms", h.PostTermsHandler)
		v1.POST("/posts/:id/tags", h.TagPostHandler)
		v1.POST("/posts/:id/categories", h.CategorizePostHandler)
		v1.POST("/posts/:id/saved", h.PostSavedHandler)

		v1.GET("/stats", h.StatsHandler)
		v1.GET("/costs", h.CostsHandler)
	}
	return router
}

// bearerAuth rejects requests without the configured API token. An empty
// token rejects everything.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			Unauthorized(c, "missing or invalid API token")
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("API request failed")
			return
		}
		entry.Debug("API request")
	}
}
