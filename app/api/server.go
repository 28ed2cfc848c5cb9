package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured. The server
// is read-only: it exposes the local content store and the ingestion audit
// trail, never triggers ingestion.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/videos", handler.ListVideos)
	r.GET("/articles", handler.ListArticles)
	r.GET("/search", handler.Search)
	r.GET("/logs", handler.ListLogs)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Nexus",
			"endpoints": map[string]string{
				"health":   "/health",
				"stats":    "/stats",
				"videos":   "/videos?limit=N",
				"articles": "/articles?limit=N",
				"search":   "/search?q=<query>",
				"logs":     "/logs?limit=N",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})

	return r
}
