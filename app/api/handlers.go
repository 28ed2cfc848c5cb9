package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jammor/nexus/app/cfg"
	"github.com/jammor/nexus/app/database"
)

const defaultLimit = 50

type Handler struct {
	contentRepo *database.ContentRepository
	logRepo     *database.LogRepository
}

func NewHandler(contentRepo *database.ContentRepository, logRepo *database.LogRepository) *Handler {
	return &Handler{
		contentRepo: contentRepo,
		logRepo:     logRepo,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.contentRepo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListVideos(c *gin.Context) {
	videos, err := h.contentRepo.RecentVideos(limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_videos", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]gin.H, 0, len(videos))
	for _, v := range videos {
		out = append(out, gin.H{
			"url":          v.URL,
			"title":        v.Title,
			"channel":      v.Channel,
			"published_at": v.PublishedAt,
			"thumbnail":    v.Thumbnail,
			"summary":      v.Summary,
			"status":       v.Status,
			"updated_at":   v.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"videos": out})
}

func (h *Handler) ListArticles(c *gin.Context) {
	articles, err := h.contentRepo.RecentArticles(limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]gin.H, 0, len(articles))
	for _, a := range articles {
		out = append(out, gin.H{
			"url":          a.URL,
			"title":        a.Title,
			"site":         a.Site,
			"published_at": a.PublishedAt,
			"summary":      a.Summary,
			"status":       a.Status,
			"updated_at":   a.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"articles": out})
}

func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter 'q'"})
		return
	}

	hits, err := h.contentRepo.Search(query, limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "search", "query", query, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]gin.H, 0, len(hits))
	for _, hit := range hits {
		out = append(out, gin.H{
			"kind":    hit.Kind,
			"url":     hit.URL,
			"title":   hit.Title,
			"snippet": hit.Snippet,
		})
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": out})
}

func (h *Handler) ListLogs(c *gin.Context) {
	entries, err := h.logRepo.Recent(limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_logs", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"ts":      e.TS,
			"source":  e.Source,
			"url":     e.URL,
			"action":  e.Action,
			"result":  e.Result,
			"message": e.Message,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > 500 {
		return defaultLimit
	}
	return limit
}
