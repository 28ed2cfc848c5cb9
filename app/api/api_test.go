package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jammor/nexus/app/cfg"
	"github.com/jammor/nexus/app/database"
)

func setupServer(t *testing.T) (*database.ContentRepository, http.Handler) {
	t.Helper()
	cfg.Set(&cfg.Cfg{Version: "test"})

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo := database.NewContentRepository(db)
	handler := NewHandler(repo, database.NewLogRepository(db))
	return repo, NewServer(handler)
}

func get(t *testing.T, server http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	var body map[string]any
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	_, server := setupServer(t)

	w, body := get(t, server, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body["version"] != "test" {
		t.Errorf("Expected version 'test', got %v", body["version"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	repo, server := setupServer(t)

	if _, err := repo.UpsertArticle(database.Article{
		URL:         "https://example.com/post",
		Title:       "A Post",
		ContentHash: "h1",
		Status:      database.StatusFetched,
	}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	w, body := get(t, server, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body["articles"] != float64(1) {
		t.Errorf("Expected 1 article, got %v", body["articles"])
	}
}

func TestVideosEndpoint(t *testing.T) {
	repo, server := setupServer(t)

	if _, err := repo.UpsertVideo(database.Video{
		URL:         "https://www.youtube.com/watch?v=abc123def45",
		Title:       "A Video",
		ContentHash: "h1",
		Status:      database.StatusSummarized,
	}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	w, body := get(t, server, "/videos")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	videos, ok := body["videos"].([]any)
	if !ok || len(videos) != 1 {
		t.Fatalf("Expected 1 video, got %v", body["videos"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	repo, server := setupServer(t)

	if _, err := repo.UpsertArticle(database.Article{
		URL:         "https://example.com/post",
		Title:       "Gardening",
		Content:     "how to grow tomatoes",
		ContentHash: "h1",
		Status:      database.StatusFetched,
	}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	w, body := get(t, server, "/search?q=tomatoes")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("Expected 1 result, got %v", body["results"])
	}

	w, _ = get(t, server, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without query, got %d", w.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	_, server := setupServer(t)

	w, body := get(t, server, "/logs")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if _, ok := body["logs"]; !ok {
		t.Error("Expected logs field in response")
	}
}
