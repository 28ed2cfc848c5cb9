package notion

import (
	"context"
	"fmt"
	"net/http"
)

// Bootstrap creates the content database under the given parent page and
// returns its ID. The schema matches what Writer expects: pages keyed by the
// Link property, with the Content Hash property carrying change detection.
func Bootstrap(ctx context.Context, client *Client, parentPageID, title string) (string, error) {
	payload := map[string]any{
		"parent": map[string]any{
			"type":    "page_id",
			"page_id": parentPageID,
		},
		"title": []map[string]any{
			{"text": map[string]any{"content": title}},
		},
		"properties": map[string]any{
			"Name": map[string]any{"title": map[string]any{}},
			"Link": map[string]any{"url": map[string]any{}},
			"Kind": map[string]any{
				"select": map[string]any{
					"options": []map[string]any{
						{"name": "video", "color": "red"},
						{"name": "article", "color": "blue"},
						{"name": "note", "color": "yellow"},
						{"name": "reminder", "color": "green"},
					},
				},
			},
			"Source":       map[string]any{"rich_text": map[string]any{}},
			"Summary":      map[string]any{"rich_text": map[string]any{}},
			"Content Hash": map[string]any{"rich_text": map[string]any{}},
			"Status": map[string]any{
				"select": map[string]any{
					"options": []map[string]any{
						{"name": "fetched", "color": "gray"},
						{"name": "summarized", "color": "purple"},
					},
				},
			},
			"Published": map[string]any{"date": map[string]any{}},
			"Due":       map[string]any{"rich_text": map[string]any{}},
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := client.do(ctx, http.MethodPost, "/v1/databases", payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create database: %w", err)
	}
	return resp.ID, nil
}

// Verify checks that the configured database exists and is reachable with
// the integration token.
func Verify(ctx context.Context, client *Client, databaseID string) error {
	return client.do(ctx, http.MethodGet, "/v1/databases/"+databaseID, nil, nil)
}
