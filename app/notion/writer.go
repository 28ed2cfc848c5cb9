package notion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jammor/nexus/app/database"
)

// Notion caps rich_text values at 2000 characters.
const maxRichText = 2000

// Writer stores content items as pages in a single Notion database, keyed by
// the Link property. The stored Content Hash property drives the same
// created/updated/unchanged outcome as the local store.
type Writer struct {
	client     *Client
	databaseID string
}

func NewWriter(client *Client, databaseID string) *Writer {
	return &Writer{client: client, databaseID: databaseID}
}

func (w *Writer) UpsertVideo(ctx context.Context, v database.Video) (string, error) {
	props := map[string]any{
		"Name":         titleProp(v.Title),
		"Link":         urlProp(v.URL),
		"Kind":         selectProp("video"),
		"Source":       richTextProp(v.Channel),
		"Summary":      richTextProp(v.Summary),
		"Content Hash": richTextProp(v.ContentHash),
		"Status":       selectProp(v.Status),
	}
	if v.PublishedAt != nil {
		props["Published"] = dateProp(*v.PublishedAt)
	}
	return w.upsert(ctx, v.URL, v.ContentHash, props)
}

func (w *Writer) UpsertArticle(ctx context.Context, a database.Article) (string, error) {
	props := map[string]any{
		"Name":         titleProp(a.Title),
		"Link":         urlProp(a.URL),
		"Kind":         selectProp("article"),
		"Source":       richTextProp(a.Site),
		"Summary":      richTextProp(a.Summary),
		"Content Hash": richTextProp(a.ContentHash),
		"Status":       selectProp(a.Status),
	}
	if a.PublishedAt != nil {
		props["Published"] = dateProp(*a.PublishedAt)
	}
	return w.upsert(ctx, a.URL, a.ContentHash, props)
}

func (w *Writer) UpsertNote(ctx context.Context, n database.Note) (string, error) {
	props := map[string]any{
		"Name":         titleProp(n.Title),
		"Link":         urlProp(n.URL),
		"Kind":         selectProp("note"),
		"Source":       richTextProp(n.Folder),
		"Summary":      richTextProp(n.Summary),
		"Content Hash": richTextProp(n.ContentHash),
		"Status":       selectProp(n.Status),
	}
	return w.upsert(ctx, n.URL, n.ContentHash, props)
}

func (w *Writer) UpsertReminder(ctx context.Context, r database.Reminder) (string, error) {
	props := map[string]any{
		"Name":         titleProp(r.Title),
		"Link":         urlProp(r.URL),
		"Kind":         selectProp("reminder"),
		"Source":       richTextProp(r.ListName),
		"Due":          richTextProp(r.DueAt),
		"Content Hash": richTextProp(r.ContentHash),
	}
	return w.upsert(ctx, r.URL, r.ContentHash, props)
}

func (w *Writer) upsert(ctx context.Context, url, contentHash string, props map[string]any) (string, error) {
	pageID, storedHash, err := w.findPage(ctx, url)
	if err != nil {
		return "", err
	}

	if pageID == "" {
		payload := map[string]any{
			"parent":     map[string]any{"database_id": w.databaseID},
			"properties": props,
		}
		if err := w.client.do(ctx, http.MethodPost, "/v1/pages", payload, nil); err != nil {
			return "", fmt.Errorf("failed to create page for %s: %w", url, err)
		}
		return database.ResultCreated, nil
	}

	if storedHash == contentHash {
		return database.ResultUnchanged, nil
	}

	payload := map[string]any{"properties": props}
	if err := w.client.do(ctx, http.MethodPatch, "/v1/pages/"+pageID, payload, nil); err != nil {
		return "", fmt.Errorf("failed to update page for %s: %w", url, err)
	}
	return database.ResultUpdated, nil
}

// findPage looks up the page whose Link property equals url. Returns an
// empty page ID when no page exists yet.
func (w *Writer) findPage(ctx context.Context, url string) (string, string, error) {
	payload := map[string]any{
		"filter": map[string]any{
			"property": "Link",
			"url":      map[string]any{"equals": url},
		},
		"page_size": 1,
	}

	var resp listResponse
	path := "/v1/databases/" + w.databaseID + "/query"
	if err := w.client.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", "", fmt.Errorf("failed to query pages for %s: %w", url, err)
	}

	if len(resp.Results) == 0 {
		return "", "", nil
	}

	result := resp.Results[0]
	storedHash := plainText(result.Properties["Content Hash"].RichText)
	return result.ID, storedHash, nil
}

func titleProp(text string) map[string]any {
	return map[string]any{
		"title": []map[string]any{
			{"text": map[string]any{"content": truncate(text, maxRichText)}},
		},
	}
}

func richTextProp(text string) map[string]any {
	if text == "" {
		return map[string]any{"rich_text": []map[string]any{}}
	}
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": truncate(text, maxRichText)}},
		},
	}
}

func urlProp(url string) map[string]any {
	return map[string]any{"url": url}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func dateProp(t time.Time) map[string]any {
	return map[string]any{"date": map[string]any{"start": t.Format(time.RFC3339)}}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
