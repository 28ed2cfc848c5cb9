package notion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Page is the parsed content of a database page, one field per stored
// property. The body columns (transcript, article text, note body) are not
// stored in Notion, so a Page carries metadata and summary only.
type Page struct {
	ID          string
	Kind        string
	Title       string
	Link        string
	Source      string
	Summary     string
	ContentHash string
	Status      string
	Published   *time.Time
	Due         string
}

type listResponse struct {
	Results    []pageResult `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

type pageResult struct {
	ID         string              `json:"id"`
	Properties map[string]pageProp `json:"properties"`
}

type pageProp struct {
	Title    []richTextValue `json:"title"`
	RichText []richTextValue `json:"rich_text"`
	URL      string          `json:"url"`
	Select   *selectValue    `json:"select"`
	Date     *dateValue      `json:"date"`
}

type richTextValue struct {
	PlainText string `json:"plain_text"`
}

type selectValue struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}

// ListPages reads every page of the database, following pagination.
func (w *Writer) ListPages(ctx context.Context) ([]Page, error) {
	var pages []Page
	cursor := ""

	for {
		payload := map[string]any{"page_size": 100}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		var resp listResponse
		path := "/v1/databases/" + w.databaseID + "/query"
		if err := w.client.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
			return nil, fmt.Errorf("failed to list pages: %w", err)
		}

		for _, result := range resp.Results {
			pages = append(pages, parsePage(result))
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

func parsePage(result pageResult) Page {
	page := Page{
		ID:          result.ID,
		Title:       plainText(result.Properties["Name"].Title),
		Link:        result.Properties["Link"].URL,
		Source:      plainText(result.Properties["Source"].RichText),
		Summary:     plainText(result.Properties["Summary"].RichText),
		ContentHash: plainText(result.Properties["Content Hash"].RichText),
		Due:         plainText(result.Properties["Due"].RichText),
	}
	if s := result.Properties["Kind"].Select; s != nil {
		page.Kind = s.Name
	}
	if s := result.Properties["Status"].Select; s != nil {
		page.Status = s.Name
	}
	if d := result.Properties["Published"].Date; d != nil {
		if t, err := time.Parse(time.RFC3339, d.Start); err == nil {
			page.Published = &t
		}
	}
	return page
}

func plainText(values []richTextValue) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(v.PlainText)
	}
	return b.String()
}
