package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// ContentRepository handles reads and writes for the content tables.
type ContentRepository struct {
	db *DB
}

func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// upsert implements the shared compare-then-write logic. The stored content
// hash decides the outcome: absent row inserts, differing hash updates,
// matching hash leaves the row untouched.
func (r *ContentRepository) upsert(table, url, contentHash string, insert sq.InsertBuilder, update sq.UpdateBuilder) (string, error) {
	var storedHash string
	query, args, err := sq.Select("content_hash").From(table).Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}

	err = r.db.QueryRow(query, args...).Scan(&storedHash)
	switch {
	case err == sql.ErrNoRows:
		query, args, err := insert.ToSql()
		if err != nil {
			return "", fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := r.db.Exec(query, args...); err != nil {
			return "", fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return ResultCreated, nil
	case err != nil:
		return "", fmt.Errorf("failed to query %s: %w", table, err)
	}

	if storedHash == contentHash {
		return ResultUnchanged, nil
	}

	query, args, err = update.Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build update: %w", err)
	}
	if _, err := r.db.Exec(query, args...); err != nil {
		return "", fmt.Errorf("failed to update %s: %w", table, err)
	}
	return ResultUpdated, nil
}

func (r *ContentRepository) UpsertVideo(v Video) (string, error) {
	insert := sq.Insert("videos").
		Columns("url", "title", "channel", "published_at", "thumbnail", "transcript", "summary", "content_hash", "status").
		Values(v.URL, v.Title, v.Channel, v.PublishedAt, v.Thumbnail, v.Transcript, v.Summary, v.ContentHash, v.Status)

	update := sq.Update("videos").
		Set("title", v.Title).
		Set("channel", v.Channel).
		Set("published_at", v.PublishedAt).
		Set("thumbnail", v.Thumbnail).
		Set("transcript", v.Transcript).
		Set("summary", v.Summary).
		Set("content_hash", v.ContentHash).
		Set("status", v.Status).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))

	return r.upsert("videos", v.URL, v.ContentHash, insert, update)
}

func (r *ContentRepository) UpsertArticle(a Article) (string, error) {
	insert := sq.Insert("articles").
		Columns("url", "title", "site", "published_at", "content", "summary", "content_hash", "status").
		Values(a.URL, a.Title, a.Site, a.PublishedAt, a.Content, a.Summary, a.ContentHash, a.Status)

	update := sq.Update("articles").
		Set("title", a.Title).
		Set("site", a.Site).
		Set("published_at", a.PublishedAt).
		Set("content", a.Content).
		Set("summary", a.Summary).
		Set("content_hash", a.ContentHash).
		Set("status", a.Status).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))

	return r.upsert("articles", a.URL, a.ContentHash, insert, update)
}

func (r *ContentRepository) UpsertNote(n Note) (string, error) {
	insert := sq.Insert("notes").
		Columns("url", "title", "folder", "body", "summary", "content_hash", "status").
		Values(n.URL, n.Title, n.Folder, n.Body, n.Summary, n.ContentHash, n.Status)

	update := sq.Update("notes").
		Set("title", n.Title).
		Set("folder", n.Folder).
		Set("body", n.Body).
		Set("summary", n.Summary).
		Set("content_hash", n.ContentHash).
		Set("status", n.Status).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))

	return r.upsert("notes", n.URL, n.ContentHash, insert, update)
}

func (r *ContentRepository) UpsertReminder(rem Reminder) (string, error) {
	insert := sq.Insert("reminders").
		Columns("url", "title", "list_name", "due_at", "content_hash").
		Values(rem.URL, rem.Title, rem.ListName, rem.DueAt, rem.ContentHash)

	update := sq.Update("reminders").
		Set("title", rem.Title).
		Set("list_name", rem.ListName).
		Set("due_at", rem.DueAt).
		Set("content_hash", rem.ContentHash).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))

	return r.upsert("reminders", rem.URL, rem.ContentHash, insert, update)
}

func (r *ContentRepository) GetVideo(url string) (*Video, error) {
	query, args, err := sq.Select("id", "url", "title", "channel", "published_at", "thumbnail",
		"transcript", "summary", "content_hash", "status", "created_at", "updated_at").
		From("videos").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var v Video
	err = r.db.QueryRow(query, args...).Scan(&v.ID, &v.URL, &v.Title, &v.Channel, &v.PublishedAt,
		&v.Thumbnail, &v.Transcript, &v.Summary, &v.ContentHash, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &v, nil
}

func (r *ContentRepository) GetArticle(url string) (*Article, error) {
	query, args, err := sq.Select("id", "url", "title", "site", "published_at", "content",
		"summary", "content_hash", "status", "created_at", "updated_at").
		From("articles").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var a Article
	err = r.db.QueryRow(query, args...).Scan(&a.ID, &a.URL, &a.Title, &a.Site, &a.PublishedAt,
		&a.Content, &a.Summary, &a.ContentHash, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &a, nil
}

func (r *ContentRepository) GetNote(url string) (*Note, error) {
	query, args, err := sq.Select("id", "url", "title", "folder", "body", "summary",
		"content_hash", "status", "created_at", "updated_at").
		From("notes").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var n Note
	err = r.db.QueryRow(query, args...).Scan(&n.ID, &n.URL, &n.Title, &n.Folder, &n.Body,
		&n.Summary, &n.ContentHash, &n.Status, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &n, nil
}

func (r *ContentRepository) GetReminder(url string) (*Reminder, error) {
	query, args, err := sq.Select("id", "url", "title", "list_name", "due_at",
		"content_hash", "created_at", "updated_at").
		From("reminders").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rem Reminder
	err = r.db.QueryRow(query, args...).Scan(&rem.ID, &rem.URL, &rem.Title, &rem.ListName,
		&rem.DueAt, &rem.ContentHash, &rem.CreatedAt, &rem.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &rem, nil
}

// RecentVideos returns the most recently updated videos, newest first.
func (r *ContentRepository) RecentVideos(limit int) ([]Video, error) {
	query, args, err := sq.Select("id", "url", "title", "channel", "published_at", "thumbnail",
		"transcript", "summary", "content_hash", "status", "created_at", "updated_at").
		From("videos").OrderBy("updated_at DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.URL, &v.Title, &v.Channel, &v.PublishedAt, &v.Thumbnail,
			&v.Transcript, &v.Summary, &v.ContentHash, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// RecentArticles returns the most recently updated articles, newest first.
func (r *ContentRepository) RecentArticles(limit int) ([]Article, error) {
	query, args, err := sq.Select("id", "url", "title", "site", "published_at", "content",
		"summary", "content_hash", "status", "created_at", "updated_at").
		From("articles").OrderBy("updated_at DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Site, &a.PublishedAt, &a.Content,
			&a.Summary, &a.ContentHash, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Search runs the query against the full-text indexes of videos, articles
// and notes and merges the hits.
func (r *ContentRepository) Search(match string, limit int) ([]SearchHit, error) {
	parts := []struct {
		kind string
		fts  string
		base string
	}{
		{"video", "videos_fts", "videos"},
		{"article", "articles_fts", "articles"},
		{"note", "notes_fts", "notes"},
	}

	var hits []SearchHit
	for _, p := range parts {
		// column 1 is the body column of each index (transcript, content, body)
		query := fmt.Sprintf(`
			SELECT b.url, b.title, snippet(%s, 1, '', '', '...', 20)
			FROM %s JOIN %s b ON b.id = %s.rowid
			WHERE %s MATCH ?
			ORDER BY rank LIMIT ?`, p.fts, p.fts, p.base, p.fts, p.fts)

		rows, err := r.db.Query(query, match, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", p.base, err)
		}

		for rows.Next() {
			hit := SearchHit{Kind: p.kind}
			if err := rows.Scan(&hit.URL, &hit.Title, &hit.Snippet); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan search hit: %w", err)
			}
			hits = append(hits, hit)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return hits, nil
}

func (r *ContentRepository) GetStats() (Stats, error) {
	var stats Stats

	counts := []struct {
		table string
		dest  *int
	}{
		{"videos", &stats.Videos},
		{"articles", &stats.Articles},
		{"notes", &stats.Notes},
		{"reminders", &stats.Reminders},
		{"ingestion_logs", &stats.LogEntries},
	}

	for _, c := range counts {
		query, args, err := sq.Select("COUNT(*)").From(c.table).ToSql()
		if err != nil {
			return stats, fmt.Errorf("failed to build query: %w", err)
		}
		if err := r.db.QueryRow(query, args...).Scan(c.dest); err != nil {
			return stats, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM videos WHERE status = 'summarized') +
			(SELECT COUNT(*) FROM articles WHERE status = 'summarized') +
			(SELECT COUNT(*) FROM notes WHERE status = 'summarized')`
	if err := r.db.QueryRow(query).Scan(&stats.Summarized); err != nil {
		return stats, fmt.Errorf("failed to count summarized: %w", err)
	}

	return stats, nil
}
