package database

import (
	"context"
)

// LocalWriter adapts the content repository to the context-taking writer
// interface the ingestion pipeline works against.
type LocalWriter struct {
	repo *ContentRepository
}

func NewLocalWriter(repo *ContentRepository) *LocalWriter {
	return &LocalWriter{repo: repo}
}

func (w *LocalWriter) UpsertVideo(_ context.Context, v Video) (string, error) {
	return w.repo.UpsertVideo(v)
}

func (w *LocalWriter) UpsertArticle(_ context.Context, a Article) (string, error) {
	return w.repo.UpsertArticle(a)
}

func (w *LocalWriter) UpsertNote(_ context.Context, n Note) (string, error) {
	return w.repo.UpsertNote(n)
}

func (w *LocalWriter) UpsertReminder(_ context.Context, r Reminder) (string, error) {
	return w.repo.UpsertReminder(r)
}
