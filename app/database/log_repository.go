package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// LogRepository appends to and reads the ingestion audit trail.
type LogRepository struct {
	db *DB
}

func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Append(entry LogEntry) error {
	query, args, err := sq.Insert("ingestion_logs").
		Columns("source", "url", "action", "result", "message").
		Values(entry.Source, entry.URL, entry.Action, entry.Result, entry.Message).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// Recent returns the newest log entries, newest first.
func (r *LogRepository) Recent(limit int) ([]LogEntry, error) {
	query, args, err := sq.Select("id", "ts", "source", "url", "action", "result", "message").
		From("ingestion_logs").OrderBy("ts DESC", "id DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.TS, &e.Source, &e.URL, &e.Action, &e.Result, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
