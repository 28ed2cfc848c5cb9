package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jammor/nexus/app/content"
	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/sources"
)

// AppleCollector is the slice of the collector the pipeline needs.
type AppleCollector interface {
	FetchNotes(ctx context.Context, folder string) ([]sources.NoteItem, error)
	FetchReminders(ctx context.Context, list string) ([]sources.ReminderItem, error)
}

// MarkupStripper converts the HTML bodies exported by Notes to plain text.
type MarkupStripper interface {
	StripMarkup(s string) string
}

// RunNotes ingests the notes in the configured folder. Notes have no real
// URL, so each gets a synthetic notes:// identifier derived from its id.
func (p *Pipeline) RunNotes(ctx context.Context, collector AppleCollector, stripper MarkupStripper, folder string, workers int) error {
	notes, err := collector.FetchNotes(ctx, folder)
	if err != nil {
		p.log("notes", "", "discover", "error", err.Error())
		p.Stats.Errors.Add(1)
		return fmt.Errorf("failed to read notes: %w", err)
	}

	p.Stats.Discovered.Add(int64(len(notes)))
	slog.Info("Notes discovery completed", "notes", len(notes), "folder", folder)

	tasks := make([]Task, 0, len(notes))
	for _, note := range notes {
		tasks = append(tasks, func(ctx context.Context) error {
			p.processNote(ctx, stripper, note)
			return nil
		})
	}
	return RunPool(ctx, workers, tasks)
}

func (p *Pipeline) processNote(ctx context.Context, stripper MarkupStripper, note sources.NoteItem) {
	url := content.CanonicalID("notes://" + note.NoteID)
	body := stripper.StripMarkup(note.Body)
	p.log("notes", url, "fetch", "ok", "")

	hash := content.Hash(note.Title, body)
	if p.dedupeSkip("notes", url, note.Title, hash) {
		return
	}
	if p.DryRun {
		p.skipDryRun("notes", url, note.Title)
		return
	}

	summary, status := p.summarize(ctx, "notes", url, note.Title, body)

	p.finish("notes", url, note.Title, hash, func() (string, error) {
		return p.Writer.UpsertNote(ctx, database.Note{
			URL:         url,
			Title:       note.Title,
			Folder:      note.Folder,
			Body:        body,
			Summary:     summary,
			ContentHash: hash,
			Status:      status,
		})
	})
}

// RunReminders ingests the incomplete reminders on the configured list.
// Reminders are metadata-only and are never summarized.
func (p *Pipeline) RunReminders(ctx context.Context, collector AppleCollector, list string, workers int) error {
	reminders, err := collector.FetchReminders(ctx, list)
	if err != nil {
		p.log("reminders", "", "discover", "error", err.Error())
		p.Stats.Errors.Add(1)
		return fmt.Errorf("failed to read reminders: %w", err)
	}

	p.Stats.Discovered.Add(int64(len(reminders)))
	slog.Info("Reminders discovery completed", "reminders", len(reminders), "list", list)

	tasks := make([]Task, 0, len(reminders))
	for _, reminder := range reminders {
		tasks = append(tasks, func(ctx context.Context) error {
			p.processReminder(ctx, reminder)
			return nil
		})
	}
	return RunPool(ctx, workers, tasks)
}

func (p *Pipeline) processReminder(ctx context.Context, reminder sources.ReminderItem) {
	url := content.CanonicalID("reminders://" + reminder.ReminderID)
	p.log("reminders", url, "fetch", "ok", "")

	hash := content.Hash(reminder.Title, reminder.ListName, reminder.Due)
	if p.dedupeSkip("reminders", url, reminder.Title, hash) {
		return
	}
	if p.DryRun {
		p.skipDryRun("reminders", url, reminder.Title)
		return
	}

	p.finish("reminders", url, reminder.Title, hash, func() (string, error) {
		return p.Writer.UpsertReminder(ctx, database.Reminder{
			URL:         url,
			Title:       reminder.Title,
			ListName:    reminder.ListName,
			DueAt:       reminder.Due,
			ContentHash: hash,
		})
	})
}
