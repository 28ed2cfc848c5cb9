package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jammor/nexus/app/database"
)

// Pipeline drives items from discovery to the backend. Per-source entry
// points live in their own files; everything here is the shared machinery:
// the audit log, dedupe checks, summarization and outcome accounting.
//
// Hashes are recorded in the dedupe store only after a successful write, so
// a failed item is retried in full on the next run.
type Pipeline struct {
	Writer     Writer
	Dedupe     DedupeStore
	Logs       LogWriter
	Summarizer TextSummarizer
	DryRun     bool
	Console    bool
	Stats      *Stats
}

func NewPipeline(writer Writer, dedupe DedupeStore, logs LogWriter, sum TextSummarizer) *Pipeline {
	return &Pipeline{
		Writer:     writer,
		Dedupe:     dedupe,
		Logs:       logs,
		Summarizer: sum,
		Stats:      &Stats{},
	}
}

func (p *Pipeline) log(source, url, action, result, message string) {
	if p.Logs == nil {
		return
	}
	entry := database.LogEntry{Source: source, URL: url, Action: action, Result: result, Message: message}
	if err := p.Logs.Append(entry); err != nil {
		slog.Warn("Failed to append log entry", "source", source, "url", url, "error", err)
	}
}

// dedupeSkip reports whether the item should not proceed: either the dedupe
// store already holds the same content hash, or the store failed. A store
// failure is fatal to the item: it is logged, counted and skipped, never
// written with an unrecordable hash.
func (p *Pipeline) dedupeSkip(source, url, title, contentHash string) bool {
	if p.Dedupe == nil {
		return false
	}
	stored, ok, err := p.Dedupe.Lookup(url)
	if err != nil {
		p.log(source, url, "fetch", "error", "dedupe lookup: "+err.Error())
		p.Stats.Errors.Add(1)
		slog.Error("Dedupe lookup failed, skipping item", "source", source, "url", url, "error", err)
		return true
	}
	if ok && stored == contentHash {
		p.skipUnchanged(source, url, title)
		return true
	}
	return false
}

func (p *Pipeline) record(source, url, contentHash string) {
	if p.Dedupe == nil {
		return
	}
	if err := p.Dedupe.Record(url, contentHash); err != nil {
		p.log(source, url, "write", "error", "dedupe record: "+err.Error())
		p.Stats.Errors.Add(1)
		slog.Error("Failed to record content hash", "url", url, "error", err)
	}
}

// summarize returns the summary text and resulting status. Summarization
// failures are soft: the item is stored anyway with its raw content under
// status "fetched" instead of losing the run.
func (p *Pipeline) summarize(ctx context.Context, source, url, title, text string) (string, string) {
	if p.Summarizer == nil {
		return "", database.StatusFetched
	}

	summary, err := p.Summarizer.Summarize(ctx, title, text)
	if err != nil {
		p.log(source, url, "summarize", "error", err.Error())
		slog.Warn("Summarization failed, storing raw content", "source", source, "url", url, "error", err)
		return "", database.StatusFetched
	}

	p.log(source, url, "summarize", "ok", "")
	p.Stats.Summarized.Add(1)
	return summary.Text(), database.StatusSummarized
}

func (p *Pipeline) console(source, result, title string) {
	if p.Console {
		fmt.Printf("[%s] %-9s %s\n", source, result, title)
	}
}

// finish performs the common tail of every item: write, count, record.
func (p *Pipeline) finish(source, url, title, contentHash string, write func() (string, error)) {
	result, err := write()
	if err != nil {
		p.log(source, url, "write", "error", err.Error())
		p.Stats.Errors.Add(1)
		slog.Error("Failed to write item", "source", source, "url", url, "error", err)
		return
	}

	p.log(source, url, "write", "ok", result)
	p.Stats.countResult(result)
	p.record(source, url, contentHash)
	p.console(source, result, title)
}

// skipUnchanged logs and counts a dedupe hit.
func (p *Pipeline) skipUnchanged(source, url, title string) {
	p.log(source, url, "fetch", "skip", "unchanged")
	p.Stats.Skipped.Add(1)
	p.console(source, "skip", title)
}

// skipDryRun logs a write that was suppressed by dry-run mode.
func (p *Pipeline) skipDryRun(source, url, title string) {
	p.log(source, url, "write", "skip", "dry run")
	p.Stats.Skipped.Add(1)
	p.console(source, "dry-run", title)
}
