package sources

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Apple Notes and Reminders are read through osascript. The scripts emit one
// tab-separated record per line, which keeps parsing trivial on this side.

const notesScript = `
set _sep to "\t"
tell application "Notes"
    if not (exists folder "%s") then return ""
    set theFolder to folder "%s"
    set theNotes to notes of theFolder
    repeat with n in theNotes
        set nid to id of n
        set ntitle to name of n
        set nbody to body of n
        do shell script "printf '%%s" & _sep & "%%s" & _sep & "%%s" & _sep & "%%s\n' " & quoted form of (nid as string) & " " & quoted form of (ntitle as string) & " " & quoted form of (nbody as string) & " " & quoted form of (name of theFolder as string)
    end repeat
end tell
`

const remindersScript = `
set _sep to "\t"
tell application "Reminders"
    if not (exists list "%s") then return ""
    set theList to list "%s"
    set theRems to reminders of theList whose completed is false
    repeat with r in theRems
        set rid to id of r
        set rtitle to name of r
        set rdue to due date of r
        if rdue is missing value then
            set rdueStr to ""
        else
            set rdueStr to (rdue as string)
        end if
        do shell script "printf '%%s" & _sep & "%%s" & _sep & "%%s" & _sep & "%%s\n' " & quoted form of (rid as string) & " " & quoted form of (rtitle as string) & " " & quoted form of (name of theList as string) & " " & quoted form of rdueStr
    end repeat
end tell
`

// AppleCollector shells out to osascript to read local Notes and Reminders.
// Only available on macOS.
type AppleCollector struct{}

func NewAppleCollector() *AppleCollector {
	return &AppleCollector{}
}

// FetchNotes returns all notes in the named folder.
func (c *AppleCollector) FetchNotes(ctx context.Context, folder string) ([]NoteItem, error) {
	out, err := c.runScript(ctx, fmt.Sprintf(notesScript, folder, folder))
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return parseNotesOutput(out), nil
}

// FetchReminders returns the incomplete reminders on the named list.
func (c *AppleCollector) FetchReminders(ctx context.Context, list string) ([]ReminderItem, error) {
	out, err := c.runScript(ctx, fmt.Sprintf(remindersScript, list, list))
	if err != nil {
		return nil, fmt.Errorf("failed to read reminders: %w", err)
	}
	return parseRemindersOutput(out), nil
}

func (c *AppleCollector) runScript(ctx context.Context, script string) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("apple sources are only available on macOS")
	}

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("osascript failed: %w", err)
	}
	return string(out), nil
}

func parseNotesOutput(out string) []NoteItem {
	var items []NoteItem
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			continue
		}
		items = append(items, NoteItem{
			NoteID: parts[0],
			Title:  parts[1],
			Body:   parts[2],
			Folder: parts[3],
		})
	}
	return items
}

func parseRemindersOutput(out string) []ReminderItem {
	var items []ReminderItem
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			continue
		}
		items = append(items, ReminderItem{
			ReminderID: parts[0],
			Title:      parts[1],
			ListName:   parts[2],
			Due:        parts[3],
		})
	}
	return items
}
