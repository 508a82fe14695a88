package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// Pure rendering functions: domain state in, notification payload out.
// No I/O here so every payload is unit-testable.

// progressBarWidth is the cell count of the habit progress bar.
const progressBarWidth = 10

// ProgressBar renders a fixed-width bar of filled/empty cells
func ProgressBar(completed, total int) string {
	filled := 0
	if total > 0 {
		filled = completed * progressBarWidth / total
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
}

// RenderLogBatch folds up to one flush batch of log entries into a
// single notification, one field per entry.
func RenderLogBatch(entries []domain.LogEntry) *domain.NotificationPayload {
	color := domain.ColorInfo
	for _, e := range entries {
		if e.Level == domain.LogError {
			color = domain.ColorError
			break
		}
		if e.Level == domain.LogWarn {
			color = domain.ColorWarning
		}
	}

	p := &domain.NotificationPayload{
		Title:     fmt.Sprintf("Log batch (%d entries)", len(entries)),
		Color:     color,
		Timestamp: time.Now(),
	}
	for _, e := range entries {
		value := e.Message
		if len(e.Data) > 0 {
			value += " " + formatLogData(e.Data)
		}
		if len(value) > 1024 {
			value = value[:1021] + "..."
		}
		p.AddField(fmt.Sprintf("[%s] %s", e.Level, e.Timestamp.Format("15:04:05")), value, false)
	}
	return p
}

// formatLogData renders structured log data as key=value pairs
func formatLogData(data map[string]any) string {
	parts := make([]string, 0, len(data))
	for k, v := range data {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return "`" + strings.Join(parts, " ") + "`"
}

// RenderGoalReminder builds the goal reminder payload with an urgency
// tier derived from days until the deadline.
func RenderGoalReminder(goal *domain.GoalSchedule, now time.Time) *domain.NotificationPayload {
	tier := goal.Urgency(now)

	var title string
	color := domain.ColorInfo
	switch tier {
	case domain.UrgencyOverdue:
		title = "Goal overdue: " + goal.Title
		color = domain.ColorError
	case domain.UrgencyDueToday:
		title = "Goal due today: " + goal.Title
		color = domain.ColorError
	case domain.UrgencyDueSoon:
		title = "Goal due soon: " + goal.Title
		color = domain.ColorWarning
	case domain.UrgencyThisWeek:
		title = "Goal due this week: " + goal.Title
		color = domain.ColorWarning
	default:
		title = "Goal reminder: " + goal.Title
	}

	p := &domain.NotificationPayload{
		Title:       title,
		Description: goal.Description,
		Color:       color,
		Timestamp:   now,
		Footer:      "Altiora goal reminders",
	}
	p.AddField("Deadline", goal.Deadline.Format("Jan 2, 2006"), true)
	p.AddField("Urgency", string(tier), true)
	return p
}

// RenderHabitProgress builds the daily habit reminder payload:
// percentage, progress bar, per-habit checklist, incomplete list.
func RenderHabitProgress(progress *domain.HabitProgress, now time.Time) *domain.NotificationPayload {
	completed, total := progress.Completed(), progress.Total()

	var checklist strings.Builder
	for _, s := range progress.Statuses {
		mark := "⬜" // white square
		if s.IsCompleted {
			mark = EmojiAffirm
		}
		emoji := s.Emoji
		if emoji != "" {
			emoji += " "
		}
		fmt.Fprintf(&checklist, "%s %s%s\n", mark, emoji, s.Title)
	}

	color := domain.ColorWarning
	if progress.AllDone() {
		color = domain.ColorSuccess
	}

	p := &domain.NotificationPayload{
		Title: "Daily habit check-in",
		Description: fmt.Sprintf("%d/%d completed (%d%%)\n`%s`",
			completed, total, progress.Percent(), ProgressBar(completed, total)),
		Color:     color,
		Timestamp: now,
		Footer:    "Altiora habit reminders",
	}
	p.AddField("Today", checklist.String(), false)

	if incomplete := progress.Incomplete(); len(incomplete) > 0 {
		names := make([]string, len(incomplete))
		for i, s := range incomplete {
			names[i] = s.Title
		}
		p.AddField("Still to do", strings.Join(names, ", "), false)
	}
	return p
}

// RenderDeletionReport builds the final purge summary. A warning color
// flags runs where the platform age limit forced skips.
func RenderDeletionReport(report *domain.DeletionReport) *domain.NotificationPayload {
	p := &domain.NotificationPayload{
		Title:     "Channel cleanup complete",
		Color:     domain.ColorSuccess,
		Timestamp: time.Now(),
	}
	p.AddField("Deleted", fmt.Sprintf("%d messages", report.Deleted), true)
	if report.SkippedTooOld > 0 {
		p.Color = domain.ColorWarning
		p.AddField("Skipped (older than 14 days)", fmt.Sprintf("%d messages", report.SkippedTooOld), true)
	}
	return p
}

// RenderSyncTally builds the bulk rank sync summary
func RenderSyncTally(tally domain.SyncTally) *domain.NotificationPayload {
	color := domain.ColorSuccess
	if tally.Failed > 0 {
		color = domain.ColorWarning
	}
	p := &domain.NotificationPayload{
		Title:     "Rank synchronization finished",
		Color:     color,
		Timestamp: time.Now(),
	}
	p.AddField("Synchronized", fmt.Sprintf("%d", tally.Succeeded), true)
	p.AddField("Failed", fmt.Sprintf("%d", tally.Failed), true)
	if len(tally.Errors) > 0 {
		lines := make([]string, 0, len(tally.Errors))
		for _, e := range tally.Errors {
			lines = append(lines, fmt.Sprintf("<@%s>: %s", e.DiscordID, e.Err))
			if len(lines) == 10 {
				lines = append(lines, fmt.Sprintf("... and %d more", len(tally.Errors)-10))
				break
			}
		}
		p.AddField("Errors", strings.Join(lines, "\n"), false)
	}
	return p
}
