package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// scheduleRepo implements the reminder-state repository over sqlite
type scheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo creates a new reminder-state repository
func NewScheduleRepo(dbPath string) (repo.ScheduleRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			discord_id TEXT PRIMARY KEY,
			rank TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			habit_reminders_enabled INTEGER NOT NULL DEFAULT 0,
			last_habit_reminder_sent INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS goal_schedules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			deadline INTEGER NOT NULL DEFAULT 0,
			frequency TEXT NOT NULL,
			next_due_at INTEGER NOT NULL,
			last_sent_at INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			completed INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS habits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			emoji TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS habit_completions (
			habit_id INTEGER NOT NULL,
			completed_for_date TEXT NOT NULL,
			PRIMARY KEY (habit_id, completed_for_date)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// Create indexes
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_goal_schedules_next_due_at ON goal_schedules(next_due_at);
		CREATE INDEX IF NOT EXISTS idx_habits_owner_id ON habits(owner_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &scheduleRepo{db: db}, nil
}

// DueGoalSchedules lists active, uncompleted schedules due at or before now
func (r *scheduleRepo) DueGoalSchedules(ctx context.Context, now time.Time) ([]*domain.GoalSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, description, deadline, frequency, next_due_at, last_sent_at
		FROM goal_schedules
		WHERE active = 1 AND completed = 0 AND next_due_at <= ?
		ORDER BY next_due_at ASC
	`, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.GoalSchedule
	for rows.Next() {
		var schedule domain.GoalSchedule
		var deadline, nextDueAt, lastSentAt int64
		if err := rows.Scan(&schedule.ID, &schedule.OwnerID, &schedule.Title, &schedule.Description,
			&deadline, &schedule.Frequency, &nextDueAt, &lastSentAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedule.Deadline = time.Unix(deadline, 0)
		schedule.NextDueAt = time.Unix(nextDueAt, 0)
		if lastSentAt > 0 {
			schedule.LastSentAt = time.Unix(lastSentAt, 0)
		}
		schedules = append(schedules, &schedule)
	}
	return schedules, rows.Err()
}

// AdvanceGoalSchedule moves the schedule forward and stamps the send
// time in a single statement so the advance and the stamp stay atomic.
func (r *scheduleRepo) AdvanceGoalSchedule(ctx context.Context, id int64, nextDueAt, sentAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE goal_schedules SET next_due_at = ?, last_sent_at = ? WHERE id = ?
	`, nextDueAt.Unix(), sentAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule %d not found", id)
	}
	return nil
}

// HabitUsers lists users with habit reminders enabled
func (r *scheduleRepo) HabitUsers(ctx context.Context) ([]*domain.HabitUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT discord_id, timezone, last_habit_reminder_sent
		FROM users
		WHERE habit_reminders_enabled = 1 AND discord_id != ''
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query habit users: %w", err)
	}
	defer rows.Close()

	var users []*domain.HabitUser
	for rows.Next() {
		var user domain.HabitUser
		var lastSent int64
		if err := rows.Scan(&user.DiscordID, &user.Timezone, &lastSent); err != nil {
			return nil, fmt.Errorf("failed to scan habit user: %w", err)
		}
		user.RemindersEnabled = true
		if lastSent > 0 {
			user.LastReminderSent = time.Unix(lastSent, 0)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// ActiveHabits lists a user's active habits
func (r *scheduleRepo) ActiveHabits(ctx context.Context, discordID string) ([]domain.Habit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, emoji FROM habits
		WHERE owner_id = ? AND active = 1
		ORDER BY id ASC
	`, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []domain.Habit
	for rows.Next() {
		var habit domain.Habit
		if err := rows.Scan(&habit.ID, &habit.Title, &habit.Emoji); err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, habit)
	}
	return habits, rows.Err()
}

// CompletedHabitIDs returns the user's habits completed on the given day
func (r *scheduleRepo) CompletedHabitIDs(ctx context.Context, discordID, date string) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.habit_id
		FROM habit_completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE h.owner_id = ? AND c.completed_for_date = ?
	`, discordID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	completed := make(map[int64]bool)
	for rows.Next() {
		var habitID int64
		if err := rows.Scan(&habitID); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completed[habitID] = true
	}
	return completed, rows.Err()
}

// StampHabitReminder records that the daily reminder went out
func (r *scheduleRepo) StampHabitReminder(ctx context.Context, discordID string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_habit_reminder_sent = ? WHERE discord_id = ?
	`, sentAt.Unix(), discordID)
	if err != nil {
		return fmt.Errorf("failed to stamp reminder: %w", err)
	}
	return nil
}

// LinkedMembers lists users with a connected Discord account and a known rank
func (r *scheduleRepo) LinkedMembers(ctx context.Context) ([]domain.LinkedMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT discord_id, rank FROM users
		WHERE discord_id != '' AND rank != ''
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked members: %w", err)
	}
	defer rows.Close()

	var members []domain.LinkedMember
	for rows.Next() {
		var member domain.LinkedMember
		if err := rows.Scan(&member.DiscordID, &member.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan linked member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// Close closes the database connection
func (r *scheduleRepo) Close() error {
	return r.db.Close()
}
