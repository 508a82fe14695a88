package repo

import (
	"context"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// ScheduleRepo is the reminder-state repository interface.
// Backed by local storage; every mutation is atomic per record.
type ScheduleRepo interface {
	// DueGoalSchedules lists active, uncompleted goal schedules whose
	// next due time is at or before now
	DueGoalSchedules(ctx context.Context, now time.Time) ([]*domain.GoalSchedule, error)

	// AdvanceGoalSchedule moves the schedule to its next occurrence and
	// stamps the send time in one transaction
	AdvanceGoalSchedule(ctx context.Context, id int64, nextDueAt, sentAt time.Time) error

	// HabitUsers lists users with habit reminders enabled and a
	// connected chat identity
	HabitUsers(ctx context.Context) ([]*domain.HabitUser, error)

	// ActiveHabits lists a user's active habits
	ActiveHabits(ctx context.Context, discordID string) ([]domain.Habit, error)

	// CompletedHabitIDs returns the habits completed on the given
	// calendar day (rendered in the user's timezone)
	CompletedHabitIDs(ctx context.Context, discordID, date string) (map[int64]bool, error)

	// StampHabitReminder records that the daily reminder went out
	StampHabitReminder(ctx context.Context, discordID string, sentAt time.Time) error

	// LinkedMembers lists users with a connected Discord account and a
	// known rank, for bulk role synchronization
	LinkedMembers(ctx context.Context) ([]domain.LinkedMember, error)

	// Close releases the underlying storage
	Close() error
}
