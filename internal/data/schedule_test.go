package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

func newTestScheduleRepo(t *testing.T) *scheduleRepo {
	t.Helper()
	r, err := NewScheduleRepo(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r.(*scheduleRepo)
}

func seedUser(t *testing.T, r *scheduleRepo, discordID, rank, tz string, enabled bool, lastSent int64) {
	t.Helper()
	enabledInt := 0
	if enabled {
		enabledInt = 1
	}
	_, err := r.db.Exec(`
		INSERT INTO users (discord_id, rank, timezone, habit_reminders_enabled, last_habit_reminder_sent)
		VALUES (?, ?, ?, ?, ?)
	`, discordID, rank, tz, enabledInt, lastSent)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func seedGoal(t *testing.T, r *scheduleRepo, ownerID, title string, nextDueAt time.Time, active, completed bool) int64 {
	t.Helper()
	boolInt := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	result, err := r.db.Exec(`
		INSERT INTO goal_schedules (owner_id, title, frequency, next_due_at, active, completed)
		VALUES (?, ?, 'daily', ?, ?, ?)
	`, ownerID, title, nextDueAt.Unix(), boolInt(active), boolInt(completed))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func seedHabit(t *testing.T, r *scheduleRepo, ownerID, title string, active bool) int64 {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	result, err := r.db.Exec(`
		INSERT INTO habits (owner_id, title, emoji, active) VALUES (?, ?, '📝', ?)
	`, ownerID, title, activeInt)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func TestDueGoalSchedules(t *testing.T) {
	r := newTestScheduleRepo(t)
	now := time.Now()

	dueID := seedGoal(t, r, "user-1", "Due goal", now.Add(-time.Hour), true, false)
	seedGoal(t, r, "user-1", "Future goal", now.Add(time.Hour), true, false)
	seedGoal(t, r, "user-1", "Inactive goal", now.Add(-time.Hour), false, false)
	seedGoal(t, r, "user-1", "Completed goal", now.Add(-time.Hour), true, true)

	due, err := r.DueGoalSchedules(context.Background(), now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("Expected 1 due schedule, got %d", len(due))
	}
	if due[0].ID != dueID || due[0].Title != "Due goal" {
		t.Errorf("Unexpected schedule: %+v", due[0])
	}
}

func TestAdvanceGoalSchedule(t *testing.T) {
	r := newTestScheduleRepo(t)
	now := time.Now()
	id := seedGoal(t, r, "user-1", "Goal", now.Add(-time.Hour), true, false)

	next := now.Add(24 * time.Hour)
	if err := r.AdvanceGoalSchedule(context.Background(), id, next, now); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	due, err := r.DueGoalSchedules(context.Background(), now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected no due schedules after advance, got %d", len(due))
	}

	if err := r.AdvanceGoalSchedule(context.Background(), 9999, next, now); err == nil {
		t.Error("Expected error for unknown schedule ID")
	}
}

func TestHabitUsers(t *testing.T) {
	r := newTestScheduleRepo(t)
	sentAt := time.Now().Add(-25 * time.Hour)
	seedUser(t, r, "user-1", "NEW", "Europe/Paris", true, sentAt.Unix())
	seedUser(t, r, "user-2", "", "", false, 0)

	users, err := r.HabitUsers(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("Expected 1 habit user, got %d", len(users))
	}
	if users[0].DiscordID != "user-1" || users[0].Timezone != "Europe/Paris" {
		t.Errorf("Unexpected user: %+v", users[0])
	}
	if users[0].LastReminderSent.Unix() != sentAt.Unix() {
		t.Errorf("Expected last sent %v, got %v", sentAt, users[0].LastReminderSent)
	}
}

func TestActiveHabitsAndCompletions(t *testing.T) {
	r := newTestScheduleRepo(t)
	ctx := context.Background()

	h1 := seedHabit(t, r, "user-1", "Journal", true)
	seedHabit(t, r, "user-1", "Old habit", false)
	h3 := seedHabit(t, r, "user-1", "Exercise", true)
	other := seedHabit(t, r, "user-2", "Read", true)

	habits, err := r.ActiveHabits(ctx, "user-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("Expected 2 active habits, got %d", len(habits))
	}

	date := "2026-08-29"
	for _, id := range []int64{h1, other} {
		if _, err := r.db.Exec(`INSERT INTO habit_completions (habit_id, completed_for_date) VALUES (?, ?)`, id, date); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	completed, err := r.CompletedHabitIDs(ctx, "user-1", date)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !completed[h1] {
		t.Error("Expected Journal completed")
	}
	if completed[h3] {
		t.Error("Expected Exercise not completed")
	}
	if completed[other] {
		t.Error("Completion from another user leaked in")
	}
}

func TestStampHabitReminder(t *testing.T) {
	r := newTestScheduleRepo(t)
	seedUser(t, r, "user-1", "", "UTC", true, 0)

	sentAt := time.Now()
	if err := r.StampHabitReminder(context.Background(), "user-1", sentAt); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	users, err := r.HabitUsers(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !users[0].SentToday(sentAt, time.UTC) {
		t.Error("Expected reminder stamped for today")
	}
}

func TestLinkedMembers(t *testing.T) {
	r := newTestScheduleRepo(t)
	seedUser(t, r, "user-1", "NEW", "", false, 0)
	seedUser(t, r, "user-2", "", "", false, 0)
	seedUser(t, r, "user-3", "ADVANCED", "", true, 0)

	members, err := r.LinkedMembers(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 linked members, got %d", len(members))
	}
	byID := make(map[string]domain.LinkedMember)
	for _, m := range members {
		byID[m.DiscordID] = m
	}
	if byID["user-1"].Rank != "NEW" || byID["user-3"].Rank != "ADVANCED" {
		t.Errorf("Unexpected members: %+v", members)
	}
}
