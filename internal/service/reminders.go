package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
	"github.com/AltioraPro/altiora-bot/internal/biz/usecase"
	"github.com/AltioraPro/altiora-bot/internal/metrics"
)

// habitReminderHour is the local hour habit reminders go out at
const habitReminderHour = 19

// goalAnchorHour is the local hour recurring goal reminders advance to
const goalAnchorHour = 9

// ReminderScheduler delivers goal and habit reminders on a fixed poll
// interval. Goal schedules are advanced before dispatch so a crash
// mid-send drops a reminder instead of duplicating it.
type ReminderScheduler struct {
	schedules repo.ScheduleRepo
	messages  repo.MessageRepo
	logger    *Logger
	collector *metrics.Collector

	pollInterval time.Duration
	now          func() time.Time
	running      bool
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewReminderScheduler creates a reminder scheduler
func NewReminderScheduler(schedules repo.ScheduleRepo, messages repo.MessageRepo, logger *Logger, collector *metrics.Collector) *ReminderScheduler {
	return &ReminderScheduler{
		schedules:    schedules,
		messages:     messages,
		logger:       logger,
		collector:    collector,
		pollInterval: 60 * time.Second,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *ReminderScheduler) Start() {
	if s.running {
		return
	}
	s.running = true
	s.wg.Add(1)
	go s.loop()
	fmt.Printf("[Reminders] Started with poll interval %v\n", s.pollInterval)
}

// Stop stops the scheduler
func (s *ReminderScheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.wg.Wait()
	fmt.Println("[Reminders] Stopped")
}

func (s *ReminderScheduler) loop() {
	defer s.wg.Done()

	// Initial run
	s.ProcessDue(context.Background(), s.now())

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ProcessDue(context.Background(), s.now())
		case <-s.stopCh:
			return
		}
	}
}

// ProcessDue runs one scheduling pass at the given time
func (s *ReminderScheduler) ProcessDue(ctx context.Context, now time.Time) {
	s.processGoals(ctx, now)
	s.processHabits(ctx, now)
}

// processGoals sends every due goal reminder
func (s *ReminderScheduler) processGoals(ctx context.Context, now time.Time) {
	goals, err := s.schedules.DueGoalSchedules(ctx, now)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load due goals: %v", err), nil)
		return
	}

	for _, goal := range goals {
		s.sendGoalReminder(ctx, goal, now)
	}
}

// sendGoalReminder advances one schedule and delivers its reminder.
// The advance commits first: a delivery failure after that point means
// the reminder is skipped until the next occurrence, never repeated
// every poll tick.
func (s *ReminderScheduler) sendGoalReminder(ctx context.Context, goal *domain.GoalSchedule, now time.Time) {
	next := goal.Frequency.Next(now, goalAnchorHour)
	if err := s.schedules.AdvanceGoalSchedule(ctx, goal.ID, next, now); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to advance goal %d: %v", goal.ID, err), nil)
		return
	}

	payload := usecase.RenderGoalReminder(goal, now)
	if err := s.messages.SendDirect(ctx, goal.OwnerID, payload); err != nil {
		s.logger.Warn(fmt.Sprintf("Failed to DM goal reminder to %s: %v", goal.OwnerID, err), map[string]any{
			"goal": goal.Title,
		})
		return
	}
	if s.collector != nil {
		s.collector.RecordReminder("goal")
	}
}

// processHabits sends the daily habit checklist to every user whose
// local clock is in the reminder hour and who has not been reminded
// today.
func (s *ReminderScheduler) processHabits(ctx context.Context, now time.Time) {
	users, err := s.schedules.HabitUsers(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load habit users: %v", err), nil)
		return
	}

	for _, user := range users {
		loc, err := user.Location()
		if err != nil {
			s.logger.Warn(fmt.Sprintf("Unknown timezone %q for %s, using UTC", user.Timezone, user.DiscordID), nil)
		}
		local := now.In(loc)
		if local.Hour() != habitReminderHour || user.SentToday(now, loc) {
			continue
		}
		s.sendHabitReminder(ctx, user, local)
	}
}

// sendHabitReminder builds and delivers one user's habit checklist
func (s *ReminderScheduler) sendHabitReminder(ctx context.Context, user *domain.HabitUser, local time.Time) {
	habits, err := s.schedules.ActiveHabits(ctx, user.DiscordID)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load habits for %s: %v", user.DiscordID, err), nil)
		return
	}
	if len(habits) == 0 {
		return
	}

	completed, err := s.schedules.CompletedHabitIDs(ctx, user.DiscordID, local.Format(domain.DateLayout))
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load completions for %s: %v", user.DiscordID, err), nil)
		return
	}

	progress := &domain.HabitProgress{}
	for _, habit := range habits {
		progress.Statuses = append(progress.Statuses, domain.HabitDailyStatus{
			HabitID:     habit.ID,
			Title:       habit.Title,
			Emoji:       habit.Emoji,
			IsCompleted: completed[habit.ID],
		})
	}

	// Nothing left to nudge about once every habit is checked off
	if progress.AllDone() {
		return
	}

	payload := usecase.RenderHabitProgress(progress, local)
	if err := s.messages.SendDirect(ctx, user.DiscordID, payload); err != nil {
		s.logger.Warn(fmt.Sprintf("Failed to DM habit reminder to %s: %v", user.DiscordID, err), nil)
		return
	}
	if err := s.schedules.StampHabitReminder(ctx, user.DiscordID, local); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to stamp reminder for %s: %v", user.DiscordID, err), nil)
	}
	if s.collector != nil {
		s.collector.RecordReminder("habit")
	}
}
