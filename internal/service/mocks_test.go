package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// mockMessageRepo records outbound traffic
type mockMessageRepo struct {
	mu            sync.Mutex
	texts         []string
	notifications []*domain.NotificationPayload
	directs       map[string][]*domain.NotificationPayload
	directErr     map[string]error
	sendErr       error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		directs:   make(map[string][]*domain.NotificationPayload),
		directErr: make(map[string]error),
	}
}

func (m *mockMessageRepo) SendText(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.texts = append(m.texts, text)
	return fmt.Sprintf("msg-%d", len(m.texts)), nil
}

func (m *mockMessageRepo) SendNotification(ctx context.Context, channelID string, payload *domain.NotificationPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.notifications = append(m.notifications, payload)
	return fmt.Sprintf("msg-n%d", len(m.notifications)), nil
}

func (m *mockMessageRepo) SendDirect(ctx context.Context, userID string, payload *domain.NotificationPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.directErr[userID]; err != nil {
		return err
	}
	m.directs[userID] = append(m.directs[userID], payload)
	return nil
}

func (m *mockMessageRepo) FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	return nil, nil
}

func (m *mockMessageRepo) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	return nil
}

func (m *mockMessageRepo) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return nil
}

func (m *mockMessageRepo) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return nil
}

func (m *mockMessageRepo) sentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

func (m *mockMessageRepo) directCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.directs[userID])
}

// mockMemberRepo serves a fixed member set
type mockMemberRepo struct {
	members map[string]*domain.Member
	err     error
}

func (m *mockMemberRepo) GetMember(ctx context.Context, userID string) (*domain.Member, error) {
	if m.err != nil {
		return nil, m.err
	}
	member, ok := m.members[userID]
	if !ok {
		return nil, fmt.Errorf("member %s not found", userID)
	}
	return member, nil
}

func (m *mockMemberRepo) SetMemberRoles(ctx context.Context, userID string, roleIDs []string) error {
	return nil
}

func (m *mockMemberRepo) GuildRoles(ctx context.Context) ([]domain.Role, error) {
	return nil, nil
}

// mockScheduleRepo is an in-memory reminder store
type mockScheduleRepo struct {
	mu         sync.Mutex
	goals      []*domain.GoalSchedule
	users      []*domain.HabitUser
	habits     map[string][]domain.Habit
	completed  map[string]map[int64]bool
	linked     []domain.LinkedMember
	advanced   []int64
	stamped    []string
	advanceErr error
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{
		habits:    make(map[string][]domain.Habit),
		completed: make(map[string]map[int64]bool),
	}
}

func (m *mockScheduleRepo) DueGoalSchedules(ctx context.Context, now time.Time) ([]*domain.GoalSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*domain.GoalSchedule
	for _, g := range m.goals {
		if g.Due(now) {
			due = append(due, g)
		}
	}
	return due, nil
}

func (m *mockScheduleRepo) AdvanceGoalSchedule(ctx context.Context, id int64, nextDueAt, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.advanceErr != nil {
		return m.advanceErr
	}
	m.advanced = append(m.advanced, id)
	for _, g := range m.goals {
		if g.ID == id {
			g.NextDueAt = nextDueAt
			g.LastSentAt = sentAt
		}
	}
	return nil
}

func (m *mockScheduleRepo) HabitUsers(ctx context.Context) ([]*domain.HabitUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users, nil
}

func (m *mockScheduleRepo) ActiveHabits(ctx context.Context, discordID string) ([]domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.habits[discordID], nil
}

func (m *mockScheduleRepo) CompletedHabitIDs(ctx context.Context, discordID, date string) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := m.completed[discordID]
	if done == nil {
		done = make(map[int64]bool)
	}
	return done, nil
}

func (m *mockScheduleRepo) StampHabitReminder(ctx context.Context, discordID string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamped = append(m.stamped, discordID)
	for _, u := range m.users {
		if u.DiscordID == discordID {
			u.LastReminderSent = sentAt
		}
	}
	return nil
}

func (m *mockScheduleRepo) LinkedMembers(ctx context.Context) ([]domain.LinkedMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linked, nil
}

func (m *mockScheduleRepo) Close() error { return nil }
