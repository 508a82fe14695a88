package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// Mock implementations shared by the usecase tests

type mockMessageRepo struct {
	mu sync.Mutex

	// backing store for fetch/delete, newest first
	store []domain.Message

	sentTexts     []string
	sentChannels  []string
	notifications []*domain.NotificationPayload
	directUserIDs []string
	deleted       []string
	bulkBatches   [][]string
	reactions     []string

	nextID    int
	sendErr   error
	bulkErr   error
	deleteErr error
}

func (m *mockMessageRepo) SendText(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.nextID++
	m.sentTexts = append(m.sentTexts, text)
	m.sentChannels = append(m.sentChannels, channelID)
	return "prompt-1", nil
}

func (m *mockMessageRepo) SendNotification(ctx context.Context, channelID string, payload *domain.NotificationPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, payload)
	return "notif-1", nil
}

func (m *mockMessageRepo) SendDirect(ctx context.Context, userID string, payload *domain.NotificationPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directUserIDs = append(m.directUserIDs, userID)
	m.notifications = append(m.notifications, payload)
	return nil
}

func (m *mockMessageRepo) FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.store) {
		limit = len(m.store)
	}
	out := make([]domain.Message, limit)
	copy(out, m.store[:limit])
	return out, nil
}

func (m *mockMessageRepo) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulkErr != nil {
		return m.bulkErr
	}
	m.bulkBatches = append(m.bulkBatches, messageIDs)
	for _, id := range messageIDs {
		m.removeLocked(id)
	}
	return nil
}

func (m *mockMessageRepo) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	m.removeLocked(messageID)
	return nil
}

func (m *mockMessageRepo) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emoji)
	return nil
}

func (m *mockMessageRepo) removeLocked(id string) {
	for i, msg := range m.store {
		if msg.ID == id {
			m.store = append(m.store[:i], m.store[i+1:]...)
			return
		}
	}
}

func (m *mockMessageRepo) deletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleted)
}

// fakeReactionSource lets tests fire reaction events into subscriptions
type fakeReactionSource struct {
	mu         sync.Mutex
	nextSubID  int
	subs       map[int]subEntry
	subscribed chan struct{}
}

type subEntry struct {
	messageID string
	fn        func(domain.ReactionEvent)
}

func newFakeReactionSource() *fakeReactionSource {
	return &fakeReactionSource{
		subs:       make(map[int]subEntry),
		subscribed: make(chan struct{}, 16),
	}
}

func (f *fakeReactionSource) SubscribeReactions(messageID string, fn func(domain.ReactionEvent)) func() {
	f.mu.Lock()
	f.nextSubID++
	id := f.nextSubID
	f.subs[id] = subEntry{messageID: messageID, fn: fn}
	f.mu.Unlock()
	f.subscribed <- struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// fire delivers the event to every live subscription for its message,
// simulating both the collector and the raw listener observing it.
func (f *fakeReactionSource) fire(ev domain.ReactionEvent) {
	f.mu.Lock()
	var fns []func(domain.ReactionEvent)
	for _, s := range f.subs {
		if s.messageID == ev.MessageID {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (f *fakeReactionSource) waitForSubs(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-f.subscribed:
		case <-deadline:
			return false
		}
	}
	return true
}

type mockMemberRepo struct {
	mu       sync.Mutex
	members  map[string]*domain.Member
	setCalls int
	roles    []domain.Role
	getErr   error
	setErr   error
}

func (m *mockMemberRepo) GetMember(ctx context.Context, userID string) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	member, ok := m.members[userID]
	if !ok {
		return nil, domain.ErrMissingAccess
	}
	cp := *member
	cp.RoleIDs = append([]string(nil), member.RoleIDs...)
	return &cp, nil
}

func (m *mockMemberRepo) SetMemberRoles(ctx context.Context, userID string, roleIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.setCalls++
	if member, ok := m.members[userID]; ok {
		member.RoleIDs = append([]string(nil), roleIDs...)
	}
	return nil
}

func (m *mockMemberRepo) GuildRoles(ctx context.Context) ([]domain.Role, error) {
	return m.roles, nil
}

type mockRelayRepo struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRelayRepo) SyncRank(ctx context.Context, discordID, rank string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}
