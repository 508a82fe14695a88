package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
	"github.com/AltioraPro/altiora-bot/internal/biz/usecase"
	"github.com/AltioraPro/altiora-bot/internal/infra/discord"
	"github.com/AltioraPro/altiora-bot/internal/metrics"
	"github.com/AltioraPro/altiora-bot/internal/service"
)

// Gateway is the slice of the live connection the bot server needs
type Gateway interface {
	OnMessage(fn func(discord.Message))
	OnReaction(fn func(discord.ReactionPayload))
	Run(ctx context.Context) error
	Connected() bool
	Latency() time.Duration
	BotUserID() string
}

// GuildInfo fetches guild summary data for health reporting
type GuildInfo interface {
	GetGuild(ctx context.Context) (*discord.Guild, error)
}

// Bot wires the gateway to the command router and fans reaction events
// out to confirmation observers. It is the process's chat-facing server.
type Bot struct {
	gateway       Gateway
	guildInfo     GuildInfo
	messages      repo.MessageRepo
	members       repo.MemberRepo
	schedules     repo.ScheduleRepo
	router        *service.Router
	confirmations *usecase.Confirmations
	purger        *usecase.Purger
	roleSync      *usecase.RoleSync
	logQueue      *service.LogQueue
	logger        *service.Logger
	collector     *metrics.Collector

	logChannelID string
	startedAt    time.Time

	commandsRun    atomic.Int64
	messagesPurged atomic.Int64
	purgeSkipped   atomic.Int64

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time // msgID -> timestamp

	// Reaction subscription registry keyed by message ID
	subsMu    sync.Mutex
	subs      map[string]map[int64]func(domain.ReactionEvent)
	nextSubID int64
}

// BotDeps carries the collaborators the bot server composes
type BotDeps struct {
	Gateway      Gateway
	GuildInfo    GuildInfo
	Messages     repo.MessageRepo
	Members      repo.MemberRepo
	Schedules    repo.ScheduleRepo
	Router       *service.Router
	Purger       *usecase.Purger
	RoleSync     *usecase.RoleSync
	LogQueue     *service.LogQueue
	Collector    *metrics.Collector
	LogChannelID string
}

// NewBot creates the bot server and registers its commands
func NewBot(deps BotDeps) *Bot {
	b := &Bot{
		gateway:      deps.Gateway,
		guildInfo:    deps.GuildInfo,
		messages:     deps.Messages,
		members:      deps.Members,
		schedules:    deps.Schedules,
		router:       deps.Router,
		purger:       deps.Purger,
		roleSync:     deps.RoleSync,
		logQueue:     deps.LogQueue,
		logger:       service.NewLogger("Bot", deps.LogQueue),
		collector:    deps.Collector,
		logChannelID: deps.LogChannelID,
		startedAt:    time.Now(),
		seenMsgs:     make(map[string]time.Time),
		subs:         make(map[string]map[int64]func(domain.ReactionEvent)),
	}
	b.confirmations = usecase.NewConfirmations(deps.Messages, b, usecase.DefaultConfirmTimeout)

	b.router.OnDispatch(func(name string) {
		b.commandsRun.Add(1)
	})
	b.router.SetBotID(deps.Gateway.BotUserID)
	b.registerCommands()

	return b
}

// Run attaches the event handlers and drives the gateway until ctx ends
func (b *Bot) Run(ctx context.Context) error {
	b.gateway.OnMessage(b.handleMessage)
	b.gateway.OnReaction(b.handleReaction)
	return b.gateway.Run(ctx)
}

// handleMessage routes one inbound chat message
func (b *Bot) handleMessage(msg discord.Message) {
	if msg.Author.Bot || msg.Author.ID == b.gateway.BotUserID() {
		return
	}
	if b.isMessageSeen(msg.ID) {
		fmt.Printf("[Bot] Duplicate message ignored: %s\n", msg.ID)
		return
	}
	b.markMessageSeen(msg.ID)

	// Dispatch off the gateway read loop: a confirmation-backed command
	// can pend for the full confirmation window.
	go b.router.Dispatch(context.Background(), domain.Message{
		ID:         msg.ID,
		ChannelID:  msg.ChannelID,
		GuildID:    msg.GuildID,
		Content:    msg.Content,
		AuthorID:   msg.Author.ID,
		AuthorName: msg.Author.Username,
		AuthorBot:  msg.Author.Bot,
		CreatedAt:  msg.CreatedAt(),
	})
}

// handleReaction fans one reaction event out to subscribers
func (b *Bot) handleReaction(payload discord.ReactionPayload) {
	if payload.UserID == b.gateway.BotUserID() {
		return
	}
	ev := domain.ReactionEvent{
		ChannelID: payload.ChannelID,
		MessageID: payload.MessageID,
		UserID:    payload.UserID,
		Emoji:     payload.Emoji.Name,
	}

	b.subsMu.Lock()
	var fns []func(domain.ReactionEvent)
	for _, fn := range b.subs[ev.MessageID] {
		fns = append(fns, fn)
	}
	b.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SubscribeReactions registers an observer for reactions on one message.
// The returned cancel func is idempotent.
func (b *Bot) SubscribeReactions(messageID string, fn func(domain.ReactionEvent)) func() {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	if b.subs[messageID] == nil {
		b.subs[messageID] = make(map[int64]func(domain.ReactionEvent))
	}
	b.subs[messageID][id] = fn

	return func() {
		b.subsMu.Lock()
		defer b.subsMu.Unlock()
		delete(b.subs[messageID], id)
		if len(b.subs[messageID]) == 0 {
			delete(b.subs, messageID)
		}
	}
}

// HealthStatus is the snapshot served by /health and !health
type HealthStatus struct {
	Status         string `json:"status"`
	BotConnected   bool   `json:"botConnected"`
	GuildAvailable bool   `json:"guildAvailable"`
	Timestamp      string `json:"timestamp"`
	Uptime         int64  `json:"uptime"`  // seconds
	Latency        int64  `json:"latency"` // milliseconds
	GuildCount     int    `json:"guildCount"`
	MemberCount    int    `json:"memberCount"`
}

// Health builds the current health snapshot
func (b *Bot) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    int64(time.Since(b.startedAt).Seconds()),
	}
	if b.gateway != nil {
		status.BotConnected = b.gateway.Connected()
		status.Latency = b.gateway.Latency().Milliseconds()
	}
	if b.guildInfo != nil {
		if guild, err := b.guildInfo.GetGuild(ctx); err == nil {
			status.GuildAvailable = true
			status.GuildCount = 1
			status.MemberCount = guild.MemberCount
		}
	}
	if !status.BotConnected {
		status.Status = "degraded"
	}
	return status
}

// SyncRank applies a rank through the role sync engine; the HTTP
// webhook handlers call this. Web-originated syncs prefer the relay
// and fall back to the direct API path when the relay fails.
func (b *Bot) SyncRank(ctx context.Context, discordID, rank string) error {
	err := b.roleSync.AutoSync(ctx, discordID, rank)
	if b.collector != nil {
		b.collector.RecordRankSync(err == nil)
	}
	return err
}

// KnownRank checks whether the rank has a configured role mapping
func (b *Bot) KnownRank(rank string) bool {
	_, ok := b.roleSync.Mapping().Resolve(rank)
	return ok
}

// isMessageSeen checks if a message has been processed
func (b *Bot) isMessageSeen(msgID string) bool {
	b.seenMsgsMu.RLock()
	defer b.seenMsgsMu.RUnlock()
	_, exists := b.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed and prunes old records
func (b *Bot) markMessageSeen(msgID string) {
	b.seenMsgsMu.Lock()
	defer b.seenMsgsMu.Unlock()
	b.seenMsgs[msgID] = time.Now()

	cutoff := time.Now().Add(-5 * time.Minute)
	for id, ts := range b.seenMsgs {
		if ts.Before(cutoff) {
			delete(b.seenMsgs, id)
		}
	}
}
