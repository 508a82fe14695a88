package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
)

// Reaction glyphs accepted on a confirmation prompt.
const (
	EmojiAffirm = "✅" // white check mark
	EmojiDeny   = "❌" // cross mark
)

// DefaultConfirmTimeout is how long a confirmation prompt stays open.
const DefaultConfirmTimeout = 30 * time.Second

// ReactionSource delivers reaction events for a specific message.
// Subscriptions are independent; cancelling one never affects another.
type ReactionSource interface {
	// SubscribeReactions registers fn for reactions added to messageID
	// and returns a cancel function that removes the subscription.
	SubscribeReactions(messageID string, fn func(domain.ReactionEvent)) (cancel func())
}

// ConfirmRequest describes one yes/no confirmation to run
type ConfirmRequest struct {
	ChannelID       string
	SourceMessageID string
	RequesterID     string
	Prompt          string
}

// Confirmations manages pending yes/no confirmations. Each prompt is
// watched by two independent observers (a primary collector plus a raw
// fallback, mirroring an upstream gateway reliability issue); a shared
// resolved flag guarantees exactly-once resolution whichever fires
// first, and the loser no-ops.
type Confirmations struct {
	messages repo.MessageRepo
	source   ReactionSource
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]*domain.PendingConfirmation // keyed by source message ID
}

// NewConfirmations creates a confirmation workflow manager
func NewConfirmations(messages repo.MessageRepo, source ReactionSource, timeout time.Duration) *Confirmations {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &Confirmations{
		messages: messages,
		source:   source,
		timeout:  timeout,
		pending:  make(map[string]*domain.PendingConfirmation),
	}
}

// resolution is the shared exactly-once flag both observers race on
type resolution struct {
	mu   sync.Mutex
	done bool
}

// claim returns true exactly once, for whichever caller gets there first
func (r *resolution) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return false
	}
	r.done = true
	return true
}

// Request posts the confirmation prompt, attaches the affirm/deny
// reactions, and blocks until the requester reacts, the window times
// out, or ctx is cancelled. The prompt message is deleted on every
// path; the caller performs the confirmed action and all replies.
func (c *Confirmations) Request(ctx context.Context, req ConfirmRequest) (domain.ConfirmOutcome, error) {
	c.mu.Lock()
	if _, exists := c.pending[req.SourceMessageID]; exists {
		c.mu.Unlock()
		return domain.Cancelled, fmt.Errorf("confirmation already pending for message %s", req.SourceMessageID)
	}
	c.pending[req.SourceMessageID] = nil // placeholder until the prompt exists
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.SourceMessageID)
		c.mu.Unlock()
	}()

	promptID, err := c.messages.SendText(ctx, req.ChannelID, req.Prompt)
	if err != nil {
		return domain.Cancelled, fmt.Errorf("failed to post confirmation prompt: %w", err)
	}

	now := time.Now()
	c.mu.Lock()
	c.pending[req.SourceMessageID] = &domain.PendingConfirmation{
		SourceMessageID: req.SourceMessageID,
		PromptMessageID: promptID,
		ChannelID:       req.ChannelID,
		RequesterID:     req.RequesterID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(c.timeout),
	}
	c.mu.Unlock()

	// Reaction failures are non-fatal: the user can still react manually.
	if err := c.messages.AddReaction(ctx, req.ChannelID, promptID, EmojiAffirm); err == nil {
		_ = c.messages.AddReaction(ctx, req.ChannelID, promptID, EmojiDeny)
	}

	res := &resolution{}
	resultCh := make(chan domain.ConfirmOutcome, 1)

	observer := func(ev domain.ReactionEvent) {
		if !ev.Matches(promptID, req.RequesterID, EmojiAffirm, EmojiDeny) {
			return
		}
		if !res.claim() {
			// The other observer already resolved this confirmation.
			return
		}
		if ev.Emoji == EmojiAffirm {
			resultCh <- domain.Confirmed
		} else {
			resultCh <- domain.Cancelled
		}
	}

	cancelCollector := c.source.SubscribeReactions(promptID, observer)
	cancelFallback := c.source.SubscribeReactions(promptID, observer)
	defer cancelCollector()
	defer cancelFallback()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var outcome domain.ConfirmOutcome
	select {
	case outcome = <-resultCh:
	case <-timer.C:
		if res.claim() {
			outcome = domain.TimedOut
		} else {
			// An observer won the race at the deadline; its result is
			// already buffered.
			outcome = <-resultCh
		}
	case <-ctx.Done():
		res.claim()
		_ = c.messages.DeleteMessage(context.Background(), req.ChannelID, promptID)
		return domain.TimedOut, ctx.Err()
	}

	c.markResolved(req.SourceMessageID)

	// Deleting the prompt is the authoritative close signal: once it is
	// gone no observer can act on it again.
	_ = c.messages.DeleteMessage(ctx, req.ChannelID, promptID)

	return outcome, nil
}

// Pending returns the in-flight confirmation for a source message, if any
func (c *Confirmations) Pending(sourceMessageID string) *domain.PendingConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[sourceMessageID]
}

func (c *Confirmations) markResolved(sourceMessageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.pending[sourceMessageID]; p != nil {
		p.Resolved = true
	}
}
