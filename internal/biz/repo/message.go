package repo

import (
	"context"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// MessageRepo is the channel message repository interface.
// Responsible for all message traffic against the chat platform API.
type MessageRepo interface {
	// SendText sends a plain text message and returns its ID
	SendText(ctx context.Context, channelID, text string) (string, error)

	// SendNotification sends a structured notification (embed) and
	// returns the created message ID
	SendNotification(ctx context.Context, channelID string, payload *domain.NotificationPayload) (string, error)

	// SendDirect opens (or reuses) a DM channel with the user and
	// delivers a notification there
	SendDirect(ctx context.Context, userID string, payload *domain.NotificationPayload) error

	// FetchMessages fetches up to limit (≤100) most recent messages
	FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.Message, error)

	// BulkDelete deletes a batch of messages in one platform call.
	// Returns domain.ErrTooOld when any target exceeds the age limit.
	BulkDelete(ctx context.Context, channelID string, messageIDs []string) error

	// DeleteMessage deletes a single message
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// AddReaction adds an emoji reaction to a message
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}
