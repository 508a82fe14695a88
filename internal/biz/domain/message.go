package domain

import "time"

// Message represents a channel message entity
type Message struct {
	ID         string
	ChannelID  string
	GuildID    string
	Content    string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	CreatedAt  time.Time
}

// IsFromBot checks if the message was sent by the given bot user
func (m *Message) IsFromBot(botID string) bool {
	return m.AuthorBot || m.AuthorID == botID
}

// Age returns how old the message is relative to now
func (m *Message) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// OlderThan checks if the message exceeds the given age at time now
func (m *Message) OlderThan(now time.Time, limit time.Duration) bool {
	return m.Age(now) > limit
}

// ReactionEvent represents an emoji reaction added to a message
type ReactionEvent struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// Matches checks whether the event targets the given message, comes
// from the given user, and carries one of the accepted emoji glyphs.
func (e *ReactionEvent) Matches(messageID, userID string, emojis ...string) bool {
	if e.MessageID != messageID || e.UserID != userID {
		return false
	}
	for _, g := range emojis {
		if e.Emoji == g {
			return true
		}
	}
	return false
}
