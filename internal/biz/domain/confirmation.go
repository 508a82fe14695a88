package domain

import "time"

// ConfirmOutcome is the terminal state of a confirmation workflow
type ConfirmOutcome int

// Terminal outcomes.
const (
	Confirmed ConfirmOutcome = iota
	Cancelled
	TimedOut
)

// String returns the outcome name
func (o ConfirmOutcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

// PendingConfirmation represents an in-flight yes/no confirmation tied
// to the message that triggered a destructive action. At most one
// resolution ever takes effect; later observers must detect Resolved
// and no-op.
type PendingConfirmation struct {
	SourceMessageID string
	PromptMessageID string
	ChannelID       string
	RequesterID     string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	Resolved        bool
}

// Expired checks whether the confirmation window has closed at time now
func (p *PendingConfirmation) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
