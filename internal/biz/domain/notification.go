package domain

import "time"

// Embed colors used across notifications.
const (
	ColorInfo    = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorError   = 0xED4245
)

// NotificationPayload represents a structured outbound notification,
// decoupled from the transport that eventually delivers it.
type NotificationPayload struct {
	Title       string
	Description string
	Color       int
	Fields      []PayloadField
	Footer      string
	Timestamp   time.Time
	ImageURL    string
	BannerURL   string
}

// PayloadField represents a titled field inside a notification
type PayloadField struct {
	Name   string
	Value  string
	Inline bool
}

// AddField appends a field and returns the payload for chaining
func (p *NotificationPayload) AddField(name, value string, inline bool) *NotificationPayload {
	p.Fields = append(p.Fields, PayloadField{Name: name, Value: value, Inline: inline})
	return p
}
