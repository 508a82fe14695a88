package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// DefaultAPIBase is the Discord REST API root.
const DefaultAPIBase = "https://discord.com/api/v10"

// JSON error codes the engine classifies specially.
const (
	CodeMissingAccess      = 50001
	CodeMissingPermissions = 50013
	CodeMessageTooOld      = 50034
)

// Client is a minimal Discord REST client covering the calls the
// engine needs: messages, reactions, members, roles, DMs.
type Client struct {
	token   string
	guildID string
	baseURL string
	http    *http.Client
}

// NewClient creates a REST client scoped to one guild
func NewClient(token, guildID string) *Client {
	return &Client{
		token:   token,
		guildID: guildID,
		baseURL: DefaultAPIBase,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL overrides the API root (tests)
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// GuildID returns the guild this client is scoped to
func (c *Client) GuildID() string {
	return c.guildID
}

// --- Wire types ---

// User is a Discord user
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

// Message is a Discord channel message
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
	Author    User   `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// CreatedAt parses the message timestamp
func (m *Message) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Embed is a structured message payload
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is a titled field inside an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the footer line of an embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedImage points at an embed image
type EmbedImage struct {
	URL string `json:"url"`
}

// Member is a guild member
type Member struct {
	User  User     `json:"user"`
	Roles []string `json:"roles"`
}

// Role is a guild role
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Permissions string `json:"permissions"`
}

// Guild is a guild summary
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"approximate_member_count"`
}

// APIError is a non-2xx Discord API response
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error
func (e *APIError) Error() string {
	return fmt.Sprintf("discord api error: status=%d code=%d %s", e.Status, e.Code, e.Message)
}

// IsCode checks whether err is an APIError with the given JSON code
func IsCode(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// --- Messages ---

// SendMessage posts a plain text message
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (*Message, error) {
	if len(content) > 2000 {
		content = content[:1997] + "..."
	}
	var msg Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID),
		map[string]string{"content": content}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendEmbed posts an embed message
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed Embed) (*Message, error) {
	var msg Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID),
		map[string]any{"embeds": []Embed{embed}}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages fetches up to limit most recent messages, newest first
func (c *Client) GetMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("limit must be 1-100, got %d", limit)
	}
	var msgs []Message
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// BulkDelete deletes 2-100 messages in one call. The platform rejects
// messages older than 14 days with code 50034.
func (c *Client) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages/bulk-delete", channelID),
		map[string][]string{"messages": messageIDs}, nil)
}

// DeleteMessage deletes a single message
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, nil)
}

// CreateReaction adds the bot's reaction to a message
func (c *Client) CreateReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		channelID, messageID, url.PathEscape(emoji))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// --- Members & roles ---

// GetMember fetches a guild member
func (c *Client) GetMember(ctx context.Context, userID string) (*Member, error) {
	var member Member
	path := fmt.Sprintf("/guilds/%s/members/%s", c.guildID, userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// ModifyMemberRoles replaces a member's role set
func (c *Client) ModifyMemberRoles(ctx context.Context, userID string, roleIDs []string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s", c.guildID, userID)
	return c.do(ctx, http.MethodPatch, path, map[string][]string{"roles": roleIDs}, nil)
}

// GetGuildRoles fetches all roles in the guild
func (c *Client) GetGuildRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/roles", c.guildID), nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetGuild fetches the guild with approximate member counts
func (c *Client) GetGuild(ctx context.Context) (*Guild, error) {
	var guild Guild
	path := fmt.Sprintf("/guilds/%s?with_counts=true", c.guildID)
	if err := c.do(ctx, http.MethodGet, path, nil, &guild); err != nil {
		return nil, err
	}
	return &guild, nil
}

// --- DMs ---

// CreateDM opens (or returns the existing) DM channel with a user
func (c *Client) CreateDM(ctx context.Context, userID string) (string, error) {
	var ch struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/users/@me/channels",
		map[string]string{"recipient_id": userID}, &ch)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

// --- Transport ---

// do performs one API call with bounded retries on transport errors
// and 5xx/429 responses. Other 4xx responses fail immediately.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return retry.Do(
		func() error {
			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			req.Header.Set("Authorization", "Bot "+c.token)

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

			if resp.StatusCode >= 400 {
				apiErr := &APIError{Status: resp.StatusCode}
				_ = json.Unmarshal(respBody, apiErr)
				if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
					return apiErr
				}
				return retry.Unrecoverable(apiErr)
			}

			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
				}
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
	)
}
