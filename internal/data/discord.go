package data

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
	"github.com/AltioraPro/altiora-bot/internal/infra/discord"
)

// messageRepo implements the Message repository over the Discord REST API
type messageRepo struct {
	client *discord.Client

	mu         sync.Mutex
	dmChannels map[string]string // user ID -> DM channel ID
}

// NewMessageRepo creates a new Message repository
func NewMessageRepo(client *discord.Client) repo.MessageRepo {
	return &messageRepo{
		client:     client,
		dmChannels: make(map[string]string),
	}
}

// SendText sends a plain text message
func (r *messageRepo) SendText(ctx context.Context, channelID, text string) (string, error) {
	msg, err := r.client.SendMessage(ctx, channelID, text)
	if err != nil {
		return "", mapAPIError(err)
	}
	return msg.ID, nil
}

// SendNotification sends a structured notification as an embed
func (r *messageRepo) SendNotification(ctx context.Context, channelID string, payload *domain.NotificationPayload) (string, error) {
	msg, err := r.client.SendEmbed(ctx, channelID, toEmbed(payload))
	if err != nil {
		return "", mapAPIError(err)
	}
	return msg.ID, nil
}

// SendDirect delivers a notification to the user's DM channel, opening
// one on first use and caching it.
func (r *messageRepo) SendDirect(ctx context.Context, userID string, payload *domain.NotificationPayload) error {
	channelID, err := r.dmChannel(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := r.client.SendEmbed(ctx, channelID, toEmbed(payload)); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// dmChannel returns the cached DM channel for a user, creating it if needed
func (r *messageRepo) dmChannel(ctx context.Context, userID string) (string, error) {
	r.mu.Lock()
	channelID, ok := r.dmChannels[userID]
	r.mu.Unlock()
	if ok {
		return channelID, nil
	}

	channelID, err := r.client.CreateDM(ctx, userID)
	if err != nil {
		return "", mapAPIError(err)
	}
	r.mu.Lock()
	r.dmChannels[userID] = channelID
	r.mu.Unlock()
	return channelID, nil
}

// FetchMessages fetches the most recent messages, newest first
func (r *messageRepo) FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	raw, err := r.client.GetMessages(ctx, channelID, limit)
	if err != nil {
		return nil, mapAPIError(err)
	}
	msgs := make([]domain.Message, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, domain.Message{
			ID:         m.ID,
			ChannelID:  m.ChannelID,
			GuildID:    m.GuildID,
			Content:    m.Content,
			AuthorID:   m.Author.ID,
			AuthorName: m.Author.Username,
			AuthorBot:  m.Author.Bot,
			CreatedAt:  m.CreatedAt(),
		})
	}
	return msgs, nil
}

// BulkDelete deletes a batch of messages in one call
func (r *messageRepo) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	if err := r.client.BulkDelete(ctx, channelID, messageIDs); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// DeleteMessage deletes a single message
func (r *messageRepo) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := r.client.DeleteMessage(ctx, channelID, messageID); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// AddReaction adds an emoji reaction to a message
func (r *messageRepo) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := r.client.CreateReaction(ctx, channelID, messageID, emoji); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// memberRepo implements the Member repository over the Discord REST API.
// Guild roles are fetched per call so permission and name resolution
// stays current with the guild.
type memberRepo struct {
	client *discord.Client
}

// NewMemberRepo creates a new Member repository
func NewMemberRepo(client *discord.Client) repo.MemberRepo {
	return &memberRepo{client: client}
}

// GetMember fetches a member with role names and permissions resolved
// from the guild role list.
func (r *memberRepo) GetMember(ctx context.Context, userID string) (*domain.Member, error) {
	raw, err := r.client.GetMember(ctx, userID)
	if err != nil {
		return nil, mapAPIError(err)
	}
	roles, err := r.client.GetGuildRoles(ctx)
	if err != nil {
		return nil, mapAPIError(err)
	}

	byID := make(map[string]discord.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}

	member := &domain.Member{
		UserID:   raw.User.ID,
		Username: raw.User.Username,
		RoleIDs:  raw.Roles,
	}
	for _, roleID := range raw.Roles {
		role, ok := byID[roleID]
		if !ok {
			continue
		}
		member.RoleNames = append(member.RoleNames, role.Name)
		perms, err := strconv.ParseUint(role.Permissions, 10, 64)
		if err != nil {
			continue
		}
		member.Permissions |= perms
	}
	return member, nil
}

// SetMemberRoles replaces the member's full role set
func (r *memberRepo) SetMemberRoles(ctx context.Context, userID string, roleIDs []string) error {
	if err := r.client.ModifyMemberRoles(ctx, userID, roleIDs); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// GuildRoles fetches all roles defined in the guild
func (r *memberRepo) GuildRoles(ctx context.Context) ([]domain.Role, error) {
	raw, err := r.client.GetGuildRoles(ctx)
	if err != nil {
		return nil, mapAPIError(err)
	}
	roles := make([]domain.Role, 0, len(raw))
	for _, role := range raw {
		roles = append(roles, domain.Role{ID: role.ID, Name: role.Name})
	}
	return roles, nil
}

// toEmbed converts a notification payload to the wire embed format
func toEmbed(p *domain.NotificationPayload) discord.Embed {
	embed := discord.Embed{
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
	}
	for _, f := range p.Fields {
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if p.Footer != "" {
		embed.Footer = &discord.EmbedFooter{Text: p.Footer}
	}
	if !p.Timestamp.IsZero() {
		embed.Timestamp = p.Timestamp.UTC().Format("2006-01-02T15:04:05Z")
	}
	if p.ImageURL != "" {
		embed.Thumbnail = &discord.EmbedImage{URL: p.ImageURL}
	}
	if p.BannerURL != "" {
		embed.Image = &discord.EmbedImage{URL: p.BannerURL}
	}
	return embed
}

// mapAPIError translates platform error codes to domain errors
func mapAPIError(err error) error {
	switch {
	case discord.IsCode(err, discord.CodeMessageTooOld):
		return fmt.Errorf("%w: %v", domain.ErrTooOld, err)
	case discord.IsCode(err, discord.CodeMissingAccess), discord.IsCode(err, discord.CodeMissingPermissions):
		return fmt.Errorf("%w: %v", domain.ErrMissingAccess, err)
	default:
		return err
	}
}
