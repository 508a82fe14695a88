package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/usecase"
	"github.com/AltioraPro/altiora-bot/internal/service"
)

// registerCommands wires every chat command into the router
func (b *Bot) registerCommands() {
	b.router.Register("sync", "!sync <discordId> <rank>", 2, service.RequireModerator, b.cmdSync)
	b.router.Register("syncall", "!syncall", 0, service.RequireAdministrator, b.cmdSyncAll)
	b.router.Register("roles", "!roles", 0, service.RequireModerator, b.cmdRoles)
	b.router.Register("health", "!health", 0, nil, b.cmdHealth)
	b.router.Register("stats", "!stats", 0, service.RequireModerator, b.cmdStats)
	b.router.Register("logs", "!logs [count]", 0, service.RequireModerator, b.cmdLogs)
	b.router.Register("test", "!test", 0, service.RequireModerator, b.cmdTest)
	b.router.Register("send", "!send <channelId> [imageUrl] [bannerUrl] <message>", 2, service.RequireModerator, b.cmdSend)
	b.router.Register("sendsimple", "!sendsimple [imageUrl] [bannerUrl] <message>", 1, service.RequireModerator, b.cmdSendSimple)
	b.router.Register("clear", "!clear <1-100|max>", 1, service.RequireAdministrator, b.cmdClear)
	b.router.Register("help", "!help", 0, nil, b.cmdHelp)
}

// cmdSync applies a rank to one member
func (b *Bot) cmdSync(ctx context.Context, cmd *service.CommandContext) error {
	discordID, rank := cmd.Args[0], cmd.Args[1]

	err := b.roleSync.SyncRank(ctx, discordID, rank)
	if b.collector != nil {
		b.collector.RecordRankSync(err == nil)
	}
	switch {
	case errors.Is(err, domain.ErrUnknownRank):
		return cmd.Reply(ctx, fmt.Sprintf("Rank `%s` is not configured. Use !roles to see the known ranks.", rank))
	case errors.Is(err, domain.ErrMissingAccess):
		return cmd.Reply(ctx, "I don't have permission to manage that member's roles.")
	case err != nil:
		return err
	}

	b.logger.Success(fmt.Sprintf("Synced rank %s for %s", rank, discordID), map[string]any{
		"by": cmd.Message.AuthorID,
	})
	return cmd.Reply(ctx, fmt.Sprintf("Synced rank `%s` for <@%s>.", rank, discordID))
}

// cmdSyncAll synchronizes every linked member
func (b *Bot) cmdSyncAll(ctx context.Context, cmd *service.CommandContext) error {
	linked, err := b.schedules.LinkedMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load linked members: %w", err)
	}
	if len(linked) == 0 {
		return cmd.Reply(ctx, "No linked members with a known rank.")
	}

	tally := b.roleSync.SyncAll(ctx, linked)
	b.logger.Info(fmt.Sprintf("Bulk sync finished: %d ok, %d failed", tally.Succeeded, tally.Failed), nil)
	return cmd.ReplyNotification(ctx, usecase.RenderSyncTally(tally))
}

// cmdRoles lists the configured rank mappings resolved against the guild
func (b *Bot) cmdRoles(ctx context.Context, cmd *service.CommandContext) error {
	guildRoles, err := b.members.GuildRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch guild roles: %w", err)
	}
	names := make(map[string]string, len(guildRoles))
	for _, role := range guildRoles {
		names[role.ID] = role.Name
	}

	mapping := b.roleSync.Mapping()
	ranks := mapping.Ranks()
	sort.Strings(ranks)

	payload := &domain.NotificationPayload{
		Title:     "Rank role mappings",
		Color:     domain.ColorInfo,
		Timestamp: time.Now(),
	}
	for _, rank := range ranks {
		roleID, _ := mapping.Resolve(rank)
		name, ok := names[roleID]
		if !ok {
			name = "(role missing from guild)"
		}
		payload.AddField(rank, name, true)
	}
	if len(ranks) == 0 {
		payload.Description = "No rank mappings configured."
	}
	return cmd.ReplyNotification(ctx, payload)
}

// cmdHealth reports gateway and guild status
func (b *Bot) cmdHealth(ctx context.Context, cmd *service.CommandContext) error {
	health := b.Health(ctx)

	color := domain.ColorSuccess
	if !health.BotConnected {
		color = domain.ColorError
	}
	payload := &domain.NotificationPayload{
		Title:     "Bot health",
		Color:     color,
		Timestamp: time.Now(),
	}
	payload.AddField("Status", health.Status, true).
		AddField("Gateway", fmt.Sprintf("connected=%t", health.BotConnected), true).
		AddField("Latency", fmt.Sprintf("%dms", health.Latency), true).
		AddField("Uptime", (time.Duration(health.Uptime) * time.Second).String(), true).
		AddField("Members", strconv.Itoa(health.MemberCount), true)
	return cmd.ReplyNotification(ctx, payload)
}

// cmdStats reports session counters
func (b *Bot) cmdStats(ctx context.Context, cmd *service.CommandContext) error {
	payload := &domain.NotificationPayload{
		Title:     "Session stats",
		Color:     domain.ColorInfo,
		Timestamp: time.Now(),
	}
	payload.AddField("Commands run", strconv.FormatInt(b.commandsRun.Load(), 10), true).
		AddField("Messages purged", strconv.FormatInt(b.messagesPurged.Load(), 10), true).
		AddField("Purge skipped (age)", strconv.FormatInt(b.purgeSkipped.Load(), 10), true).
		AddField("Uptime", time.Since(b.startedAt).Round(time.Second).String(), true)
	return cmd.ReplyNotification(ctx, payload)
}

// cmdLogs replays recent buffered log lines
func (b *Bot) cmdLogs(ctx context.Context, cmd *service.CommandContext) error {
	count := 10
	if len(cmd.Args) > 0 {
		n, err := strconv.Atoi(cmd.Args[0])
		if err != nil || n < 1 || n > 20 {
			return cmd.Reply(ctx, "Usage: !logs [count] with count between 1 and 20.")
		}
		count = n
	}

	lines := b.logQueue.Recent(count)
	if len(lines) == 0 {
		return cmd.Reply(ctx, "No log entries yet.")
	}
	return cmd.Reply(ctx, "```\n"+strings.Join(lines, "\n")+"\n```")
}

// cmdTest sends a test notification to the log channel
func (b *Bot) cmdTest(ctx context.Context, cmd *service.CommandContext) error {
	if b.logChannelID == "" {
		return cmd.Reply(ctx, "No log channel configured.")
	}
	payload := &domain.NotificationPayload{
		Title:       "Test notification",
		Description: "The logging pipeline is wired up correctly.",
		Color:       domain.ColorInfo,
		Footer:      fmt.Sprintf("Requested by %s", cmd.Message.AuthorName),
		Timestamp:   time.Now(),
	}
	if _, err := b.messages.SendNotification(ctx, b.logChannelID, payload); err != nil {
		return fmt.Errorf("failed to send test notification: %w", err)
	}
	return cmd.Reply(ctx, "Test notification sent to the log channel.")
}

// cmdSend sends an embed to an arbitrary channel
func (b *Bot) cmdSend(ctx context.Context, cmd *service.CommandContext) error {
	channelID := cmd.Args[0]
	payload, ok := buildSendPayload(cmd.Args[1:])
	if !ok {
		return cmd.Reply(ctx, "Usage: !send <channelId> [imageUrl] [bannerUrl] <message>")
	}
	if _, err := b.messages.SendNotification(ctx, channelID, payload); err != nil {
		if errors.Is(err, domain.ErrMissingAccess) {
			return cmd.Reply(ctx, "I can't post in that channel.")
		}
		return err
	}
	return cmd.Reply(ctx, fmt.Sprintf("Message sent to <#%s>.", channelID))
}

// cmdSendSimple sends an embed to the invoking channel
func (b *Bot) cmdSendSimple(ctx context.Context, cmd *service.CommandContext) error {
	payload, ok := buildSendPayload(cmd.Args)
	if !ok {
		return cmd.Reply(ctx, "Usage: !sendsimple [imageUrl] [bannerUrl] <message>")
	}
	return cmd.ReplyNotification(ctx, payload)
}

// buildSendPayload parses [imageUrl] [bannerUrl] <message...> arguments.
// Leading URL arguments are consumed as image then banner, as long as a
// non-URL message remains.
func buildSendPayload(args []string) (*domain.NotificationPayload, bool) {
	payload := &domain.NotificationPayload{
		Color:     domain.ColorInfo,
		Timestamp: time.Now(),
	}
	rest := args
	urls := 0
	for len(rest) > 1 && urls < 2 && isURL(rest[0]) {
		if urls == 0 {
			payload.ImageURL = rest[0]
		} else {
			payload.BannerURL = rest[0]
		}
		urls++
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, false
	}
	payload.Description = strings.Join(rest, " ")
	return payload, true
}

// isURL reports whether the argument looks like a link
func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// cmdClear deletes messages from the invoking channel
func (b *Bot) cmdClear(ctx context.Context, cmd *service.CommandContext) error {
	if strings.EqualFold(cmd.Args[0], "max") {
		return b.clearMax(ctx, cmd)
	}

	amount, err := strconv.Atoi(cmd.Args[0])
	if err != nil || amount < 1 || amount > 100 {
		return cmd.Reply(ctx, "Usage: !clear <1-100|max>")
	}

	report, err := b.purger.PurgeAmount(ctx, cmd.Message.ChannelID, amount)
	if err != nil {
		return b.replyPurgeError(ctx, cmd, err)
	}
	b.recordPurge(report)

	// Summary auto-deletes so the purged channel stays clean
	summaryID, err := b.messages.SendText(ctx, cmd.Message.ChannelID,
		fmt.Sprintf("Deleted %d messages.", report.Deleted))
	if err != nil {
		return nil
	}
	channelID := cmd.Message.ChannelID
	time.AfterFunc(5*time.Second, func() {
		if err := b.messages.DeleteMessage(context.Background(), channelID, summaryID); err != nil {
			b.logger.Warn(fmt.Sprintf("Failed to delete purge summary: %v", err), nil)
		}
	})
	return nil
}

// clearMax runs the confirmation-gated full purge
func (b *Bot) clearMax(ctx context.Context, cmd *service.CommandContext) error {
	outcome, err := b.confirmations.Request(ctx, usecase.ConfirmRequest{
		ChannelID:       cmd.Message.ChannelID,
		SourceMessageID: cmd.Message.ID,
		RequesterID:     cmd.Message.AuthorID,
		Prompt:          "This will delete **every** recent message in this channel (up to the 14-day limit). React ✅ to confirm or ❌ to cancel.",
	})
	if err != nil {
		return err
	}
	if b.collector != nil {
		b.collector.RecordConfirmation(outcome.String())
	}

	switch outcome {
	case domain.Cancelled:
		return cmd.Reply(ctx, "Deletion cancelled.")
	case domain.TimedOut:
		return cmd.Reply(ctx, "Confirmation timed out, nothing was deleted.")
	}

	report, err := b.purger.PurgeAll(ctx, cmd.Message.ChannelID)
	if err != nil {
		return b.replyPurgeError(ctx, cmd, err)
	}
	b.recordPurge(report)
	b.logger.Info(fmt.Sprintf("Channel purge: %d deleted, %d skipped", report.Deleted, report.SkippedTooOld), map[string]any{
		"channel": cmd.Message.ChannelID,
		"by":      cmd.Message.AuthorID,
	})
	return cmd.ReplyNotification(ctx, usecase.RenderDeletionReport(report))
}

// replyPurgeError maps purge failures to user-facing messages
func (b *Bot) replyPurgeError(ctx context.Context, cmd *service.CommandContext, err error) error {
	switch {
	case errors.Is(err, domain.ErrTooOld):
		return cmd.Reply(ctx, "Those messages are older than 14 days and cannot be bulk deleted.")
	case errors.Is(err, domain.ErrMissingAccess):
		return cmd.Reply(ctx, "I don't have permission to delete messages here.")
	default:
		return err
	}
}

// recordPurge folds a deletion report into the session counters
func (b *Bot) recordPurge(report *domain.DeletionReport) {
	b.messagesPurged.Add(int64(report.Deleted))
	b.purgeSkipped.Add(int64(report.SkippedTooOld))
	if b.collector != nil {
		b.collector.RecordPurge(report.Deleted, report.SkippedTooOld)
	}
}

// cmdHelp lists the registered commands
func (b *Bot) cmdHelp(ctx context.Context, cmd *service.CommandContext) error {
	usages := b.router.Commands()
	names := make([]string, 0, len(usages))
	for name := range usages {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "`%s`\n", usages[name])
	}
	return cmd.ReplyNotification(ctx, &domain.NotificationPayload{
		Title:       "Commands",
		Description: sb.String(),
		Color:       domain.ColorInfo,
		Timestamp:   time.Now(),
	})
}
