package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
	"github.com/AltioraPro/altiora-bot/internal/metrics"
)

// CommandPrefix marks chat messages addressed to the bot
const CommandPrefix = "!"

// CommandContext carries everything a handler needs for one invocation
type CommandContext struct {
	Message domain.Message
	Member  *domain.Member
	Args    []string

	messages repo.MessageRepo
}

// Reply sends a plain text reply to the invoking channel
func (c *CommandContext) Reply(ctx context.Context, text string) error {
	_, err := c.messages.SendText(ctx, c.Message.ChannelID, text)
	return err
}

// ReplyNotification sends an embed reply to the invoking channel
func (c *CommandContext) ReplyNotification(ctx context.Context, payload *domain.NotificationPayload) error {
	_, err := c.messages.SendNotification(ctx, c.Message.ChannelID, payload)
	return err
}

// HandlerFunc handles one parsed command invocation
type HandlerFunc func(ctx context.Context, cmd *CommandContext) error

// Permission decides whether a member may run a command. A nil member
// means the invoker could not be resolved (e.g. DM traffic).
type Permission func(member *domain.Member) bool

// RequireModerator allows members with moderation rights
func RequireModerator(member *domain.Member) bool {
	return member != nil && member.IsModerator()
}

// RequireAdministrator allows administrators only
func RequireAdministrator(member *domain.Member) bool {
	return member != nil && member.IsAdministrator()
}

// commandSpec is one registered command
type commandSpec struct {
	name    string
	usage   string
	minArgs int
	allowed Permission
	handler HandlerFunc
}

// Router parses prefixed chat messages and dispatches them to command
// handlers. Handler failures never escape the router: errors and panics
// both end in a generic failure reply plus a log entry.
type Router struct {
	messages  repo.MessageRepo
	members   repo.MemberRepo
	logger    *Logger
	collector *metrics.Collector

	commands   map[string]*commandSpec
	onDispatch func(name string)
	botID      func() string
}

// NewRouter creates a command router
func NewRouter(messages repo.MessageRepo, members repo.MemberRepo, logger *Logger, collector *metrics.Collector) *Router {
	return &Router{
		messages:  messages,
		members:   members,
		logger:    logger,
		collector: collector,
		commands:  make(map[string]*commandSpec),
	}
}

// Register adds a command. A nil permission means anyone may run it.
func (r *Router) Register(name, usage string, minArgs int, allowed Permission, handler HandlerFunc) {
	r.commands[strings.ToLower(name)] = &commandSpec{
		name:    strings.ToLower(name),
		usage:   usage,
		minArgs: minArgs,
		allowed: allowed,
		handler: handler,
	}
}

// OnDispatch registers a callback invoked for every routed command
func (r *Router) OnDispatch(fn func(name string)) {
	r.onDispatch = fn
}

// SetBotID registers a provider for the bot's own user ID so the
// router can drop its own messages. The ID is looked up per dispatch
// because the gateway learns it only after the session is ready.
func (r *Router) SetBotID(fn func() string) {
	r.botID = fn
}

// Commands lists registered command names and usages, for help output
func (r *Router) Commands() map[string]string {
	out := make(map[string]string, len(r.commands))
	for name, spec := range r.commands {
		out[name] = spec.usage
	}
	return out
}

// Dispatch routes one inbound message. Messages from bots, without the
// prefix, or naming an unknown command are ignored silently.
func (r *Router) Dispatch(ctx context.Context, msg domain.Message) {
	var botID string
	if r.botID != nil {
		botID = r.botID()
	}
	if msg.IsFromBot(botID) || !strings.HasPrefix(msg.Content, CommandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(msg.Content, CommandPrefix))
	if len(fields) == 0 {
		return
	}
	spec, ok := r.commands[strings.ToLower(fields[0])]
	if !ok {
		return
	}
	args := fields[1:]

	var member *domain.Member
	if msg.GuildID != "" {
		m, err := r.members.GetMember(ctx, msg.AuthorID)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("Failed to resolve member %s: %v", msg.AuthorID, err), nil)
		} else {
			member = m
		}
	}

	if spec.allowed != nil && !spec.allowed(member) {
		r.reply(ctx, msg.ChannelID, "You don't have permission to use this command.")
		return
	}

	if len(args) < spec.minArgs {
		r.reply(ctx, msg.ChannelID, "Usage: "+spec.usage)
		return
	}

	if r.collector != nil {
		r.collector.RecordCommand(spec.name)
	}
	if r.onDispatch != nil {
		r.onDispatch(spec.name)
	}
	r.run(ctx, spec, &CommandContext{
		Message:  msg,
		Member:   member,
		Args:     args,
		messages: r.messages,
	})
}

// run executes one handler behind a recovery boundary
func (r *Router) run(ctx context.Context, spec *commandSpec, cmd *CommandContext) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("Command %s panicked: %v", spec.name, rec), map[string]any{
				"channel": cmd.Message.ChannelID,
				"user":    cmd.Message.AuthorID,
			})
			if r.collector != nil {
				r.collector.RecordCommandError()
			}
			r.reply(ctx, cmd.Message.ChannelID, "Something went wrong running that command.")
		}
	}()

	if err := spec.handler(ctx, cmd); err != nil {
		r.logger.Error(fmt.Sprintf("Command %s failed: %v", spec.name, err), map[string]any{
			"channel": cmd.Message.ChannelID,
			"user":    cmd.Message.AuthorID,
		})
		if r.collector != nil {
			r.collector.RecordCommandError()
		}
		r.reply(ctx, cmd.Message.ChannelID, "Something went wrong running that command.")
	}
}

// reply sends a best-effort text reply
func (r *Router) reply(ctx context.Context, channelID, text string) {
	if _, err := r.messages.SendText(ctx, channelID, text); err != nil {
		r.logger.Warn(fmt.Sprintf("Failed to reply in %s: %v", channelID, err), nil)
	}
}
