package repo

import (
	"context"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// MemberRepo is the guild membership repository interface
type MemberRepo interface {
	// GetMember fetches a member with resolved role names and permissions
	GetMember(ctx context.Context, userID string) (*domain.Member, error)

	// SetMemberRoles replaces the member's full role set
	SetMemberRoles(ctx context.Context, userID string, roleIDs []string) error

	// GuildRoles fetches all roles defined in the guild
	GuildRoles(ctx context.Context) ([]domain.Role, error)
}

// RelayRepo is the webhook relay interface: a secondary bot process
// that performs a privileged rank sync on behalf of this one.
type RelayRepo interface {
	// SyncRank asks the relay to apply the rank to the member.
	// Returns domain.ErrRelayUnavailable when the relay cannot be
	// reached after bounded retries.
	SyncRank(ctx context.Context, discordID, rank string) error
}
