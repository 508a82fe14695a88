package usecase

import (
	"context"
	"fmt"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
)

// RoleSync keeps guild rank roles in line with user progression.
// Invariant: after a successful sync a member holds exactly one role
// from the rank mapping's value set, never more.
type RoleSync struct {
	members repo.MemberRepo
	relay   repo.RelayRepo // optional; nil when no relay is configured
	mapping domain.RankRoleMapping
}

// NewRoleSync creates a role sync engine with an injected mapping
func NewRoleSync(members repo.MemberRepo, relay repo.RelayRepo, mapping domain.RankRoleMapping) *RoleSync {
	return &RoleSync{members: members, relay: relay, mapping: mapping}
}

// Mapping returns the injected rank→role mapping
func (s *RoleSync) Mapping() domain.RankRoleMapping {
	return s.mapping
}

// SyncRank applies the rank's role to the member via the direct API
// path: strip every prior rank role, then add exactly the new one.
// Re-applying the same rank is a no-op beyond redundant role writes.
func (s *RoleSync) SyncRank(ctx context.Context, userID, rank string) error {
	roleID, ok := s.mapping.Resolve(rank)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRank, rank)
	}

	member, err := s.members.GetMember(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}

	rankRoles := s.mapping.RoleIDs()
	newRoles := make([]string, 0, len(member.RoleIDs)+1)
	for _, id := range member.RoleIDs {
		if !rankRoles[id] {
			newRoles = append(newRoles, id)
		}
	}
	newRoles = append(newRoles, roleID)

	if err := s.members.SetMemberRoles(ctx, userID, newRoles); err != nil {
		return fmt.Errorf("failed to set roles for %s: %w", userID, err)
	}
	return nil
}

// AutoSync tries the webhook relay first (so callers without platform
// credentials stay decoupled) and falls back to the direct path when
// the relay fails. Both paths are idempotent and retryable.
func (s *RoleSync) AutoSync(ctx context.Context, userID, rank string) error {
	if _, ok := s.mapping.Resolve(rank); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRank, rank)
	}

	if s.relay != nil {
		if err := s.relay.SyncRank(ctx, userID, rank); err == nil {
			return nil
		}
	}
	return s.SyncRank(ctx, userID, rank)
}

// SyncAll synchronizes every linked member independently. Per-member
// failures are tallied, never aborting the batch.
func (s *RoleSync) SyncAll(ctx context.Context, members []domain.LinkedMember) domain.SyncTally {
	var tally domain.SyncTally
	for _, m := range members {
		if err := s.SyncRank(ctx, m.DiscordID, m.Rank); err != nil {
			tally.RecordFailure(m.DiscordID, err)
			continue
		}
		tally.RecordSuccess()
	}
	return tally
}
