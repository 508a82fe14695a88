package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

var testMapping = domain.RankRoleMapping{
	"NEW":      "role-new",
	"BEGINNER": "role-beginner",
	"ADVANCED": "role-advanced",
}

func rankRolesHeld(member *domain.Member, mapping domain.RankRoleMapping) []string {
	ids := mapping.RoleIDs()
	var held []string
	for _, id := range member.RoleIDs {
		if ids[id] {
			held = append(held, id)
		}
	}
	return held
}

func TestSyncRank_ExactlyOneRankRole(t *testing.T) {
	members := &mockMemberRepo{members: map[string]*domain.Member{
		"u1": {UserID: "u1", RoleIDs: []string{"role-everyone", "role-new", "role-beginner"}},
	}}
	s := NewRoleSync(members, nil, testMapping)

	// Any sequence of syncs must leave exactly one rank role.
	for _, rank := range []string{"ADVANCED", "NEW", "NEW", "BEGINNER"} {
		if err := s.SyncRank(context.Background(), "u1", rank); err != nil {
			t.Fatalf("SyncRank(%s): %v", rank, err)
		}
		held := rankRolesHeld(members.members["u1"], testMapping)
		if len(held) != 1 {
			t.Fatalf("after sync to %s: member holds %v rank roles, want exactly 1", rank, held)
		}
		if want, _ := testMapping.Resolve(rank); held[0] != want {
			t.Errorf("after sync to %s: holds %s, want %s", rank, held[0], want)
		}
	}

	// Non-rank roles must survive every sync.
	if !members.members["u1"].HasRole("role-everyone") {
		t.Error("unrelated role was stripped")
	}
}

func TestSyncRank_UnknownRank(t *testing.T) {
	s := NewRoleSync(&mockMemberRepo{members: map[string]*domain.Member{}}, nil, testMapping)

	err := s.SyncRank(context.Background(), "u1", "LEGEND")
	if !errors.Is(err, domain.ErrUnknownRank) {
		t.Errorf("err = %v, want ErrUnknownRank", err)
	}
}

func TestAutoSync_RelayFirst(t *testing.T) {
	members := &mockMemberRepo{members: map[string]*domain.Member{
		"u1": {UserID: "u1"},
	}}
	relay := &mockRelayRepo{}
	s := NewRoleSync(members, relay, testMapping)

	if err := s.AutoSync(context.Background(), "u1", "NEW"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if relay.calls != 1 {
		t.Errorf("relay calls = %d, want 1", relay.calls)
	}
	if members.setCalls != 0 {
		t.Error("direct path must not run when the relay succeeds")
	}
}

func TestAutoSync_FallsBackToDirect(t *testing.T) {
	members := &mockMemberRepo{members: map[string]*domain.Member{
		"u1": {UserID: "u1"},
	}}
	relay := &mockRelayRepo{err: domain.ErrRelayUnavailable}
	s := NewRoleSync(members, relay, testMapping)

	if err := s.AutoSync(context.Background(), "u1", "NEW"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if relay.calls != 1 {
		t.Errorf("relay calls = %d, want 1", relay.calls)
	}
	if members.setCalls != 1 {
		t.Errorf("direct set calls = %d, want 1 (fallback)", members.setCalls)
	}
}

func TestAutoSync_NoRelayConfigured(t *testing.T) {
	members := &mockMemberRepo{members: map[string]*domain.Member{
		"u1": {UserID: "u1"},
	}}
	s := NewRoleSync(members, nil, testMapping)

	if err := s.AutoSync(context.Background(), "u1", "NEW"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if members.setCalls != 1 {
		t.Errorf("direct set calls = %d, want 1", members.setCalls)
	}
}

func TestSyncAll_PerMemberIsolation(t *testing.T) {
	members := &mockMemberRepo{members: map[string]*domain.Member{
		"u1": {UserID: "u1"},
		"u3": {UserID: "u3"},
	}}
	s := NewRoleSync(members, nil, testMapping)

	tally := s.SyncAll(context.Background(), []domain.LinkedMember{
		{DiscordID: "u1", Rank: "NEW"},
		{DiscordID: "u2", Rank: "NEW"},    // unknown member: fails
		{DiscordID: "u3", Rank: "LEGEND"}, // unknown rank: fails
	})

	if tally.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", tally.Succeeded)
	}
	if tally.Failed != 2 {
		t.Errorf("Failed = %d, want 2", tally.Failed)
	}
	if len(tally.Errors) != 2 {
		t.Errorf("Errors = %d, want 2", len(tally.Errors))
	}
}
