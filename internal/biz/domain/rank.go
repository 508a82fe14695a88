package domain

// RankRoleMapping maps a user-progression rank label to the guild role
// that represents it. Read-only at runtime; sourced from configuration.
type RankRoleMapping map[string]string

// Resolve returns the role ID for a rank label
func (m RankRoleMapping) Resolve(rank string) (string, bool) {
	id, ok := m[rank]
	return id, ok
}

// RoleIDs returns the full set of rank role IDs. A member may hold at
// most one of these at a time.
func (m RankRoleMapping) RoleIDs() map[string]bool {
	ids := make(map[string]bool, len(m))
	for _, id := range m {
		ids[id] = true
	}
	return ids
}

// Ranks returns the configured rank labels
func (m RankRoleMapping) Ranks() []string {
	ranks := make([]string, 0, len(m))
	for r := range m {
		ranks = append(ranks, r)
	}
	return ranks
}

// SyncTally aggregates per-member outcomes of a bulk rank sync
type SyncTally struct {
	Succeeded int
	Failed    int
	Errors    []SyncError
}

// SyncError records one member's sync failure
type SyncError struct {
	DiscordID string
	Err       string
}

// RecordSuccess counts one synchronized member
func (t *SyncTally) RecordSuccess() {
	t.Succeeded++
}

// RecordFailure counts one failed member and keeps its error
func (t *SyncTally) RecordFailure(discordID string, err error) {
	t.Failed++
	t.Errors = append(t.Errors, SyncError{DiscordID: discordID, Err: err.Error()})
}
