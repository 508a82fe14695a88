package data

import (
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
	"github.com/AltioraPro/altiora-bot/internal/infra/discord"
)

// Repositories bundles all repository implementations
type Repositories struct {
	Messages  repo.MessageRepo
	Members   repo.MemberRepo
	Relay     repo.RelayRepo
	Schedules repo.ScheduleRepo
}

// NewRepositories creates all repositories backed by the Discord client,
// the optional relay, and local sqlite storage.
func NewRepositories(client *discord.Client, relayBaseURL, dbPath string) (*Repositories, error) {
	schedules, err := NewScheduleRepo(dbPath)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Messages:  NewMessageRepo(client),
		Members:   NewMemberRepo(client),
		Relay:     NewRelayRepo(relayBaseURL),
		Schedules: schedules,
	}, nil
}

// Close releases all repository resources
func (r *Repositories) Close() error {
	if r.Schedules != nil {
		return r.Schedules.Close()
	}
	return nil
}
