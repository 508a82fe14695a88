package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
)

// relayRepo implements the webhook relay over HTTP. The relay is a
// second bot process holding elevated role permissions; this client
// only forwards sync requests to it.
type relayRepo struct {
	baseURL string
	http    *http.Client
}

// NewRelayRepo creates a relay client, or nil when no relay is configured
func NewRelayRepo(baseURL string) repo.RelayRepo {
	if baseURL == "" {
		return nil
	}
	return &relayRepo{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// SyncRank forwards a rank sync request to the relay
func (r *relayRepo) SyncRank(ctx context.Context, discordID, rank string) error {
	body, err := json.Marshal(map[string]string{
		"discordId": discordID,
		"rank":      rank,
	})
	if err != nil {
		return fmt.Errorf("failed to encode relay request: %w", err)
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				r.baseURL+"/webhook/sync-rank", bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := r.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))

			if resp.StatusCode >= 500 {
				return fmt.Errorf("relay returned status %d", resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("relay rejected request with status %d", resp.StatusCode))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRelayUnavailable, err)
	}
	return nil
}
