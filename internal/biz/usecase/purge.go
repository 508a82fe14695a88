package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
	"github.com/AltioraPro/altiora-bot/internal/biz/repo"
)

// maxFetchPage is the platform's per-request message fetch ceiling.
const maxFetchPage = 100

// Purger plans and executes bulk message deletion. Deletion is
// irreversible and best-effort: partial progress is never rolled back.
type Purger struct {
	messages repo.MessageRepo
	limiter  *rate.Limiter // paces pagination against platform rate limits
	now      func() time.Time
}

// NewPurger creates a purger with 1 page/second pacing
func NewPurger(messages repo.MessageRepo) *Purger {
	return &Purger{
		messages: messages,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		now:      time.Now,
	}
}

// PurgeAmount deletes exactly amount messages plus the triggering
// command message: amount+1 most recent messages in one batch call.
func (p *Purger) PurgeAmount(ctx context.Context, channelID string, amount int) (*domain.DeletionReport, error) {
	if amount < 1 || amount > maxFetchPage {
		return nil, fmt.Errorf("amount must be between 1 and %d, got %d", maxFetchPage, amount)
	}

	msgs, err := p.messages.FetchMessages(ctx, channelID, amount+1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if len(msgs) == 0 {
		return &domain.DeletionReport{}, nil
	}

	if err := p.deleteBatch(ctx, channelID, msgs); err != nil {
		return nil, err
	}

	report := &domain.DeletionReport{}
	report.Add(len(msgs), len(msgs), 0)
	return report, nil
}

// PurgeAll pages through the channel history and deletes everything the
// platform allows, partitioning each page by the 14-day age ceiling.
// Messages beyond the limit are counted as skipped, not failed.
func (p *Purger) PurgeAll(ctx context.Context, channelID string) (*domain.DeletionReport, error) {
	report := &domain.DeletionReport{}

	for {
		msgs, err := p.messages.FetchMessages(ctx, channelID, maxFetchPage)
		if err != nil {
			return report, fmt.Errorf("failed to fetch messages: %w", err)
		}
		if len(msgs) == 0 {
			return report, nil
		}

		eligible, tooOld := domain.PartitionByAge(msgs, p.now())
		if len(eligible) == 0 {
			report.Add(len(msgs), 0, len(tooOld))
			return report, nil
		}

		if err := p.deleteBatch(ctx, channelID, eligible); err != nil {
			return report, err
		}
		report.Add(len(msgs), len(eligible), len(tooOld))

		// Pages are newest-first, so once a page is short or carries an
		// ineligible tail, everything further back is older still.
		if len(msgs) < maxFetchPage || len(eligible) < len(msgs) {
			return report, nil
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return report, err
		}
	}
}

// deleteBatch deletes messages, using the bulk endpoint when the batch
// is large enough for it (the platform requires 2-100 per bulk call).
func (p *Purger) deleteBatch(ctx context.Context, channelID string, msgs []domain.Message) error {
	if len(msgs) == 1 {
		if err := p.messages.DeleteMessage(ctx, channelID, msgs[0].ID); err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		return nil
	}
	if err := p.messages.BulkDelete(ctx, channelID, domain.MessageIDs(msgs)); err != nil {
		return fmt.Errorf("bulk delete failed: %w", err)
	}
	return nil
}
