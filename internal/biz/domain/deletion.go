package domain

import "time"

// BulkDeleteMaxAge is the platform ceiling on bulk deletion: messages
// older than 14 days cannot be bulk-deleted.
const BulkDeleteMaxAge = 14 * 24 * time.Hour

// DeletionReport accumulates the result of a bulk deletion run across
// pagination iterations.
type DeletionReport struct {
	Fetched       int
	Deleted       int
	SkippedTooOld int
}

// Add merges one iteration's batch counts into the report
func (r *DeletionReport) Add(fetched, deleted, skipped int) {
	r.Fetched += fetched
	r.Deleted += deleted
	r.SkippedTooOld += skipped
}

// PartitionByAge splits messages into those young enough for bulk
// deletion and those beyond the platform age limit.
func PartitionByAge(messages []Message, now time.Time) (eligible, tooOld []Message) {
	for _, m := range messages {
		if m.OlderThan(now, BulkDeleteMaxAge) {
			tooOld = append(tooOld, m)
		} else {
			eligible = append(eligible, m)
		}
	}
	return eligible, tooOld
}

// MessageIDs extracts the IDs of the given messages
func MessageIDs(messages []Message) []string {
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	return ids
}
