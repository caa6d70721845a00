package workers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/ColeUyematsu/RoomMatchv2/internal/service"
)

// RiverMatchingInserter enqueues matching runs through the River client.
// Uniqueness is enforced by MatchingRunArgs.InsertOpts, so re-triggering
// while a run is queued or executing returns the existing job.
type RiverMatchingInserter struct {
	client *river.Client[pgx.Tx]
}

// NewRiverMatchingInserter creates a new River-based matching run inserter.
func NewRiverMatchingInserter(client *river.Client[pgx.Tx]) *RiverMatchingInserter {
	return &RiverMatchingInserter{client: client}
}

// InsertMatchingRun enqueues a matching run and returns the job ID.
func (r *RiverMatchingInserter) InsertMatchingRun(ctx context.Context, trigger string) (int64, error) {
	res, err := r.client.Insert(ctx, service.MatchingRunArgs{Trigger: trigger}, nil)
	if err != nil {
		return 0, err
	}

	return res.Job.ID, nil
}
