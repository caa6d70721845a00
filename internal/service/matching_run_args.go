package service

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// MatchingRunArgs enqueues a full matching round loop. Trigger records what
// started the run ("manual", "scheduled") for logs and metrics.
type MatchingRunArgs struct {
	Trigger string `json:"trigger"`
}

// Kind identifies the job type in the queue.
func (MatchingRunArgs) Kind() string { return "matching_run" }

// InsertOpts keeps at most one matching run pending or running at a time;
// rounds mutate the shared exclusion state, so runs must not overlap.
func (MatchingRunArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByState: []rivertype.JobState{
				rivertype.JobStatePending,
				rivertype.JobStateScheduled,
				rivertype.JobStateAvailable,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
			},
		},
	}
}
