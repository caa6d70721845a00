package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
	"github.com/ColeUyematsu/RoomMatchv2/internal/observability"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

// PairingStrategy selects how a round picks its pairs.
type PairingStrategy string

const (
	// StrategyReciprocal walks each user's reciprocal top-N list and greedily
	// accepts the first available mutual candidate. Production default.
	StrategyReciprocal PairingStrategy = "reciprocal"

	// StrategyAssignment pairs the round's pool with a globally optimal
	// minimum-cost assignment. Alternative strategy; kept validated against
	// reciprocal results on small pools.
	StrategyAssignment PairingStrategy = "assignment"
)

// OrchestratorResponses is the read view of questionnaire responses the round
// loop needs.
type OrchestratorResponses interface {
	AllLatestVectors(ctx context.Context) (map[int64]vector.Vector, error)
}

// OrchestratorMatches is the match-repository capability for the round loop.
// CommitMatches must be atomic per call (one round = one transaction).
type OrchestratorMatches interface {
	ExistingPairs(ctx context.Context) (models.PairSet, error)
	MatchCounts(ctx context.Context) (map[int64]int, error)
	CommitMatches(ctx context.Context, matches []models.Match) error
}

// RunResult is the outcome of a full matching round loop.
type RunResult struct {
	// Pairs is the ordered sequence of pairs accepted across all rounds.
	Pairs []models.AcceptedPair `json:"pairs"`

	// Rounds is how many rounds ran (committed or empty).
	Rounds int `json:"rounds"`

	// CapReached is true when the loop stopped at the round cap instead of
	// converging; partial results already committed remain valid.
	CapReached bool `json:"cap_reached"`
}

// MatchOrchestrator drives multi-round pairing over the pool of unmatched
// users. Rounds are inherently sequential: each round's exclusion set depends
// on the previous round's commits. Iteration order within a round is
// ascending user id; tests rely on that.
type MatchOrchestrator struct {
	responses OrchestratorResponses
	matches   OrchestratorMatches
	metrics   observability.MatcherMetrics

	topN      int
	maxRounds int
	strategy  PairingStrategy
}

// OrchestratorParams configures a MatchOrchestrator.
type OrchestratorParams struct {
	Responses OrchestratorResponses
	Matches   OrchestratorMatches

	// Metrics may be nil when metrics are disabled.
	Metrics observability.MatcherMetrics

	// TopN is the reciprocal window for round candidate lists (default 10).
	TopN int

	// MaxRounds caps the loop against pathological non-convergence (default 10).
	MaxRounds int

	// Strategy defaults to StrategyReciprocal.
	Strategy PairingStrategy
}

// NewMatchOrchestrator creates a match orchestrator.
func NewMatchOrchestrator(params OrchestratorParams) *MatchOrchestrator {
	if params.TopN <= 0 {
		params.TopN = 10
	}
	if params.MaxRounds <= 0 {
		params.MaxRounds = 10
	}
	if params.Strategy == "" {
		params.Strategy = StrategyReciprocal
	}
	return &MatchOrchestrator{
		responses: params.Responses,
		matches:   params.Matches,
		metrics:   params.Metrics,
		topN:      params.TopN,
		maxRounds: params.MaxRounds,
		strategy:  params.Strategy,
	}
}

// Run executes the round loop until convergence or the round cap. Each round
// commits atomically; a later round's failure never rolls back earlier rounds
// (their pairs are reported alongside the error).
func (o *MatchOrchestrator) Run(ctx context.Context) (*RunResult, error) {
	vectors, err := o.responses.AllLatestVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load response vectors: %w", err)
	}
	if len(vectors) == 0 {
		return nil, matcherrors.NewNoResponsesError("no questionnaire responses to match")
	}

	counts, err := o.matches.MatchCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load match counts: %w", err)
	}

	exclusion, err := o.matches.ExistingPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing pairs: %w", err)
	}

	// Pool: users with a response vector whose derived is-matched status is
	// false (fewer than MatchedThreshold committed matches).
	pool := make(map[int64]bool, len(vectors))
	for id := range vectors {
		if counts[id] < models.MatchedThreshold {
			pool[id] = true
		}
	}
	if len(pool) < 2 {
		return nil, matcherrors.NewInsufficientPoolError(len(pool))
	}

	matrix := NewSimilarityMatrix(vectors)
	result := &RunResult{}

	slog.Info("matching run started",
		"pool", len(pool), "strategy", string(o.strategy),
		"top_n", o.topN, "max_rounds", o.maxRounds)

	for round := 1; round <= o.maxRounds; round++ {
		// ROUND_START: converged when fewer than 2 users remain.
		if len(pool) < 2 {
			break
		}
		result.Rounds = round

		// SELECTING
		accepted := o.selectPairs(matrix, pool, exclusion)
		if len(accepted) == 0 {
			slog.Info("matching round accepted no pairs", "round", round)
			break
		}

		// COMMITTING: all-or-nothing for this round.
		records := make([]models.Match, 0, len(accepted))
		now := time.Now().UTC()
		for _, p := range accepted {
			records = append(records, models.Match{
				ID:              uuid.New(),
				UserID:          p.User1,
				MatchID:         p.User2,
				SimilarityScore: p.Score,
				CreatedAt:       now,
			})
		}
		if err := o.matches.CommitMatches(ctx, records); err != nil {
			return result, fmt.Errorf("commit round %d: %w", round, err)
		}

		for _, p := range accepted {
			delete(pool, p.User1)
			delete(pool, p.User2)
		}
		result.Pairs = append(result.Pairs, accepted...)

		if o.metrics != nil {
			o.metrics.RecordPairsCommitted(ctx, len(accepted))
		}
		slog.Info("matching round committed", "round", round, "pairs", len(accepted))

		if round == o.maxRounds && len(pool) >= 2 {
			// Stopped by the safety bound, not by reaching a fixed point.
			result.CapReached = true
		}
	}

	slog.Info("matching run finished",
		"rounds", result.Rounds, "pairs", len(result.Pairs), "cap_reached", result.CapReached)

	return result, nil
}

// selectPairs runs one round's selection over the given pool snapshot.
// The exclusion set is updated live as pairs are accepted.
func (o *MatchOrchestrator) selectPairs(matrix *SimilarityMatrix, pool map[int64]bool, exclusion models.PairSet) []models.AcceptedPair {
	order := make([]int64, 0, len(pool))
	for id := range pool {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	available := make(map[int64]bool, len(pool))
	for id := range pool {
		available[id] = true
	}

	if o.strategy == StrategyAssignment {
		return o.selectByAssignment(matrix, order, available, exclusion)
	}

	var accepted []models.AcceptedPair
	allowed := func(id int64) bool { return available[id] }

	for _, u := range order {
		if !available[u] {
			continue
		}

		// A transiently empty candidate list is not an error; the user is
		// simply skipped for this round.
		for _, cand := range matrix.Reciprocal(u, o.topN, allowed) {
			if !available[cand.UserID] || cand.UserID == u {
				continue
			}
			if exclusion.Contains(u, cand.UserID) {
				continue
			}

			available[u] = false
			available[cand.UserID] = false
			exclusion.Add(u, cand.UserID)
			accepted = append(accepted, models.AcceptedPair{
				User1: u,
				User2: cand.UserID,
				Score: cand.Score,
			})
			break
		}
	}

	return accepted
}

// selectByAssignment pairs the round's available users via the minimum-cost
// assignment solver instead of reciprocal greedy acceptance.
func (o *MatchOrchestrator) selectByAssignment(matrix *SimilarityMatrix, ids []int64, available map[int64]bool, exclusion models.PairSet) []models.AcceptedPair {
	n := len(ids)
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			if i == j || exclusion.Contains(ids[i], ids[j]) {
				cost[i][j] = math.Inf(1)
				continue
			}
			cost[i][j] = -matrix.Score(ids[i], ids[j])
		}
	}

	var accepted []models.AcceptedPair
	for _, a := range SolveAssignment(cost) {
		u, v := ids[a.Row], ids[a.Col]
		if u == v || !available[u] || !available[v] {
			continue
		}
		if exclusion.Contains(u, v) {
			continue
		}

		available[u] = false
		available[v] = false
		exclusion.Add(u, v)
		accepted = append(accepted, models.AcceptedPair{
			User1: min(u, v),
			User2: max(u, v),
			Score: matrix.Score(u, v),
		})
	}

	return accepted
}
