package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

type mockOrchResponses struct {
	vectorsFunc func(ctx context.Context) (map[int64]vector.Vector, error)
}

func (m *mockOrchResponses) AllLatestVectors(ctx context.Context) (map[int64]vector.Vector, error) {
	if m.vectorsFunc != nil {
		return m.vectorsFunc(ctx)
	}

	return nil, nil
}

type mockOrchMatches struct {
	pairsFunc  func(ctx context.Context) (models.PairSet, error)
	countsFunc func(ctx context.Context) (map[int64]int, error)
	commitFunc func(ctx context.Context, matches []models.Match) error

	committed [][]models.Match
}

func (m *mockOrchMatches) ExistingPairs(ctx context.Context) (models.PairSet, error) {
	if m.pairsFunc != nil {
		return m.pairsFunc(ctx)
	}

	return models.PairSet{}, nil
}

func (m *mockOrchMatches) MatchCounts(ctx context.Context) (map[int64]int, error) {
	if m.countsFunc != nil {
		return m.countsFunc(ctx)
	}

	return map[int64]int{}, nil
}

func (m *mockOrchMatches) CommitMatches(ctx context.Context, matches []models.Match) error {
	m.committed = append(m.committed, matches)
	if m.commitFunc != nil {
		return m.commitFunc(ctx, matches)
	}

	return nil
}

// alternating returns a vector flipping between lo and hi, far in cosine
// terms from any uniform vector.
func alternating(lo, hi float32) vector.Vector {
	var out vector.Vector
	for i := range out {
		if i%2 == 0 {
			out[i] = lo
		} else {
			out[i] = hi
		}
	}
	return out
}

// twoCliquePool is four users forming two unambiguous mutual pairs:
// {1, 2} share one answer profile, {3, 4} share another.
func twoCliquePool() map[int64]vector.Vector {
	return map[int64]vector.Vector{
		1: uniform(5),
		2: uniform(5),
		3: alternating(1, 7),
		4: alternating(1, 7),
	}
}

func TestMatchOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("two clear pairs commit in a single round", func(t *testing.T) {
		matches := &mockOrchMatches{}
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					return twoCliquePool(), nil
				},
			},
			Matches: matches,
		})

		result, err := o.Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Rounds)
		assert.False(t, result.CapReached)
		require.Len(t, result.Pairs, 2)
		assert.Equal(t, int64(1), result.Pairs[0].User1)
		assert.Equal(t, int64(2), result.Pairs[0].User2)
		assert.Equal(t, int64(3), result.Pairs[1].User1)
		assert.Equal(t, int64(4), result.Pairs[1].User2)
		assert.InDelta(t, 1.0, result.Pairs[0].Score, 1e-9)

		// One commit call for the round, two records.
		require.Len(t, matches.committed, 1)
		assert.Len(t, matches.committed[0], 2)
	})

	t.Run("no users appear in more than one pair", func(t *testing.T) {
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					vecs := twoCliquePool()
					vecs[5] = skewed(6, 5)
					vecs[6] = skewed(4, 5)
					return vecs, nil
				},
			},
			Matches: &mockOrchMatches{},
		})

		result, err := o.Run(ctx)
		require.NoError(t, err)

		seen := map[int64]bool{}
		for _, p := range result.Pairs {
			assert.NotEqual(t, p.User1, p.User2)
			assert.False(t, seen[p.User1], "user %d paired twice", p.User1)
			assert.False(t, seen[p.User2], "user %d paired twice", p.User2)
			seen[p.User1] = true
			seen[p.User2] = true
		}
	})

	t.Run("no responses", func(t *testing.T) {
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{},
			Matches:   &mockOrchMatches{},
		})

		_, err := o.Run(ctx)
		assert.ErrorIs(t, err, matcherrors.ErrNoResponses)
	})

	t.Run("single respondent", func(t *testing.T) {
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					return map[int64]vector.Vector{1: uniform(5)}, nil
				},
			},
			Matches: &mockOrchMatches{},
		})

		_, err := o.Run(ctx)
		assert.ErrorIs(t, err, matcherrors.ErrInsufficientPool)
	})

	t.Run("fully matched users leave the pool", func(t *testing.T) {
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					return twoCliquePool(), nil
				},
			},
			Matches: &mockOrchMatches{
				countsFunc: func(context.Context) (map[int64]int, error) {
					return map[int64]int{
						1: models.MatchedThreshold,
						2: models.MatchedThreshold,
						3: models.MatchedThreshold,
					}, nil
				},
			},
		})

		_, err := o.Run(ctx)
		assert.ErrorIs(t, err, matcherrors.ErrInsufficientPool)
	})

	t.Run("previously matched pairs are never re-accepted", func(t *testing.T) {
		existing := models.PairSet{}
		existing.Add(1, 2)

		matches := &mockOrchMatches{
			pairsFunc: func(context.Context) (models.PairSet, error) {
				return existing, nil
			},
		}
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					// All four users share one profile, so every pair ties and
					// only the exclusion set decides who cannot re-pair.
					return map[int64]vector.Vector{
						1: uniform(5), 2: uniform(5), 3: uniform(5), 4: uniform(5),
					}, nil
				},
			},
			Matches: matches,
		})

		result, err := o.Run(ctx)
		require.NoError(t, err)

		for _, p := range result.Pairs {
			assert.False(t, p.User1 == 1 && p.User2 == 2, "excluded pair re-accepted")
		}
		require.Len(t, result.Pairs, 2)
		assert.Equal(t, int64(1), result.Pairs[0].User1)
		assert.Equal(t, int64(3), result.Pairs[0].User2)
	})

	t.Run("stopping at the round cap is reported", func(t *testing.T) {
		// Users 3 and 4 only want each other but are already matched, so they
		// stay in the pool while round 1 commits (1, 2). With MaxRounds of 1
		// the loop stops with eligible users remaining.
		existing := models.PairSet{}
		existing.Add(3, 4)

		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					return twoCliquePool(), nil
				},
			},
			Matches: &mockOrchMatches{
				pairsFunc: func(context.Context) (models.PairSet, error) {
					return existing, nil
				},
			},
			MaxRounds: 1,
		})

		result, err := o.Run(ctx)
		require.NoError(t, err)

		require.Len(t, result.Pairs, 1)
		assert.Equal(t, 1, result.Rounds)
		assert.True(t, result.CapReached)
	})

	t.Run("commit failure surfaces with partial result", func(t *testing.T) {
		commitErr := errors.New("deadlock detected")
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					return twoCliquePool(), nil
				},
			},
			Matches: &mockOrchMatches{
				commitFunc: func(context.Context, []models.Match) error {
					return commitErr
				},
			},
		})

		result, err := o.Run(ctx)
		require.ErrorIs(t, err, commitErr)
		require.NotNil(t, result)
		assert.Equal(t, 1, result.Rounds)
		assert.Empty(t, result.Pairs)
	})

	t.Run("terminates within the round cap", func(t *testing.T) {
		o := NewMatchOrchestrator(OrchestratorParams{
			Responses: &mockOrchResponses{
				vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
					vecs := map[int64]vector.Vector{}
					for id := int64(1); id <= 9; id++ {
						vecs[id] = skewed(float32(1+id%7), 4)
					}
					return vecs, nil
				},
			},
			Matches:   &mockOrchMatches{},
			MaxRounds: 10,
		})

		result, err := o.Run(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, result.Rounds, 10)
	})
}

func TestMatchOrchestrator_AssignmentStrategy(t *testing.T) {
	o := NewMatchOrchestrator(OrchestratorParams{
		Responses: &mockOrchResponses{
			vectorsFunc: func(context.Context) (map[int64]vector.Vector, error) {
				return twoCliquePool(), nil
			},
		},
		Matches:  &mockOrchMatches{},
		Strategy: StrategyAssignment,
	})

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	// The globally optimal pairing agrees with reciprocal greedy here.
	require.Len(t, result.Pairs, 2)
	seen := models.PairSet{}
	for _, p := range result.Pairs {
		seen.Add(p.User1, p.User2)
	}
	assert.True(t, seen.Contains(1, 2))
	assert.True(t, seen.Contains(3, 4))
}
