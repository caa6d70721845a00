package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
)

// MatchesRepository handles data access for committed matches.
type MatchesRepository struct {
	db *pgxpool.Pool
}

// NewMatchesRepository creates a new matches repository.
func NewMatchesRepository(db *pgxpool.Pool) *MatchesRepository {
	return &MatchesRepository{db: db}
}

// ExistingPairs returns the set of all committed pairs as unordered keys.
func (r *MatchesRepository) ExistingPairs(ctx context.Context) (models.PairSet, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id, match_id FROM matches`)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(models.PairSet)
	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		pairs.Add(a, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pairs: %w", err)
	}

	return pairs, nil
}

// MatchCounts returns, per user, how many match records the user appears in
// (either side counts).
func (r *MatchesRepository) MatchCounts(ctx context.Context) (map[int64]int, error) {
	query := `
		SELECT uid, COUNT(*)
		FROM (
			SELECT user_id AS uid FROM matches
			UNION ALL
			SELECT match_id FROM matches
		) sides
		GROUP BY uid
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load match counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var uid int64
		var count int
		if err := rows.Scan(&uid, &count); err != nil {
			return nil, fmt.Errorf("failed to scan match count: %w", err)
		}
		counts[uid] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match counts: %w", err)
	}

	return counts, nil
}

// IsMatched reports whether a user's derived matched status is true: the user
// appears in at least MatchedThreshold match records. Always computed from
// the match table, never from a stored flag.
func (r *MatchesRepository) IsMatched(ctx context.Context, userID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE user_id = $1 OR match_id = $1`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count matches for user: %w", err)
	}
	return count >= models.MatchedThreshold, nil
}

// CommitMatches persists one round's accepted pairs in a single transaction.
// The unique pair index rejects duplicates in either orientation, so a repeat
// pair aborts the whole round commit.
func (r *MatchesRepository) CommitMatches(ctx context.Context, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range matches {
			batch.Queue(`
				INSERT INTO matches (id, user_id, match_id, similarity_score, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, m.ID, m.UserID, m.MatchID, m.SimilarityScore, m.CreatedAt)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range matches {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("insert match: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit matches: %w", err)
	}

	return nil
}

// ListByUser returns all committed matches a user is part of, newest first.
func (r *MatchesRepository) ListByUser(ctx context.Context, userID int64) ([]models.Match, error) {
	query := `
		SELECT id, user_id, match_id, similarity_score, created_at
		FROM matches
		WHERE user_id = $1 OR match_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.UserID, &m.MatchID, &m.SimilarityScore, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}

// CountMatches returns the total number of committed match records.
func (r *MatchesRepository) CountMatches(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}
