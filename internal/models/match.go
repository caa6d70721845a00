package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchedThreshold is the number of stored match records at or above which a
// user counts as matched. It is a domain policy constant; "is matched" is
// always derived from the match count, never stored as a flag.
const MatchedThreshold = 5

// Match is a committed roommate pairing. The (UserID, MatchID) ordering is a
// storage detail; the pair is conceptually unordered and recorded at most once.
type Match struct {
	ID              uuid.UUID `json:"id"`
	UserID          int64     `json:"user_id"`
	MatchID         int64     `json:"match_id"`
	SimilarityScore float64   `json:"similarity_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// Pair returns the unordered key for this match.
func (m *Match) Pair() PairKey {
	return NewPairKey(m.UserID, m.MatchID)
}

// PairKey identifies an unordered user pair. Lo < Hi always holds, so the key
// is identical regardless of which ordering was stored.
type PairKey struct {
	Lo int64
	Hi int64
}

// NewPairKey builds the canonical key for {a, b}.
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// PairSet is an unordered-pair membership set.
type PairSet map[PairKey]struct{}

// Contains reports whether {a, b} is in the set, in either orientation.
func (s PairSet) Contains(a, b int64) bool {
	_, ok := s[NewPairKey(a, b)]
	return ok
}

// Add inserts {a, b}.
func (s PairSet) Add(a, b int64) {
	s[NewPairKey(a, b)] = struct{}{}
}

// BestMatch is one entry of a user's reciprocal candidate list.
type BestMatch struct {
	UserID int64   `json:"user_id"`
	Score  float64 `json:"score"`
}

// AcceptedPair is one pairing produced by the matching round loop, in
// acceptance order.
type AcceptedPair struct {
	User1 int64   `json:"user1"`
	User2 int64   `json:"user2"`
	Score float64 `json:"score"`
}

// SimilarUser is one entry of the vector-index similarity preview (not
// reciprocal; ranked purely by cosine distance of stored vectors).
type SimilarUser struct {
	UserID int64   `json:"user_id"`
	Score  float64 `json:"score"`
}
