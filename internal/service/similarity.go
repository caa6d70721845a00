package service

import (
	"math"
	"sort"

	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

// Candidate is one (peer, score) entry of a ranked candidate list.
type Candidate struct {
	UserID int64
	Score  float64
}

// SimilarityMatrix is a symmetric pairwise cosine-similarity matrix over a
// fixed, ascending user ordering. Diagonal entries are forced to -Inf after
// computation so no ranking ever selects a user as their own best match.
// For fixed input vectors the matrix is bit-for-bit reproducible.
type SimilarityMatrix struct {
	users  []int64
	index  map[int64]int
	scores [][]float64
}

// NewSimilarityMatrix computes the full matrix for the given vectors.
// Zero-magnitude vectors yield similarity 0 against everything.
func NewSimilarityMatrix(vectors map[int64]vector.Vector) *SimilarityMatrix {
	users := make([]int64, 0, len(vectors))
	for id := range vectors {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	index := make(map[int64]int, len(users))
	for i, id := range users {
		index[id] = i
	}

	n := len(users)
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		scores[i][i] = math.Inf(-1)
		for j := i + 1; j < n; j++ {
			s := vector.Cosine(vectors[users[i]], vectors[users[j]])
			scores[i][j] = s
			scores[j][i] = s
		}
	}

	return &SimilarityMatrix{users: users, index: index, scores: scores}
}

// Users returns the matrix's user ordering (ascending ids).
func (m *SimilarityMatrix) Users() []int64 {
	return m.users
}

// Len returns the number of users in the matrix.
func (m *SimilarityMatrix) Len() int {
	return len(m.users)
}

// Has reports whether the matrix covers the given user.
func (m *SimilarityMatrix) Has(userID int64) bool {
	_, ok := m.index[userID]
	return ok
}

// Score returns the similarity of a and b, or -Inf when either user is
// unknown (or a == b).
func (m *SimilarityMatrix) Score(a, b int64) float64 {
	i, ok := m.index[a]
	if !ok {
		return math.Inf(-1)
	}
	j, ok := m.index[b]
	if !ok {
		return math.Inf(-1)
	}
	return m.scores[i][j]
}

// Candidates returns the full candidate list for userID sorted by descending
// score, ties broken by ascending candidate id. The user itself is excluded
// via the -Inf diagonal. When allowed is non-nil only users it admits are
// considered; this is how round-scoped availability restrictions are applied.
func (m *SimilarityMatrix) Candidates(userID int64, allowed func(int64) bool) []Candidate {
	i, ok := m.index[userID]
	if !ok {
		return nil
	}

	cands := make([]Candidate, 0, len(m.users)-1)
	for j, id := range m.users {
		if j == i {
			continue
		}
		if allowed != nil && !allowed(id) {
			continue
		}
		cands = append(cands, Candidate{UserID: id, Score: m.scores[i][j]})
	}

	// Sort stability alone is not a contract across implementations; break
	// ties by ascending id explicitly so results are reproducible.
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].Score != cands[b].Score {
			return cands[a].Score > cands[b].Score
		}
		return cands[a].UserID < cands[b].UserID
	})

	return cands
}

// Reciprocal returns up to n candidates for userID that are mutual: candidate
// c is retained only if userID appears within c's own independently ranked
// top-n window (mutual top-n membership, not mutual top-1). An empty result
// means "no match", not an error.
func (m *SimilarityMatrix) Reciprocal(userID int64, n int, allowed func(int64) bool) []Candidate {
	if n <= 0 {
		return nil
	}

	retained := make([]Candidate, 0, n)
	for _, cand := range m.Candidates(userID, allowed) {
		if m.inTopN(cand.UserID, userID, n, allowed) {
			retained = append(retained, cand)
			if len(retained) == n {
				break
			}
		}
	}

	return retained
}

// inTopN reports whether target is inside owner's top-n window.
func (m *SimilarityMatrix) inTopN(owner, target int64, n int, allowed func(int64) bool) bool {
	cands := m.Candidates(owner, allowed)
	if len(cands) > n {
		cands = cands[:n]
	}
	for _, c := range cands {
		if c.UserID == target {
			return true
		}
	}
	return false
}
