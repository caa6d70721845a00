package service

import (
	"context"
	"fmt"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
	"github.com/ColeUyematsu/RoomMatchv2/internal/observability"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/cache"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

// MatchingResponses is the response-repository capability the matching
// service needs.
type MatchingResponses interface {
	AllLatestVectors(ctx context.Context) (map[int64]vector.Vector, error)
}

// SimilarityIndex serves the stored-vector nearest-neighbor preview
// (index-backed, not reciprocal).
type SimilarityIndex interface {
	NearestByUser(ctx context.Context, userID int64, limit int) ([]models.SimilarUser, error)
}

// bestMatchKey identifies one cached best-matches result.
type bestMatchKey struct {
	UserID int64
	TopN   int
}

// MatchingService answers per-user reciprocal best-match queries and the
// similar-users preview. Results are cached; the cache is invalidated when
// responses change or a matching run commits.
type MatchingService struct {
	responses MatchingResponses
	index     SimilarityIndex
	cache     *cache.LoaderCache[bestMatchKey, []models.BestMatch]
	metrics   observability.MatcherMetrics
	topN      int
}

// MatchingServiceParams configures a MatchingService.
type MatchingServiceParams struct {
	Responses MatchingResponses

	// Index may be nil; SimilarUsers then reports not found.
	Index SimilarityIndex

	// Metrics may be nil when metrics are disabled.
	Metrics observability.MatcherMetrics

	// TopN is the default reciprocal window for user-facing queries (default 5).
	TopN int

	// CacheSize is the max cached best-match results (default 1024).
	CacheSize int
}

// NewMatchingService creates a matching service.
func NewMatchingService(params MatchingServiceParams) (*MatchingService, error) {
	if params.TopN <= 0 {
		params.TopN = 5
	}
	if params.CacheSize <= 0 {
		params.CacheSize = 1024
	}

	c, err := cache.NewLoaderCache[bestMatchKey, []models.BestMatch](
		params.CacheSize,
		func(k bestMatchKey) string { return fmt.Sprintf("%d:%d", k.UserID, k.TopN) },
	)
	if err != nil {
		return nil, fmt.Errorf("create best-match cache: %w", err)
	}

	return &MatchingService{
		responses: params.Responses,
		index:     params.Index,
		cache:     c,
		metrics:   params.Metrics,
		topN:      params.TopN,
	}, nil
}

// BestMatches returns the ordered reciprocal candidate list for userID,
// restricted to topN entries (0 means the service default). An empty list is
// a soft "no match" result, not an error.
func (s *MatchingService) BestMatches(ctx context.Context, userID int64, topN int) ([]models.BestMatch, error) {
	if topN <= 0 {
		topN = s.topN
	}

	key := bestMatchKey{UserID: userID, TopN: topN}
	result, hit, err := s.cache.Get(ctx, key, s.loadBestMatches)
	if s.metrics != nil && err == nil {
		s.metrics.RecordCacheLookup(ctx, hit)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *MatchingService) loadBestMatches(ctx context.Context, key bestMatchKey) ([]models.BestMatch, error) {
	vectors, err := s.responses.AllLatestVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load response vectors: %w", err)
	}
	if len(vectors) == 0 {
		return nil, matcherrors.NewNoResponsesError("no questionnaire responses available")
	}
	if _, ok := vectors[key.UserID]; !ok {
		return nil, matcherrors.NewNotFoundError("responses", fmt.Sprintf("no responses for user %d", key.UserID))
	}

	matrix := NewSimilarityMatrix(vectors)

	candidates := matrix.Reciprocal(key.UserID, key.TopN, nil)
	matches := make([]models.BestMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, models.BestMatch{UserID: c.UserID, Score: c.Score})
	}

	return matches, nil
}

// SimilarUsers returns the nearest stored vectors for userID, ranked by the
// vector index. This is a preview view; reciprocity is not checked.
func (s *MatchingService) SimilarUsers(ctx context.Context, userID int64, limit int) ([]models.SimilarUser, error) {
	if s.index == nil {
		return nil, matcherrors.NewNotFoundError("similarity index", "similarity index not configured")
	}
	if limit <= 0 {
		limit = s.topN
	}

	return s.index.NearestByUser(ctx, userID, limit)
}

// InvalidateCache drops all cached best-match results. Called after response
// submissions and after matching runs commit.
func (s *MatchingService) InvalidateCache() {
	s.cache.InvalidateAll()
}
