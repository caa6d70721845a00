package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
)

type mockMatchesService struct {
	bestFunc    func(ctx context.Context, userID int64, topN int) ([]models.BestMatch, error)
	similarFunc func(ctx context.Context, userID int64, limit int) ([]models.SimilarUser, error)
}

func (m *mockMatchesService) BestMatches(ctx context.Context, userID int64, topN int) ([]models.BestMatch, error) {
	if m.bestFunc != nil {
		return m.bestFunc(ctx, userID, topN)
	}

	return nil, nil
}

func (m *mockMatchesService) SimilarUsers(ctx context.Context, userID int64, limit int) ([]models.SimilarUser, error) {
	if m.similarFunc != nil {
		return m.similarFunc(ctx, userID, limit)
	}

	return nil, nil
}

type mockMatchesStore struct {
	listFunc    func(ctx context.Context, userID int64) ([]models.Match, error)
	matchedFunc func(ctx context.Context, userID int64) (bool, error)
}

func (m *mockMatchesStore) ListByUser(ctx context.Context, userID int64) ([]models.Match, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}

	return nil, nil
}

func (m *mockMatchesStore) IsMatched(ctx context.Context, userID int64) (bool, error) {
	if m.matchedFunc != nil {
		return m.matchedFunc(ctx, userID)
	}

	return false, nil
}

func TestMatchesHandler_BestMatches(t *testing.T) {
	t.Run("missing user_id returns 400", func(t *testing.T) {
		handler := NewMatchesHandler(&mockMatchesService{}, &mockMatchesStore{})
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/match-results", nil)
		rec := httptest.NewRecorder()

		handler.BestMatches(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		mock := &mockMatchesService{
			bestFunc: func(_ context.Context, _ int64, _ int) ([]models.BestMatch, error) {
				return nil, matcherrors.NewNotFoundError("response", "no response for user")
			},
		}
		handler := NewMatchesHandler(mock, &mockMatchesStore{})
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/match-results?user_id=9", nil)
		rec := httptest.NewRecorder()

		handler.BestMatches(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("passes top_n through and returns 200", func(t *testing.T) {
		var gotTopN int
		mock := &mockMatchesService{
			bestFunc: func(_ context.Context, userID int64, topN int) ([]models.BestMatch, error) {
				gotTopN = topN

				return []models.BestMatch{{UserID: userID + 1, Score: 0.97}}, nil
			},
		}
		handler := NewMatchesHandler(mock, &mockMatchesStore{})
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/match-results?user_id=9&top_n=3", nil)
		rec := httptest.NewRecorder()

		handler.BestMatches(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 3, gotTopN)

		var body struct {
			Data []models.BestMatch `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, int64(10), body.Data[0].UserID)
	})

	t.Run("no matches returns empty list not error", func(t *testing.T) {
		mock := &mockMatchesService{
			bestFunc: func(_ context.Context, _ int64, _ int) ([]models.BestMatch, error) {
				return []models.BestMatch{}, nil
			},
		}
		handler := NewMatchesHandler(mock, &mockMatchesStore{})
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/match-results?user_id=9", nil)
		rec := httptest.NewRecorder()

		handler.BestMatches(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMatchesHandler_Similar(t *testing.T) {
	t.Run("invalid limit returns 400", func(t *testing.T) {
		handler := NewMatchesHandler(&mockMatchesService{}, &mockMatchesStore{})
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/users/5/similar?limit=0", nil)
		req.SetPathValue("user_id", "5")
		rec := httptest.NewRecorder()

		handler.Similar(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success returns 200", func(t *testing.T) {
		mock := &mockMatchesService{
			similarFunc: func(_ context.Context, _ int64, _ int) ([]models.SimilarUser, error) {
				return []models.SimilarUser{{UserID: 6, Score: 0.9}}, nil
			},
		}
		handler := NewMatchesHandler(mock, &mockMatchesStore{})
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/users/5/similar", nil)
		req.SetPathValue("user_id", "5")
		rec := httptest.NewRecorder()

		handler.Similar(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMatchesHandler_ListCommitted(t *testing.T) {
	t.Run("reports matched flag alongside records", func(t *testing.T) {
		store := &mockMatchesStore{
			listFunc: func(_ context.Context, userID int64) ([]models.Match, error) {
				return []models.Match{{UserID: userID, MatchID: 2, SimilarityScore: 0.8}}, nil
			},
			matchedFunc: func(_ context.Context, _ int64) (bool, error) {
				return true, nil
			},
		}
		handler := NewMatchesHandler(&mockMatchesService{}, store)
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/matches/1", nil)
		req.SetPathValue("user_id", "1")
		rec := httptest.NewRecorder()

		handler.ListCommitted(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data      []models.Match `json:"data"`
			IsMatched bool           `json:"is_matched"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.IsMatched)
		require.Len(t, body.Data, 1)
	})
}
