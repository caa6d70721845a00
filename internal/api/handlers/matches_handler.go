package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ColeUyematsu/RoomMatchv2/internal/api/response"
	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
)

// MatchesService defines the interface for computed match results.
type MatchesService interface {
	BestMatches(ctx context.Context, userID int64, topN int) ([]models.BestMatch, error)
	SimilarUsers(ctx context.Context, userID int64, limit int) ([]models.SimilarUser, error)
}

// MatchesStore defines the interface for committed match records.
type MatchesStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Match, error)
	IsMatched(ctx context.Context, userID int64) (bool, error)
}

// MatchesHandler handles HTTP requests for match results.
type MatchesHandler struct {
	service MatchesService
	store   MatchesStore
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(service MatchesService, store MatchesStore) *MatchesHandler {
	return &MatchesHandler{service: service, store: store}
}

// BestMatches handles GET /v1/match-results
// @Summary Compute reciprocal best matches for a user
// @Description Ranks all other respondents by cosine similarity and keeps those that also rank the user in their own top N.
// @Tags Matches
// @Produce json
// @Param user_id query int true "User ID"
// @Param top_n query int false "Size of the reciprocal window (default 5)"
// @Success 200 {object} response.DataResponse
// @Failure 400 {object} response.ProblemDetails
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 404 {object} response.ProblemDetails "User has no recorded response"
// @Security BearerAuth
// @Router /v1/match-results [get]
func (h *MatchesHandler) BestMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.RespondBadRequest(w, "user_id must be a positive integer")
		return
	}

	topN := 0
	if s := r.URL.Query().Get("top_n"); s != "" {
		topN, err = strconv.Atoi(s)
		if err != nil || topN < 1 {
			response.RespondBadRequest(w, "top_n must be a positive integer")
			return
		}
	}

	matches, err := h.service.BestMatches(r.Context(), userID, topN)
	if err != nil {
		switch {
		case errors.Is(err, matcherrors.ErrNotFound):
			response.RespondNotFound(w, "User has no recorded questionnaire response")
		case errors.Is(err, matcherrors.ErrNoResponses):
			response.RespondNotFound(w, "No questionnaire responses recorded yet")
		default:
			response.RespondInternalServerError(w, "An unexpected error occurred")
		}
		return
	}

	response.RespondSuccess(w, http.StatusOK, matches)
}

// Similar handles GET /v1/users/{user_id}/similar
// @Summary List the stored respondents nearest to a user
// @Description Nearest-neighbor lookup over persisted answer embeddings.
// @Tags Matches
// @Produce json
// @Param user_id path int true "User ID"
// @Param limit query int false "Maximum results (default 5)"
// @Success 200 {object} response.DataResponse
// @Failure 400 {object} response.ProblemDetails
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 404 {object} response.ProblemDetails "User has no recorded response"
// @Security BearerAuth
// @Router /v1/users/{user_id}/similar [get]
func (h *MatchesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.RespondBadRequest(w, "user_id must be a positive integer")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			response.RespondBadRequest(w, "limit must be a positive integer")
			return
		}
	}

	similar, err := h.service.SimilarUsers(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, matcherrors.ErrNotFound) {
			response.RespondNotFound(w, "User has no recorded questionnaire response")
			return
		}
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondSuccess(w, http.StatusOK, similar)
}

// ListCommitted handles GET /v1/matches/{user_id}
// @Summary List a user's committed matches
// @Tags Matches
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} response.DataResponse
// @Failure 400 {object} response.ProblemDetails
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Security BearerAuth
// @Router /v1/matches/{user_id} [get]
func (h *MatchesHandler) ListCommitted(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.RespondBadRequest(w, "user_id must be a positive integer")
		return
	}

	matches, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	matched, err := h.store.IsMatched(r.Context(), userID)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]any{
		"data":       matches,
		"is_matched": matched,
	})
}
