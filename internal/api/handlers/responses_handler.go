package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ColeUyematsu/RoomMatchv2/internal/api/response"
	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
)

// ResponsesStore defines the interface for questionnaire response persistence.
type ResponsesStore interface {
	Submit(ctx context.Context, req *models.SubmitResponsesRequest) (*models.QuestionnaireResponse, error)
	Latest(ctx context.Context, userID int64) (*models.QuestionnaireResponse, error)
}

// ResponsesHandler handles HTTP requests for questionnaire responses.
type ResponsesHandler struct {
	store      ResponsesStore
	invalidate func()
}

// NewResponsesHandler creates a new responses handler. invalidate, when
// non-nil, is called after every successful submission so cached match
// results do not serve stale answers.
func NewResponsesHandler(store ResponsesStore, invalidate func()) *ResponsesHandler {
	return &ResponsesHandler{store: store, invalidate: invalidate}
}

// Submit handles POST /v1/responses
// @Summary Submit questionnaire answers
// @Description Stores a user's questionnaire answers. Missing or null answers are treated as neutral when matching.
// @Tags Responses
// @Accept json
// @Produce json
// @Param request body models.SubmitResponsesRequest true "Answers to submit"
// @Success 201 {object} models.QuestionnaireResponse
// @Failure 400 {object} response.ProblemDetails
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Security BearerAuth
// @Router /v1/responses [post]
func (h *ResponsesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitResponsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.store.Submit(r.Context(), &req)
	if err != nil {
		if errors.Is(err, matcherrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())
			return
		}
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	if h.invalidate != nil {
		h.invalidate()
	}

	response.RespondJSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/responses/{user_id}
// @Summary Get a user's latest questionnaire response
// @Tags Responses
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} models.QuestionnaireResponse
// @Failure 400 {object} response.ProblemDetails "Invalid user ID"
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 404 {object} response.ProblemDetails "No response recorded for user"
// @Security BearerAuth
// @Router /v1/responses/{user_id} [get]
func (h *ResponsesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.RespondBadRequest(w, "user_id must be a positive integer")
		return
	}

	resp, err := h.store.Latest(r.Context(), userID)
	if err != nil {
		if errors.Is(err, matcherrors.ErrNotFound) {
			response.RespondNotFound(w, "No questionnaire response recorded for user")
			return
		}
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}
