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

// ClusteringService defines the interface for clustering business logic.
type ClusteringService interface {
	ClusterPreferences(ctx context.Context, k int) (*models.ClusterPreferences, error)
}

// ClusteringHandler handles HTTP requests for preference clustering.
type ClusteringHandler struct {
	service ClusteringService
}

// NewClusteringHandler creates a new clustering handler.
func NewClusteringHandler(service ClusteringService) *ClusteringHandler {
	return &ClusteringHandler{service: service}
}

// Cluster handles POST /v1/clustering/run
// @Summary Cluster respondents by answer similarity
// @Description Runs k-means over the latest answer vectors and computes within-cluster preference lists.
// @Tags Clustering
// @Produce json
// @Param k query int false "Number of clusters (default 5)"
// @Success 200 {object} models.ClusterPreferences
// @Failure 400 {object} response.ProblemDetails
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 404 {object} response.ProblemDetails "No questionnaire responses recorded"
// @Security BearerAuth
// @Router /v1/clustering/run [post]
func (h *ClusteringHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	kStr := r.URL.Query().Get("k")
	if kStr == "" {
		kStr = "5"
	}
	k, err := strconv.Atoi(kStr)
	if err != nil || k < 2 {
		response.RespondBadRequest(w, "k must be an integer >= 2")
		return
	}

	result, err := h.service.ClusterPreferences(r.Context(), k)
	if err != nil {
		switch {
		case errors.Is(err, matcherrors.ErrValidation):
			response.RespondBadRequest(w, err.Error())
		case errors.Is(err, matcherrors.ErrNoResponses):
			response.RespondNotFound(w, "No questionnaire responses recorded yet")
		default:
			response.RespondInternalServerError(w, "An unexpected error occurred")
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
