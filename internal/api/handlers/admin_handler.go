package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ColeUyematsu/RoomMatchv2/internal/api/response"
	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/service"
)

// MatchingRunInserter enqueues a matching run for background execution.
type MatchingRunInserter interface {
	InsertMatchingRun(ctx context.Context, trigger string) (int64, error)
}

// MatchRunner executes a matching run synchronously.
type MatchRunner interface {
	Run(ctx context.Context) (*service.RunResult, error)
}

// AdminStats exposes the counters reported by the stats endpoint.
type AdminStats interface {
	CountRespondents(ctx context.Context) (int64, error)
	CountResponses(ctx context.Context) (int64, error)
}

// AdminMatchCounter exposes the committed-match counter.
type AdminMatchCounter interface {
	CountMatches(ctx context.Context) (int64, error)
}

// AdminHandler handles administrative HTTP requests.
type AdminHandler struct {
	inserter MatchingRunInserter // nil when the job queue is disabled
	runner   MatchRunner
	stats    AdminStats
	matches  AdminMatchCounter
}

// NewAdminHandler creates a new admin handler. When inserter is nil,
// matching runs execute synchronously within the request.
func NewAdminHandler(inserter MatchingRunInserter, runner MatchRunner, stats AdminStats, matches AdminMatchCounter) *AdminHandler {
	return &AdminHandler{inserter: inserter, runner: runner, stats: stats, matches: matches}
}

// RunMatching handles POST /v1/admin/matching/run
// @Summary Trigger a matching run
// @Description Enqueues a matching run on the job queue, or runs it inline when the queue is disabled.
// @Tags Admin
// @Produce json
// @Success 200 {object} service.RunResult "Run executed inline"
// @Success 202 {object} map[string]int64 "Run enqueued"
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 409 {object} response.ProblemDetails "Not enough unmatched respondents"
// @Security BearerAuth
// @Router /v1/admin/matching/run [post]
func (h *AdminHandler) RunMatching(w http.ResponseWriter, r *http.Request) {
	if h.inserter != nil {
		jobID, err := h.inserter.InsertMatchingRun(r.Context(), "manual")
		if err != nil {
			response.RespondInternalServerError(w, "Failed to enqueue matching run")
			return
		}
		response.RespondJSON(w, http.StatusAccepted, map[string]int64{"job_id": jobID})
		return
	}

	result, err := h.runner.Run(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, matcherrors.ErrNoResponses):
			response.RespondConflict(w, "No questionnaire responses recorded yet")
		case errors.Is(err, matcherrors.ErrInsufficientPool):
			response.RespondConflict(w, "Not enough unmatched respondents to run matching")
		default:
			response.RespondInternalServerError(w, "Matching run failed")
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Stats handles GET /v1/admin/stats
// @Summary Report engine counters
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 401 {object} response.ProblemDetails "Unauthorized - Invalid or missing API key"
// @Security BearerAuth
// @Router /v1/admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondents, err := h.stats.CountRespondents(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}
	responses, err := h.stats.CountResponses(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}
	matches, err := h.matches.CountMatches(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int64{
		"respondents": respondents,
		"responses":   responses,
		"matches":     matches,
	})
}
