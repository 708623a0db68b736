package handler

import (
	"encoding/json"
	"net/http"

	"habit_hero/internal/api/middleware"
	"habit_hero/internal/app/service"
	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	requireUser       func(http.Handler) http.Handler
}

func NewSubmissionHandler(ss *service.SubmissionService, requireUser func(http.Handler) http.Handler) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, requireUser: requireUser}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.requireUser) // All submission routes require auth
	r.Post("/", h.submit)
}

// submit answers 200 when the code passed and 400 with the same body shape
// when it was rejected.
func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.submissionService.Submit(r.Context(), userID, req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	if !result.Accepted {
		common.RespondWithJSON(w, http.StatusBadRequest, result)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
