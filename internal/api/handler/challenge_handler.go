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

type ChallengeHandler struct {
	challengeService *service.ChallengeService
	villainService   *service.VillainService
	requireUser      func(http.Handler) http.Handler
}

func NewChallengeHandler(cs *service.ChallengeService, vs *service.VillainService, requireUser func(http.Handler) http.Handler) *ChallengeHandler {
	return &ChallengeHandler{challengeService: cs, villainService: vs, requireUser: requireUser}
}

type proposeSolutionRequest struct {
	Code string `json:"code"`
}

func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.requireUser)
	r.Get("/", h.listChallenges)                  // GET /api/v1/challenges?difficulty=Easy
	r.Get("/{challengeID}", h.getChallenge)       // GET /api/v1/challenges/{id}
	r.Get("/{challengeID}/villain", h.getVillain) // a random villain matching the difficulty
	r.Post("/{challengeID}/solutions", h.proposeSolution)

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.createChallenge)
		adminRouter.Post("/{challengeID}/solutions/{solutionID}/approve", h.reviewSolution(true))
		adminRouter.Post("/{challengeID}/solutions/{solutionID}/reject", h.reviewSolution(false))
	})
}

func (h *ChallengeHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())
	difficulty := model.ChallengeDifficulty(r.URL.Query().Get("difficulty"))

	challenges, err := h.challengeService.ListChallenges(r.Context(), userRole, difficulty)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) getChallenge(w http.ResponseWriter, r *http.Request) {
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())
	challenge, err := h.challengeService.GetChallenge(r.Context(), chi.URLParam(r, "challengeID"), userRole)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) getVillain(w http.ResponseWriter, r *http.Request) {
	villain, err := h.villainService.VillainForChallenge(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, villain)
}

func (h *ChallengeHandler) createChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	challenge, err := h.challengeService.CreateChallenge(r.Context(), userID, req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, challenge) // published asynchronously by the worker
}

func (h *ChallengeHandler) proposeSolution(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req proposeSolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	solution, err := h.challengeService.ProposeSolution(r.Context(), userID, chi.URLParam(r, "challengeID"), req.Code)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, solution)
}

func (h *ChallengeHandler) reviewSolution(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		solution, err := h.challengeService.ReviewSolution(r.Context(),
			chi.URLParam(r, "challengeID"), chi.URLParam(r, "solutionID"), approve)
		if err != nil {
			common.RespondWithErr(w, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, solution)
	}
}
