package handler

import (
	"net/http"

	"habit_hero/internal/app/service"
	"habit_hero/internal/common"

	"github.com/go-chi/chi/v5"
)

type VillainHandler struct {
	villainService *service.VillainService
}

func NewVillainHandler(vs *service.VillainService) *VillainHandler {
	return &VillainHandler{villainService: vs}
}

func (h *VillainHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{villainID}", h.getVillain)
}

func (h *VillainHandler) getVillain(w http.ResponseWriter, r *http.Request) {
	villain, err := h.villainService.GetVillain(r.Context(), chi.URLParam(r, "villainID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, villain)
}
