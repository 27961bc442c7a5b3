package team

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actorID, deptID string, req CreateTeamRequest) (*TeamResponse, error)
	ListByDepartment(ctx context.Context, actorID, deptID string) ([]TeamResponse, error)
	Get(ctx context.Context, actorID, teamID string) (*TeamDetailResponse, error)
	Update(ctx context.Context, actorID, teamID string, req UpdateTeamRequest) (*TeamResponse, error)
	Delete(ctx context.Context, actorID, teamID string) error
	AddMember(ctx context.Context, actorID, teamID string, req AddMemberRequest) error
	RemoveMember(ctx context.Context, actorID, teamID, userID string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Create(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "deptID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	results, err := h.Service.ListByDepartment(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "deptID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    results,
		"count":   len(results),
	})
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Get(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "teamID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req UpdateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Update(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "teamID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "teamID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Team deleted"})
}

func (h *Handler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.AddMember(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "teamID"), req); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "Team member added"})
}

func (h *Handler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveMember(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "teamID"), chi.URLParam(r, "userID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Team member removed"})
}
