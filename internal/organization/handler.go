package organization

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actorID string, req CreateOrganizationRequest) (*OrganizationResponse, error)
	Get(ctx context.Context, actorID, orgID string) (*OrganizationResponse, error)
	Update(ctx context.Context, actorID, orgID string, req UpdateOrganizationRequest) (*OrganizationResponse, error)
	Delete(ctx context.Context, actorID, orgID string) error
	ListMine(ctx context.Context, actorID string) ([]OrganizationResponse, error)
	ListMembers(ctx context.Context, actorID, orgID string) ([]MemberRecord, error)
	UpdateMemberRole(ctx context.Context, actorID, orgID, targetID string, req UpdateMemberRequest) (*MemberRecord, error)
	RemoveMember(ctx context.Context, actorID, orgID, targetID string) error
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

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Create(r.Context(), internal.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	results, err := h.Service.ListMine(r.Context(), internal.UserIDFromContext(r.Context()))
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

func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Get(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Update(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Organization deleted"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.ListMembers(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	record, err := h.Service.UpdateMemberRole(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveMember(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Member removed"})
}
