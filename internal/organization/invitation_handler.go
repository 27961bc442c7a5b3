package organization

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
)

type InvitationServiceAPI interface {
	Create(ctx context.Context, actorID, orgID string, req CreateInvitationRequest) (*InvitationResponse, error)
	BulkCreate(ctx context.Context, actorID, orgID string, req BulkInvitationRequest) (*BulkInvitationResult, error)
	Accept(ctx context.Context, actorID, token string) (*OrganizationResponse, error)
	Cancel(ctx context.Context, actorID, orgID, invitationID string) error
}

type InvitationHandler struct {
	*transport.BaseHandler
	Service InvitationServiceAPI
}

func NewInvitationHandler(baseHandler *transport.BaseHandler, service InvitationServiceAPI) *InvitationHandler {
	return &InvitationHandler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Create(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *InvitationHandler) BulkCreateInvitations(w http.ResponseWriter, r *http.Request) {
	var req BulkInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	result, err := h.Service.BulkCreate(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *InvitationHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Accept(r.Context(), internal.UserIDFromContext(r.Context()), req.Token)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *InvitationHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Cancel(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "invitationID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Invitation cancelled"})
}
