package department

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actorID, orgID string, req CreateDepartmentRequest) (*DepartmentResponse, error)
	Get(ctx context.Context, actorID, orgID, deptID string) (*DepartmentResponse, error)
	Update(ctx context.Context, actorID, orgID, deptID string, req UpdateDepartmentRequest) (*DepartmentResponse, error)
	Delete(ctx context.Context, actorID, orgID, deptID string) error
	ListTree(ctx context.Context, actorID, orgID string) ([]*TreeNode, error)
	OrgStats(ctx context.Context, actorID, orgID string) (*Stats, error)
	Search(ctx context.Context, actorID, orgID string, req SearchRequest) (*SearchResponse, error)
	AssignUser(ctx context.Context, actorID, orgID, userID string, departmentID *string) error
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

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
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

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Service.ListTree(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tree,
	})
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Get(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "deptID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req UpdateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Update(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "deptID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "deptID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Department deleted"})
}

func (h *Handler) SearchDepartments(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Search(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DepartmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.OrgStats(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) AssignUser(w http.ResponseWriter, r *http.Request) {
	var req AssignUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	err := h.Service.AssignUser(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), req.DepartmentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Department assignment updated"})
}
