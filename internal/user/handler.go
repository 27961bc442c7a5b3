package user

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
)

type ServiceAPI interface {
	AdminCreate(ctx context.Context, actorID, orgID string, req CreateUserRequest) (*UserResponse, error)
	BulkCreate(ctx context.Context, actorID, orgID string, req BulkCreateUsersRequest) (*BulkCreateResult, error)
	Get(ctx context.Context, actorID, orgID, userID string) (*UserResponse, error)
	Update(ctx context.Context, actorID, orgID, userID string, req UpdateUserRequest) (*UserResponse, error)
	Deactivate(ctx context.Context, actorID, orgID, userID string) (*UserResponse, error)
	Reactivate(ctx context.Context, actorID, orgID, userID string) (*UserResponse, error)
	List(ctx context.Context, actorID, orgID string, q ListUsersQuery) (*ListUsersResponse, error)
	Search(ctx context.Context, actorID, orgID, query string, limit int) ([]UserResponse, error)
	OrgStats(ctx context.Context, actorID, orgID string) (*Stats, error)

	GetProfile(ctx context.Context, userID string) (*UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateUserRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	UploadAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*UserResponse, error)
	DeleteAvatar(ctx context.Context, userID string) error
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

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.AdminCreate(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) BulkCreateUsers(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateUsersRequest
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

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Get(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Update(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Deactivate(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ReactivateUser(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Reactivate(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.List(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func parseListQuery(r *http.Request) (ListUsersQuery, error) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	params, err := pagination.ParseParams(r.URL.Query().Get("cursor"), limit)
	if err != nil {
		return ListUsersQuery{}, err
	}

	q := ListUsersQuery{
		Pagination:      params,
		Search:          r.URL.Query().Get("search"),
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		q.Status = &status
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := internal.Role(raw)
		if !role.Valid() {
			return ListUsersQuery{}, internal.NewValidationError("Invalid role filter", internal.ErrCodeInvalidRole)
		}
		q.Role = &role
	}
	return q, nil
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.Service.Search(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"), r.URL.Query().Get("q"), limit)
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

func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.OrgStats(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "orgID"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

// ----------------- SELF PROFILE -----------------

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.GetProfile(r.Context(), internal.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.UpdateProfile(r.Context(), internal.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.ChangePassword(r.Context(), internal.UserIDFromContext(r.Context()), req); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Password updated"})
}

func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid multipart form", internal.ErrCodeValidationFailed))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.WriteError(w, internal.NewValidationError("Avatar file is required", internal.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	resp, err := h.Service.UploadAvatar(r.Context(), internal.UserIDFromContext(r.Context()), file, header)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteAvatar(r.Context(), internal.UserIDFromContext(r.Context())); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Avatar removed"})
}
