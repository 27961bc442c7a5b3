package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/transport"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type ServiceAPI interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*user.UserResponse, error)
	Activate(ctx context.Context, req ActivateRequest) (*AuthResponse, error)
	ResendActivation(ctx context.Context, email string) error
	LoadActiveUser(ctx context.Context, tokenString string) (*user.User, error)
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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Register(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// LoginForm is the OAuth2 password-flow variant of Login, consuming
// form-encoded username/password.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid form body", internal.ErrCodeValidationFailed))
		return
	}

	req := LoginRequest{
		Email:    r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		h.WriteError(w, internal.NewValidationError("Refresh token is required", internal.ErrCodeValidationFailed))
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.CurrentUser(r.Context(), internal.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Logout is client-side: there is no server token state to clear.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out"})
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.Activate(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req ResendActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.WriteError(w, internal.NewValidationError("Email is required", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.ResendActivation(r.Context(), req.Email); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "If the account is pending activation, a new email has been sent",
	})
}

// AuthMiddleware validates the bearer token and stores the user id in
// the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		u, err := h.Service.LoadActiveUser(r.Context(), token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
