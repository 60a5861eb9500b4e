package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/attaboy/lottery/internal/auth"
	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/service"
	"github.com/google/uuid"
)

// TokenIssuer mints player tokens for newly created users.
type TokenIssuer interface {
	GenerateToken(realm auth.Realm, subjectID uuid.UUID, role string) (string, error)
}

// UserHandler handles user balance and ledger endpoints.
type UserHandler struct {
	users  *service.UserService
	tokens TokenIssuer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, tokens TokenIssuer) *UserHandler {
	return &UserHandler{users: users, tokens: tokens}
}

// balanceResponse is the shape of GET /users/me.
type balanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

// GetMe handles GET /users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	bal, err := h.users.Balance(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, balanceResponse{UserID: userID, Balance: bal})
}

// GetMyEntries handles GET /users/me/entries?limit=N.
func (h *UserHandler) GetMyEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.users.Entries(r.Context(), userID, limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

type createUserRequest struct {
	InitialGrant *int64 `json:"initial_grant"`
}

type createUserResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// CreateUser handles POST /admin/users. The response carries a player token
// for the new user.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION_ERROR", "message": "invalid request body"})
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.InitialGrant)
	if err != nil {
		RespondError(w, err)
		return
	}
	token, err := h.tokens.GenerateToken(auth.RealmPlayer, user.ID, "")
	if err != nil {
		RespondError(w, domain.ErrInternal("issue player token", err))
		return
	}
	RespondJSON(w, http.StatusCreated, createUserResponse{User: user, Token: token})
}

// GetUser handles GET /admin/users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// userIDFromContext extracts and validates the user UUID from auth context.
func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	return id, nil
}
