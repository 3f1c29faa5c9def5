package http

import (
	"context"
	"net/http"

	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/service"
)

type AccountService interface {
	IdentityResolver
	SignUp(ctx context.Context, in service.SignUpInput) (*domain.User, error)
	SignIn(ctx context.Context, in service.SignInInput) (*service.SignInResult, error)
}

type AuthHandler struct {
	accounts AccountService
	log      *logger.Logger
}

func NewAuthHandler(accounts AccountService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	user, err := h.accounts.SignUp(r.Context(), req)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgSignedUp, user)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	result, err := h.accounts.SignIn(r.Context(), req)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgSignedIn, result)
}
