package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/secure-review/internal/apperror"
	"github.com/sakif/secure-review/internal/auth"
	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/service"
)

// AuthService is what AuthHandler needs from service.AuthService.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	LoginWithPassword(ctx context.Context, email, password string) (*service.AuthResult, error)
	GitHubLoginURL(ctx context.Context) (string, error)
	GitHubCallback(ctx context.Context, code, state string) (*service.AuthResult, error)
	CurrentUser(ctx context.Context, id string) (*model.User, error)
	RefreshToken(ctx context.Context, userID string) (*service.AuthResult, error)
	ChangePassword(ctx context.Context, userID string, in service.ChangePasswordInput) error
	UpdateProfile(ctx context.Context, userID string, in service.UpdateProfileInput) (*model.User, error)
}

var _ AuthService = (*service.AuthService)(nil)

type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type callbackUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type callbackResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        callbackUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

const tokenTypeBearer = "bearer"

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogin accepts a JSON body or the OAuth2 password form, where the
// email travels as "username".
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, h.logger, apperror.ValidationFailed("", "Invalid form body"))
			return
		}
		in.Email = r.PostForm.Get("username")
		in.Password = r.PostForm.Get("password")
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if in.Email == "" || in.Password == "" {
		writeError(w, h.logger, apperror.ValidationFailed("", "email and password are required"))
		return
	}

	res, err := h.auth.LoginWithPassword(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: res.Token, TokenType: tokenTypeBearer})
}

func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.auth.GitHubLoginURL(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeError(w, h.logger, apperror.OAuthExchange(q.Get("error_description")))
		return
	}

	res, err := h.auth.GitHubCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user authenticated via GitHub", slog.String("userID", res.User.ID))

	writeJSON(w, http.StatusOK, callbackResponse{
		AccessToken: res.Token,
		TokenType:   tokenTypeBearer,
		User:        callbackUser{ID: res.User.ID, Email: res.User.Email},
	})
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleRefresh swaps a still-valid token for one with a fresh expiry.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	res, err := h.auth.RefreshToken(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: res.Token, TokenType: tokenTypeBearer})
}

func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in service.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.auth.ChangePassword(r.Context(), userID, in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.auth.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
