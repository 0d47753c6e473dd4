package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/secure-review/internal/apperror"
	"github.com/sakif/secure-review/internal/auth"
	"github.com/sakif/secure-review/internal/kv"
	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/repository"
)

// OAuthStateTTL bounds how long a GitHub login may take.
const OAuthStateTTL = 10 * time.Minute

// GitHubOAuth is the slice of auth.GitHubProvider the service uses.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubProfile, error)
}

var _ GitHubOAuth = (*auth.GitHubProvider)(nil)

type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	github    GitHubOAuth
	states    kv.Store
	logger    *slog.Logger
}

// NewAuthService wires the auth flows. github may be nil when OAuth is not
// configured; the GitHub methods then return apperror.ErrUnavailable.
func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	github GitHubOAuth,
	states kv.Store,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		github:    github,
		states:    states,
		logger:    logger,
	}
}

type AuthResult struct {
	User  *model.User
	Token string
}

type RegisterInput struct {
	Email    string  `json:"email"     validate:"required,email,max=255"`
	Password string  `json:"password"  validate:"required"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account. A taken email is ErrConflict whether
// the pre-check or the unique constraint catches it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	_, err := s.store.Users().GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("User", "email")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: &hash,
		FullName:     in.FullName,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("User", "email")
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// LoginWithPassword returns a signed access token. Every failure mode looks
// the same to the caller.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.Burn(password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !user.HasPassword() {
		s.passwords.Burn(password)
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable", slog.String("userID", user.ID), slog.Any("error", err))
		}
		return nil, apperror.InvalidCredentials()
	}

	return s.issue(user)
}

// GitHubLoginURL returns the authorize redirect with a fresh single-use state.
func (s *AuthService) GitHubLoginURL(ctx context.Context) (string, error) {
	if s.github == nil {
		return "", errGitHubDisabled()
	}

	state := uuid.NewString()
	if err := s.states.Set(ctx, stateKey(state), []byte("1"), OAuthStateTTL); err != nil {
		return "", fmt.Errorf("service/auth: storing OAuth state: %w", err)
	}
	return s.github.AuthURL(state), nil
}

// GitHubCallback completes the OAuth flow: state check, code exchange,
// then find-or-create of the user by primary email in one transaction.
func (s *AuthService) GitHubCallback(ctx context.Context, code, state string) (*AuthResult, error) {
	if s.github == nil {
		return nil, errGitHubDisabled()
	}
	if code == "" {
		return nil, apperror.ValidationFailed("code", "Missing OAuth code")
	}
	if state == "" {
		return nil, apperror.ValidationFailed("state", "Invalid OAuth state")
	}
	if _, err := s.states.Take(ctx, stateKey(state)); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, apperror.ValidationFailed("state", "Invalid OAuth state")
		}
		return nil, fmt.Errorf("service/auth: reading OAuth state: %w", err)
	}

	profile, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	var user *model.User
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		user, err = linkGitHubUser(ctx, tx.Users(), profile)
		return err
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("User", "GitHub account")
		}
		return nil, fmt.Errorf("service/auth: resolving GitHub user: %w", err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", profile.Login),
	)
	return s.issue(user)
}

// linkGitHubUser finds the user by primary email, creating it when absent
// and attaching the GitHub id when it is not yet linked. An avatar already
// on the account is kept.
func linkGitHubUser(ctx context.Context, users repository.UserRepository, profile *auth.GitHubProfile) (*model.User, error) {
	email := normalizeEmail(profile.PrimaryEmail)

	user, err := users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user = &model.User{
			Email:     email,
			GitHubID:  &profile.ID,
			AvatarURL: nonEmpty(profile.AvatarURL),
			FullName:  nonEmpty(profile.Name),
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if user.GitHubID == nil {
		user.GitHubID = &profile.ID
		if user.AvatarURL == nil {
			user.AvatarURL = nonEmpty(profile.AvatarURL)
		}
		if err := users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// CurrentUser loads the user behind a validated token.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("Could not validate credentials")
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Could not validate credentials")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// RefreshToken issues a new access token for a user who still exists.
func (s *AuthService) RefreshToken(ctx context.Context, userID string) (*AuthResult, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword replaces the password after checking the old one. Accounts
// created through GitHub have no password to change.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := validateInput(&in); err != nil {
		return err
	}
	if len(in.NewPassword) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("new_password", fmt.Sprintf("new_password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return apperror.ValidationFailed("old_password", "Account has no password; sign in with GitHub")
	}
	if err := s.passwords.Verify(*user.PasswordHash, in.OldPassword); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable", slog.String("userID", user.ID), slog.Any("error", err))
		}
		return &apperror.AppError{
			Err:     apperror.ErrInvalidCredentials,
			Message: "Invalid old password",
			Field:   "old_password",
		}
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	user.PasswordHash = &hash
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("service/auth: saving password for user %s: %w", user.ID, err)
	}

	s.logger.Info("password changed", slog.String("userID", user.ID))
	return nil
}

// UpdateProfileInput changes only the fields that are present. An empty
// string clears the field.
type UpdateProfileInput struct {
	FullName  *string `json:"full_name"  validate:"omitempty,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,http_url,max=2048"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		user.FullName = nonEmpty(strings.TrimSpace(*in.FullName))
	}
	if in.AvatarURL != nil {
		user.AvatarURL = nonEmpty(*in.AvatarURL)
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func errGitHubDisabled() error {
	return apperror.Unavailable("GitHub OAuth is not configured")
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
