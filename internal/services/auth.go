package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

// AuthService handles login, registration and logout.
type AuthService struct {
	api *APIService
}

func NewAuthService(api *APIService) *AuthService {
	return &AuthService{api: api}
}

// Login exchanges credentials for a token pair and stores it.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.Session, error) {
	body := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := body.Validate(); err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	return s.obtain(ctx, s.api.endpoints.Login, body)
}

// GoogleLogin exchanges a Google credential for a token pair and stores it.
func (s *AuthService) GoogleLogin(ctx context.Context, credential string) (models.Session, error) {
	if credential == "" {
		return models.Session{}, fmt.Errorf("%w: google credential", shared.ErrMissingCredentials)
	}

	return s.obtain(ctx, s.api.endpoints.Google, map[string]string{"access_token": credential})
}

func (s *AuthService) obtain(ctx context.Context, path string, body any) (models.Session, error) {
	var tokens models.TokenResponse
	req := Request{Method: http.MethodPost, Path: path, Body: body, NoAuth: true}
	if err := s.api.doJSON(ctx, req, &tokens); err != nil {
		return models.Session{}, err
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return models.Session{}, fmt.Errorf("%w: token response is missing access or refresh", shared.ErrDecode)
	}

	s.api.store.Set(tokens.Access, tokens.Refresh)
	s.api.logger.Info("signed in")

	return models.Session{AccessToken: tokens.Access, RefreshToken: tokens.Refresh}, nil
}

// Register creates an account. It does not sign in.
func (s *AuthService) Register(ctx context.Context, in models.RegisterRequest) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	var user models.User
	req := Request{Method: http.MethodPost, Path: s.api.endpoints.Register, Body: in, NoAuth: true}
	if err := s.api.doJSON(ctx, req, &user); err != nil {
		return nil, err
	}
	if user.Email == "" {
		user.Email = in.Email
	}
	if user.Username == "" {
		user.Username = in.Username
	}
	return &user, nil
}

// Logout blacklists the refresh token server side and clears the local session.
//
// The local session is cleared even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	defer s.api.store.Clear()

	refresh := s.api.store.Refresh()
	if refresh == "" {
		return nil
	}

	resp, err := s.api.Post(ctx, s.api.endpoints.Logout, map[string]string{"refresh": refresh})
	if err != nil {
		s.api.logger.Debug("logout request failed", "error", err)
		return nil
	}
	if err := CheckResponse(resp); err != nil {
		s.api.logger.Debug("logout rejected", "error", err)
	}
	return nil
}

// Me returns the signed in user.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	if !s.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}

	var user models.User
	if err := s.api.doJSON(ctx, Request{Method: http.MethodGet, Path: s.api.endpoints.Me}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticated reports whether an access token is stored.
func (s *AuthService) Authenticated() bool {
	return s.api.store.Access() != ""
}
