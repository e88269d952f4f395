package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/server"
	"github.com/SubhabrataBarik/TaskMaster/internal/services"
	"github.com/SubhabrataBarik/TaskMaster/internal/session"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// AuthLogin signs in with email and password and stores the token pair.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or TASKMASTER_PASSWORD", shared.ErrMissingArgument)
	}

	r.logger.Debug("signing in", "email", email)
	if _, err := r.auth.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return r.greet(ctx, email)
}

// greet prints the signed in user, falling back to fallback when /me is unavailable.
func (r *Runner) greet(ctx context.Context, fallback string) error {
	user, err := r.auth.Me(ctx)
	if err != nil {
		r.logger.Debug("could not load profile after sign in", "error", err)
		return r.writePlain("✓ Signed in as %s\n", fallback)
	}
	return r.writePlain("✓ Signed in as %s <%s>\n", user.Username, user.Email)
}

// AuthRegister creates an account without signing in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	user, err := r.auth.Register(ctx, models.RegisterRequest{
		Email:     cmd.String("email"),
		Username:  cmd.String("username"),
		Password:  cmd.String("password"),
		Password2: cmd.String("password2"),
	})
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			r.writePlainln("✗ Registration rejected:")
			for _, line := range apiErr.FieldMessages() {
				r.writePlain("  %s\n", line)
			}
		}
		return fmt.Errorf("registration failed: %w", err)
	}

	r.logger.Info("account created", "email", user.Email)
	r.writePlain("✓ Account created for %s <%s>\n", user.Username, user.Email)
	r.writePlain("  Sign in with: taskmaster auth login --email %s\n", user.Email)
	return nil
}

// AuthLogout clears the stored session. The server is asked to revoke the refresh token first.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if !r.auth.Authenticated() {
		return r.writePlain("Not signed in\n")
	}
	if err := r.auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthMe prints the signed in user.
func (r *Runner) AuthMe(ctx context.Context, cmd *cli.Command) error {
	user, err := r.auth.Me(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}

	r.writePlain("ID: %s\n", user.ID)
	r.writePlain("Username: %s\n", user.Username)
	r.writePlain("Email: %s\n", user.Email)
	return nil
}

// AuthStatus reports the stored session without contacting the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("API: %s\n", r.config.API.BaseURL)
	if r.config.API.UseMock {
		r.writePlain("Backend: in-process mock (demo account %s)\n", server.DemoEmail)
	}
	r.writePlain("Storage: %s\n", r.config.Storage.Driver)

	sess := r.store.Session()
	if sess.Empty() {
		return r.writePlain("Session: ✗ not signed in\n")
	}

	r.writePlain("Session: ✓ signed in\n")
	exp, ok := session.Expiry(sess.AccessToken)
	if !ok {
		return r.writePlain("Access token: expiry unknown\n")
	}

	if left := time.Until(exp); left > 0 {
		return r.writePlain("Access token: expires %s (in %s)\n", exp.Local().Format(time.DateTime), left.Round(time.Second))
	}
	return r.writePlain("Access token: expired %s; it will be refreshed on the next request\n", exp.Local().Format(time.DateTime))
}

// AuthRefresh exchanges the refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if r.store.Refresh() == "" {
		return shared.ErrNotAuthenticated
	}

	access, err := r.api.Refresh(ctx)
	if err != nil {
		return err
	}

	if exp, ok := session.Expiry(access); ok {
		return r.writePlain("✓ Access token refreshed, valid until %s\n", exp.Local().Format(time.DateTime))
	}
	return r.writePlain("✓ Access token refreshed\n")
}

// AuthGoogle runs the Google authorization-code flow in the browser and exchanges the result with the API.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	flow, err := services.NewGoogleFlow(r.config.Auth.Google)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, flow)
	if err != nil {
		return err
	}

	credential, err := services.Credential(token)
	if err != nil {
		return err
	}

	if _, err := r.auth.GoogleLogin(ctx, credential); err != nil {
		return fmt.Errorf("google sign in failed: %w", err)
	}
	return r.greet(ctx, "Google account")
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, flow *services.GoogleFlow) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := flow.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(flow.Config(), state, flow.ExchangeOptions()...)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(oauthHandler)

	serverAddr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Debug("starting OAuth callback server", "addr", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Google sign in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", oauthTimeout)

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, oauthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: authorization failed: %w", shared.ErrAuthRejected, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrMissingCredentials)
	}

	return result.Token, nil
}
