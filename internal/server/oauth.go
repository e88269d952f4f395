package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
)

const exchangeTimeout = 30 * time.Second

// OAuthResult is the outcome of one Google sign-in callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler receives the authorization-code redirect and exchanges the code for a token.
// It serves the path of the config's redirect URL and accepts a single callback.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	opts    []oauth2.AuthCodeOption
	results chan OAuthResult
	sent    sync.Once
	hit     atomic.Bool
}

// NewOAuthHandler creates a handler for config. state must match the one sent in the auth URL;
// opts are passed to the exchange, e.g. the PKCE verifier.
func NewOAuthHandler(config *oauth2.Config, state string, opts ...oauth2.AuthCodeOption) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		opts:    opts,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the redirect URL's path, or /callback when it has none.
func (h *OAuthHandler) Routes() []string {
	if u, err := url.Parse(h.config.RedirectURL); err == nil && u.Path != "" && u.Path != "/" {
		return []string{u.Path}
	}
	return []string{"/callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.hit.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	token, status, err := h.exchange(r)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, http.StatusText(status)+": "+err.Error(), status)
		return
	}
	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	successPage.Execute(w, "TaskMaster")
}

// exchange validates the callback query and trades the code for a token.
func (h *OAuthHandler) exchange(r *http.Request) (*oauth2.Token, int, error) {
	q := r.URL.Query()
	if q.Get("state") != h.state {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid state parameter")
	}

	code := q.Get("code")
	if code == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("google sign in failed: %s %s", q.Get("error"), q.Get("error_description"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	token, err := h.config.Exchange(ctx, code, h.opts...)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, http.StatusOK, nil
}

// Send delivers result once; later calls are ignored.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.sent.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one value and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Signed in to {{.}}</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
  <h1>Signed in with Google</h1>
  <p>Return to the terminal; {{.}} has your session.</p>
</body>
</html>
`))
