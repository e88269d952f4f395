// API service for authenticated requests to the TaskMaster REST API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:8000/api"
	refreshKey     = "refresh"
)

// TokenStore holds the access/refresh pair. Implementations never fail; see session.Store.
type TokenStore interface {
	Set(access, refresh string)
	Access() string
	Refresh() string
	Clear()
}

// Endpoints are the auth paths relative to the base URL.
type Endpoints struct {
	Login    string
	Register string
	Refresh  string
	Logout   string
	Me       string
	Google   string
}

// DefaultEndpoints returns the stock TaskMaster auth paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/auth/login/",
		Register: "/auth/register/",
		Refresh:  "/auth/token/refresh/",
		Logout:   "/auth/logout/",
		Me:       "/auth/me/",
		Google:   "/auth/google/",
	}
}

// EndpointsFromConfig fills unset paths with defaults.
func EndpointsFromConfig(c shared.EndpointsConfig) Endpoints {
	e := DefaultEndpoints()
	for _, pair := range []struct {
		dst *string
		src string
	}{
		{&e.Login, c.Login},
		{&e.Register, c.Register},
		{&e.Refresh, c.Refresh},
		{&e.Logout, c.Logout},
		{&e.Me, c.Me},
		{&e.Google, c.Google},
	} {
		if pair.src != "" {
			*pair.dst = pair.src
		}
	}
	return e
}

// APIOpts configures an [APIService].
type APIOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      TokenStore
	Endpoints  Endpoints
	RateLimit  float64       // requests per second; 0 disables limiting
	Timeout    time.Duration // bound on a token refresh
	Logger     *log.Logger

	// OnSessionExpired runs after a failed refresh has cleared the session.
	OnSessionExpired func()
}

// APIService performs requests against the TaskMaster API with bearer authentication.
//
// A 401 triggers one token refresh shared by every request that is waiting on it,
// followed by a single retry of the original request.
type APIService struct {
	baseURL        string
	httpClient     *http.Client
	store          TokenStore
	endpoints      Endpoints
	limiter        *rate.Limiter
	refreshTimeout time.Duration
	logger         *log.Logger
	onExpired      func()
	refreshes      singleflight.Group
}

// NewAPIService creates a new API service instance.
func NewAPIService(opts APIOpts) *APIService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Store == nil {
		opts.Store = &memoryTokens{}
	}
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &APIService{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     opts.HTTPClient,
		store:          opts.Store,
		endpoints:      opts.Endpoints,
		limiter:        limiter,
		refreshTimeout: opts.Timeout,
		logger:         opts.Logger,
		onExpired:      opts.OnSessionExpired,
	}
}

// Store returns the token store the service reads and writes.
func (a *APIService) Store() TokenStore { return a.store }

// Endpoints returns the configured auth paths.
func (a *APIService) Endpoints() Endpoints { return a.endpoints }

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any // []byte and json.RawMessage are sent as-is; anything else is JSON encoded

	// NoAuth sends the request without a bearer token and never refreshes on 401.
	NoAuth bool
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *APIResponse) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}
	return nil
}

// Do performs req, refreshing the access token and retrying once if the server answers 401.
//
// Non-2xx responses are returned, not converted to errors; see [CheckResponse].
// A failed refresh clears the session and returns [shared.ErrSessionExpired] instead of a response.
// A retry that is still answered 401 clears the session too; the 401 is returned so [CheckResponse]
// reports [shared.ErrAuthRejected]. A 403 never refreshes and never clears the session.
func (a *APIService) Do(ctx context.Context, req Request) (*APIResponse, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	var token string
	if !req.NoAuth {
		token = a.store.Access()
	}

	resp, err := a.send(ctx, req, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || req.NoAuth || a.isRefresh(req.Path) {
		return resp, nil
	}
	// Nothing to refresh and nothing to expire: the caller never signed in.
	if token == "" && a.store.Refresh() == "" {
		return resp, nil
	}

	a.logger.Debug("access token rejected, refreshing", "path", req.Path)
	fresh, err := a.refreshAfter(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = a.send(ctx, req, body, fresh)
	if err != nil {
		return nil, err
	}
	// Only expire the pair this retry used; a concurrent caller may already hold a newer one.
	if resp.StatusCode == http.StatusUnauthorized && a.store.Access() == fresh {
		a.expire("retried request rejected")
	}
	return resp, nil
}

// Refresh exchanges the stored refresh token for a new access token.
//
// Concurrent callers share one refresh request.
func (a *APIService) Refresh(ctx context.Context) (string, error) {
	return a.refreshAfter(ctx, a.store.Access())
}

// refreshAfter returns a usable access token after used was rejected.
//
// If the stored token already differs from used, someone else refreshed in the meantime and no request is made.
func (a *APIService) refreshAfter(ctx context.Context, used string) (string, error) {
	ch := a.refreshes.DoChan(refreshKey, func() (any, error) {
		if current := a.store.Access(); current != "" && current != used {
			return current, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.refreshTimeout)
		defer cancel()
		return a.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (a *APIService) refresh(ctx context.Context) (string, error) {
	refreshToken := a.store.Refresh()
	if refreshToken == "" {
		a.expire("no refresh token")
		return "", fmt.Errorf("%w: %w", shared.ErrSessionExpired, shared.ErrNoRefreshToken)
	}

	req := Request{Method: http.MethodPost, Path: a.endpoints.Refresh, NoAuth: true}
	body, _ := json.Marshal(map[string]string{"refresh": refreshToken})

	resp, err := a.send(ctx, req, body, "")
	if err != nil {
		a.expire("refresh request failed")
		return "", fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}
	if !resp.OK() {
		a.expire("refresh rejected")
		return "", fmt.Errorf("%w: %w: status %d", shared.ErrSessionExpired, shared.ErrRefreshFailed, resp.StatusCode)
	}

	var tokens models.TokenResponse
	if err := resp.Decode(&tokens); err != nil || tokens.Access == "" {
		a.expire("refresh response had no access token")
		return "", fmt.Errorf("%w: %w: missing access token", shared.ErrSessionExpired, shared.ErrRefreshFailed)
	}

	next := tokens.Refresh
	if next == "" {
		next = refreshToken
	}
	a.store.Set(tokens.Access, next)
	a.logger.Debug("access token refreshed", "rotated", tokens.Refresh != "")

	return tokens.Access, nil
}

// expire clears the session and fires the expiry hook, once per stored session.
func (a *APIService) expire(reason string) {
	if a.store.Access() == "" && a.store.Refresh() == "" {
		return
	}
	a.store.Clear()
	a.logger.Warn("session expired", "reason", reason)
	if a.onExpired != nil {
		a.onExpired()
	}
}

func (a *APIService) isRefresh(path string) bool {
	return strings.TrimRight(path, "/") == strings.TrimRight(a.endpoints.Refresh, "/")
}

// send performs a single HTTP round trip.
func (a *APIService) send(ctx context.Context, req Request, body []byte, token string) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.url(req.Path, req.Query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request failed: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetworkUnavailable, err)
	}

	a.logger.Debug("api request",
		"method", method, "path", req.Path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start).Round(time.Millisecond))

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func (a *APIService) url(path string, query url.Values) string {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		full = a.baseURL + path
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + query.Encode()
	}
	return full
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, nil
	}
}

// Get performs an authenticated GET.
func (a *APIService) Get(ctx context.Context, path string, query url.Values) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs an authenticated POST with a JSON body.
func (a *APIService) Post(ctx context.Context, path string, body any) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Patch performs an authenticated PATCH with a JSON body.
func (a *APIService) Patch(ctx context.Context, path string, body any) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs an authenticated DELETE.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// doJSON performs req, converts a non-2xx status into an [APIError] and decodes the body into out.
func (a *APIService) doJSON(ctx context.Context, req Request, out any) error {
	resp, err := a.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// memoryTokens is the fallback store when none is configured.
type memoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (m *memoryTokens) Set(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
}

func (m *memoryTokens) Access() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

func (m *memoryTokens) Refresh() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

func (m *memoryTokens) Clear() { m.Set("", "") }
